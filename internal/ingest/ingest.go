package ingest

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"netinsights/internal/analytics"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SampleStore holds the bounded historical sample windows that trend
// analysis consumes. It is the in-process home for values pushed by
// external automation; persistence of history stays with the pusher.
type SampleStore struct {
	mu     sync.RWMutex
	window time.Duration
	series map[string]*analytics.TrendSeries
	sites  map[string]string
}

// NewSampleStore creates a store bounding each series to windowDays.
func NewSampleStore(windowDays int) *SampleStore {
	if windowDays <= 0 {
		windowDays = 90
	}
	return &SampleStore{
		window: time.Duration(windowDays) * 24 * time.Hour,
		series: make(map[string]*analytics.TrendSeries),
		sites:  make(map[string]string),
	}
}

// Append adds a sample to the named series and trims anything older than
// the window relative to the newest sample.
func (s *SampleStore) Append(metric, site string, sample analytics.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	series, ok := s.series[metric]
	if !ok {
		series = &analytics.TrendSeries{}
		s.series[metric] = series
	}
	series.Append(sample)

	if latest, ok := series.Latest(); ok {
		series.DropBefore(latest.At.Add(-s.window))
	}
	if site != "" {
		s.sites[metric] = site
	}
}

// Series returns a copy of the named series.
func (s *SampleStore) Series(metric string) (analytics.TrendSeries, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.series[metric]
	if !ok {
		return analytics.TrendSeries{}, false
	}
	return analytics.NewTrendSeries(series.Samples()...), true
}

// Histories returns copies of every series plus the site attribution map,
// the shape the predictive alert builders consume.
func (s *SampleStore) Histories() (map[string]analytics.TrendSeries, map[string]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	histories := make(map[string]analytics.TrendSeries, len(s.series))
	for metric, series := range s.series {
		histories[metric] = analytics.NewTrendSeries(series.Samples()...)
	}
	sites := make(map[string]string, len(s.sites))
	for metric, site := range s.sites {
		sites[metric] = site
	}
	return histories, sites
}

// PushedSample is one externally computed metric accepted into a series.
type PushedSample struct {
	ID     string    `json:"id"`
	Metric string    `json:"metric"`
	Site   string    `json:"site,omitempty"`
	Source string    `json:"source,omitempty"`
	At     time.Time `json:"timestamp"`
	Value  float64   `json:"value"`
}

// Ingestor validates webhook-style pushed metric payloads and appends them
// as samples. Validation is schema-first: a payload that fails the schema
// is rejected whole, never partially applied.
type Ingestor struct {
	store  *SampleStore
	schema *jsonschema.Resolved
}

// NewIngestor compiles the payload schema and binds the ingestor to a store.
func NewIngestor(store *SampleStore) (*Ingestor, error) {
	schema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"metric", "timestamp", "value"},
		Properties: map[string]*jsonschema.Schema{
			"metric":    {Type: "string", Pattern: `\S`},
			"timestamp": {Type: "string"},
			"value":     {Type: "number"},
			"site":      {Type: "string"},
			"source":    {Type: "string"},
		},
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("compile push schema: %w", err)
	}
	return &Ingestor{store: store, schema: resolved}, nil
}

type pushPayload struct {
	Metric    string  `json:"metric"`
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
	Site      string  `json:"site"`
	Source    string  `json:"source"`
}

// Push validates a raw payload and stores it as a new sample.
func (i *Ingestor) Push(payload []byte) (PushedSample, error) {
	var instance any
	if err := json.Unmarshal(payload, &instance); err != nil {
		return PushedSample{}, fmt.Errorf("push payload is not JSON: %w", err)
	}
	if err := i.schema.Validate(instance); err != nil {
		return PushedSample{}, fmt.Errorf("push payload rejected: %w", err)
	}

	var p pushPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return PushedSample{}, fmt.Errorf("decode push payload: %w", err)
	}

	at, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return PushedSample{}, fmt.Errorf("push timestamp must be RFC3339: %w", err)
	}

	sample := PushedSample{
		ID:     uuid.NewString(),
		Metric: p.Metric,
		Site:   p.Site,
		Source: p.Source,
		At:     at,
		Value:  p.Value,
	}
	i.store.Append(sample.Metric, sample.Site, analytics.Sample{At: at, Value: p.Value})

	log.Debug().
		Str("metric", sample.Metric).
		Str("source", sample.Source).
		Float64("value", sample.Value).
		Msg("Accepted pushed sample")
	return sample, nil
}
