package inventory

import (
	"context"
	"time"
)

// PrefixRecord is a point-in-time read of an IP prefix and its address usage.
type PrefixRecord struct {
	Prefix         string    `json:"prefix"`
	Site           string    `json:"site,omitempty"`
	Role           string    `json:"role,omitempty"`
	VRF            string    `json:"vrf,omitempty"`
	Status         string    `json:"status"`
	TotalAddresses int64     `json:"total_addresses"`
	UsedAddresses  int64     `json:"used_addresses"`
	Description    string    `json:"description,omitempty"`
	Created        time.Time `json:"created"`
}

// VLANRecord is a point-in-time read of a VLAN. A VLAN counts as "used"
// when at least one interface is attached to it.
type VLANRecord struct {
	VID                int       `json:"vid"`
	Name               string    `json:"name"`
	Site               string    `json:"site,omitempty"`
	AttachedInterfaces int       `json:"attached_interfaces"`
	Created            time.Time `json:"created"`
}

// DeviceRecord is a point-in-time read of a device and its documentation fields.
type DeviceRecord struct {
	Name           string    `json:"name"`
	Site           string    `json:"site,omitempty"`
	Role           string    `json:"device_role,omitempty"`
	DeviceType     string    `json:"device_type,omitempty"`
	Platform       string    `json:"platform,omitempty"`
	Serial         string    `json:"serial,omitempty"`
	AssetTag       string    `json:"asset_tag,omitempty"`
	PrimaryIP      string    `json:"primary_ip,omitempty"`
	InterfaceCount int       `json:"interface_count"`
	Status         string    `json:"status"`
	LastUpdated    time.Time `json:"last_updated"`
	Created        time.Time `json:"created"`
}

// Field resolves a device attribute by its canonical snake_case name, the
// naming used by required-field and naming-convention configuration.
func (d DeviceRecord) Field(name string) (string, bool) {
	switch name {
	case "name":
		return d.Name, true
	case "site":
		return d.Site, true
	case "device_role":
		return d.Role, true
	case "device_type":
		return d.DeviceType, true
	case "platform":
		return d.Platform, true
	case "serial":
		return d.Serial, true
	case "asset_tag":
		return d.AssetTag, true
	case "primary_ip":
		return d.PrimaryIP, true
	case "status":
		return d.Status, true
	}
	return "", false
}

// InterfaceRecord is a point-in-time read of a device interface.
type InterfaceRecord struct {
	Device string `json:"device"`
	Name   string `json:"name"`
	MAC    string `json:"mac_address,omitempty"`
}

// CableRecord is a point-in-time read of a physical cable.
type CableRecord struct {
	ID          int    `json:"id"`
	Label       string `json:"label,omitempty"`
	Type        string `json:"type,omitempty"`
	ATerminated bool   `json:"a_terminated"`
	BTerminated bool   `json:"b_terminated"`
	Status      string `json:"status"`
}

// CircuitRecord is a point-in-time read of a provider circuit.
type CircuitRecord struct {
	CID            string    `json:"cid"`
	Provider       string    `json:"provider,omitempty"`
	Status         string    `json:"status"`
	CommitRateMbps int       `json:"commit_rate_mbps,omitempty"`
	Created        time.Time `json:"created"`
}

// Snapshot is an immutable read of the inventory at one instant.
// Calculators consume snapshots and never mutate them.
type Snapshot struct {
	TakenAt    time.Time         `json:"taken_at"`
	Prefixes   []PrefixRecord    `json:"prefixes,omitempty"`
	VLANs      []VLANRecord      `json:"vlans,omitempty"`
	Devices    []DeviceRecord    `json:"devices,omitempty"`
	Interfaces []InterfaceRecord `json:"interfaces,omitempty"`
	Cables     []CableRecord     `json:"cables,omitempty"`
	Circuits   []CircuitRecord   `json:"circuits,omitempty"`
}

// Empty reports whether the snapshot carries no records of any kind.
func (s Snapshot) Empty() bool {
	return len(s.Prefixes) == 0 && len(s.VLANs) == 0 && len(s.Devices) == 0 &&
		len(s.Interfaces) == 0 && len(s.Cables) == 0 && len(s.Circuits) == 0
}

// Accessor supplies inventory snapshots. Implementations are read-only;
// the analytics core never writes through this interface.
type Accessor interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}
