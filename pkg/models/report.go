package models

import "time"

// ReportVersion is the wire version of the exported report document.
const ReportVersion = "1.0.0"

// SystemReport is the unit of work carried through the whole pipeline:
// built by the reconciler, mutated only by anonymization stages, and
// persisted only after it passes validation.
type SystemReport struct {
	Metadata      ReportMetadata    `json:"metadata"`
	System        SystemInfo        `json:"system"`
	CPU           *CPUInfo          `json:"cpu,omitempty"`
	Memory        *MemoryInfo       `json:"memory,omitempty"`
	Storage       []*HardwareDevice `json:"storage"`
	Graphics      []*HardwareDevice `json:"graphics"`
	Network       []*HardwareDevice `json:"network"`
	USB           []*HardwareDevice `json:"usb"`
	Audio         []*HardwareDevice `json:"audio"`
	KernelSupport *KernelSupport    `json:"kernel_support,omitempty"`
}

// ReportMetadata describes how and when the report was generated.
type ReportMetadata struct {
	Version            string       `json:"version"`
	GeneratedAt        time.Time    `json:"generated_at"`
	PrivacyLevel       PrivacyLevel `json:"privacy_level"`
	ToolsUsed          []string     `json:"tools_used"`
	FailedTools        []string     `json:"failed_tools,omitempty"`
	AnonymizedSystemID string       `json:"anonymized_system_id"`
}

// SystemInfo is host-level information. Hostname starts raw and is
// replaced by its anonymized form during Stage 1.
type SystemInfo struct {
	AnonymizedHostname string     `json:"anonymized_hostname"`
	KernelVersion      string     `json:"kernel_version"`
	Distribution       string     `json:"distribution,omitempty"`
	Architecture       string     `json:"architecture"`
	BootTime           *time.Time `json:"boot_time,omitempty"`
}

// HardwareDevice is the canonical, merge-resolved representation of one
// physical device. Raw identifiers are json-suppressed and cleared by
// Stage 1; only the anonymized forms are exported.
type HardwareDevice struct {
	ComponentType ComponentType `json:"component_type"`
	Vendor        string        `json:"vendor,omitempty"`
	Model         string        `json:"model,omitempty"`
	VendorID      string        `json:"vendor_id,omitempty"`
	DeviceID      string        `json:"device_id,omitempty"`
	BusAddress    string        `json:"-"`
	DeviceType    string        `json:"device_type,omitempty"`
	Driver        string        `json:"driver,omitempty"`
	SizeBytes     uint64        `json:"size_bytes,omitempty"`

	Serial string `json:"-"`
	MAC    string `json:"-"`
	UUID   string `json:"-"`

	AnonymizedSerial string `json:"anonymized_serial,omitempty"`
	AnonymizedMAC    string `json:"anonymized_mac,omitempty"`
	AnonymizedUUID   string `json:"anonymized_uuid,omitempty"`

	Specifications map[string]string `json:"specifications,omitempty"`
	Compatibility  *Compatibility    `json:"compatibility,omitempty"`

	// Provenance keeps the field values that lost conflict resolution.
	Provenance []ProvenanceNote `json:"provenance,omitempty"`
	// Sources lists the detectors that corroborated this device.
	Sources []string `json:"sources"`
	// MergeConfidence is in [0,1], derived from corroboration.
	MergeConfidence float64 `json:"merge_confidence"`
	// ConfidenceScore is the 0-100 validator-assigned score.
	ConfidenceScore int `json:"confidence_score,omitempty"`
}

// ProvenanceNote records a non-winning value from conflict resolution.
type ProvenanceNote struct {
	Detector string `json:"detector"`
	Field    string `json:"field"`
	Value    string `json:"value"`
}

// Compatibility summarizes kernel driver support for a device.
type Compatibility struct {
	Status string `json:"status"` // supported, experimental, unsupported, unknown
	Score  int    `json:"score"`  // 0-100
	Module string `json:"module,omitempty"`
}

// CPUInfo is the merged processor description.
type CPUInfo struct {
	Model            string   `json:"model"`
	Vendor           string   `json:"vendor,omitempty"`
	Cores            int      `json:"cores"`
	Threads          int      `json:"threads"`
	BaseFrequencyMHz float64  `json:"base_frequency_mhz,omitempty"`
	MaxFrequencyMHz  float64  `json:"max_frequency_mhz,omitempty"`
	Flags            []string `json:"flags,omitempty"`

	Sources         []string         `json:"sources"`
	Provenance      []ProvenanceNote `json:"provenance,omitempty"`
	MergeConfidence float64          `json:"merge_confidence"`
}

// MemoryInfo is the merged memory description.
type MemoryInfo struct {
	TotalBytes     uint64       `json:"total_bytes"`
	AvailableBytes uint64       `json:"available_bytes,omitempty"`
	DIMMs          []MemoryDIMM `json:"dimms,omitempty"`

	Sources         []string `json:"sources"`
	MergeConfidence float64  `json:"merge_confidence"`
}

// MemoryDIMM is a single populated memory slot.
type MemoryDIMM struct {
	SizeBytes    uint64 `json:"size_bytes"`
	SpeedMTs     uint32 `json:"speed_mts,omitempty"`
	MemoryType   string `json:"memory_type,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

// KernelSupport summarizes driver coverage across the detected devices.
type KernelSupport struct {
	KernelVersion       string   `json:"kernel_version"`
	TotalDevices        int      `json:"total_devices"`
	SupportedDevices    int      `json:"supported_devices"`
	UnsupportedDevices  int      `json:"unsupported_devices"`
	ExperimentalDevices int      `json:"experimental_devices"`
	MissingModules      []string `json:"missing_modules,omitempty"`
}

// DeviceLists returns every per-category device slice in a fixed order so
// pipeline stages and validators can walk the whole report uniformly.
func (r *SystemReport) DeviceLists() [][]*HardwareDevice {
	return [][]*HardwareDevice{r.Storage, r.Graphics, r.Network, r.USB, r.Audio}
}

// AllDevices returns every canonical device in the report, category order.
func (r *SystemReport) AllDevices() []*HardwareDevice {
	var out []*HardwareDevice
	for _, list := range r.DeviceLists() {
		out = append(out, list...)
	}

	return out
}
