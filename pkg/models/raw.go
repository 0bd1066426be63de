package models

// Platform identifies an operating system a detector can run on.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "darwin"
	PlatformWindows Platform = "windows"
)

// ComponentType categorizes a detected device.
type ComponentType string

const (
	ComponentCPU      ComponentType = "cpu"
	ComponentMemory   ComponentType = "memory"
	ComponentStorage  ComponentType = "storage"
	ComponentGraphics ComponentType = "graphics"
	ComponentNetwork  ComponentType = "network"
	ComponentUSB      ComponentType = "usb"
	ComponentAudio    ComponentType = "audio"
)

// RawDeviceRecord is one device as reported by exactly one detection tool.
// Records are ephemeral: they exist only between detection and merge and
// carry raw identifiers that must never reach an exported report.
type RawDeviceRecord struct {
	ComponentType ComponentType     `json:"component_type"`
	Vendor        string            `json:"vendor,omitempty"`
	Model         string            `json:"model,omitempty"`
	VendorID      string            `json:"vendor_id,omitempty"`
	DeviceID      string            `json:"device_id,omitempty"`
	BusAddress    string            `json:"bus_address,omitempty"`
	Serial        string            `json:"-"`
	MAC           string            `json:"-"`
	UUID          string            `json:"-"`
	Driver        string            `json:"driver,omitempty"`
	DeviceType    string            `json:"device_type,omitempty"`
	SizeBytes     uint64            `json:"size_bytes,omitempty"`
	Specs         map[string]string `json:"specs,omitempty"`

	// Detector is the name of the tool that produced this record.
	Detector string `json:"detector"`
	// Confidence is the detector-reported confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// DetectionResult is the successful outcome of one detector run.
type DetectionResult struct {
	ToolName string            `json:"tool_name"`
	Records  []RawDeviceRecord `json:"records"`
	// Warnings carries non-fatal parse notes from the tool wrapper.
	Warnings []string `json:"warnings,omitempty"`
}

// DetectorOutcome pairs a detector name with its result or failure.
// Exactly one of Result and Err is set.
type DetectorOutcome struct {
	Detector string
	Priority int
	Result   *DetectionResult
	Err      error
}
