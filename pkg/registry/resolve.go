/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package registry

import (
	"sort"
	"strconv"
	"strings"

	"github.com/carverauto/hwreport/pkg/models"
)

// Spec keys detectors may set that feed typed report fields.
const (
	specCores         = "cores"
	specThreads       = "threads"
	specBaseFreqMHz   = "base_frequency_mhz"
	specMaxFreqMHz    = "max_frequency_mhz"
	specFlags         = "flags"
	specTotalBytes    = "total_bytes"
	specAvailBytes    = "available_bytes"
	specSupportStatus = "support_status"
	specDriverModule  = "driver_module"
)

// orderGroup sorts a group's records by declared priority descending;
// equal priorities break by lexical detector name so resolution never
// depends on incidental completion order.
func orderGroup(group *deviceGroup) []sourceRecord {
	ordered := make([]sourceRecord, len(group.records))
	copy(ordered, group.records)

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority > ordered[j].priority
		}

		return ordered[i].rec.Detector < ordered[j].rec.Detector
	})

	return ordered
}

// fieldResolver picks the winning value for each field and keeps every
// losing, differing value as a provenance note.
type fieldResolver struct {
	ordered    []sourceRecord
	provenance []models.ProvenanceNote
}

func (f *fieldResolver) resolve(field string, get func(*models.RawDeviceRecord) string) string {
	winner := ""
	winnerFound := false

	for i := range f.ordered {
		value := strings.TrimSpace(get(&f.ordered[i].rec))
		if value == "" {
			continue
		}

		if !winnerFound {
			winner = value
			winnerFound = true

			continue
		}

		if value != winner {
			f.provenance = append(f.provenance, models.ProvenanceNote{
				Detector: f.ordered[i].rec.Detector,
				Field:    field,
				Value:    value,
			})
		}
	}

	return winner
}

// resolveRaw picks a winner without recording provenance. Raw
// identifiers (serials, MACs, UUIDs, bus addresses) must never leak
// into provenance notes, which survive anonymization.
func (f *fieldResolver) resolveRaw(get func(*models.RawDeviceRecord) string) string {
	for i := range f.ordered {
		if value := strings.TrimSpace(get(&f.ordered[i].rec)); value != "" {
			return value
		}
	}

	return ""
}

func (f *fieldResolver) resolveUint(get func(*models.RawDeviceRecord) uint64) uint64 {
	for i := range f.ordered {
		if v := get(&f.ordered[i].rec); v > 0 {
			return v
		}
	}

	return 0
}

func (f *fieldResolver) resolveSpec(key string) string {
	return f.resolve("specs."+key, func(rec *models.RawDeviceRecord) string {
		return rec.Specs[key]
	})
}

// mergedSpecs resolves every spec key seen across the group.
func (f *fieldResolver) mergedSpecs() map[string]string {
	keys := make(map[string]struct{})

	for i := range f.ordered {
		for key := range f.ordered[i].rec.Specs {
			keys[key] = struct{}{}
		}
	}

	if len(keys) == 0 {
		return nil
	}

	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}

	sort.Strings(sorted)

	specs := make(map[string]string, len(sorted))

	for _, key := range sorted {
		if value := f.resolveSpec(key); value != "" {
			specs[key] = value
		}
	}

	return specs
}

func groupSources(ordered []sourceRecord) []string {
	seen := make(map[string]struct{}, len(ordered))

	var sources []string

	for i := range ordered {
		name := ordered[i].rec.Detector
		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}

		sources = append(sources, name)
	}

	sort.Strings(sources)

	return sources
}

// groupConfidence combines mean detector-reported confidence with a
// corroboration factor: unmatched single-detector records score lower
// than devices multiple tools agree on.
func groupConfidence(ordered []sourceRecord, sourceCount int) float64 {
	if len(ordered) == 0 {
		return 0
	}

	sum := 0.0
	for i := range ordered {
		sum += ordered[i].rec.Confidence
	}

	mean := sum / float64(len(ordered))

	factor := 1.0

	switch sourceCount {
	case 1:
		factor = 0.6
	case 2:
		factor = 0.85
	}

	confidence := mean * factor
	if confidence > 1 {
		confidence = 1
	}

	return confidence
}

func resolveDevice(group *deviceGroup) *models.HardwareDevice {
	ordered := orderGroup(group)
	resolver := &fieldResolver{ordered: ordered}
	sources := groupSources(ordered)

	device := &models.HardwareDevice{
		ComponentType: ordered[0].rec.ComponentType,
		Vendor:        resolver.resolve("vendor", func(r *models.RawDeviceRecord) string { return r.Vendor }),
		Model:         resolver.resolve("model", func(r *models.RawDeviceRecord) string { return r.Model }),
		VendorID:      resolver.resolveRaw(func(r *models.RawDeviceRecord) string { return r.VendorID }),
		DeviceID:      resolver.resolveRaw(func(r *models.RawDeviceRecord) string { return r.DeviceID }),
		BusAddress:    resolver.resolveRaw(func(r *models.RawDeviceRecord) string { return r.BusAddress }),
		DeviceType:    resolver.resolve("device_type", func(r *models.RawDeviceRecord) string { return r.DeviceType }),
		Driver:        resolver.resolve("driver", func(r *models.RawDeviceRecord) string { return r.Driver }),
		Serial:        resolver.resolveRaw(func(r *models.RawDeviceRecord) string { return r.Serial }),
		MAC:           resolver.resolveRaw(func(r *models.RawDeviceRecord) string { return r.MAC }),
		UUID:          resolver.resolveRaw(func(r *models.RawDeviceRecord) string { return r.UUID }),
		SizeBytes:     resolver.resolveUint(func(r *models.RawDeviceRecord) uint64 { return r.SizeBytes }),
		Sources:       sources,
	}

	device.Specifications = resolver.mergedSpecs()
	device.Provenance = resolver.provenance
	device.MergeConfidence = groupConfidence(ordered, len(sources))
	device.Compatibility = resolveCompatibility(device.Specifications)

	// Raw identifier fields never belong in the exported spec map.
	delete(device.Specifications, "serial")
	delete(device.Specifications, "mac")
	delete(device.Specifications, "uuid")

	return device
}

func resolveCompatibility(specs map[string]string) *models.Compatibility {
	status := specs[specSupportStatus]
	if status == "" {
		return nil
	}

	score := 25 // unknown

	switch status {
	case "supported":
		score = 100
	case "experimental":
		score = 50
	case "unsupported":
		score = 0
	}

	return &models.Compatibility{
		Status: status,
		Score:  score,
		Module: specs[specDriverModule],
	}
}

func resolveCPU(group *deviceGroup) *models.CPUInfo {
	ordered := orderGroup(group)
	resolver := &fieldResolver{ordered: ordered}
	sources := groupSources(ordered)

	cpu := &models.CPUInfo{
		Model:            resolver.resolve("model", func(r *models.RawDeviceRecord) string { return r.Model }),
		Vendor:           resolver.resolve("vendor", func(r *models.RawDeviceRecord) string { return r.Vendor }),
		Cores:            int(parseUint(resolver.resolveSpec(specCores))),
		Threads:          int(parseUint(resolver.resolveSpec(specThreads))),
		BaseFrequencyMHz: parseFloat(resolver.resolveSpec(specBaseFreqMHz)),
		MaxFrequencyMHz:  parseFloat(resolver.resolveSpec(specMaxFreqMHz)),
		Sources:          sources,
	}

	if flags := resolver.resolveSpec(specFlags); flags != "" {
		cpu.Flags = strings.Fields(flags)
	}

	cpu.Provenance = resolver.provenance
	cpu.MergeConfidence = groupConfidence(ordered, len(sources))

	return cpu
}

func resolveMemory(group *deviceGroup) *models.MemoryInfo {
	ordered := orderGroup(group)
	resolver := &fieldResolver{ordered: ordered}
	sources := groupSources(ordered)

	memory := &models.MemoryInfo{
		TotalBytes:     parseUint(resolver.resolveSpec(specTotalBytes)),
		AvailableBytes: parseUint(resolver.resolveSpec(specAvailBytes)),
		Sources:        sources,
	}

	if memory.TotalBytes == 0 {
		memory.TotalBytes = resolver.resolveUint(func(r *models.RawDeviceRecord) uint64 { return r.SizeBytes })
	}

	memory.MergeConfidence = groupConfidence(ordered, len(sources))

	return memory
}

func parseUint(s string) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}

	return v
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}

	return v
}
