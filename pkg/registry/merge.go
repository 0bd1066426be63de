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

// Package registry implements the device reconciliation engine: it
// groups raw per-tool records by identity and resolves conflicts into
// one canonical device model.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
)

// ErrMerge is returned for structurally invalid input; grouping
// ambiguity is resolved by policy, never surfaced as an error.
var ErrMerge = errors.New("merge failed")

const defaultSimilarityThreshold = 0.85

// Reconciler merges raw detector records into a canonical SystemReport.
type Reconciler struct {
	threshold float64
	logger    logger.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSimilarityThreshold overrides the fuzzy-match threshold.
func WithSimilarityThreshold(t float64) Option {
	return func(r *Reconciler) {
		if t > 0 && t <= 1 {
			r.threshold = t
		}
	}
}

// NewReconciler creates a reconciler with the default 0.85 token-set
// similarity threshold.
func NewReconciler(log logger.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		threshold: defaultSimilarityThreshold,
		logger:    log,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// sourceRecord pairs a raw record with its detector's declared priority.
type sourceRecord struct {
	rec      models.RawDeviceRecord
	priority int
}

// deviceGroup is one identity group under reconciliation.
type deviceGroup struct {
	key     string // exact identity key, may be empty
	busAddr string
	desc    string // normalized vendor+model for fuzzy matching
	records []sourceRecord
}

// Merge reconciles the successful detector outcomes into a canonical
// report. The result is deterministic for a fixed input set regardless
// of the order outcomes completed in.
func (r *Reconciler) Merge(
	outcomes []models.DetectorOutcome,
	system models.SystemInfo,
	level models.PrivacyLevel,
) (*models.SystemReport, error) {
	records, toolsUsed, failedTools, err := collectRecords(outcomes)
	if err != nil {
		return nil, err
	}

	// Fixed ordering before grouping makes merge output independent of
	// detector completion order.
	sort.SliceStable(records, func(i, j int) bool {
		return recordLess(&records[i], &records[j])
	})

	groups := r.groupRecords(records)

	report := &models.SystemReport{
		Metadata: models.ReportMetadata{
			Version:      models.ReportVersion,
			GeneratedAt:  time.Now().UTC(),
			PrivacyLevel: level,
			ToolsUsed:    toolsUsed,
			FailedTools:  failedTools,
		},
		System:   system,
		Storage:  []*models.HardwareDevice{},
		Graphics: []*models.HardwareDevice{},
		Network:  []*models.HardwareDevice{},
		USB:      []*models.HardwareDevice{},
		Audio:    []*models.HardwareDevice{},
	}

	for _, group := range groups {
		switch group.records[0].rec.ComponentType {
		case models.ComponentCPU:
			if report.CPU == nil {
				report.CPU = resolveCPU(group)
			}
		case models.ComponentMemory:
			if report.Memory == nil {
				report.Memory = resolveMemory(group)
			}
		default:
			device := resolveDevice(group)
			if !appendDevice(report, device) {
				r.logger.Warn().
					Str("component_type", string(device.ComponentType)).
					Str("model", device.Model).
					Strs("sources", device.Sources).
					Msg("Dropping device with unrecognized component type")
			}
		}
	}

	report.KernelSupport = buildKernelSupport(report, system.KernelVersion)

	r.logger.Info().
		Int("raw_records", len(records)).
		Int("groups", len(groups)).
		Strs("tools_used", toolsUsed).
		Strs("failed_tools", failedTools).
		Msg("Device reconciliation complete")

	return report, nil
}

// collectRecords flattens outcomes into records plus tool bookkeeping,
// rejecting structurally invalid records.
func collectRecords(outcomes []models.DetectorOutcome) (
	records []sourceRecord, toolsUsed, failedTools []string, err error,
) {
	for _, outcome := range outcomes {
		if outcome.Err != nil || outcome.Result == nil {
			failedTools = append(failedTools, outcome.Detector)
			continue
		}

		toolsUsed = append(toolsUsed, outcome.Detector)

		for _, rec := range outcome.Result.Records {
			if rec.ComponentType == "" {
				return nil, nil, nil, fmt.Errorf(
					"%w: record from %q missing component_type", ErrMerge, outcome.Detector)
			}

			if rec.Detector == "" {
				rec.Detector = outcome.Detector
			}

			records = append(records, sourceRecord{rec: rec, priority: outcome.Priority})
		}
	}

	sort.Strings(toolsUsed)
	sort.Strings(failedTools)

	return records, toolsUsed, failedTools, nil
}

// recordLess is a total order over records: component type, identity
// key, description, then detector name.
func recordLess(a, b *sourceRecord) bool {
	if a.rec.ComponentType != b.rec.ComponentType {
		return a.rec.ComponentType < b.rec.ComponentType
	}

	keyA, keyB := identityKey(&a.rec), identityKey(&b.rec)
	if keyA != keyB {
		return keyA < keyB
	}

	descA, descB := normalizeDescription(&a.rec), normalizeDescription(&b.rec)
	if descA != descB {
		return descA < descB
	}

	return a.rec.Detector < b.rec.Detector
}

// groupRecords assigns each record to an identity group. Exact identity
// keys group first; records without a full key join a group when they
// share its bus address or when the normalized vendor+model similarity
// reaches the threshold.
func (r *Reconciler) groupRecords(records []sourceRecord) []*deviceGroup {
	var groups []*deviceGroup

	byKey := make(map[string]*deviceGroup)

	for _, src := range records {
		key := identityKey(&src.rec)
		componentType := src.rec.ComponentType

		if key != "" {
			fullKey := string(componentType) + "|" + key
			if group, ok := byKey[fullKey]; ok {
				group.records = append(group.records, src)
				continue
			}

			group := &deviceGroup{
				key:     key,
				busAddr: strings.ToLower(strings.TrimSpace(src.rec.BusAddress)),
				desc:    normalizeDescription(&src.rec),
				records: []sourceRecord{src},
			}
			byKey[fullKey] = group
			groups = append(groups, group)

			continue
		}

		if group := r.findFuzzyGroup(groups, &src.rec); group != nil {
			group.records = append(group.records, src)
			continue
		}

		groups = append(groups, &deviceGroup{
			busAddr: strings.ToLower(strings.TrimSpace(src.rec.BusAddress)),
			desc:    normalizeDescription(&src.rec),
			records: []sourceRecord{src},
		})
	}

	return groups
}

// findFuzzyGroup returns the first existing group of the same component
// type that this record matches, either by bus address or by string
// similarity. First match wins; group creation order is deterministic.
func (r *Reconciler) findFuzzyGroup(groups []*deviceGroup, rec *models.RawDeviceRecord) *deviceGroup {
	busAddr := strings.ToLower(strings.TrimSpace(rec.BusAddress))
	desc := normalizeDescription(rec)

	for _, group := range groups {
		if group.records[0].rec.ComponentType != rec.ComponentType {
			continue
		}

		if busAddr != "" && group.busAddr == busAddr {
			return group
		}

		if desc != "" && group.desc != "" && tokenSetRatio(group.desc, desc) >= r.threshold {
			return group
		}
	}

	return nil
}

// appendDevice places a device in its category list, reporting whether
// the component type was recognized.
func appendDevice(report *models.SystemReport, device *models.HardwareDevice) bool {
	switch device.ComponentType {
	case models.ComponentStorage:
		report.Storage = append(report.Storage, device)
	case models.ComponentGraphics:
		report.Graphics = append(report.Graphics, device)
	case models.ComponentNetwork:
		report.Network = append(report.Network, device)
	case models.ComponentUSB:
		report.USB = append(report.USB, device)
	case models.ComponentAudio:
		report.Audio = append(report.Audio, device)
	default:
		return false
	}

	return true
}

// buildKernelSupport summarizes driver compatibility across all merged
// devices.
func buildKernelSupport(report *models.SystemReport, kernelVersion string) *models.KernelSupport {
	devices := report.AllDevices()
	if len(devices) == 0 {
		return nil
	}

	support := &models.KernelSupport{
		KernelVersion: kernelVersion,
		TotalDevices:  len(devices),
	}

	missing := make(map[string]struct{})

	for _, device := range devices {
		if device.Compatibility == nil {
			continue
		}

		switch device.Compatibility.Status {
		case "supported":
			support.SupportedDevices++
		case "experimental":
			support.ExperimentalDevices++
		case "unsupported":
			support.UnsupportedDevices++

			if device.Compatibility.Module != "" {
				missing[device.Compatibility.Module] = struct{}{}
			}
		}
	}

	for module := range missing {
		support.MissingModules = append(support.MissingModules, module)
	}

	sort.Strings(support.MissingModules)

	return support
}
