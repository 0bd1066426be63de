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

package privacy

import (
	"context"
	"fmt"
	"math/bits"
	"regexp"
	"strings"

	"github.com/carverauto/hwreport/pkg/models"
)

// generalizationRules is one tier's rule set. Aggressiveness increases
// with the privacy level that selects the tier.
type generalizationRules struct {
	// cpuModel maps a full CPU model string to a coarser bucket.
	cpuModel func(model string) string
	// deviceModel maps a device model string to a coarser bucket.
	deviceModel func(component models.ComponentType, model string) string
	// bucketBytes coarsens byte quantities (memory, storage).
	bucketBytes func(v uint64) uint64
	// dropCPUFlags removes the CPU feature flag list entirely.
	dropCPUFlags bool
	// dropProvenance removes merge provenance notes from the export.
	dropProvenance bool
}

var (
	cpuFreqSuffix = regexp.MustCompile(`\s*@\s*[0-9.]+\s*[GM]Hz\s*$`)
	cpuSteppings  = regexp.MustCompile(`\s*\((?:stepping|revision)[^)]*\)`)

	// cpuFamily captures the family portion of common CPU model names,
	// e.g. "Core i7" from "Intel Core i7-9700K" or "Ryzen 9" from
	// "AMD Ryzen 9 7950X".
	cpuFamily = regexp.MustCompile(`(?i)\b(core\s+(?:i[3579]|ultra\s*[579])|ryzen\s+[3579]|xeon|epyc|threadripper|athlon|celeron|pentium|apple\s+m[1-4])\b`)
)

// tierRules maps each generalization tier to its rule set. A privacy
// level whose tier has no entry is a configuration error.
var tierRules = map[models.GeneralizationTier]*generalizationRules{
	models.GeneralizationMinimal: {
		cpuModel:    cleanModelString,
		deviceModel: func(_ models.ComponentType, model string) string { return cleanModelString(model) },
		bucketBytes: roundPowerOfTwo,
	},
	models.GeneralizationModerate: {
		cpuModel:     cpuFamilyBucket,
		deviceModel:  func(_ models.ComponentType, model string) string { return cleanModelString(model) },
		bucketBytes:  roundPowerOfTwo,
		dropCPUFlags: true,
	},
	models.GeneralizationAggressive: {
		cpuModel: cpuVendorTierBucket,
		deviceModel: func(component models.ComponentType, _ string) string {
			// Strict collapses low-signal categories to presence only.
			if component == models.ComponentUSB || component == models.ComponentAudio {
				return "present"
			}

			return ""
		},
		bucketBytes:    roundPowerOfTwo,
		dropCPUFlags:   true,
		dropProvenance: true,
	},
}

// generalizationStage maps exact model strings and fine-grained specs
// onto coarser buckets according to the level's tier.
type generalizationStage struct{}

// NewGeneralizationStage returns the Stage 2 transform.
func NewGeneralizationStage() Stage {
	return &generalizationStage{}
}

func (*generalizationStage) Name() string { return "generalization" }

func (*generalizationStage) Apply(_ context.Context, report *models.SystemReport, actx *AnonymizationContext) error {
	rules, ok := tierRules[actx.Policy.GeneralizationTier]
	if !ok {
		return fmt.Errorf("%w: tier %q", ErrGeneralizationRuleMissing, actx.Policy.GeneralizationTier)
	}

	if report.CPU != nil {
		report.CPU.Model = rules.cpuModel(report.CPU.Model)

		if rules.dropCPUFlags {
			report.CPU.Flags = nil
		}

		if rules.dropProvenance {
			report.CPU.Provenance = nil
		}
	}

	if report.Memory != nil {
		report.Memory.TotalBytes = rules.bucketBytes(report.Memory.TotalBytes)
		// Available memory is load-dependent, not a hardware fact; it
		// only narrows the anonymity set, so generalization drops it.
		report.Memory.AvailableBytes = 0
	}

	for _, device := range report.AllDevices() {
		if generalized := rules.deviceModel(device.ComponentType, device.Model); generalized != "" || device.Model != "" {
			device.Model = generalized
		}

		if device.SizeBytes > 0 {
			device.SizeBytes = rules.bucketBytes(device.SizeBytes)
		}

		if rules.dropProvenance {
			device.Provenance = nil
		}
	}

	return nil
}

// cleanModelString strips frequency suffixes, stepping annotations, and
// redundant whitespace without coarsening the model itself.
func cleanModelString(model string) string {
	model = cpuFreqSuffix.ReplaceAllString(model, "")
	model = cpuSteppings.ReplaceAllString(model, "")

	return strings.Join(strings.Fields(model), " ")
}

// cpuFamilyBucket reduces a CPU model to its family, e.g.
// "Intel Core i7-9700K CPU @ 3.60GHz" -> "Core i7".
func cpuFamilyBucket(model string) string {
	cleaned := cleanModelString(model)

	if match := cpuFamily.FindString(cleaned); match != "" {
		return strings.Join(strings.Fields(match), " ")
	}

	// Unknown naming scheme: keep at most the two leading tokens.
	fields := strings.Fields(cleaned)
	if len(fields) > 2 {
		fields = fields[:2]
	}

	return strings.Join(fields, " ")
}

// cpuVendorTierBucket collapses a CPU model to a vendor-level tier.
func cpuVendorTierBucket(model string) string {
	lower := strings.ToLower(model)

	switch {
	case strings.Contains(lower, "intel"):
		return "Intel processor"
	case strings.Contains(lower, "amd") || strings.Contains(lower, "ryzen") || strings.Contains(lower, "epyc"):
		return "AMD processor"
	case strings.Contains(lower, "apple"):
		return "Apple processor"
	case strings.Contains(lower, "arm") || strings.Contains(lower, "cortex"):
		return "ARM processor"
	default:
		return "processor"
	}
}

// roundPowerOfTwo buckets v to the nearest power of two, so exact
// capacities cannot narrow the anonymity set.
func roundPowerOfTwo(v uint64) uint64 {
	if v == 0 {
		return 0
	}

	floorLog := uint(bits.Len64(v) - 1)

	lower := uint64(1) << floorLog
	if lower == v || floorLog >= 63 {
		return lower
	}

	upper := lower << 1
	if v-lower < upper-v {
		return lower
	}

	return upper
}
