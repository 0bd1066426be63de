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

package sysinfo

import (
	"context"
	"strconv"
	"strings"

	"github.com/carverauto/hwreport/pkg/detector"
	"github.com/carverauto/hwreport/pkg/models"
)

// DetectorName is the registry name of the built-in gopsutil detector.
const DetectorName = "gopsutil"

// detectorPriority sits below dedicated tool wrappers such as lshw or
// dmidecode, which see more hardware detail than procfs exposes.
const detectorPriority = 40

// gopsutilDetector adapts the sysinfo snapshot into the detection
// contract, so the baseline cpu and memory facts flow through the same
// merge path as external tool output.
type gopsutilDetector struct{}

// NewDetector returns the built-in detector backed by gopsutil.
func NewDetector() detector.Detector {
	return &gopsutilDetector{}
}

func (*gopsutilDetector) Name() string  { return DetectorName }
func (*gopsutilDetector) Priority() int { return detectorPriority }

func (*gopsutilDetector) SupportedPlatforms() []models.Platform {
	return []models.Platform{models.PlatformLinux, models.PlatformDarwin, models.PlatformWindows}
}

// ValidateEnvironment always succeeds: gopsutil reads procfs and sysfs
// directly, no external binary is involved.
func (*gopsutilDetector) ValidateEnvironment() error { return nil }

func (*gopsutilDetector) Detect(ctx context.Context, _ *detector.Config) (*models.DetectionResult, error) {
	snap, err := Collect(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.DetectionResult{ToolName: DetectorName}

	if snap.CPUModel != "" || snap.LogicalCores > 0 {
		cpuSpecs := map[string]string{
			"cores":   strconv.Itoa(snap.PhysicalCores),
			"threads": strconv.Itoa(snap.LogicalCores),
		}

		if snap.CPUMHz > 0 {
			cpuSpecs["base_frequency_mhz"] = strconv.FormatFloat(snap.CPUMHz, 'f', -1, 64)
		}

		if len(snap.CPUFlags) > 0 {
			cpuSpecs["flags"] = strings.Join(snap.CPUFlags, " ")
		}

		result.Records = append(result.Records, models.RawDeviceRecord{
			ComponentType: models.ComponentCPU,
			Vendor:        snap.CPUVendor,
			Model:         snap.CPUModel,
			Specs:         cpuSpecs,
			Detector:      DetectorName,
			Confidence:    0.9,
		})
	}

	if snap.MemoryTotalBytes > 0 {
		result.Records = append(result.Records, models.RawDeviceRecord{
			ComponentType: models.ComponentMemory,
			Specs: map[string]string{
				"total_bytes":     strconv.FormatUint(snap.MemoryTotalBytes, 10),
				"available_bytes": strconv.FormatUint(snap.MemoryAvailableBytes, 10),
			},
			Detector:   DetectorName,
			Confidence: 0.9,
		})
	}

	return result, nil
}
