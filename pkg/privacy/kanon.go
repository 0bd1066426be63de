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
	"strconv"

	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
	"github.com/carverauto/hwreport/pkg/refdist"
)

// suppressedValue replaces attributes that would otherwise make a
// configuration identifiable.
const suppressedValue = "unknown"

// suppressionOrder lists quasi-identifier attributes from most to least
// identifying. Suppression walks this order and stops as soon as the
// configuration becomes common enough.
var suppressionOrder = []string{"model", "driver", "device_type", "vendor"}

// kAnonymityStage guarantees that every exported device configuration
// matches at least k known systems in the reference distribution,
// suppressing rare attributes until that holds.
type kAnonymityStage struct {
	dist   refdist.Distribution
	logger logger.Logger
}

// NewKAnonymityStage returns the Stage 4 transform.
func NewKAnonymityStage(dist refdist.Distribution, log logger.Logger) Stage {
	return &kAnonymityStage{dist: dist, logger: log}
}

func (*kAnonymityStage) Name() string { return "k-anonymity" }

func (s *kAnonymityStage) Apply(ctx context.Context, report *models.SystemReport, actx *AnonymizationContext) error {
	k := actx.Policy.KThreshold

	for _, device := range report.AllDevices() {
		if err := s.enforceDevice(ctx, device, k); err != nil {
			return err
		}
	}

	if report.CPU != nil {
		if err := s.enforceCPU(ctx, report.CPU, k); err != nil {
			return err
		}
	}

	return nil
}

// enforceDevice suppresses the device's rarest attributes, most
// identifying first, until its configuration matches at least k systems.
// A configuration that stays rare after full suppression is left fully
// suppressed; only distribution query failures are errors.
func (s *kAnonymityStage) enforceDevice(ctx context.Context, device *models.HardwareDevice, k uint64) error {
	config := deviceConfiguration(device)

	count, err := s.dist.CountMatchingConfigurations(ctx, config)
	if err != nil {
		return fmt.Errorf("k-anonymity lookup: %w", err)
	}

	for _, attr := range suppressionOrder {
		if count >= k {
			return nil
		}

		if config[attr] == suppressedValue {
			continue
		}

		config[attr] = suppressedValue
		suppressDeviceAttr(device, attr)

		s.logger.Debug().
			Str("component_type", string(device.ComponentType)).
			Str("attribute", attr).
			Uint64("count", count).
			Uint64("k", k).
			Msg("Suppressed rare configuration attribute")

		if count, err = s.dist.CountMatchingConfigurations(ctx, config); err != nil {
			return fmt.Errorf("k-anonymity lookup: %w", err)
		}
	}

	return nil
}

func (s *kAnonymityStage) enforceCPU(ctx context.Context, cpu *models.CPUInfo, k uint64) error {
	config := refdist.Configuration{
		"component_type": string(models.ComponentCPU),
		"vendor":         valueOrSuppressed(cpu.Vendor),
		"model":          valueOrSuppressed(cpu.Model),
		"cores":          strconv.Itoa(cpu.Cores),
	}

	count, err := s.dist.CountMatchingConfigurations(ctx, config)
	if err != nil {
		return fmt.Errorf("k-anonymity lookup: %w", err)
	}

	if count >= k {
		return nil
	}

	// The CPU has only one attribute worth suppressing; the core count
	// was already coarsened by earlier stages.
	config["model"] = suppressedValue
	cpu.Model = suppressedValue

	if count, err = s.dist.CountMatchingConfigurations(ctx, config); err != nil {
		return fmt.Errorf("k-anonymity lookup: %w", err)
	}

	if count < k {
		config["vendor"] = suppressedValue
		cpu.Vendor = suppressedValue
	}

	return nil
}

// deviceConfiguration builds the generalized quasi-identifier tuple for
// one device. Only post-generalization attributes participate; hashed
// identifiers are excluded because they are unique by construction.
func deviceConfiguration(device *models.HardwareDevice) refdist.Configuration {
	return refdist.Configuration{
		"component_type": string(device.ComponentType),
		"vendor":         valueOrSuppressed(device.Vendor),
		"model":          valueOrSuppressed(device.Model),
		"device_type":    valueOrSuppressed(device.DeviceType),
		"driver":         valueOrSuppressed(device.Driver),
	}
}

func suppressDeviceAttr(device *models.HardwareDevice, attr string) {
	switch attr {
	case "model":
		device.Model = suppressedValue
	case "driver":
		device.Driver = suppressedValue
	case "device_type":
		device.DeviceType = suppressedValue
	case "vendor":
		device.Vendor = suppressedValue
	}
}

func valueOrSuppressed(v string) string {
	if v == "" {
		return suppressedValue
	}

	return v
}
