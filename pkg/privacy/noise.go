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
	"math"
	"math/rand"

	"github.com/carverauto/hwreport/pkg/models"
)

const (
	bytesPerGiB = 1 << 30
	bytesPerGB  = 1_000_000_000
)

// noiseStage perturbs numeric hardware quantities with Laplace noise.
// The noise scale is 1/epsilon; epsilon zero disables the stage, which
// is the configuration for the basic privacy level.
type noiseStage struct {
	// uniform returns a sample in [0,1). Swappable for deterministic
	// tests; defaults to math/rand.
	uniform func() float64
}

// NewNoiseStage returns the Stage 3 transform.
func NewNoiseStage() Stage {
	return &noiseStage{uniform: rand.Float64}
}

// newNoiseStageWithSource is the test constructor.
func newNoiseStageWithSource(uniform func() float64) Stage {
	return &noiseStage{uniform: uniform}
}

func (*noiseStage) Name() string { return "noise-injection" }

func (s *noiseStage) Apply(_ context.Context, report *models.SystemReport, actx *AnonymizationContext) error {
	epsilon := actx.Policy.Epsilon

	if epsilon < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidEpsilon, epsilon)
	}

	if epsilon == 0 {
		return nil
	}

	scale := 1 / epsilon

	if report.CPU != nil {
		report.CPU.Cores = clampMin(s.noisyInt(report.CPU.Cores, scale), 1)
		report.CPU.Threads = clampMin(s.noisyInt(report.CPU.Threads, scale), report.CPU.Cores)
	}

	if report.Memory != nil && report.Memory.TotalBytes > 0 {
		// Memory is perturbed in GiB units so the noise magnitude is
		// meaningful relative to typical module sizes.
		gib := float64(report.Memory.TotalBytes) / bytesPerGiB
		noised := math.Max(gib+s.laplace(scale), 1)
		report.Memory.TotalBytes = uint64(math.Round(noised)) * bytesPerGiB
	}

	for _, device := range report.Storage {
		if device.SizeBytes == 0 {
			continue
		}

		gb := float64(device.SizeBytes) / bytesPerGB
		noised := math.Max(gb+s.laplace(scale), 1)
		device.SizeBytes = uint64(math.Round(noised)) * bytesPerGB
	}

	return nil
}

func (s *noiseStage) noisyInt(v int, scale float64) int {
	return int(math.Round(float64(v) + s.laplace(scale)))
}

// laplace draws from Laplace(0, scale) by inverse CDF: with
// u ~ Uniform(-1/2, 1/2), x = -scale * sign(u) * ln(1 - 2|u|).
func (s *noiseStage) laplace(scale float64) float64 {
	u := s.uniform() - 0.5

	return -scale * sign(u) * math.Log(1-2*math.Abs(u))
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}

	return 1
}

func clampMin(v, min int) int {
	if v < min {
		return min
	}

	return v
}
