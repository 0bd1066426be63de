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

//go:generate mockgen -destination=mock_detector.go -package=detector github.com/carverauto/hwreport/pkg/detector Detector

// Package detector defines the hardware detection plugin contract and the
// orchestrator that runs registered detectors concurrently.
package detector

import (
	"context"
	"time"

	"github.com/carverauto/hwreport/pkg/models"
)

// Detector wraps one hardware-scanning tool behind a uniform interface.
// Implementations live outside this package; the core never inspects
// tool-specific output formats.
type Detector interface {
	// Name returns the tool name, unique within a registry.
	Name() string
	// Priority ranks this detector's output for conflict resolution.
	// Higher values win.
	Priority() int
	// SupportedPlatforms lists the platforms the tool runs on.
	SupportedPlatforms() []models.Platform
	// Detect runs the tool and returns its typed records. Implementations
	// must honor ctx cancellation.
	Detect(ctx context.Context, cfg *Config) (*models.DetectionResult, error)
	// ValidateEnvironment reports whether the tool can run here at all
	// (binary present, sufficient permissions).
	ValidateEnvironment() error
}

// Config is the per-run configuration handed to each detector.
type Config struct {
	// Timeout is the effective deadline for this detector's run. The
	// orchestrator also enforces it through the context.
	Timeout time.Duration `json:"timeout"`
	// Options carries opaque tool-specific settings from the config layer.
	Options map[string]string `json:"options,omitempty"`
}
