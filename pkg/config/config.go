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

// Package config loads the tool configuration from a JSON file with
// environment variable overrides.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
	"github.com/carverauto/hwreport/pkg/refdist"
)

// envPrefix namespaces every environment override.
const envPrefix = "HWREPORT_"

var errLoadConfigFailed = errors.New("failed to load configuration")

// Duration wraps time.Duration for JSON round-trips in "30s" notation.
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or raw nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%w: bad duration %q", errLoadConfigFailed, s)
		}

		*d = Duration(parsed)

		return nil
	}

	var ns int64
	if err := json.Unmarshal(data, &ns); err != nil {
		return fmt.Errorf("%w: bad duration %s", errLoadConfigFailed, data)
	}

	*d = Duration(ns)

	return nil
}

// MarshalJSON writes the duration in string notation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config is the full tool configuration surface.
type Config struct {
	// PrivacyLevel selects the anonymization policy: basic, enhanced,
	// or strict.
	PrivacyLevel models.PrivacyLevel `json:"privacy_level"`
	// EnabledTools restricts detection to the named tools; empty means
	// every registered detector runs.
	EnabledTools []string `json:"enabled_tools,omitempty"`
	// DetectorTimeout is the default per-detector deadline.
	DetectorTimeout Duration `json:"detector_timeout,omitempty"`
	// DetectorTimeouts overrides the deadline per tool name.
	DetectorTimeouts map[string]Duration `json:"detector_timeouts,omitempty"`
	// OutputPath is where the validated report is written; "-" means
	// stdout.
	OutputPath string `json:"output_path,omitempty"`
	// Logging configures the structured logger.
	Logging *logger.Config `json:"logging,omitempty"`
	// ReferenceDB points at the community statistics database used for
	// k-anonymity checks. Nil falls back to the built-in offline
	// distribution.
	ReferenceDB *refdist.PostgresConfig `json:"reference_db,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		PrivacyLevel: models.PrivacyEnhanced,
		OutputPath:   "-",
	}
}

// Loader reads configuration from some source into a destination struct.
type Loader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// FileConfigLoader loads configuration from a local JSON file.
type FileConfigLoader struct{}

// Load implements Loader by reading and unmarshaling a JSON file.
func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	return nil
}

// Load builds the effective configuration: defaults, then the file if a
// path is given, then environment overrides, then validation.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		loader := &FileConfigLoader{}
		if err := loader.Load(ctx, path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate normalizes and checks the configuration.
func (c *Config) Validate() error {
	if c.PrivacyLevel == "" {
		c.PrivacyLevel = models.PrivacyEnhanced
	}

	if _, err := models.ParsePrivacyLevel(string(c.PrivacyLevel)); err != nil {
		return fmt.Errorf("%w: %s", errLoadConfigFailed, err)
	}

	if c.OutputPath == "" {
		c.OutputPath = "-"
	}

	return nil
}

// TimeoutOverrides converts the per-tool timeout map to the orchestrator
// form.
func (c *Config) TimeoutOverrides() map[string]time.Duration {
	if len(c.DetectorTimeouts) == 0 {
		return nil
	}

	out := make(map[string]time.Duration, len(c.DetectorTimeouts))
	for name, d := range c.DetectorTimeouts {
		out[name] = time.Duration(d)
	}

	return out
}

// applyEnvOverrides maps HWREPORT_* environment variables onto config
// fields. Environment wins over the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "PRIVACY_LEVEL"); v != "" {
		cfg.PrivacyLevel = models.PrivacyLevel(strings.ToLower(strings.TrimSpace(v)))
	}

	if v := os.Getenv(envPrefix + "ENABLED_TOOLS"); v != "" {
		var tools []string

		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				tools = append(tools, name)
			}
		}

		cfg.EnabledTools = tools
	}

	if v := os.Getenv(envPrefix + "DETECTOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.DetectorTimeout = Duration(d)
		}
	}

	if v := os.Getenv(envPrefix + "OUTPUT"); v != "" {
		cfg.OutputPath = v
	}

	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		if cfg.Logging == nil {
			cfg.Logging = &logger.Config{}
		}

		cfg.Logging.Level = v
	}

	if v := os.Getenv(envPrefix + "DB_PASSWORD"); v != "" && cfg.ReferenceDB != nil {
		cfg.ReferenceDB.Password = v
	}
}
