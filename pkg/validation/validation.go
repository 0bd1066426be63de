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

// Package validation is the export gate: a report leaves the process
// only after it passes schema checks and a full PII scan.
package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
)

// Kind classifies a validation violation.
type Kind string

const (
	// KindSchemaViolation marks a structurally invalid report.
	KindSchemaViolation Kind = "schema_violation"
	// KindPotentialPIILeak marks a string that looks like an
	// unanonymized identifier.
	KindPotentialPIILeak Kind = "potential_pii_leak"
)

// ErrReportInvalid is returned when validation finds any violation.
var ErrReportInvalid = errors.New("report failed validation")

// Violation is one validation finding. Every violation in a report is
// collected; validation never stops at the first.
type Violation struct {
	Kind   Kind   `json:"kind"`
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

// Result is the full outcome of validating one report.
type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// ValidationError carries the violations alongside the sentinel.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("report failed validation: %d violation(s)", len(e.Violations))
}

func (*ValidationError) Unwrap() error { return ErrReportInvalid }

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Validator checks anonymized reports before export.
type Validator struct {
	minLevel models.PrivacyLevel
	logger   logger.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithMinimumPrivacyLevel rejects reports anonymized below the given
// level.
func WithMinimumPrivacyLevel(level models.PrivacyLevel) Option {
	return func(v *Validator) {
		v.minLevel = level
	}
}

// NewValidator creates a validator. By default any privacy level is
// accepted.
func NewValidator(log logger.Logger, opts ...Option) *Validator {
	v := &Validator{logger: log}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Validate runs every check over the report and assigns per-device
// confidence scores. The report itself is unmodified except for score
// assignment; violations never mutate content.
func (v *Validator) Validate(report *models.SystemReport) *Result {
	result := &Result{}

	if report == nil {
		result.add(KindSchemaViolation, "report", "report is nil")
		return result.finish(v.logger)
	}

	v.checkSchema(report, result)
	v.checkAnonymizationStrength(report, result)
	scanPII(report, result)
	scoreConfidence(report)

	return result.finish(v.logger)
}

// Err converts a failed result into a typed error, nil when valid.
func (r *Result) Err() error {
	if r.Valid {
		return nil
	}

	return &ValidationError{Violations: r.Violations}
}

func (r *Result) add(kind Kind, field, detail string) {
	r.Violations = append(r.Violations, Violation{Kind: kind, Field: field, Detail: detail})
}

func (r *Result) finish(log logger.Logger) *Result {
	r.Valid = len(r.Violations) == 0

	if !r.Valid {
		log.Warn().
			Int("violations", len(r.Violations)).
			Msg("Report failed validation")
	}

	return r
}

func (v *Validator) checkSchema(report *models.SystemReport, result *Result) {
	if report.Metadata.Version == "" {
		result.add(KindSchemaViolation, "metadata.version", "missing report version")
	} else if !versionPattern.MatchString(report.Metadata.Version) {
		result.add(KindSchemaViolation, "metadata.version",
			fmt.Sprintf("version %q is not semver", report.Metadata.Version))
	}

	if report.Metadata.GeneratedAt.IsZero() {
		result.add(KindSchemaViolation, "metadata.generated_at", "missing generation timestamp")
	}

	if report.Metadata.PrivacyLevel.Rank() == 0 {
		result.add(KindSchemaViolation, "metadata.privacy_level",
			fmt.Sprintf("unknown privacy level %q", report.Metadata.PrivacyLevel))
	} else if v.minLevel != "" && report.Metadata.PrivacyLevel.Rank() < v.minLevel.Rank() {
		result.add(KindSchemaViolation, "metadata.privacy_level",
			fmt.Sprintf("level %q is below required %q", report.Metadata.PrivacyLevel, v.minLevel))
	}

	if report.Metadata.AnonymizedSystemID == "" {
		result.add(KindSchemaViolation, "metadata.anonymized_system_id", "missing anonymized system id")
	}

	if report.System.KernelVersion == "" {
		result.add(KindSchemaViolation, "system.kernel_version", "missing kernel version")
	}

	if report.System.Architecture == "" {
		result.add(KindSchemaViolation, "system.architecture", "missing architecture")
	}

	for i, device := range report.AllDevices() {
		field := fmt.Sprintf("devices[%d]", i)

		if device == nil {
			result.add(KindSchemaViolation, field, "nil device entry")
			continue
		}

		if device.ComponentType == "" {
			result.add(KindSchemaViolation, field+".component_type", "missing component type")
		}

		if len(device.Sources) == 0 {
			result.add(KindSchemaViolation, field+".sources", "device has no detection sources")
		}

		if device.MergeConfidence < 0 || device.MergeConfidence > 1 {
			result.add(KindSchemaViolation, field+".merge_confidence",
				fmt.Sprintf("merge confidence %v outside [0,1]", device.MergeConfidence))
		}
	}
}

// scoreConfidence assigns the exported 0-100 score per device from its
// merge confidence and corroborating source count.
func scoreConfidence(report *models.SystemReport) {
	for _, device := range report.AllDevices() {
		if device == nil {
			continue
		}

		score := int(device.MergeConfidence * 70)

		switch len(device.Sources) {
		case 0:
		case 1:
			score += 10
		case 2:
			score += 20
		default:
			score += 30
		}

		if score > 100 {
			score = 100
		}

		device.ConfidenceScore = score
	}
}
