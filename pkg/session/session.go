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

// Package session drives one report generation run through its stages:
// detection, reconciliation, anonymization, validation.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
	"github.com/carverauto/hwreport/pkg/privacy"
	"github.com/carverauto/hwreport/pkg/sysinfo"
	"github.com/carverauto/hwreport/pkg/validation"
)

// State is a session lifecycle state. Complete and Failed are terminal.
type State string

const (
	StateIdle        State = "idle"
	StateRunning     State = "running"
	StateMerging     State = "merging"
	StateAnonymizing State = "anonymizing"
	StateValidating  State = "validating"
	StateComplete    State = "complete"
	StateFailed      State = "failed"
)

// Stage names used in SessionError.
const (
	StageDetection     = "detection"
	StageSystemInfo    = "system-info"
	StageMerge         = "merge"
	StageAnonymization = "anonymization"
	StageValidation    = "validation"
)

// ErrSessionAlreadyRun is returned when Run is called on a session that
// already left the idle state. Sessions are single-use; there is no
// retry of a failed session.
var ErrSessionAlreadyRun = errors.New("session already run")

// SessionError reports which stage a session failed in.
type SessionError struct {
	Stage string
	Err   error
}

func (e *SessionError) Error() string {
	return "session failed during " + e.Stage + ": " + e.Err.Error()
}

func (e *SessionError) Unwrap() error { return e.Err }

// DetectionRunner is the orchestrator surface the session depends on.
type DetectionRunner interface {
	DetectAll(ctx context.Context) ([]models.DetectorOutcome, error)
}

// Merger reconciles detector outcomes into a canonical report.
type Merger interface {
	Merge(outcomes []models.DetectorOutcome, system models.SystemInfo, level models.PrivacyLevel) (*models.SystemReport, error)
}

// Anonymizer is the privacy pipeline surface.
type Anonymizer interface {
	Run(ctx context.Context, report *models.SystemReport, actx *privacy.AnonymizationContext) (*models.SystemReport, error)
}

// SaltSource provides per-session anonymization context snapshots. One
// SaltManager is shared across all concurrent sessions; everything else
// in a session is private to it.
type SaltSource interface {
	Snapshot() (*privacy.AnonymizationContext, error)
}

// Validator gates report export.
type Validator interface {
	Validate(report *models.SystemReport) *validation.Result
}

// Session is one single-use report generation run.
type Session struct {
	id    string
	level models.PrivacyLevel

	detection DetectionRunner
	merger    Merger
	salts     SaltSource
	anonymize Anonymizer
	validate  Validator

	// collectSystem is swappable so tests run without probing the host.
	collectSystem func(ctx context.Context) (*sysinfo.Snapshot, error)

	mu    sync.Mutex
	state State

	logger logger.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithSystemCollector overrides the host fact probe.
func WithSystemCollector(fn func(ctx context.Context) (*sysinfo.Snapshot, error)) Option {
	return func(s *Session) {
		s.collectSystem = fn
	}
}

// New creates an idle session.
func New(
	level models.PrivacyLevel,
	detection DetectionRunner,
	merger Merger,
	salts SaltSource,
	anonymize Anonymizer,
	validate Validator,
	log logger.Logger,
	opts ...Option,
) *Session {
	s := &Session{
		id:            uuid.New().String(),
		level:         level,
		detection:     detection,
		merger:        merger,
		salts:         salts,
		anonymize:     anonymize,
		validate:      validate,
		collectSystem: sysinfo.Collect,
		state:         StateIdle,
		logger:        log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.logger.Debug().
		Str("session_id", s.id).
		Str("state", string(state)).
		Msg("Session state change")
}

// Run executes the full pipeline and returns the validated, anonymized
// report. On any failure the session enters the Failed terminal state
// and no report is returned.
func (s *Session) Run(ctx context.Context) (*models.SystemReport, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, ErrSessionAlreadyRun
	}

	s.state = StateRunning
	s.mu.Unlock()

	outcomes, err := s.detection.DetectAll(ctx)
	if err != nil {
		return nil, s.fail(StageDetection, err)
	}

	s.setState(StateMerging)

	snap, err := s.collectSystem(ctx)
	if err != nil {
		return nil, s.fail(StageSystemInfo, err)
	}

	report, err := s.merger.Merge(outcomes, snap.System, s.level)
	if err != nil {
		return nil, s.fail(StageMerge, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, s.fail(StageMerge, err)
	}

	s.setState(StateAnonymizing)

	actx, err := s.salts.Snapshot()
	if err != nil {
		return nil, s.fail(StageAnonymization, err)
	}

	report, err = s.anonymize.Run(ctx, report, actx)
	if err != nil {
		return nil, s.fail(StageAnonymization, err)
	}

	s.setState(StateValidating)

	if result := s.validate.Validate(report); !result.Valid {
		return nil, s.fail(StageValidation, result.Err())
	}

	s.setState(StateComplete)

	s.logger.Info().
		Str("session_id", s.id).
		Str("privacy_level", string(s.level)).
		Strs("tools_used", report.Metadata.ToolsUsed).
		Strs("failed_tools", report.Metadata.FailedTools).
		Msg("Session complete")

	return report, nil
}

func (s *Session) fail(stage string, err error) error {
	s.setState(StateFailed)

	s.logger.Error().
		Str("session_id", s.id).
		Str("stage", stage).
		Err(err).
		Msg("Session failed")

	return &SessionError{Stage: stage, Err: err}
}
