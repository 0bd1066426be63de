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

package detector

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
)

const defaultDetectorTimeout = 30 * time.Second

// Orchestrator dispatches every enabled detector concurrently, each
// bounded by its own timeout, and joins all of them before returning.
type Orchestrator struct {
	registry       *Registry
	defaultTimeout time.Duration
	timeouts       map[string]time.Duration
	platform       models.Platform
	logger         logger.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithDefaultTimeout overrides the 30s default per-detector timeout.
func WithDefaultTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.defaultTimeout = d
		}
	}
}

// WithTimeoutOverrides sets per-detector timeout overrides by tool name.
func WithTimeoutOverrides(overrides map[string]time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		for name, d := range overrides {
			if d > 0 {
				o.timeouts[name] = d
			}
		}
	}
}

// WithPlatform overrides the platform used for detector filtering.
func WithPlatform(p models.Platform) OrchestratorOption {
	return func(o *Orchestrator) {
		o.platform = p
	}
}

// NewOrchestrator creates an orchestrator over the given registry.
func NewOrchestrator(registry *Registry, log logger.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry:       registry,
		defaultTimeout: defaultDetectorTimeout,
		timeouts:       make(map[string]time.Duration),
		platform:       models.Platform(runtime.GOOS),
		logger:         log,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// DetectAll runs every enabled detector as an independent concurrent unit
// of work. Individual failures are recorded in the outcome list, never
// fatal; the only fatal condition is that no detector succeeded.
//
// Each detector writes its own outcome slot, so there is no shared
// mutable state during the concurrent phase. The join barrier guarantees
// every dispatched detector has completed or been abandoned before the
// outcomes are returned.
func (o *Orchestrator) DetectAll(ctx context.Context) ([]models.DetectorOutcome, error) {
	detectors := o.runnable()

	outcomes := make([]models.DetectorOutcome, len(detectors))

	var wg sync.WaitGroup

	for i, d := range detectors {
		outcomes[i] = models.DetectorOutcome{Detector: d.Name(), Priority: d.Priority()}

		if err := d.ValidateEnvironment(); err != nil {
			outcomes[i].Err = classifyErr(ctx, err)

			o.logger.Warn().
				Str("detector", d.Name()).
				Err(outcomes[i].Err).
				Msg("Detector environment validation failed, skipping")

			continue
		}

		wg.Add(1)

		go func(slot *models.DetectorOutcome, d Detector) {
			defer wg.Done()

			o.runOne(ctx, slot, d)
		}(&outcomes[i], d)
	}

	wg.Wait()

	succeeded := 0

	for i := range outcomes {
		if outcomes[i].Err == nil && outcomes[i].Result != nil {
			succeeded++
		}
	}

	o.logger.Info().
		Int("dispatched", len(detectors)).
		Int("succeeded", succeeded).
		Msg("Detection phase complete")

	if len(detectors) > 0 && succeeded == 0 {
		return outcomes, ErrAllDetectorsFailed
	}

	if len(detectors) == 0 {
		return nil, ErrAllDetectorsFailed
	}

	return outcomes, nil
}

// runOne executes a single detector bounded by its timeout. A detector
// that ignores its context is abandoned at the deadline rather than
// allowed to block the join barrier.
func (o *Orchestrator) runOne(ctx context.Context, slot *models.DetectorOutcome, d Detector) {
	timeout := o.timeoutFor(d.Name())

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type detectReply struct {
		result *models.DetectionResult
		err    error
	}

	replyCh := make(chan detectReply, 1)

	go func() {
		result, err := d.Detect(runCtx, &Config{Timeout: timeout})
		replyCh <- detectReply{result: result, err: err}
	}()

	select {
	case reply := <-replyCh:
		if reply.err != nil {
			slot.Err = classifyErr(runCtx, reply.err)

			o.logger.Warn().
				Str("detector", d.Name()).
				Err(slot.Err).
				Msg("Detector failed")

			return
		}

		// A detector returning (nil, nil) is a broken wrapper, not a
		// successful run; record it as a failure.
		if reply.result == nil {
			slot.Err = fmt.Errorf("%w: detector returned no result", ErrParseFailure)

			o.logger.Warn().
				Str("detector", d.Name()).
				Msg("Detector returned nil result without error")

			return
		}

		slot.Result = reply.result

		o.logger.Debug().
			Str("detector", d.Name()).
			Int("records", len(reply.result.Records)).
			Msg("Detector completed")
	case <-runCtx.Done():
		slot.Err = classifyErr(runCtx, runCtx.Err())

		o.logger.Warn().
			Str("detector", d.Name()).
			Dur("timeout", timeout).
			Msg("Detector abandoned")
	}
}

// runnable filters enabled detectors down to those supporting the
// current platform, preserving the registry's lexical order.
func (o *Orchestrator) runnable() []Detector {
	var out []Detector

	for _, d := range o.registry.Enabled() {
		if !supportsPlatform(d, o.platform) {
			o.logger.Debug().
				Str("detector", d.Name()).
				Str("platform", string(o.platform)).
				Msg("Detector does not support platform, skipping")

			continue
		}

		out = append(out, d)
	}

	return out
}

func (o *Orchestrator) timeoutFor(name string) time.Duration {
	if d, ok := o.timeouts[name]; ok {
		return d
	}

	return o.defaultTimeout
}

func supportsPlatform(d Detector, platform models.Platform) bool {
	platforms := d.SupportedPlatforms()
	if len(platforms) == 0 {
		return true
	}

	for _, p := range platforms {
		if p == platform {
			return true
		}
	}

	return false
}
