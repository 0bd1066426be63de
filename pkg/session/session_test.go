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

package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/hwreport/pkg/detector"
	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
	"github.com/carverauto/hwreport/pkg/privacy"
	"github.com/carverauto/hwreport/pkg/refdist"
	"github.com/carverauto/hwreport/pkg/registry"
	"github.com/carverauto/hwreport/pkg/sysinfo"
	"github.com/carverauto/hwreport/pkg/validation"
)

type fakeDetector struct {
	name      string
	priority  int
	detectErr error
	records   []models.RawDeviceRecord
}

func (f *fakeDetector) Name() string                          { return f.name }
func (f *fakeDetector) Priority() int                         { return f.priority }
func (f *fakeDetector) SupportedPlatforms() []models.Platform { return nil }
func (f *fakeDetector) ValidateEnvironment() error            { return nil }

func (f *fakeDetector) Detect(context.Context, *detector.Config) (*models.DetectionResult, error) {
	if f.detectErr != nil {
		return nil, f.detectErr
	}

	return &models.DetectionResult{ToolName: f.name, Records: f.records}, nil
}

func stubSystemCollector(ctx context.Context) (*sysinfo.Snapshot, error) {
	return &sysinfo.Snapshot{
		System: models.SystemInfo{
			AnonymizedHostname: "workstation-07",
			KernelVersion:      "6.8.0-45-generic",
			Architecture:       "x86_64",
		},
	}, nil
}

func nicRecord(detectorName, model string) models.RawDeviceRecord {
	return models.RawDeviceRecord{
		ComponentType: models.ComponentNetwork,
		Vendor:        "Intel Corporation",
		Model:         model,
		VendorID:      "8086",
		DeviceID:      "15bb",
		BusAddress:    "0000:00:1f.6",
		Driver:        "e1000e",
		MAC:           "aa:bb:cc:dd:ee:01",
		Detector:      detectorName,
		Confidence:    0.9,
	}
}

// newRealStack wires a session from the real orchestrator, reconciler,
// pipeline, and validator, with fake detectors underneath.
func newRealStack(t *testing.T, level models.PrivacyLevel, detectors ...detector.Detector) (*Session, *privacy.SaltManager) {
	t.Helper()

	log := logger.NewTestLogger()

	reg := detector.NewRegistry()
	for _, d := range detectors {
		require.NoError(t, reg.Register(d))
	}

	orch := detector.NewOrchestrator(reg, log)
	rec := registry.NewReconciler(log)

	salts, err := privacy.NewSaltManager(level, log)
	require.NoError(t, err)

	pipeline := privacy.NewPipeline(refdist.NewMemoryDistribution(), log)
	val := validation.NewValidator(log)

	s := New(level, orch, rec, salts, pipeline, val, log,
		WithSystemCollector(stubSystemCollector))

	return s, salts
}

func TestSessionRunEndToEnd(t *testing.T) {
	s, _ := newRealStack(t, models.PrivacyBasic,
		&fakeDetector{name: "lshw", priority: 90, records: []models.RawDeviceRecord{
			nicRecord("lshw", "Ethernet Connection I219-LM"),
		}},
		&fakeDetector{name: "lspci", priority: 80, records: []models.RawDeviceRecord{
			nicRecord("lspci", "I219-LM"),
		}},
	)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, StateComplete, s.State())
	assert.ElementsMatch(t, []string{"lshw", "lspci"}, report.Metadata.ToolsUsed)

	// Both records describe the same NIC, so exactly one device remains
	// and no raw identifier survives.
	require.Len(t, report.Network, 1)
	nic := report.Network[0]
	assert.Empty(t, nic.MAC)
	assert.NotEmpty(t, nic.AnonymizedMAC)
	assert.ElementsMatch(t, []string{"lshw", "lspci"}, nic.Sources)
}

func TestSessionToleratesPartialDetectorFailure(t *testing.T) {
	s, _ := newRealStack(t, models.PrivacyBasic,
		&fakeDetector{name: "lshw", priority: 90, records: []models.RawDeviceRecord{
			nicRecord("lshw", "Ethernet Connection I219-LM"),
		}},
		&fakeDetector{name: "lspci", priority: 80, detectErr: errors.New("exit status 1")},
		&fakeDetector{name: "dmidecode", priority: 70, detectErr: detector.ErrPermissionDenied},
	)

	report, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, []string{"lshw"}, report.Metadata.ToolsUsed)
	assert.ElementsMatch(t, []string{"dmidecode", "lspci"}, report.Metadata.FailedTools)
	require.Len(t, report.Network, 1)
}

func TestSessionFailsWhenAllDetectorsFail(t *testing.T) {
	s, _ := newRealStack(t, models.PrivacyBasic,
		&fakeDetector{name: "lshw", detectErr: errors.New("boom")},
		&fakeDetector{name: "lspci", detectErr: errors.New("boom")},
	)

	report, err := s.Run(context.Background())
	require.Nil(t, report)

	var sessionErr *SessionError
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, StageDetection, sessionErr.Stage)
	assert.ErrorIs(t, err, detector.ErrAllDetectorsFailed)
	assert.Equal(t, StateFailed, s.State())
}

func TestSessionIsSingleUse(t *testing.T) {
	s, _ := newRealStack(t, models.PrivacyBasic,
		&fakeDetector{name: "lshw", records: []models.RawDeviceRecord{
			nicRecord("lshw", "Ethernet Connection I219-LM"),
		}},
	)

	_, err := s.Run(context.Background())
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.ErrorIs(t, err, ErrSessionAlreadyRun)
}

func TestSessionCancellation(t *testing.T) {
	s, _ := newRealStack(t, models.PrivacyBasic,
		&fakeDetector{name: "lshw", records: []models.RawDeviceRecord{
			nicRecord("lshw", "Ethernet Connection I219-LM"),
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.Run(ctx)
	require.Nil(t, report)
	require.Error(t, err)
	assert.Equal(t, StateFailed, s.State())
}

func TestSessionSystemInfoFailure(t *testing.T) {
	s, _ := newRealStack(t, models.PrivacyBasic,
		&fakeDetector{name: "lshw", records: []models.RawDeviceRecord{
			nicRecord("lshw", "Ethernet Connection I219-LM"),
		}},
	)

	probeErr := errors.New("procfs unreadable")
	WithSystemCollector(func(context.Context) (*sysinfo.Snapshot, error) {
		return nil, probeErr
	})(s)

	report, err := s.Run(context.Background())
	require.Nil(t, report)

	var sessionErr *SessionError
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, StageSystemInfo, sessionErr.Stage)
}

type rejectingValidator struct{}

func (rejectingValidator) Validate(*models.SystemReport) *validation.Result {
	r := &validation.Result{}
	r.Violations = append(r.Violations, validation.Violation{
		Kind:   validation.KindPotentialPIILeak,
		Field:  "devices[0]",
		Detail: "raw identifier survived anonymization",
	})

	return r
}

func TestSessionValidationFailureYieldsNoReport(t *testing.T) {
	log := logger.NewTestLogger()

	reg := detector.NewRegistry()
	require.NoError(t, reg.Register(&fakeDetector{name: "lshw", records: []models.RawDeviceRecord{
		nicRecord("lshw", "Ethernet Connection I219-LM"),
	}}))

	salts, err := privacy.NewSaltManager(models.PrivacyBasic, log)
	require.NoError(t, err)

	s := New(models.PrivacyBasic,
		detector.NewOrchestrator(reg, log),
		registry.NewReconciler(log),
		salts,
		privacy.NewPipeline(refdist.NewMemoryDistribution(), log),
		rejectingValidator{},
		log,
		WithSystemCollector(stubSystemCollector),
	)

	report, err := s.Run(context.Background())
	require.Nil(t, report)

	var sessionErr *SessionError
	require.ErrorAs(t, err, &sessionErr)
	assert.Equal(t, StageValidation, sessionErr.Stage)
	assert.Equal(t, StateFailed, s.State())
}

func TestConcurrentSessionsShareSaltEpoch(t *testing.T) {
	log := logger.NewTestLogger()

	salts, err := privacy.NewSaltManager(models.PrivacyBasic, log)
	require.NoError(t, err)

	newSession := func() *Session {
		reg := detector.NewRegistry()
		require.NoError(t, reg.Register(&fakeDetector{name: "lshw", priority: 90, records: []models.RawDeviceRecord{
			nicRecord("lshw", "Ethernet Connection I219-LM"),
		}}))

		return New(models.PrivacyBasic,
			detector.NewOrchestrator(reg, log),
			registry.NewReconciler(log),
			salts,
			privacy.NewPipeline(refdist.NewMemoryDistribution(), log),
			validation.NewValidator(log),
			log,
			WithSystemCollector(stubSystemCollector),
		)
	}

	const workers = 4

	reports := make([]*models.SystemReport, workers)

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			report, err := newSession().Run(context.Background())
			assert.NoError(t, err)

			reports[i] = report
		}(i)
	}

	wg.Wait()

	// Same salt epoch: identical hardware hashes to identical handles.
	for i := 1; i < workers; i++ {
		require.NotNil(t, reports[i])
		assert.Equal(t, reports[0].Metadata.AnonymizedSystemID, reports[i].Metadata.AnonymizedSystemID)
		assert.Equal(t, reports[0].Network[0].AnonymizedMAC, reports[i].Network[0].AnonymizedMAC)
	}
}
