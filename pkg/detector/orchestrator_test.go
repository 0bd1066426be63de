package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
)

type fakeDetector struct {
	name      string
	priority  int
	platforms []models.Platform
	envErr    error
	detectErr error
	records   []models.RawDeviceRecord
	delay     time.Duration
	ignoreCtx bool
	nilReply  bool
}

func (f *fakeDetector) Name() string                          { return f.name }
func (f *fakeDetector) Priority() int                         { return f.priority }
func (f *fakeDetector) SupportedPlatforms() []models.Platform { return f.platforms }
func (f *fakeDetector) ValidateEnvironment() error            { return f.envErr }

func (f *fakeDetector) Detect(ctx context.Context, _ *Config) (*models.DetectionResult, error) {
	if f.delay > 0 {
		if f.ignoreCtx {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if f.detectErr != nil {
		return nil, f.detectErr
	}

	if f.nilReply {
		return nil, nil
	}

	return &models.DetectionResult{ToolName: f.name, Records: f.records}, nil
}

func newTestRegistry(t *testing.T, detectors ...Detector) *Registry {
	t.Helper()

	reg := NewRegistry()
	for _, d := range detectors {
		require.NoError(t, reg.Register(d))
	}

	return reg
}

func record(component models.ComponentType, detectorName string) models.RawDeviceRecord {
	return models.RawDeviceRecord{
		ComponentType: component,
		Vendor:        "8086",
		Model:         "test device",
		Detector:      detectorName,
		Confidence:    0.9,
	}
}

func TestDetectAllPartialFailure(t *testing.T) {
	reg := newTestRegistry(t,
		&fakeDetector{name: "dmidecode", priority: 4, records: []models.RawDeviceRecord{record(models.ComponentMemory, "dmidecode")}},
		&fakeDetector{name: "inxi", priority: 1, detectErr: ErrParseFailure},
		&fakeDetector{name: "lshw", priority: 5, records: []models.RawDeviceRecord{record(models.ComponentNetwork, "lshw")}},
		&fakeDetector{name: "lspci", priority: 3, records: []models.RawDeviceRecord{record(models.ComponentGraphics, "lspci")}},
		&fakeDetector{name: "lsusb", priority: 2, detectErr: ErrToolNotFound},
	)

	o := NewOrchestrator(reg, logger.NewTestLogger())

	outcomes, err := o.DetectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 5)

	var failed, succeeded []string

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed = append(failed, outcome.Detector)
		} else {
			succeeded = append(succeeded, outcome.Detector)
		}
	}

	assert.ElementsMatch(t, []string{"inxi", "lsusb"}, failed)
	assert.ElementsMatch(t, []string{"dmidecode", "lshw", "lspci"}, succeeded)
}

func TestDetectAllNilResultRecordedAsFailure(t *testing.T) {
	reg := newTestRegistry(t,
		&fakeDetector{name: "broken", nilReply: true},
		&fakeDetector{name: "lshw", records: []models.RawDeviceRecord{record(models.ComponentNetwork, "lshw")}},
	)

	o := NewOrchestrator(reg, logger.NewTestLogger())

	outcomes, err := o.DetectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	for _, outcome := range outcomes {
		switch outcome.Detector {
		case "broken":
			require.ErrorIs(t, outcome.Err, ErrParseFailure)
			assert.Nil(t, outcome.Result)
		case "lshw":
			require.NoError(t, outcome.Err)
			require.NotNil(t, outcome.Result)
		}
	}
}

func TestDetectAllAllFailed(t *testing.T) {
	reg := newTestRegistry(t,
		&fakeDetector{name: "lshw", detectErr: ErrPermissionDenied},
		&fakeDetector{name: "lspci", detectErr: ErrToolNotFound},
	)

	o := NewOrchestrator(reg, logger.NewTestLogger())

	outcomes, err := o.DetectAll(context.Background())
	require.ErrorIs(t, err, ErrAllDetectorsFailed)
	assert.Len(t, outcomes, 2)
}

func TestDetectAllEmptyRegistry(t *testing.T) {
	o := NewOrchestrator(NewRegistry(), logger.NewTestLogger())

	_, err := o.DetectAll(context.Background())
	require.ErrorIs(t, err, ErrAllDetectorsFailed)
}

func TestDetectAllTimeoutDoesNotBlockSiblings(t *testing.T) {
	reg := newTestRegistry(t,
		&fakeDetector{name: "fast", records: []models.RawDeviceRecord{record(models.ComponentUSB, "fast")}},
		&fakeDetector{name: "stuck", delay: 5 * time.Second, ignoreCtx: true},
	)

	o := NewOrchestrator(reg, logger.NewTestLogger(),
		WithTimeoutOverrides(map[string]time.Duration{"stuck": 50 * time.Millisecond}))

	start := time.Now()

	outcomes, err := o.DetectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.Less(t, time.Since(start), 2*time.Second, "stuck detector must be abandoned at its deadline")

	for _, outcome := range outcomes {
		switch outcome.Detector {
		case "fast":
			assert.NoError(t, outcome.Err)
		case "stuck":
			assert.ErrorIs(t, outcome.Err, ErrDetectorTimeout)
		}
	}
}

func TestDetectAllEnvironmentValidationSkips(t *testing.T) {
	reg := newTestRegistry(t,
		&fakeDetector{name: "lshw", records: []models.RawDeviceRecord{record(models.ComponentStorage, "lshw")}},
		&fakeDetector{name: "dmidecode", envErr: ErrPermissionDenied},
	)

	o := NewOrchestrator(reg, logger.NewTestLogger())

	outcomes, err := o.DetectAll(context.Background())
	require.NoError(t, err)

	for _, outcome := range outcomes {
		if outcome.Detector == "dmidecode" {
			assert.ErrorIs(t, outcome.Err, ErrPermissionDenied)
		}
	}
}

func TestDetectAllPlatformFilter(t *testing.T) {
	reg := newTestRegistry(t,
		&fakeDetector{
			name:      "wmic",
			platforms: []models.Platform{models.PlatformWindows},
		},
		&fakeDetector{
			name:      "lshw",
			platforms: []models.Platform{models.PlatformLinux},
			records:   []models.RawDeviceRecord{record(models.ComponentCPU, "lshw")},
		},
	)

	o := NewOrchestrator(reg, logger.NewTestLogger(), WithPlatform(models.PlatformLinux))

	outcomes, err := o.DetectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "lshw", outcomes[0].Detector)
}

func TestDetectAllCancellation(t *testing.T) {
	reg := newTestRegistry(t,
		&fakeDetector{name: "slow", delay: 5 * time.Second},
	)

	o := NewOrchestrator(reg, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()

	outcomes, err := o.DetectAll(ctx)
	require.ErrorIs(t, err, ErrAllDetectorsFailed)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDetectAllWithMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mock := NewMockDetector(ctrl)
	mock.EXPECT().Name().Return("lspci").AnyTimes()
	mock.EXPECT().Priority().Return(3).AnyTimes()
	mock.EXPECT().SupportedPlatforms().Return(nil).AnyTimes()
	mock.EXPECT().ValidateEnvironment().Return(nil)
	mock.EXPECT().Detect(gomock.Any(), gomock.Any()).
		Return(&models.DetectionResult{
			ToolName: "lspci",
			Records:  []models.RawDeviceRecord{record(models.ComponentGraphics, "lspci")},
		}, nil)

	reg := newTestRegistry(t, mock)
	o := NewOrchestrator(reg, logger.NewTestLogger())

	outcomes, err := o.DetectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, 3, outcomes[0].Priority)
	require.NotNil(t, outcomes[0].Result)
	assert.Len(t, outcomes[0].Result.Records, 1)
}

func TestRegistryEnabledToolsFilter(t *testing.T) {
	reg := newTestRegistry(t,
		&fakeDetector{name: "lshw"},
		&fakeDetector{name: "lspci"},
		&fakeDetector{name: "lsusb"},
	)

	require.NoError(t, reg.SetEnabledTools([]string{"lspci", "lshw"}))

	enabled := reg.Enabled()
	require.Len(t, enabled, 2)
	assert.Equal(t, "lshw", enabled[0].Name())
	assert.Equal(t, "lspci", enabled[1].Name())

	err := reg.SetEnabledTools([]string{"hwinfo"})
	require.ErrorIs(t, err, ErrUnknownDetector)
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&fakeDetector{name: "lshw"}))

	err := reg.Register(&fakeDetector{name: "lshw"})
	require.Error(t, err)
}

func TestClassifyErr(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"already classified", ErrToolNotFound, ErrToolNotFound},
		{"deadline", context.DeadlineExceeded, ErrDetectorTimeout},
		{"unclassified", errors.New("garbled output"), ErrParseFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyErr(ctx, tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}

			assert.ErrorIs(t, got, tt.want)
		})
	}
}
