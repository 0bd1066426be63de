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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/hwreport/pkg/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hwreport.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, models.PrivacyEnhanced, cfg.PrivacyLevel)
	assert.Equal(t, "-", cfg.OutputPath)
	assert.Empty(t, cfg.EnabledTools)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `{
		"privacy_level": "strict",
		"enabled_tools": ["lshw", "dmidecode"],
		"detector_timeout": "45s",
		"detector_timeouts": {"dmidecode": "2m"},
		"output_path": "/tmp/report.json",
		"logging": {"level": "debug"},
		"reference_db": {"host": "stats.example.internal", "database": "hwstats"}
	}`)

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, models.PrivacyStrict, cfg.PrivacyLevel)
	assert.Equal(t, []string{"lshw", "dmidecode"}, cfg.EnabledTools)
	assert.Equal(t, 45*time.Second, time.Duration(cfg.DetectorTimeout))
	assert.Equal(t, map[string]time.Duration{"dmidecode": 2 * time.Minute}, cfg.TimeoutOverrides())
	assert.Equal(t, "/tmp/report.json", cfg.OutputPath)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.NotNil(t, cfg.ReferenceDB)
	assert.Equal(t, "hwstats", cfg.ReferenceDB.Database)
}

func TestLoadRejectsUnknownPrivacyLevel(t *testing.T) {
	path := writeConfig(t, `{"privacy_level": "paranoid"}`)

	_, err := Load(context.Background(), path)
	require.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `{"detector_timeout": "fast"}`)

	_, err := Load(context.Background(), path)
	require.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `{"privacy_level": "basic", "output_path": "/tmp/a.json"}`)

	t.Setenv("HWREPORT_PRIVACY_LEVEL", "strict")
	t.Setenv("HWREPORT_OUTPUT", "/tmp/b.json")
	t.Setenv("HWREPORT_ENABLED_TOOLS", "lshw, lspci")
	t.Setenv("HWREPORT_LOG_LEVEL", "warn")

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, models.PrivacyStrict, cfg.PrivacyLevel)
	assert.Equal(t, "/tmp/b.json", cfg.OutputPath)
	assert.Equal(t, []string{"lshw", "lspci"}, cfg.EnabledTools)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnvInvalidPrivacyLevelFailsValidation(t *testing.T) {
	t.Setenv("HWREPORT_PRIVACY_LEVEL", "maximum")

	_, err := Load(context.Background(), "")
	require.Error(t, err)
}

func TestDurationJSONRoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)

	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))

	var back Duration
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, d, back)
}
