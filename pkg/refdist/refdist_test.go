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

package refdist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigurationKeyIsCanonical(t *testing.T) {
	a := Configuration{"vendor": "Intel", "model": "unknown", "component_type": "network"}
	b := Configuration{"component_type": "network", "model": "unknown", "vendor": "Intel"}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "component_type=network|model=unknown|vendor=Intel", a.Key())
}

func TestMemoryDistributionCounts(t *testing.T) {
	dist := NewMemoryDistribution()

	config := Configuration{"component_type": "storage", "vendor": "Samsung"}
	dist.Add(config, 3)
	dist.Add(config, 4)

	count, err := dist.CountMatchingConfigurations(context.Background(), config)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), count)

	count, err = dist.CountMatchingConfigurations(context.Background(), Configuration{"component_type": "usb"})
	require.NoError(t, err)
	assert.Zero(t, count)
}
