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

// Package refdist exposes the reference distribution of hardware
// configurations that k-anonymity enforcement checks against. The
// authoritative distribution lives in the downstream community
// database; an in-memory implementation serves tests and offline runs.
package refdist

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Configuration is the generalized device configuration whose occurrence
// count is queried. Keys and values are post-generalization attributes;
// raw identifiers never appear here.
type Configuration map[string]string

// Key flattens a configuration into a canonical sorted form so the same
// attribute set always maps to the same distribution entry.
func (c Configuration) Key() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}

		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(c[k])
	}

	return b.String()
}

// Distribution answers how many known real-world systems share a
// generalized configuration.
type Distribution interface {
	CountMatchingConfigurations(ctx context.Context, config Configuration) (uint64, error)
}

// MemoryDistribution is an in-memory Distribution backed by a counted
// configuration set.
type MemoryDistribution struct {
	mu     sync.RWMutex
	counts map[string]uint64
}

// NewMemoryDistribution creates an empty in-memory distribution.
func NewMemoryDistribution() *MemoryDistribution {
	return &MemoryDistribution{counts: make(map[string]uint64)}
}

// Add records n occurrences of the configuration.
func (m *MemoryDistribution) Add(config Configuration, n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts[config.Key()] += n
}

// CountMatchingConfigurations returns the recorded occurrence count.
func (m *MemoryDistribution) CountMatchingConfigurations(_ context.Context, config Configuration) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.counts[config.Key()], nil
}
