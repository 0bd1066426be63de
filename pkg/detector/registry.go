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
	"fmt"
	"sort"
	"strings"
)

// Registry stores registered detectors and the enabled-tool filter.
type Registry struct {
	detectors map[string]Detector
	enabled   map[string]struct{} // nil means all enabled
}

// NewRegistry creates an empty detector registry.
func NewRegistry() *Registry {
	return &Registry{
		detectors: make(map[string]Detector),
	}
}

// Register adds a detector. Names must be unique.
func (r *Registry) Register(d Detector) error {
	name := strings.TrimSpace(d.Name())
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownDetector)
	}

	if _, ok := r.detectors[name]; ok {
		return fmt.Errorf("%w: %s", errDuplicateDetector, name)
	}

	r.detectors[name] = d

	return nil
}

// SetEnabledTools restricts detection to the named tools. Every name
// must refer to a registered detector.
func (r *Registry) SetEnabledTools(names []string) error {
	var unknown []string

	enabled := make(map[string]struct{}, len(names))

	for _, name := range names {
		name = strings.TrimSpace(name)
		if _, ok := r.detectors[name]; !ok {
			unknown = append(unknown, name)
			continue
		}

		enabled[name] = struct{}{}
	}

	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s (available: %s)",
			ErrUnknownDetector, strings.Join(unknown, ", "), strings.Join(r.Names(), ", "))
	}

	r.enabled = enabled

	return nil
}

// Names returns all registered detector names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Get returns the named detector, if registered.
func (r *Registry) Get(name string) (Detector, bool) {
	d, ok := r.detectors[name]
	return d, ok
}

// Enabled returns the enabled detectors in lexical name order. The fixed
// order keeps every downstream decision independent of map iteration.
func (r *Registry) Enabled() []Detector {
	out := make([]Detector, 0, len(r.detectors))

	for _, name := range r.Names() {
		if r.enabled != nil {
			if _, ok := r.enabled[name]; !ok {
				continue
			}
		}

		out = append(out, r.detectors[name])
	}

	return out
}
