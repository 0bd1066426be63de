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

package privacy

import "errors"

var (
	// ErrSaltUnavailable means no salt could be generated or snapshotted.
	ErrSaltUnavailable = errors.New("anonymization salt unavailable")
	// ErrInvalidEpsilon means the configured differential-privacy budget
	// is unusable.
	ErrInvalidEpsilon = errors.New("invalid epsilon configuration")
	// ErrGeneralizationRuleMissing means no rule set exists for the
	// requested generalization tier.
	ErrGeneralizationRuleMissing = errors.New("generalization rule missing")
	// ErrNilReport guards stages against being run without a report.
	ErrNilReport = errors.New("nil system report")
)

// StageError wraps a stage failure with the stage that produced it. The
// pipeline is fail-closed: any StageError means no report is returned.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return "anonymization stage " + e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
