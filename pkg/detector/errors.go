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
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrToolNotFound means the underlying binary is not installed.
	ErrToolNotFound = errors.New("detection tool not found")
	// ErrPermissionDenied means the tool needs privileges we lack.
	ErrPermissionDenied = errors.New("detection tool permission denied")
	// ErrDetectorTimeout means the detector exceeded its deadline and
	// was abandoned.
	ErrDetectorTimeout = errors.New("detector timed out")
	// ErrParseFailure means the tool ran but its output could not be
	// turned into records.
	ErrParseFailure = errors.New("detector output parse failure")

	// ErrAllDetectorsFailed is fatal: no detector produced records, so
	// no report can be built.
	ErrAllDetectorsFailed = errors.New("all detectors failed")

	// ErrUnknownDetector is returned when an enabled-tools filter names
	// a detector that was never registered.
	ErrUnknownDetector = errors.New("unknown detection tool")

	errDuplicateDetector = errors.New("detector already registered")
)

// classifyErr maps raw detector failures onto the recoverable error
// taxonomy so callers can report them uniformly.
func classifyErr(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrToolNotFound),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrDetectorTimeout),
		errors.Is(err, ErrParseFailure):
		return err
	case errors.Is(ctx.Err(), context.DeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", ErrDetectorTimeout, err)
	case errors.Is(err, context.Canceled):
		// Caller cancellation is not a tool failure; propagate as-is.
		return err
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrToolNotFound, err)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %s", ErrParseFailure, err)
	}
}
