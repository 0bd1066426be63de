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

import (
	"context"

	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
	"github.com/carverauto/hwreport/pkg/refdist"
)

// Stage is one ordered transform of the anonymization pipeline.
type Stage interface {
	Name() string
	Apply(ctx context.Context, report *models.SystemReport, actx *AnonymizationContext) error
}

// Pipeline applies the four anonymization stages in order. It is
// fail-closed: any stage error aborts the run and no report is
// returned, so a partially anonymized report can never escape.
type Pipeline struct {
	stages []Stage
	logger logger.Logger
}

// NewPipeline builds the standard four-stage pipeline: identifier
// hashing, generalization, noise injection, k-anonymity enforcement.
func NewPipeline(dist refdist.Distribution, log logger.Logger) *Pipeline {
	return &Pipeline{
		stages: []Stage{
			NewIdentifierStage(),
			NewGeneralizationStage(),
			NewNoiseStage(),
			NewKAnonymityStage(dist, log),
		},
		logger: log,
	}
}

// NewPipelineWithStages builds a pipeline from explicit stages, in the
// given order. Used by tests and by callers that need to disable a
// stage for local inspection.
func NewPipelineWithStages(log logger.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, logger: log}
}

// Run transforms the report through every stage. On success the same
// report pointer is returned fully anonymized; on failure the caller
// receives nil and must discard its input reference, which may hold a
// partially transformed report.
func (p *Pipeline) Run(ctx context.Context, report *models.SystemReport, actx *AnonymizationContext) (*models.SystemReport, error) {
	if report == nil {
		return nil, &StageError{Stage: "pipeline", Err: ErrNilReport}
	}

	if actx == nil || len(actx.Salt) == 0 {
		return nil, &StageError{Stage: "pipeline", Err: ErrSaltUnavailable}
	}

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: stage.Name(), Err: err}
		}

		if err := stage.Apply(ctx, report, actx); err != nil {
			p.logger.Error().
				Str("stage", stage.Name()).
				Err(err).
				Msg("Anonymization stage failed, aborting pipeline")

			return nil, &StageError{Stage: stage.Name(), Err: err}
		}

		p.logger.Debug().
			Str("stage", stage.Name()).
			Str("epoch", actx.Epoch).
			Msg("Anonymization stage complete")
	}

	return report, nil
}
