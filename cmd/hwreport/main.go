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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/hwreport/pkg/config"
	"github.com/carverauto/hwreport/pkg/detector"
	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
	"github.com/carverauto/hwreport/pkg/privacy"
	"github.com/carverauto/hwreport/pkg/refdist"
	"github.com/carverauto/hwreport/pkg/registry"
	"github.com/carverauto/hwreport/pkg/session"
	"github.com/carverauto/hwreport/pkg/sysinfo"
	"github.com/carverauto/hwreport/pkg/validation"
	"github.com/carverauto/hwreport/pkg/version"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to hwreport config file")
	privacyLevel := flag.String("privacy-level", "", "Privacy level override: basic, enhanced, strict")
	output := flag.String("output", "", "Report output path, - for stdout")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("hwreport " + version.GetFullVersion())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *privacyLevel != "" {
		level, err := models.ParsePrivacyLevel(*privacyLevel)
		if err != nil {
			return err
		}

		cfg.PrivacyLevel = level
	}

	if *output != "" {
		cfg.OutputPath = *output
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	appLogger.Info().
		Str("version", version.GetVersion()).
		Str("privacy_level", string(cfg.PrivacyLevel)).
		Msg("Starting hwreport")

	reg := detector.NewRegistry()
	if err := reg.Register(sysinfo.NewDetector()); err != nil {
		return err
	}

	if len(cfg.EnabledTools) > 0 {
		if err := reg.SetEnabledTools(cfg.EnabledTools); err != nil {
			return err
		}
	}

	var orchOpts []detector.OrchestratorOption
	if cfg.DetectorTimeout > 0 {
		orchOpts = append(orchOpts, detector.WithDefaultTimeout(time.Duration(cfg.DetectorTimeout)))
	}

	if overrides := cfg.TimeoutOverrides(); overrides != nil {
		orchOpts = append(orchOpts, detector.WithTimeoutOverrides(overrides))
	}

	dist, closeDist, err := buildDistribution(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeDist()

	salts, err := privacy.NewSaltManager(cfg.PrivacyLevel, appLogger)
	if err != nil {
		return err
	}

	salts.Start(ctx)
	defer salts.Stop()

	s := session.New(
		cfg.PrivacyLevel,
		detector.NewOrchestrator(reg, appLogger, orchOpts...),
		registry.NewReconciler(appLogger),
		salts,
		privacy.NewPipeline(dist, appLogger),
		validation.NewValidator(appLogger),
		appLogger,
	)

	report, err := s.Run(ctx)
	if err != nil {
		return err
	}

	return writeReport(cfg.OutputPath, report)
}

// buildDistribution picks the reference distribution: the community
// database when configured, otherwise the offline in-memory one, which
// leaves every rare configuration fully suppressed.
func buildDistribution(ctx context.Context, cfg *config.Config, log logger.Logger) (refdist.Distribution, func(), error) {
	if cfg.ReferenceDB == nil {
		log.Info().Msg("No reference database configured, running offline")
		return refdist.NewMemoryDistribution(), func() {}, nil
	}

	pg, err := refdist.NewPostgresDistribution(ctx, cfg.ReferenceDB, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect reference database: %w", err)
	}

	return pg, pg.Close, nil
}

func writeReport(path string, report *models.SystemReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	data = append(data, '\n')

	if path == "-" || path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
