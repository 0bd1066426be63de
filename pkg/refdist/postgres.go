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
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/hwreport/pkg/logger"
)

const countConfigurationSQL = `
SELECT COALESCE(occurrence_count, 0)
FROM hardware_configurations
WHERE config_key = $1`

// PostgresConfig describes the community statistics database connection.
type PostgresConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	Database          string        `json:"database"`
	Username          string        `json:"username"`
	Password          string        `json:"password"`
	SSLMode           string        `json:"ssl_mode"`
	MaxConnections    int32         `json:"max_connections"`
	HealthCheckPeriod time.Duration `json:"health_check_period"`
}

// PostgresDistribution queries the community hardware statistics table
// for configuration occurrence counts.
type PostgresDistribution struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewPostgresDistribution dials the community statistics database and
// returns a Distribution backed by it.
func NewPostgresDistribution(ctx context.Context, cfg *PostgresConfig, log logger.Logger) (*PostgresDistribution, error) {
	if cfg == nil {
		return nil, fmt.Errorf("refdist: nil postgres config")
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	connURL := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Database,
	}

	if cfg.Username != "" {
		if cfg.Password != "" {
			connURL.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			connURL.User = url.User(cfg.Username)
		}
	}

	query := connURL.Query()

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	query.Set("sslmode", sslMode)
	query.Set("application_name", "hwreport")
	connURL.RawQuery = query.Encode()

	poolConfig, err := pgxpool.ParseConfig(connURL.String())
	if err != nil {
		return nil, fmt.Errorf("refdist: failed to parse connection string: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("refdist: failed to initialize pool: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", port).
		Msg("Connected to community statistics database")

	return &PostgresDistribution{pool: pool, logger: log}, nil
}

// CountMatchingConfigurations returns how many submitted systems share
// the generalized configuration. A missing row counts as zero.
func (p *PostgresDistribution) CountMatchingConfigurations(ctx context.Context, config Configuration) (uint64, error) {
	var count uint64

	row := p.pool.QueryRow(ctx, countConfigurationSQL, config.Key())
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("refdist: count query failed: %w", err)
	}

	return count, nil
}

// Close releases the underlying pool.
func (p *PostgresDistribution) Close() {
	p.pool.Close()
}
