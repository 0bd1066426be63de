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

// Package privacy implements the anonymization pipeline: identifier
// hashing, generalization, differential-privacy noise, and k-anonymity
// enforcement, driven by a process-wide rotating salt.
package privacy

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/hwreport/pkg/logger"
	"github.com/carverauto/hwreport/pkg/models"
)

const saltSize = 32 // 256-bit salt

// AnonymizationContext is an immutable snapshot of the salt state plus
// the privacy policy for one session. All stages within a session read
// the same snapshot, so a concurrent rotation can never split a report
// across two salt epochs.
type AnonymizationContext struct {
	Salt   []byte
	Epoch  string
	Level  models.PrivacyLevel
	Policy models.PrivacyPolicy
}

// SaltManager owns the process-wide rotating salt. It is shared across
// concurrent sessions; sessions read consistent snapshots, never the
// mutable state directly.
type SaltManager struct {
	mu        sync.RWMutex
	salt      []byte
	epoch     string
	rotatedAt time.Time

	level  models.PrivacyLevel
	policy models.PrivacyPolicy

	cancel context.CancelFunc
	done   chan struct{}

	logger logger.Logger
}

// NewSaltManager generates the initial salt for the level's rotation
// policy. Start must be called to enable background rotation.
func NewSaltManager(level models.PrivacyLevel, log logger.Logger) (*SaltManager, error) {
	m := &SaltManager{
		level:  level,
		policy: level.Policy(),
		logger: log,
	}

	if err := m.rotateLocked(); err != nil {
		return nil, err
	}

	return m, nil
}

// Start launches the background rotation loop. It may be called at most
// once; Stop tears it down at process shutdown.
func (m *SaltManager) Start(ctx context.Context) {
	rotateCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.rotationLoop(rotateCtx)
}

// Stop halts background rotation and waits for the loop to exit.
func (m *SaltManager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

func (m *SaltManager) rotationLoop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.policy.SaltRotation)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.ForceRotate(); err != nil {
				m.logger.Error().Err(err).Msg("Salt rotation failed, previous salt retained")
			}
		}
	}
}

// Snapshot returns a consistent view of the current salt epoch for one
// session. The returned context never changes even if rotation fires
// while the session is still anonymizing.
func (m *SaltManager) Snapshot() (*AnonymizationContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.salt) == 0 {
		return nil, ErrSaltUnavailable
	}

	salt := make([]byte, len(m.salt))
	copy(salt, m.salt)

	return &AnonymizationContext{
		Salt:   salt,
		Epoch:  m.epoch,
		Level:  m.level,
		Policy: m.policy,
	}, nil
}

// ForceRotate replaces the salt immediately, starting a new epoch.
// Sessions holding an existing snapshot are unaffected.
func (m *SaltManager) ForceRotate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.rotateLocked(); err != nil {
		return err
	}

	m.logger.Info().
		Str("epoch", m.epoch).
		Dur("rotation_interval", m.policy.SaltRotation).
		Msg("Anonymization salt rotated")

	return nil
}

func (m *SaltManager) rotateLocked() error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("%w: %s", ErrSaltUnavailable, err)
	}

	m.salt = salt
	m.epoch = uuid.New().String()
	m.rotatedAt = time.Now().UTC()

	return nil
}
