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

// Package sysinfo gathers host-level system facts through gopsutil.
// The hostname it returns is raw; anonymization replaces it before any
// report leaves the process.
package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/carverauto/hwreport/pkg/models"
)

// ErrHostInfoUnavailable is returned when no host facts could be read.
var ErrHostInfoUnavailable = errors.New("host information unavailable")

var (
	hostInfoWithContext      = host.InfoWithContext
	cpuCountsWithContext     = cpu.CountsWithContext
	cpuInfoWithContext       = cpu.InfoWithContext
	virtualMemoryWithContext = mem.VirtualMemoryWithContext
)

// Snapshot is one point-in-time view of the host: identification facts
// plus the cpu and memory quantities the reconciler cross-checks
// against tool output.
type Snapshot struct {
	System models.SystemInfo

	CPUModel      string
	CPUVendor     string
	PhysicalCores int
	LogicalCores  int
	CPUMHz        float64
	CPUFlags      []string

	MemoryTotalBytes     uint64
	MemoryAvailableBytes uint64
}

// Collect reads host, cpu, and memory facts. Host identification is
// required; cpu and memory sections degrade to zero values when their
// probes fail, matching how detection tools are allowed to fail
// individually.
func Collect(ctx context.Context) (*Snapshot, error) {
	info, err := hostInfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrHostInfoUnavailable, err)
	}

	snap := &Snapshot{
		System: models.SystemInfo{
			AnonymizedHostname: info.Hostname, // raw until anonymized
			KernelVersion:      info.KernelVersion,
			Distribution:       strings.TrimSpace(info.Platform + " " + info.PlatformVersion),
			Architecture:       info.KernelArch,
		},
	}

	if info.BootTime > 0 {
		boot := time.Unix(int64(info.BootTime), 0).UTC()
		snap.System.BootTime = &boot
	}

	if logical, err := cpuCountsWithContext(ctx, true); err == nil {
		snap.LogicalCores = logical
	}

	if physical, err := cpuCountsWithContext(ctx, false); err == nil {
		snap.PhysicalCores = physical
	}

	if stats, err := cpuInfoWithContext(ctx); err == nil && len(stats) > 0 {
		snap.CPUModel = stats[0].ModelName
		snap.CPUVendor = stats[0].VendorID
		snap.CPUMHz = stats[0].Mhz
		snap.CPUFlags = stats[0].Flags
	}

	if vm, err := virtualMemoryWithContext(ctx); err == nil {
		snap.MemoryTotalBytes = vm.Total
		snap.MemoryAvailableBytes = vm.Available
	}

	return snap, nil
}
