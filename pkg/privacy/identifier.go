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
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/carverauto/hwreport/pkg/models"
)

// anonPrefixLen is the number of hex characters kept from the full
// HMAC-SHA256 digest. 32 hex chars = 128 bits, enough to make
// collisions across a community-sized corpus negligible.
const anonPrefixLen = 32

// shortPrefixLen is used for vendor/device IDs where a shorter handle
// keeps the report readable while staying unlinkable to the raw ID.
const shortPrefixLen = 16

// identifierStage replaces every raw identifier with a salted keyed
// hash. Within one salt epoch the mapping is deterministic, enabling
// cross-report aggregation; across epochs outputs are unrelated.
type identifierStage struct{}

// NewIdentifierStage returns the Stage 1 transform.
func NewIdentifierStage() Stage {
	return &identifierStage{}
}

func (*identifierStage) Name() string { return "identifier-anonymization" }

func (*identifierStage) Apply(_ context.Context, report *models.SystemReport, actx *AnonymizationContext) error {
	if len(actx.Salt) == 0 {
		return ErrSaltUnavailable
	}

	hostname := strings.TrimSpace(report.System.AnonymizedHostname)

	report.Metadata.AnonymizedSystemID = anonymize(actx.Salt, "system:"+hostname, anonPrefixLen)
	report.System.AnonymizedHostname = anonymize(actx.Salt, "host:"+hostname, anonPrefixLen)

	for _, device := range report.AllDevices() {
		anonymizeDevice(actx.Salt, device)
	}

	return nil
}

func anonymizeDevice(salt []byte, device *models.HardwareDevice) {
	if device.Serial != "" {
		device.AnonymizedSerial = anonymize(salt, "serial:"+device.Serial, anonPrefixLen)
		device.Serial = ""
	}

	if device.MAC != "" {
		// Normalized before hashing so formatting differences between
		// tools cannot split one NIC across epoch aggregates.
		normalized := strings.ToUpper(strings.NewReplacer(":", "", "-", "", ".", "").Replace(strings.TrimSpace(device.MAC)))
		device.AnonymizedMAC = anonymize(salt, "mac:"+normalized, anonPrefixLen)
		device.MAC = ""
	}

	if device.UUID != "" {
		device.AnonymizedUUID = anonymize(salt, "uuid:"+strings.ToLower(device.UUID), anonPrefixLen)
		device.UUID = ""
	}

	if device.VendorID != "" {
		device.VendorID = anonymize(salt, "vendor_id:"+strings.ToLower(device.VendorID), shortPrefixLen)
	}

	if device.DeviceID != "" {
		device.DeviceID = anonymize(salt, "device_id:"+strings.ToLower(device.DeviceID), shortPrefixLen)
	}

	// The bus address exists only to serve merge grouping; it never
	// appears in an exported report in any form.
	device.BusAddress = ""
}

// anonymize computes HMAC-SHA256(value, salt) and returns the first
// prefixLen hex characters.
func anonymize(salt []byte, value string, prefixLen int) string {
	mac := hmac.New(sha256.New, salt)
	mac.Write([]byte(value))

	digest := hex.EncodeToString(mac.Sum(nil))
	if prefixLen > 0 && prefixLen < len(digest) {
		return digest[:prefixLen]
	}

	return digest
}
