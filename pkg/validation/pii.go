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

package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/carverauto/hwreport/pkg/models"
)

// piiPattern is one compiled detector for a class of raw identifier.
type piiPattern struct {
	name string
	re   *regexp.Regexp
}

var piiPatterns = []piiPattern{
	{"email", regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)},
	{"mac_address", regexp.MustCompile(`\b[0-9A-Fa-f]{2}(?::[0-9A-Fa-f]{2}){5}\b|\b[0-9A-Fa-f]{2}(?:-[0-9A-Fa-f]{2}){5}\b`)},
	{"ipv4_address", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"credential", regexp.MustCompile(`(?i)\b(?:password|passwd|secret|token|api[_-]?key)\s*[=:]\s*\S+`)},
	{"serial_number", regexp.MustCompile(`\b(?:[A-Z]+\d|\d+[A-Z])[A-Z0-9\-]{8,}\b`)},
}

// vendorAllowlist holds substrings that mark a value as a hardware
// vendor or product name. Product names are dense with serial-looking
// tokens; flagging them would drown real findings.
var vendorAllowlist = []string{
	"intel", "amd", "nvidia", "realtek", "broadcom", "qualcomm",
	"samsung", "western digital", "seagate", "kingston", "crucial",
	"micron", "sk hynix", "sandisk", "toshiba", "corsair", "logitech",
	"mediatek", "aquantia", "marvell", "asmedia", "via", "ryzen",
	"geforce", "radeon", "xeon", "core i", "threadripper", "epyc",
}

// ouiPrefixes is a short list of well-known manufacturer OUIs. An
// anonymized MAC that still carries one of these prefixes was not
// actually hashed.
var ouiPrefixes = []string{
	"00:1B:21", "3C:FD:FE", "A0:36:9F", // Intel
	"00:0A:F7", "B4:2E:99", "00:10:18", // Broadcom
	"00:E0:4C", "52:54:00", // Realtek, QEMU
	"00:50:56", "00:0C:29", // VMware
}

func allowlisted(value string) bool {
	lower := strings.ToLower(value)

	for _, vendor := range vendorAllowlist {
		if strings.Contains(lower, vendor) {
			return true
		}
	}

	return false
}

// scanPII runs every pattern over every string field of the report and
// records all matches.
func scanPII(report *models.SystemReport, result *Result) {
	scanString(report.System.AnonymizedHostname, "system.anonymized_hostname", result)
	scanString(report.System.Distribution, "system.distribution", result)

	if report.CPU != nil {
		scanString(report.CPU.Model, "cpu.model", result)
		scanProvenance(report.CPU.Provenance, "cpu", result)
	}

	for i, device := range report.AllDevices() {
		if device == nil {
			continue
		}

		field := fmt.Sprintf("devices[%d]", i)

		if device.Serial != "" || device.MAC != "" || device.UUID != "" || device.BusAddress != "" {
			result.add(KindPotentialPIILeak, field, "raw identifier survived anonymization")
		}

		scanString(device.Vendor, field+".vendor", result)
		scanString(device.Model, field+".model", result)

		for key, value := range device.Specifications {
			scanString(value, field+".specifications."+key, result)
		}

		scanProvenance(device.Provenance, field, result)
	}
}

func scanString(value, field string, result *Result) {
	if value == "" {
		return
	}

	for _, pattern := range piiPatterns {
		if !pattern.re.MatchString(value) {
			continue
		}

		if pattern.name == "serial_number" && allowlisted(value) {
			continue
		}

		result.add(KindPotentialPIILeak, field,
			fmt.Sprintf("value matches %s pattern", pattern.name))
	}
}

func scanProvenance(notes []models.ProvenanceNote, prefix string, result *Result) {
	for i, note := range notes {
		scanString(note.Value, fmt.Sprintf("%s.provenance[%d]", prefix, i), result)
	}
}

// hexPattern matches the lowercase hex output of the identifier stage.
var hexPattern = regexp.MustCompile(`^[0-9a-f]+$`)

// minAnonymizedIDLength is the shortest acceptable anonymized handle,
// 16 hex chars = 64 bits.
const minAnonymizedIDLength = 16

// checkAnonymizationStrength verifies that anonymized identifiers look
// like keyed-hash output rather than passed-through raw values.
func (v *Validator) checkAnonymizationStrength(report *models.SystemReport, result *Result) {
	checkAnonymizedID(report.Metadata.AnonymizedSystemID, "metadata.anonymized_system_id", result)
	checkAnonymizedID(report.System.AnonymizedHostname, "system.anonymized_hostname", result)

	for i, device := range report.AllDevices() {
		if device == nil {
			continue
		}

		field := fmt.Sprintf("devices[%d]", i)

		if device.AnonymizedSerial != "" {
			checkAnonymizedID(device.AnonymizedSerial, field+".anonymized_serial", result)
		}

		if device.AnonymizedUUID != "" {
			checkAnonymizedID(device.AnonymizedUUID, field+".anonymized_uuid", result)
		}

		if device.AnonymizedMAC != "" {
			checkAnonymizedID(device.AnonymizedMAC, field+".anonymized_mac", result)
			checkMACNotRecognizable(device.AnonymizedMAC, field+".anonymized_mac", result)
		}
	}
}

func checkAnonymizedID(value, field string, result *Result) {
	if value == "" {
		return
	}

	if len(value) < minAnonymizedIDLength {
		result.add(KindPotentialPIILeak, field,
			fmt.Sprintf("anonymized identifier only %d chars", len(value)))

		return
	}

	if !hexPattern.MatchString(value) {
		result.add(KindPotentialPIILeak, field, "anonymized identifier is not hex digest output")

		return
	}

	if distinctChars(value) < 4 {
		result.add(KindPotentialPIILeak, field, "anonymized identifier has too little entropy")
	}
}

// checkMACNotRecognizable flags an anonymized MAC that is still in MAC
// notation or still starts with a known manufacturer OUI.
func checkMACNotRecognizable(value, field string, result *Result) {
	upper := strings.ToUpper(value)

	for _, oui := range ouiPrefixes {
		if strings.HasPrefix(upper, oui) || strings.HasPrefix(upper, strings.ReplaceAll(oui, ":", "")) {
			result.add(KindPotentialPIILeak, field, "anonymized MAC retains a known manufacturer OUI")

			return
		}
	}
}

func distinctChars(s string) int {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		seen[r] = struct{}{}
	}

	return len(seen)
}
