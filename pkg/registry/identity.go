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

package registry

import (
	"sort"
	"strings"
	"unicode"

	"github.com/carverauto/hwreport/pkg/models"
)

// identityKey builds the pre-anonymization merge key for a record:
// vendor_id:device_id:bus_address, only when all three are present.
// The key is used for grouping only and never appears in a report.
func identityKey(rec *models.RawDeviceRecord) string {
	vendorID := strings.ToLower(strings.TrimSpace(rec.VendorID))
	deviceID := strings.ToLower(strings.TrimSpace(rec.DeviceID))
	busAddr := strings.ToLower(strings.TrimSpace(rec.BusAddress))

	if vendorID == "" || deviceID == "" || busAddr == "" {
		return ""
	}

	return vendorID + ":" + deviceID + ":" + busAddr
}

// NormalizeMAC normalizes a MAC address to uppercase without separators.
func NormalizeMAC(mac string) string {
	mac = strings.ToUpper(strings.TrimSpace(mac))
	mac = strings.ReplaceAll(mac, ":", "")
	mac = strings.ReplaceAll(mac, "-", "")
	mac = strings.ReplaceAll(mac, ".", "")

	return mac
}

// normalizeDescription produces the comparable vendor+model text used
// for fuzzy grouping when no full identity key is available.
func normalizeDescription(rec *models.RawDeviceRecord) string {
	return strings.Join(tokenize(rec.Vendor+" "+rec.Model), " ")
}

// tokenize splits text into lowercased alphanumeric runs, deduped and
// sorted so token order differences between tools do not matter.
func tokenize(text string) []string {
	var tokens []string

	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}

	flush()

	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]

	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}

		seen[tok] = struct{}{}

		out = append(out, tok)
	}

	sort.Strings(out)

	return out
}

// tokenSetRatio is the similarity of two strings over their token sets:
// |intersection| / min(|A|, |B|), in [0,1]. The containment form scores
// 1.0 when one tool reports a short form of the other's full device
// name, which is the common disagreement between detection tools.
func tokenSetRatio(a, b string) float64 {
	tokensA := tokenize(a)
	tokensB := tokenize(b)

	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, tok := range tokensA {
		setA[tok] = struct{}{}
	}

	intersection := 0

	for _, tok := range tokensB {
		if _, ok := setA[tok]; ok {
			intersection++
		}
	}

	smaller := len(tokensA)
	if len(tokensB) < smaller {
		smaller = len(tokensB)
	}

	return float64(intersection) / float64(smaller)
}
