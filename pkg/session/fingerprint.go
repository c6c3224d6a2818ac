// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint hashes the JSON form of v. Equal values give equal
// fingerprints; map keys are sorted by encoding/json.
func Fingerprint(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		// unreachable for session types; hash the formatted value instead
		data = []byte(fmt.Sprintf("%#v", v))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// ContentHash identifies an uploaded file by content.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Fingerprint identifies the facts in i. nil and empty lists hash alike.
func (i *Insights) Fingerprint() string {
	if i == nil {
		return ""
	}
	c := i.Clone()
	for _, list := range []*[]string{&c.Parties, &c.KeyFacts, &c.Risks, &c.Benchmarks} {
		if *list == nil {
			*list = []string{}
		}
	}
	return Fingerprint(c)
}

// InsightsFingerprint is the fingerprint of the merged insights, empty when
// there are none.
func (s *State) InsightsFingerprint() string {
	return s.Insights.Fingerprint()
}

// RequirementsFingerprint identifies the current requirement list.
func (s *State) RequirementsFingerprint() string {
	if len(s.Requirements) == 0 {
		return ""
	}
	return Fingerprint(s.Requirements)
}

// SectionsFingerprint identifies the drafted section contents.
func (s *State) SectionsFingerprint() string {
	if len(s.Sections) == 0 {
		return ""
	}
	contents := make(map[string]string, len(s.Sections))
	for id, d := range s.Sections {
		contents[id] = d.Content
	}
	return Fingerprint(contents)
}

// OutlineFingerprint identifies the outline.
func (s *State) OutlineFingerprint() string {
	if len(s.Outline) == 0 {
		return ""
	}
	return Fingerprint(s.Outline)
}
