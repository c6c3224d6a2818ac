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

// Package embedded provides files compiled into the dealdraft binary, so
// the defaults are available even when the binary ships without the source
// tree.
package embedded

import (
	_ "embed"
)

// AgentsYAML contains the default agent definitions (analyst, compliance,
// writer) as a multi-document YAML stream.
//
//go:embed agents.yaml
var AgentsYAML []byte

// GetAgents returns the embedded agents.yaml content.
func GetAgents() []byte {
	return AgentsYAML
}
