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

package llm

import "strings"

// price is USD per million tokens.
type price struct {
	input  float64
	output float64
}

// Ordered most specific first; the first substring match wins.
var pricing = []struct {
	match string
	price price
}{
	{"claude-opus-4", price{15.0, 75.0}},
	{"claude-sonnet-4", price{3.0, 15.0}},
	{"claude-3-7-sonnet", price{3.0, 15.0}},
	{"claude-3-5-sonnet", price{3.0, 15.0}},
	{"claude-haiku-4", price{0.8, 4.0}},
	{"claude-3-5-haiku", price{0.8, 4.0}},
	{"gemini-2.5-pro", price{1.25, 10.0}},
	{"gemini-2.5-flash-lite", price{0.1, 0.4}},
	{"gemini-2.5-flash", price{0.3, 2.5}},
	{"gemini-2.0-flash", price{0.1, 0.4}},
	{"mock", price{0, 0}},
}

var defaultPrice = price{3.0, 15.0}

// EstimateCost returns the USD cost of a call to model.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	p := defaultPrice
	lower := strings.ToLower(model)
	for _, entry := range pricing {
		if strings.Contains(lower, entry.match) {
			p = entry.price
			break
		}
	}
	return float64(inputTokens)*p.input/1_000_000 + float64(outputTokens)*p.output/1_000_000
}
