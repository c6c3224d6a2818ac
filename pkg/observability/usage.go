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

package observability

import (
	"context"
	"sort"
	"sync"
	"time"
)

// UsageRecord is one model call as seen by the gateway.
type UsageRecord struct {
	Caller       string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Latency      time.Duration
	Attempts     int
	Success      bool
	Error        string
	Timestamp    time.Time
}

// UsageTotals aggregates usage for one caller label.
type UsageTotals struct {
	Caller       string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Latency      time.Duration
}

// UsageSink receives one record per gateway call. Implementations must not
// block the caller for long; errors are logged by the gateway, never returned
// to the model caller.
type UsageSink interface {
	Record(ctx context.Context, rec UsageRecord) error
	Records(ctx context.Context) ([]UsageRecord, error)
}

// MemoryUsageSink keeps usage records for the lifetime of a session.
// Thread-safe.
type MemoryUsageSink struct {
	mu      sync.Mutex
	records []UsageRecord
}

// NewMemoryUsageSink creates an empty in-memory sink.
func NewMemoryUsageSink() *MemoryUsageSink {
	return &MemoryUsageSink{}
}

// Record appends rec.
func (s *MemoryUsageSink) Record(_ context.Context, rec UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of all records in arrival order.
func (s *MemoryUsageSink) Records(_ context.Context) ([]UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UsageRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Len returns the number of records.
func (s *MemoryUsageSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Totals groups records by caller, sorted by caller label.
func Totals(records []UsageRecord) []UsageTotals {
	byCaller := make(map[string]*UsageTotals)
	for _, r := range records {
		t, ok := byCaller[r.Caller]
		if !ok {
			t = &UsageTotals{Caller: r.Caller}
			byCaller[r.Caller] = t
		}
		t.Calls++
		if !r.Success {
			t.Failures++
		}
		t.InputTokens += r.InputTokens
		t.OutputTokens += r.OutputTokens
		t.CostUSD += r.CostUSD
		t.Latency += r.Latency
	}

	out := make([]UsageTotals, 0, len(byCaller))
	for _, t := range byCaller {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Caller < out[j].Caller })
	return out
}

var _ UsageSink = (*MemoryUsageSink)(nil)
