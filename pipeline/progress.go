// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"sync"
	"time"
)

// Progress is a point-in-time view of a batch run.
type Progress struct {
	Total               int
	Processed           int
	Failed              int
	Elapsed             time.Duration
	ThroughputPerMinute float64       // processed documents per minute
	ETA                 time.Duration // zero until something has been processed
}

// Remaining returns the number of documents not yet handled.
func (p Progress) Remaining() int {
	remaining := p.Total - p.Processed - p.Failed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ProgressTracker tracks processed and failed counts of a batch run and decides
// when metrics are due.
type ProgressTracker struct {
	total          int
	processed      int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	now            func() time.Time
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// total: total number of documents in the batch
// reportInterval: metrics are due every N handled documents
func NewProgressTracker(total, reportInterval int) *ProgressTracker {
	if reportInterval <= 0 {
		reportInterval = DefaultReportInterval
	}
	return &ProgressTracker{
		total:          total,
		reportInterval: reportInterval,
		now:            time.Now,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = p.now()
	p.started = true
	p.processed = 0
	p.failed = 0
	p.lastReported = 0
}

// Add records the outcome of one chunk and reports whether a report interval
// was crossed.
func (p *ProgressTracker) Add(processed, failed int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return false
	}

	p.processed += processed
	p.failed += failed

	done := p.processed + p.failed
	if done-p.lastReported >= p.reportInterval {
		p.lastReported = done - done%p.reportInterval
		return true
	}
	return false
}

// Snapshot computes throughput and ETA from the counts so far.
func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Progress{
		Total:     p.total,
		Processed: p.processed,
		Failed:    p.failed,
	}
	if !p.started {
		return snap
	}

	snap.Elapsed = p.now().Sub(p.startTime)
	if seconds := snap.Elapsed.Seconds(); seconds > 0 {
		snap.ThroughputPerMinute = float64(p.processed) / seconds * 60
	}
	if p.processed > 0 {
		snap.ETA = time.Duration(float64(snap.Remaining()) / float64(p.processed) * float64(snap.Elapsed))
	}
	return snap
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return p.now().Sub(p.startTime)
}
