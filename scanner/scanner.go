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


package scanner

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
)

// DefaultLimit is the number of records scanned per source.
const DefaultLimit = 1000

// Source names the store a record was read from.
type Source string

const (
	SourceVectorRecords Source = "vector_records"
	SourceQueryLogs     Source = "query_logs"
)

// Violation is one category of PII found in one record.
type Violation struct {
	Source      Source
	TenantId    uuid.UUID
	RecordId    string
	Category    Category
	Description string
	Offset      int // byte offset of the first match in the NFC-normalized text
}

// Result summarizes the scan of one source.
type Result struct {
	Source     Source
	Scanned    int
	Violations []Violation
	Err        error // set when the source could not be read completely
}

// HasViolations reports whether any PII was found.
func (r *Result) HasViolations() bool {
	return len(r.Violations) > 0
}

// Scanner scans persisted text for PII that escaped masking.
type Scanner struct {
	vectors   storage.VectorStore
	queryLogs storage.QueryLogRepository
	names     bool
	limit     int
	poolSize  int
	detectors []detector
	logger    *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithNames enables Vietnamese personal-name detection.
func WithNames(enabled bool) Option {
	return func(s *Scanner) error {
		s.names = enabled
		return nil
	}
}

// WithLimit caps the records scanned per source.
// Default is DefaultLimit; zero or less means no cap.
func WithLimit(limit int) Option {
	return func(s *Scanner) error {
		s.limit = limit
		return nil
	}
}

// WithPoolSize sets the number of records scanned concurrently.
// Default is runtime.NumCPU().
func WithPoolSize(size int) Option {
	return func(s *Scanner) error {
		if size < 1 {
			size = 1
		}
		s.poolSize = size
		return nil
	}
}

// NewScanner creates a scanner over the vector store and query log.
func NewScanner(vectors storage.VectorStore, queryLogs storage.QueryLogRepository, opts ...Option) (*Scanner, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if queryLogs == nil {
		return nil, ErrQueryLogRequired
	}

	s := &Scanner{
		vectors:   vectors,
		queryLogs: queryLogs,
		limit:     DefaultLimit,
		poolSize:  runtime.NumCPU(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.detectors = defaultDetectors(s.names)
	s.logger = s.logger.With("component", "pii-scanner")

	return s, nil
}

// ScanText returns the PII categories found in text, one violation per
// category, in detector order. Source and TenantId are left for the caller.
func (s *Scanner) ScanText(recordId, text string) []Violation {
	text = normalize(text)

	var violations []Violation
	for _, d := range s.detectors {
		if at := d.find(text); at >= 0 {
			violations = append(violations, Violation{
				RecordId:    recordId,
				Category:    d.category,
				Description: d.description,
				Offset:      at,
			})
		}
	}
	return violations
}

// item is one record's text queued for scanning.
type item struct {
	tenantId uuid.UUID
	id       string
	text     string
}

// ScanVectorRecords scans the masked content of stored vector records.
func (s *Scanner) ScanVectorRecords(ctx context.Context) *Result {
	var items []item
	err := s.vectors.ForEachVectorRecord(ctx, func(record *core.VectorRecord) error {
		if s.limit > 0 && len(items) >= s.limit {
			return errLimitReached
		}
		items = append(items, item{
			tenantId: record.TenantId,
			id:       record.SourceTable + "/" + record.SourceId.String(),
			text:     record.Metadata.ContentText,
		})
		return nil
	})
	return s.scan(ctx, SourceVectorRecords, items, err)
}

// ScanQueryLogs scans the questions recorded in the query log.
func (s *Scanner) ScanQueryLogs(ctx context.Context) *Result {
	var items []item
	err := s.queryLogs.ForEachQueryLog(ctx, func(entry *core.QueryLog) error {
		if s.limit > 0 && len(items) >= s.limit {
			return errLimitReached
		}
		items = append(items, item{
			tenantId: entry.TenantId,
			id:       strconv.FormatUint(uint64(entry.Id), 10),
			text:     entry.Question,
		})
		return nil
	})
	return s.scan(ctx, SourceQueryLogs, items, err)
}

// ScanAll scans every source.
func (s *Scanner) ScanAll(ctx context.Context) []*Result {
	return []*Result{
		s.ScanVectorRecords(ctx),
		s.ScanQueryLogs(ctx),
	}
}

func (s *Scanner) scan(ctx context.Context, source Source, items []item, readErr error) *Result {
	logger := s.logger.With("source", source)
	logger.Info("starting PII scan")

	result := &Result{Source: source}
	if readErr != nil && !errors.Is(readErr, errLimitReached) {
		logger.Error("error reading records", "err", readErr)
		result.Err = readErr
	}
	if errors.Is(readErr, errLimitReached) {
		logger.Warn("record limit reached, scan is partial", "limit", s.limit)
	}

	found := make([][]Violation, len(items))
	if err := s.scanItems(ctx, items, found); err != nil {
		logger.Error("error scanning records", "err", err)
		result.Err = errors.Join(result.Err, err)
	}

	for i, violations := range found {
		for _, v := range violations {
			v.Source = source
			v.TenantId = items[i].tenantId
			result.Violations = append(result.Violations, v)
		}
	}
	slices.SortStableFunc(result.Violations, func(a, b Violation) int {
		return cmp.Or(cmp.Compare(a.RecordId, b.RecordId), cmp.Compare(a.Category, b.Category))
	})
	result.Scanned = len(items)

	logger.Info("completed PII scan", "scanned", result.Scanned, "violations", len(result.Violations))
	return result
}

// scanItems scans items concurrently, writing each item's violations to the
// matching slot of found.
func (s *Scanner) scanItems(ctx context.Context, items []item, found [][]Violation) error {
	if len(items) == 0 {
		return nil
	}

	pool, err := ants.NewPool(s.poolSize)
	if err != nil {
		return err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range items {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if items[i].text != "" {
				found[i] = s.ScanText(items[i].id, items[i].text)
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}
	wg.Wait()

	return nil
}
