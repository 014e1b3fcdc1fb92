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
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Service runs batches asynchronously on a worker pool. Batches for different
// tenants or windows run concurrently; each batch stays sequential.
type Service struct {
	orchestrator *Orchestrator
	pool         *ants.Pool
	wg           sync.WaitGroup
	logger       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service) error

// WithPoolSize sets the number of batches that may run at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) ServiceOption {
	return func(s *Service) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithServiceLogger sets a custom logger.
// Default is slog.Default().
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a batch service over orchestrator.
func NewService(orchestrator *Orchestrator, opts ...ServiceOption) (*Service, error) {
	if orchestrator == nil {
		return nil, ErrOrchestratorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Service{
		orchestrator: orchestrator,
		pool:         pool,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.pool.Release()
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "batch-service")
	return s, nil
}

// Submit creates or deduplicates the batch for req synchronously and runs it
// in the background. The returned outcome carries the batch identity; poll
// the batch repository for its progress.
//
// Submit blocks while every worker is busy. The background run is detached
// from ctx's cancellation.
func (s *Service) Submit(ctx context.Context, req Request) (Outcome, error) {
	if s.pool.IsClosed() {
		return Outcome{}, ErrServiceClosed
	}

	job, outcome, err := s.orchestrator.Enqueue(ctx, req)
	if err != nil || outcome.Duplicate {
		return outcome, err
	}

	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	err = s.pool.Submit(func() {
		defer s.wg.Done()
		if _, err := s.orchestrator.Run(runCtx, job); err != nil {
			s.logger.Error("batch run failed", "batch_id", job.BatchId(), "error", err)
		}
	})
	if err != nil {
		s.wg.Done()
		cause := fmt.Errorf("failed to schedule batch: %w", err)
		failed, _ := s.orchestrator.fail(runCtx, s.logger.With("batch_id", job.BatchId()), job.batch, cause)
		return failed, cause
	}
	return outcome, nil
}

// Running returns the number of batches currently running.
func (s *Service) Running() int {
	return s.pool.Running()
}

// Wait blocks until every submitted batch has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Release waits for running batches and releases the worker pool.
// The service should not be used after calling Release.
func (s *Service) Release() {
	s.wg.Wait()
	s.pool.Release()
}
