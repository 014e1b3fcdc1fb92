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
	"time"

	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/ai"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
)

// Request describes one trigger of the indexing pipeline.
type Request struct {
	TenantId    uuid.UUID
	Type        core.BatchType
	TriggeredBy string
	Tables      []string   // source tables to index; empty means all
	Since       *time.Time // lower bound for incremental and manual runs
}

// Outcome reports what a trigger did.
type Outcome struct {
	BatchId   uuid.UUID
	Duplicate bool // an active batch with the same hash already existed
	Status    core.BatchStatus
}

// Job is a created batch waiting to be run.
type Job struct {
	batch            *core.Batch
	types            []core.DocumentType
	since            *time.Time
	advanceWatermark bool
}

// BatchId returns the identity of the job's batch.
func (j *Job) BatchId() uuid.UUID {
	return j.batch.Id
}

// Orchestrator runs embedding batches: extract, render and mask, embed in
// chunks, persist, and track the batch through its state machine.
//
// One batch runs sequentially on the calling goroutine. Concurrent triggers
// for the same window are merged by the batch repository's atomic
// create-or-get on the batch hash.
type Orchestrator struct {
	source     storage.DocumentSource
	renderer   Renderer
	embedder   ai.Embedder
	vectors    storage.VectorStore
	batches    storage.BatchRepository
	watermarks storage.WatermarkRepository
	alerter    Alerter
	config     *Config
	processor  *ChunkProcessor
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithConfig sets the batch configuration.
// Default is DefaultConfig().
func WithConfig(config *Config) Option {
	return func(o *Orchestrator) error {
		if config != nil {
			c := *config
			o.config = &c
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithAlerter sets the failure-rate alerter.
// Default logs at error level.
func WithAlerter(alerter Alerter) Option {
	return func(o *Orchestrator) error {
		o.alerter = alerter
		return nil
	}
}

// WithWatermarks enables watermarks: incremental batches without an explicit
// window start where the last complete batch started.
func WithWatermarks(watermarks storage.WatermarkRepository) Option {
	return func(o *Orchestrator) error {
		o.watermarks = watermarks
		return nil
	}
}

// NewOrchestrator creates a batch orchestrator.
// Extraction and embedding calls are retried with backoff per the config.
func NewOrchestrator(
	source storage.DocumentSource,
	renderer Renderer,
	embedder ai.Embedder,
	vectors storage.VectorStore,
	batches storage.BatchRepository,
	opts ...Option,
) (*Orchestrator, error) {
	if source == nil {
		return nil, ErrDocumentSourceRequired
	}
	if renderer == nil {
		return nil, ErrRendererRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if batches == nil {
		return nil, ErrBatchRepositoryRequired
	}

	o := &Orchestrator{
		renderer: renderer,
		vectors:  vectors,
		batches:  batches,
		config:   DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	o.config.normalize()
	o.logger = o.logger.With("component", "orchestrator")
	if o.alerter == nil {
		o.alerter = LogAlerter{Logger: o.logger}
	}
	o.source = NewRetryingSource(source, o.config.MaxRetries, o.config.RetryDelay)
	o.embedder = NewRetryingEmbedder(embedder, o.config.MaxRetries, o.config.RetryDelay)
	o.processor = NewChunkProcessor(o.renderer, o.embedder, o.vectors, o.config.Dimensions, o.logger)
	return o, nil
}

// RunBatch creates a batch for req and runs it to completion.
//
// If an active batch with the same tenant, type, tables and window already
// exists its identity is returned with Duplicate set and nothing runs. A
// batch that fails is reported with status Failed and the error that failed
// it, classifiable with errors.Is against core.ErrExtractionFailure or
// core.ErrMaskingFailure.
func (o *Orchestrator) RunBatch(ctx context.Context, req Request) (Outcome, error) {
	job, outcome, err := o.Enqueue(ctx, req)
	if err != nil || outcome.Duplicate {
		return outcome, err
	}
	return o.Run(ctx, job)
}

// Enqueue creates a queued batch for req, or returns the outcome for an
// active duplicate with a nil job.
func (o *Orchestrator) Enqueue(ctx context.Context, req Request) (*Job, Outcome, error) {
	if req.TenantId == uuid.Nil {
		return nil, Outcome{}, ErrTenantRequired
	}
	batchType, err := core.ParseBatchType(string(req.Type))
	if err != nil {
		return nil, Outcome{}, err
	}

	types := o.resolveTypes(req.Tables)
	since, err := o.resolveSince(ctx, req.TenantId, batchType, req.Since)
	if err != nil {
		return nil, Outcome{}, err
	}

	tables := make([]string, len(types))
	for i, t := range types {
		tables[i] = t.SourceTable()
	}

	batch := core.NewBatch(req.TenantId, batchType, req.TriggeredBy, core.BatchHash(req.TenantId, batchType, tables, since))
	existing, created, err := o.batches.CreateOrGet(ctx, batch)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("failed to create batch: %w", err)
	}
	if !created {
		o.logger.Info("duplicate trigger, returning active batch",
			"batch_id", existing.Id, "tenant_id", existing.TenantId, "status", existing.Status)
		return nil, Outcome{BatchId: existing.Id, Duplicate: true, Status: existing.Status}, nil
	}

	// Only a window covering every table from the last watermark may move it
	advance := len(types) == len(core.AllDocumentTypes) &&
		(since == nil || batchType == core.BatchTypeIncremental)
	job := &Job{
		batch:            batch,
		types:            types,
		since:            since,
		advanceWatermark: advance,
	}
	o.logger.Info("batch queued", "batch_id", batch.Id, "tenant_id", batch.TenantId,
		"type", batchType, "tables", tables, "triggered_by", req.TriggeredBy)
	return job, Outcome{BatchId: batch.Id, Status: batch.Status}, nil
}

// Run executes a queued job to completion.
func (o *Orchestrator) Run(ctx context.Context, job *Job) (Outcome, error) {
	batch := job.batch
	logger := o.logger.With("batch_id", batch.Id, "tenant_id", batch.TenantId)

	windowStart := time.Now().UTC()
	docs, err := o.extract(ctx, batch.TenantId, job.types, job.since)
	if err != nil {
		return o.fail(ctx, logger, batch, fmt.Errorf("%w: %w", core.ErrExtractionFailure, err))
	}

	if err := batch.Start(len(docs)); err != nil {
		return o.fail(ctx, logger, batch, err)
	}
	if err := o.batches.SaveBatch(ctx, batch); err != nil {
		return o.fail(ctx, logger, batch, fmt.Errorf("failed to save batch: %w", err))
	}

	iterator := NewChunkIterator(o.config.ChunkSize)
	logger.Info("batch started", "type", batch.Type, "documents", len(docs), "chunks", iterator.Count(len(docs)))

	tracker := NewProgressTracker(len(docs), o.config.ReportInterval)
	tracker.Start()

	err = iterator.ForEach(ctx, docs, func(chunk []core.ErpDocument, last bool) error {
		result, err := o.processor.Process(ctx, chunk)
		batch.ProcessedDocuments += result.Persisted
		batch.FailedDocuments += result.Failed
		if err != nil {
			return err
		}

		if tracker.Add(result.Persisted, result.Failed) || last {
			o.recordMetrics(batch, tracker.Snapshot())
			logger.Info("batch progress",
				"processed", batch.ProcessedDocuments,
				"failed", batch.FailedDocuments,
				"total", batch.TotalDocuments,
				"throughput_per_min", batch.Metrics.ThroughputPerMinute,
				"eta_ms", batch.Metrics.ETAMs)
		}

		batch.UpdatedAt = time.Now().UTC()
		if err := o.batches.SaveBatch(ctx, batch); err != nil {
			logger.Warn("failed to save batch progress", "error", err)
		}
		return nil
	})
	if err != nil {
		return o.fail(ctx, logger, batch, err)
	}

	o.recordMetrics(batch, tracker.Snapshot())
	if batch.Metrics.FailureRate > o.config.AlertFailureRate {
		batch.Metrics.AlertRaised = true
		o.alerter.FailureRateExceeded(ctx, batch, o.config.AlertFailureRate)
	}

	if err := batch.Complete(); err != nil {
		return o.fail(ctx, logger, batch, err)
	}
	if err := o.batches.SaveBatch(ctx, batch); err != nil {
		return Outcome{BatchId: batch.Id, Status: batch.Status}, fmt.Errorf("failed to save completed batch: %w", err)
	}

	if job.advanceWatermark {
		o.saveWatermark(ctx, logger, batch, windowStart)
	}

	logger.Info("batch complete",
		"processed", batch.ProcessedDocuments,
		"failed", batch.FailedDocuments,
		"total", batch.TotalDocuments,
		"elapsed_ms", batch.Metrics.ElapsedMs,
		"throughput_per_min", batch.Metrics.ThroughputPerMinute,
		"estimated_cost_usd", batch.Metrics.EstimatedCostUSD)
	return Outcome{BatchId: batch.Id, Status: batch.Status}, nil
}

// Batch returns a batch by ID.
func (o *Orchestrator) Batch(ctx context.Context, id uuid.UUID) (*core.Batch, error) {
	return o.batches.GetBatch(ctx, id)
}

// Batches returns a tenant's batches, newest first.
func (o *Orchestrator) Batches(ctx context.Context, tenantId uuid.UUID) ([]*core.Batch, error) {
	return o.batches.ListBatches(ctx, tenantId)
}

// resolveTypes maps table names to document types in canonical order,
// dropping unknown tables and duplicates.
func (o *Orchestrator) resolveTypes(tables []string) []core.DocumentType {
	if len(tables) == 0 {
		return core.AllDocumentTypes
	}

	wanted := make(map[core.DocumentType]bool, len(tables))
	for _, table := range tables {
		docType, err := core.TypeForTable(table)
		if err != nil {
			o.logger.Warn("ignoring unknown table", "table", table)
			continue
		}
		wanted[docType] = true
	}

	types := make([]core.DocumentType, 0, len(wanted))
	for _, docType := range core.AllDocumentTypes {
		if wanted[docType] {
			types = append(types, docType)
		}
	}
	return types
}

// resolveSince picks the extraction window's lower bound.
func (o *Orchestrator) resolveSince(ctx context.Context, tenantId uuid.UUID, batchType core.BatchType, since *time.Time) (*time.Time, error) {
	switch batchType {
	case core.BatchTypeFull:
		return nil, nil
	case core.BatchTypeIncremental:
		if since != nil || o.watermarks == nil {
			return since, nil
		}
		watermark, err := o.watermarks.LoadWatermark(ctx, tenantId)
		if err != nil {
			return nil, fmt.Errorf("failed to load watermark: %w", err)
		}
		if watermark == nil {
			return nil, nil
		}
		return &watermark.Since, nil
	default:
		return since, nil
	}
}

func (o *Orchestrator) extract(ctx context.Context, tenantId uuid.UUID, types []core.DocumentType, since *time.Time) ([]core.ErpDocument, error) {
	var docs []core.ErpDocument
	for _, docType := range types {
		extracted, err := o.source.Extract(ctx, tenantId, docType, since)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", docType.SourceTable(), err)
		}
		docs = append(docs, extracted...)
	}
	return docs, nil
}

func (o *Orchestrator) recordMetrics(batch *core.Batch, progress Progress) {
	batch.Metrics.ElapsedMs = progress.Elapsed.Milliseconds()
	batch.Metrics.ThroughputPerMinute = progress.ThroughputPerMinute
	batch.Metrics.ETAMs = progress.ETA.Milliseconds()
	batch.Metrics.EstimatedCostUSD = o.config.EstimatedCost(batch.ProcessedDocuments)
	batch.Metrics.FailureRate = batch.FailureRate()
}

func (o *Orchestrator) saveWatermark(ctx context.Context, logger *slog.Logger, batch *core.Batch, since time.Time) {
	if o.watermarks == nil {
		return
	}
	watermark := &core.Watermark{
		TenantId:  batch.TenantId,
		Since:     since,
		BatchId:   batch.Id,
		UpdatedAt: time.Now().UTC(),
	}
	if err := o.watermarks.SaveWatermark(ctx, watermark); err != nil {
		logger.Warn("failed to save watermark", "error", err)
	}
}

// fail moves batch to Failed and records why. The state is saved even when
// ctx has been canceled.
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, batch *core.Batch, cause error) (Outcome, error) {
	if err := batch.Fail(cause.Error()); err != nil {
		logger.Warn("batch already terminal", "status", batch.Status, "error", err)
	}
	if err := o.batches.SaveBatch(context.WithoutCancel(ctx), batch); err != nil {
		logger.Error("failed to save failed batch", "error", err)
	}
	logger.Error("batch failed",
		"processed", batch.ProcessedDocuments,
		"failed", batch.FailedDocuments,
		"total", batch.TotalDocuments,
		"error", cause)
	return Outcome{BatchId: batch.Id, Status: batch.Status}, cause
}
