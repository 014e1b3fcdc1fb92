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


package erprag

import (
	"log/slog"

	"github.com/thanhtoan105/accounting-erp-rag/ai"
	"github.com/thanhtoan105/accounting-erp-rag/ai/openai"
	"github.com/thanhtoan105/accounting-erp-rag/masking"
	"github.com/thanhtoan105/accounting-erp-rag/pipeline"
	"github.com/thanhtoan105/accounting-erp-rag/render"
	"github.com/thanhtoan105/accounting-erp-rag/retrieval"
	"github.com/thanhtoan105/accounting-erp-rag/scanner"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
	"github.com/thanhtoan105/accounting-erp-rag/storage/badger"
)

// Database wires the embedded store, the embedding provider and the salt
// cache, and builds the components that use them.
type Database struct {
	stores     *badger.Stores
	provider   ai.AIProvider
	salts      *masking.SaltProvider
	dimensions int
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithAIProvider uses provider instead of building one from the AI config.
// The database takes ownership and closes it.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// InMemory keeps all data in memory. The file path is ignored.
func InMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to every component.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	stores, err := badger.NewStores(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	salts, err := masking.NewSaltProvider(stores.Secrets, masking.WithSaltLogger(options.logger))
	if err != nil {
		stores.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			stores.Close()
			return nil, err
		}
	}

	return &Database{
		stores:     stores,
		provider:   provider,
		salts:      salts,
		dimensions: options.aiConfig.Dimensions,
		logger:     options.logger,
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Closes the query log sequence and the backend
	if err := db.stores.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) Documents() storage.DocumentRepository {
	return db.stores.Documents
}

func (db *Database) Vectors() storage.VectorStore {
	return db.stores.Vectors
}

func (db *Database) Secrets() storage.SecretStore {
	return db.stores.Secrets
}

func (db *Database) Batches() storage.BatchRepository {
	return db.stores.Batches
}

func (db *Database) MaskMappings() storage.MaskMappingRepository {
	return db.stores.Mappings
}

func (db *Database) QueryLogs() storage.QueryLogRepository {
	return db.stores.QueryLogs
}

func (db *Database) Watermarks() storage.WatermarkRepository {
	return db.stores.Watermarks
}

// Salts returns the process-wide salt cache shared by every masking engine
// this database builds.
func (db *Database) Salts() *masking.SaltProvider {
	return db.salts
}

func (db *Database) NewMaskingEngine(opts ...masking.Option) (*masking.Engine, error) {
	opts = append([]masking.Option{masking.WithLogger(db.logger)}, opts...)
	return masking.NewEngine(db.salts, db.stores.Mappings, opts...)
}

// NewOrchestrator builds a batch orchestrator over the stored documents,
// masking through a new engine and embedding with the database's provider.
// Vectors are checked against the configured embedding dimensions unless
// opts supply their own config.
func (db *Database) NewOrchestrator(opts ...pipeline.Option) (*pipeline.Orchestrator, error) {
	engine, err := db.NewMaskingEngine()
	if err != nil {
		return nil, err
	}
	renderer, err := render.NewRenderer(engine)
	if err != nil {
		return nil, err
	}

	config := pipeline.DefaultConfig()
	config.Dimensions = db.dimensions
	opts = append([]pipeline.Option{
		pipeline.WithConfig(config),
		pipeline.WithLogger(db.logger),
		pipeline.WithWatermarks(db.stores.Watermarks),
	}, opts...)
	return pipeline.NewOrchestrator(db.stores.Documents, renderer, db.provider.Embedder(),
		db.stores.Vectors, db.stores.Batches, opts...)
}

// NewBatchService builds an orchestrator and runs its batches on a worker pool.
// Call Release on the service when done.
func (db *Database) NewBatchService(orchestratorOpts []pipeline.Option, opts ...pipeline.ServiceOption) (*pipeline.Service, error) {
	orchestrator, err := db.NewOrchestrator(orchestratorOpts...)
	if err != nil {
		return nil, err
	}
	opts = append([]pipeline.ServiceOption{pipeline.WithServiceLogger(db.logger)}, opts...)
	return pipeline.NewService(orchestrator, opts...)
}

func (db *Database) NewRetriever(opts ...retrieval.Option) (*retrieval.Retriever, error) {
	opts = append([]retrieval.Option{
		retrieval.WithLogger(db.logger),
		retrieval.WithQueryLog(db.stores.QueryLogs),
	}, opts...)
	return retrieval.NewRetriever(db.stores.Vectors, db.provider, opts...)
}

func (db *Database) NewScanner(opts ...scanner.Option) (*scanner.Scanner, error) {
	opts = append([]scanner.Option{scanner.WithLogger(db.logger)}, opts...)
	return scanner.NewScanner(db.stores.Vectors, db.stores.QueryLogs, opts...)
}
