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


// Package pipeline indexes ERP documents into the vector store.
//
// An Orchestrator runs one batch at a time through the state machine
// Queued -> Running -> {Complete | Failed}:
//
//  1. Extract the tenant's documents of each requested type.
//  2. Split them into chunks of at most 100.
//  3. Render and mask every document of a chunk. A masking failure fails the
//     batch; any other rendering failure skips the document.
//  4. Embed the chunk's texts in one call. A failed call or a malformed
//     result fails only the chunk's documents.
//  5. Persist each normalized vector with its masked text. A failed write
//     skips only that document.
//  6. Record progress after every chunk and metrics at a fixed cadence.
//  7. Complete the batch, estimating cost and alerting when too many
//     documents failed.
//
// Duplicate triggers for a window that is still queued or running return the
// existing batch. Service runs batches on a worker pool for callers that want
// to trigger and poll.
//
// Basic usage:
//
//	orch, _ := pipeline.NewOrchestrator(docs, renderer, embedder, vectors, batches)
//	outcome, err := orch.RunBatch(ctx, pipeline.Request{
//		TenantId: tenant,
//		Type:     core.BatchTypeFull,
//	})
package pipeline
