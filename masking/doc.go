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


// Package masking replaces PII in ERP documents with deterministic tokens.
//
// Every token is a pure function of the original value and a secret salt, so
// the same customer masks to the same token across documents and batches.
// Salts are resolved per tenant with a fallback to a global salt; when no salt
// can be found the engine fails with core.ErrMaskingFailure instead of
// emitting anything derived from the raw value.
//
// Each salted masking writes a core.MaskMapping row holding the full hash and
// the salt version, which lets an authorized auditor check a candidate
// original against a token with Engine.Verify.
//
// Basic usage:
//
//	salts, _ := masking.NewSaltProvider(secretStore)
//	engine, _ := masking.NewEngine(salts, mappingRepo)
//	text, err := doc.Render(engine.ForDocument(ctx, doc))
package masking
