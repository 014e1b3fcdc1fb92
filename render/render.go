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


// Package render turns ERP documents into the masked canonical text that is
// embedded, and classifies what went wrong when it can't.
//
// A failure caused by masking is returned wrapping core.ErrMaskingFailure and
// must stop the batch. Every other failure wraps core.ErrRenderingFailure and
// only skips the document.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/thanhtoan105/accounting-erp-rag/core"
)

// ErrMaskerFactoryRequired is returned when a renderer is built without a masker factory.
var ErrMaskerFactoryRequired = errors.New("masker factory is required")

// MaskerFactory binds a field masker to one document.
// *masking.Engine implements it.
type MaskerFactory interface {
	ForDocument(ctx context.Context, doc core.ErpDocument) core.FieldMasker
}

// Renderer renders documents through a masking engine.
type Renderer struct {
	maskers MaskerFactory
}

// NewRenderer creates a renderer.
func NewRenderer(maskers MaskerFactory) (*Renderer, error) {
	if maskers == nil {
		return nil, ErrMaskerFactoryRequired
	}
	return &Renderer{maskers: maskers}, nil
}

// Render returns the masked canonical text of doc.
func (r *Renderer) Render(ctx context.Context, doc core.ErpDocument) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: document is nil", core.ErrRenderingFailure)
	}
	return Render(doc, r.maskers.ForDocument(ctx, doc))
}

// Render renders doc with masker and classifies the failure, if any.
func Render(doc core.ErpDocument, masker core.FieldMasker) (string, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrRenderingFailure, err)
	}
	if doc.Header().IsDeleted() {
		return "", fmt.Errorf("%w: %s %s is soft-deleted", core.ErrRenderingFailure, doc.Type(), doc.Header().Id)
	}

	text, err := doc.Render(masker)
	if err != nil {
		if errors.Is(err, core.ErrMaskingFailure) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s %s: %w", core.ErrRenderingFailure, doc.Type(), doc.Header().Id, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s %s rendered empty", core.ErrRenderingFailure, doc.Type(), doc.Header().Id)
	}
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("%w: %s %s rendered invalid UTF-8", core.ErrRenderingFailure, doc.Type(), doc.Header().Id)
	}
	return text, nil
}

// IsFatal reports whether a render error must stop the batch.
func IsFatal(err error) bool {
	return errors.Is(err, core.ErrMaskingFailure)
}
