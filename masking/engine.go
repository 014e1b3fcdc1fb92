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


package masking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
	"golang.org/x/text/unicode/norm"
)

// Target identifies the source row whose field is being masked.
type Target struct {
	TenantId    uuid.UUID
	SourceTable string
	SourceId    uuid.UUID
}

// TargetFor returns the masking target of a document.
func TargetFor(doc core.ErpDocument) Target {
	h := doc.Header()
	return Target{
		TenantId:    h.TenantId,
		SourceTable: doc.Type().SourceTable(),
		SourceId:    h.Id,
	}
}

// Engine masks PII values and records a mapping for each salted token.
// It is safe for concurrent use.
type Engine struct {
	salts     *SaltProvider
	mappings  storage.MaskMappingRepository
	gazetteer *Gazetteer
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithGazetteer replaces the province gazetteer used for addresses.
func WithGazetteer(g *Gazetteer) Option {
	return func(e *Engine) error {
		if g != nil {
			e.gazetteer = g
		}
		return nil
	}
}

// NewEngine creates a masking engine.
func NewEngine(salts *SaltProvider, mappings storage.MaskMappingRepository, opts ...Option) (*Engine, error) {
	if salts == nil {
		return nil, ErrSaltProviderRequired
	}
	if mappings == nil {
		return nil, ErrMappingRepositoryRequired
	}

	e := &Engine{
		salts:     salts,
		mappings:  mappings,
		gazetteer: DefaultGazetteer(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "masking")
	return e, nil
}

// MaskCustomerName masks a customer name as Customer_<hex5>.
func (e *Engine) MaskCustomerName(ctx context.Context, value string, target Target) (string, error) {
	return e.Mask(ctx, KindCustomerName, target, KindCustomerName.DefaultField(), value)
}

// MaskVendorName masks a vendor name as Vendor_<hex5>.
func (e *Engine) MaskVendorName(ctx context.Context, value string, target Target) (string, error) {
	return e.Mask(ctx, KindVendorName, target, KindVendorName.DefaultField(), value)
}

// MaskTaxID keeps the last four digits of a tax ID and hides the rest.
func (e *Engine) MaskTaxID(ctx context.Context, value string, target Target) (string, error) {
	return e.Mask(ctx, KindTaxID, target, KindTaxID.DefaultField(), value)
}

// MaskEmail keeps the domain and the first four characters of the local part.
func (e *Engine) MaskEmail(ctx context.Context, value string, target Target) (string, error) {
	return e.Mask(ctx, KindEmail, target, KindEmail.DefaultField(), value)
}

// MaskPhone masks a phone number as Phone_<hex5>.
func (e *Engine) MaskPhone(ctx context.Context, value string, target Target) (string, error) {
	return e.Mask(ctx, KindPhone, target, KindPhone.DefaultField(), value)
}

// MaskAddress reduces an address to its province or city.
func (e *Engine) MaskAddress(ctx context.Context, value string, target Target) (string, error) {
	return e.Mask(ctx, KindAddress, target, KindAddress.DefaultField(), value)
}

// Mask masks value according to kind and records the mapping under field.
//
// The only error is a missing salt, wrapped in core.ErrMaskingFailure.
// Placeholder tokens need no salt and record no mapping. A mapping that
// cannot be written is logged; the token is still returned.
func (e *Engine) Mask(ctx context.Context, kind Kind, target Target, field, value string) (string, error) {
	if !kind.valid() {
		return "", fmt.Errorf("%w: %w: %q", core.ErrMaskingFailure, ErrUnknownKind, kind)
	}

	value = norm.NFC.String(value)
	if masked, ok := placeholder(kind, value); ok {
		return masked, nil
	}

	salt, err := e.salts.Salt(ctx, target.TenantId)
	if err != nil {
		e.logger.Error("no salt available, refusing to mask",
			"tenant_id", target.TenantId, "source_table", target.SourceTable, "field", field)
		return "", fmt.Errorf("%w: %w", core.ErrMaskingFailure, err)
	}

	masked, hash := apply(kind, value, salt.Value, e.gazetteer)
	e.record(ctx, target, field, masked, hash, salt.Version)
	return masked, nil
}

func (e *Engine) record(ctx context.Context, target Target, field, masked, hash string, saltVersion int) {
	if target.SourceTable == "" || target.SourceId == uuid.Nil {
		return
	}

	mapping := &core.MaskMapping{
		SourceTable: target.SourceTable,
		SourceId:    target.SourceId,
		Field:       field,
		MaskedValue: masked,
		Hash:        hash,
		SaltVersion: saltVersion,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := e.mappings.UpsertMaskMapping(ctx, mapping); err != nil {
		e.logger.Error("failed to record mask mapping",
			"source_table", target.SourceTable, "source_id", target.SourceId, "field", field, "error", err)
	}
}

// Verify reports whether candidate is the original value behind mapping.
// The hash is recomputed with the salt version the mapping was written with,
// trying the tenant's salt first and then the global salt.
func (e *Engine) Verify(ctx context.Context, tenantId uuid.UUID, kind Kind, mapping *core.MaskMapping, candidate string) (bool, error) {
	if mapping == nil {
		return false, nil
	}
	if !kind.valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	names := []string{GlobalSaltName}
	if tenantId != uuid.Nil {
		names = []string{TenantSaltName(tenantId), GlobalSaltName}
	}

	input := hashInput(kind, norm.NFC.String(candidate))
	found := false
	for _, name := range names {
		salt, err := e.salts.SaltAt(ctx, name, mapping.SaltVersion)
		if errors.Is(err, ErrSaltVersionNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		found = true
		if digest(input, salt.Value) == mapping.Hash {
			return true, nil
		}
	}
	if !found {
		return false, fmt.Errorf("%w: version %d", ErrSaltVersionNotFound, mapping.SaltVersion)
	}
	return false, nil
}

// ForDocument returns a FieldMasker that masks fields of doc and records
// mappings against its source row.
func (e *Engine) ForDocument(ctx context.Context, doc core.ErpDocument) core.FieldMasker {
	return &documentMasker{ctx: ctx, engine: e, target: TargetFor(doc)}
}

// documentMasker binds an engine to one document for the duration of a render.
type documentMasker struct {
	ctx    context.Context
	engine *Engine
	target Target
}

var _ core.FieldMasker = (*documentMasker)(nil)

func (m *documentMasker) CustomerName(field, value string) (string, error) {
	return m.engine.Mask(m.ctx, KindCustomerName, m.target, field, value)
}

func (m *documentMasker) VendorName(field, value string) (string, error) {
	return m.engine.Mask(m.ctx, KindVendorName, m.target, field, value)
}

func (m *documentMasker) TaxID(field, value string) (string, error) {
	return m.engine.Mask(m.ctx, KindTaxID, m.target, field, value)
}

func (m *documentMasker) Email(field, value string) (string, error) {
	return m.engine.Mask(m.ctx, KindEmail, m.target, field, value)
}

func (m *documentMasker) Phone(field, value string) (string, error) {
	return m.engine.Mask(m.ctx, KindPhone, m.target, field, value)
}

func (m *documentMasker) Address(field, value string) (string, error) {
	return m.engine.Mask(m.ctx, KindAddress, m.target, field, value)
}

func (m *documentMasker) FreeText(field, value string) (string, error) {
	return m.engine.MaskFreeText(m.ctx, m.target, field, value)
}
