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


package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/thanhtoan105/accounting-erp-rag/core"
)

// Records are encoded field by field with mus-go. Each record type has one
// visitor function listing its fields in wire order; the same visitor drives
// sizing, writing and reading so the three can never disagree.

type fieldCodec interface {
	String(v *string)
	Bool(v *bool)
	Int(v *int)
	Int64(v *int64)
	Uint64(v *uint64)
	Float64(v *float64)
	Vector(v *[]float32)
	Time(v *time.Time)
	TimePtr(v **time.Time)
	UUID(v *uuid.UUID)
	UUIDs(v *[]uuid.UUID)
}

const (
	float32Size = 4
	float64Size = 8
)

// sizer computes the encoded size of a record.
type sizer struct {
	n int
}

func (s *sizer) String(v *string)   { s.n += ord.String.Size(*v) }
func (s *sizer) Bool(v *bool)       { s.n += ord.Bool.Size(*v) }
func (s *sizer) Int(v *int)         { s.n += varint.Int64.Size(int64(*v)) }
func (s *sizer) Int64(v *int64)     { s.n += varint.Int64.Size(*v) }
func (s *sizer) Uint64(v *uint64)   { s.n += varint.Uint64.Size(*v) }
func (s *sizer) Float64(v *float64) { s.n += raw.Float64.Size(*v) }

func (s *sizer) Vector(v *[]float32) {
	s.n += varint.Int64.Size(int64(len(*v)))
	for _, f := range *v {
		s.n += raw.Float32.Size(f)
	}
}

func (s *sizer) Time(v *time.Time) {
	s.n += ord.Bool.Size(v.IsZero())
	if !v.IsZero() {
		s.n += varint.Int64.Size(v.UnixMicro())
	}
}

func (s *sizer) TimePtr(v **time.Time) {
	s.n += ord.Bool.Size(*v != nil)
	if *v != nil {
		s.Time(*v)
	}
}

func (s *sizer) UUID(v *uuid.UUID) { s.n += ord.String.Size(string(v[:])) }

func (s *sizer) UUIDs(v *[]uuid.UUID) {
	s.n += varint.Int64.Size(int64(len(*v)))
	for i := range *v {
		s.UUID(&(*v)[i])
	}
}

// writer encodes a record into a buffer sized by sizer.
type writer struct {
	bs []byte
	n  int
}

func (w *writer) String(v *string)   { w.n += ord.String.Marshal(*v, w.bs[w.n:]) }
func (w *writer) Bool(v *bool)       { w.n += ord.Bool.Marshal(*v, w.bs[w.n:]) }
func (w *writer) Int(v *int)         { w.n += varint.Int64.Marshal(int64(*v), w.bs[w.n:]) }
func (w *writer) Int64(v *int64)     { w.n += varint.Int64.Marshal(*v, w.bs[w.n:]) }
func (w *writer) Uint64(v *uint64)   { w.n += varint.Uint64.Marshal(*v, w.bs[w.n:]) }
func (w *writer) Float64(v *float64) { w.n += raw.Float64.Marshal(*v, w.bs[w.n:]) }

func (w *writer) Vector(v *[]float32) {
	w.n += varint.Int64.Marshal(int64(len(*v)), w.bs[w.n:])
	for _, f := range *v {
		w.n += raw.Float32.Marshal(f, w.bs[w.n:])
	}
}

func (w *writer) Time(v *time.Time) {
	w.n += ord.Bool.Marshal(v.IsZero(), w.bs[w.n:])
	if !v.IsZero() {
		w.n += varint.Int64.Marshal(v.UnixMicro(), w.bs[w.n:])
	}
}

func (w *writer) TimePtr(v **time.Time) {
	w.n += ord.Bool.Marshal(*v != nil, w.bs[w.n:])
	if *v != nil {
		w.Time(*v)
	}
}

func (w *writer) UUID(v *uuid.UUID) { w.n += ord.String.Marshal(string(v[:]), w.bs[w.n:]) }

func (w *writer) UUIDs(v *[]uuid.UUID) {
	w.n += varint.Int64.Marshal(int64(len(*v)), w.bs[w.n:])
	for i := range *v {
		w.UUID(&(*v)[i])
	}
}

// reader decodes a record, stopping at the first error.
type reader struct {
	bs  []byte
	n   int
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
}

// need reports whether at least size bytes remain, failing the read otherwise.
func (r *reader) need(size int) bool {
	if r.err != nil {
		return false
	}
	if len(r.bs)-r.n < size {
		r.fail(ErrTruncatedData)
		return false
	}
	return true
}

func (r *reader) String(v *string) {
	if !r.need(1) {
		return
	}
	s, n, err := ord.String.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail(err)
		return
	}
	*v = s
	r.n += n
}

func (r *reader) Bool(v *bool) {
	if !r.need(1) {
		return
	}
	b, n, err := ord.Bool.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail(err)
		return
	}
	*v = b
	r.n += n
}

func (r *reader) Int(v *int) {
	var i int64
	r.Int64(&i)
	*v = int(i)
}

func (r *reader) Int64(v *int64) {
	if !r.need(1) {
		return
	}
	i, n, err := varint.Int64.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail(err)
		return
	}
	*v = i
	r.n += n
}

func (r *reader) Uint64(v *uint64) {
	if !r.need(1) {
		return
	}
	u, n, err := varint.Uint64.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail(err)
		return
	}
	*v = u
	r.n += n
}

func (r *reader) Float64(v *float64) {
	if !r.need(float64Size) {
		return
	}
	f, n, err := raw.Float64.Unmarshal(r.bs[r.n:])
	if err != nil {
		r.fail(err)
		return
	}
	*v = f
	r.n += n
}

func (r *reader) length(elemSize int) int {
	var l int64
	r.Int64(&l)
	if r.err != nil {
		return 0
	}
	if l < 0 || l > int64(len(r.bs)-r.n)/int64(elemSize) {
		r.fail(ErrTruncatedData)
		return 0
	}
	return int(l)
}

func (r *reader) Vector(v *[]float32) {
	l := r.length(float32Size)
	if r.err != nil {
		return
	}
	if l == 0 {
		*v = nil
		return
	}
	out := make([]float32, l)
	for i := range out {
		f, n, err := raw.Float32.Unmarshal(r.bs[r.n:])
		if err != nil {
			r.fail(err)
			return
		}
		out[i] = f
		r.n += n
	}
	*v = out
}

func (r *reader) Time(v *time.Time) {
	var zero bool
	r.Bool(&zero)
	if r.err != nil {
		return
	}
	if zero {
		*v = time.Time{}
		return
	}
	var micros int64
	r.Int64(&micros)
	if r.err == nil {
		*v = time.UnixMicro(micros).UTC()
	}
}

func (r *reader) TimePtr(v **time.Time) {
	var present bool
	r.Bool(&present)
	if r.err != nil || !present {
		*v = nil
		return
	}
	t := new(time.Time)
	r.Time(t)
	*v = t
}

func (r *reader) UUID(v *uuid.UUID) {
	var s string
	r.String(&s)
	if r.err != nil {
		return
	}
	u, err := uuid.FromBytes([]byte(s))
	if err != nil {
		r.fail(err)
		return
	}
	*v = u
}

func (r *reader) UUIDs(v *[]uuid.UUID) {
	// each uuid takes a length byte plus 16 bytes
	l := r.length(17)
	if r.err != nil {
		return
	}
	if l == 0 {
		*v = nil
		return
	}
	out := make([]uuid.UUID, l)
	for i := range out {
		r.UUID(&out[i])
	}
	*v = out
}

func marshal(visit func(c fieldCodec)) []byte {
	var s sizer
	visit(&s)
	w := writer{bs: make([]byte, s.n)}
	visit(&w)
	return w.bs
}

func unmarshal(data []byte, visit func(c fieldCodec)) error {
	r := reader{bs: data}
	visit(&r)
	return r.err
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	return marshal(func(c fieldCodec) { c.Uint64((*uint64)(&id)) })
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	var id core.ID
	err := unmarshal(data, func(c fieldCodec) { c.Uint64((*uint64)(&id)) })
	return id, err
}

// MarshalUUID serializes a UUID to bytes.
func MarshalUUID(id uuid.UUID) []byte {
	return marshal(func(c fieldCodec) { c.UUID(&id) })
}

// UnmarshalUUID deserializes a UUID from bytes.
func UnmarshalUUID(data []byte) (uuid.UUID, error) {
	var id uuid.UUID
	err := unmarshal(data, func(c fieldCodec) { c.UUID(&id) })
	return id, err
}

func vectorRecordFields(c fieldCodec, r *core.VectorRecord) {
	c.Uint64((*uint64)(&r.Id))
	c.UUID(&r.TenantId)
	c.String(&r.SourceTable)
	c.UUID(&r.SourceId)
	c.Vector(&r.Vector)
	c.String((*string)(&r.Metadata.DocumentType))
	c.String((*string)(&r.Metadata.Module))
	c.String(&r.Metadata.Status)
	c.String(&r.Metadata.FiscalPeriod)
	c.String(&r.Metadata.ContentText)
	c.Time(&r.UpdatedAt)
}

// MarshalVectorRecord serializes a VectorRecord to bytes.
func MarshalVectorRecord(record *core.VectorRecord) []byte {
	return marshal(func(c fieldCodec) { vectorRecordFields(c, record) })
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(data []byte) (*core.VectorRecord, error) {
	var record core.VectorRecord
	if err := unmarshal(data, func(c fieldCodec) { vectorRecordFields(c, &record) }); err != nil {
		return nil, err
	}
	return &record, nil
}

func maskMappingFields(c fieldCodec, m *core.MaskMapping) {
	c.String(&m.SourceTable)
	c.UUID(&m.SourceId)
	c.String(&m.Field)
	c.String(&m.MaskedValue)
	c.String(&m.Hash)
	c.Int(&m.SaltVersion)
	c.Time(&m.UpdatedAt)
}

// MarshalMaskMapping serializes a MaskMapping to bytes.
func MarshalMaskMapping(mapping *core.MaskMapping) []byte {
	return marshal(func(c fieldCodec) { maskMappingFields(c, mapping) })
}

// UnmarshalMaskMapping deserializes a MaskMapping from bytes.
func UnmarshalMaskMapping(data []byte) (*core.MaskMapping, error) {
	var mapping core.MaskMapping
	if err := unmarshal(data, func(c fieldCodec) { maskMappingFields(c, &mapping) }); err != nil {
		return nil, err
	}
	return &mapping, nil
}

func secretFields(c fieldCodec, s *core.Secret) {
	c.String(&s.Name)
	c.String(&s.Value)
	c.Int(&s.Version)
	c.Time(&s.CreatedAt)
}

// MarshalSecret serializes a Secret to bytes.
func MarshalSecret(secret *core.Secret) []byte {
	return marshal(func(c fieldCodec) { secretFields(c, secret) })
}

// UnmarshalSecret deserializes a Secret from bytes.
func UnmarshalSecret(data []byte) (*core.Secret, error) {
	var secret core.Secret
	if err := unmarshal(data, func(c fieldCodec) { secretFields(c, &secret) }); err != nil {
		return nil, err
	}
	return &secret, nil
}

func batchFields(c fieldCodec, b *core.Batch) {
	c.UUID(&b.Id)
	c.UUID(&b.TenantId)
	c.String((*string)(&b.Type))
	c.String((*string)(&b.Status))
	c.String(&b.TriggeredBy)
	c.String(&b.Hash)
	c.Int(&b.TotalDocuments)
	c.Int(&b.ProcessedDocuments)
	c.Int(&b.FailedDocuments)
	c.Time(&b.StartedAt)
	c.Time(&b.CompletedAt)
	c.String(&b.ErrorMessage)
	c.Int64(&b.Metrics.ElapsedMs)
	c.Float64(&b.Metrics.ThroughputPerMinute)
	c.Int64(&b.Metrics.ETAMs)
	c.Float64(&b.Metrics.EstimatedCostUSD)
	c.Float64(&b.Metrics.FailureRate)
	c.Bool(&b.Metrics.AlertRaised)
	c.Time(&b.CreatedAt)
	c.Time(&b.UpdatedAt)
}

// MarshalBatch serializes a Batch to bytes.
func MarshalBatch(batch *core.Batch) []byte {
	return marshal(func(c fieldCodec) { batchFields(c, batch) })
}

// UnmarshalBatch deserializes a Batch from bytes.
func UnmarshalBatch(data []byte) (*core.Batch, error) {
	var batch core.Batch
	if err := unmarshal(data, func(c fieldCodec) { batchFields(c, &batch) }); err != nil {
		return nil, err
	}
	return &batch, nil
}

func queryLogFields(c fieldCodec, q *core.QueryLog) {
	c.Uint64((*uint64)(&q.Id))
	c.UUID(&q.TenantId)
	c.String(&q.Question)
	c.UUIDs(&q.SourceIds)
	c.Int(&q.TokensUsed)
	c.Int64(&q.LatencyMs)
	c.Time(&q.CreatedAt)
}

// MarshalQueryLog serializes a QueryLog to bytes.
func MarshalQueryLog(entry *core.QueryLog) []byte {
	return marshal(func(c fieldCodec) { queryLogFields(c, entry) })
}

// UnmarshalQueryLog deserializes a QueryLog from bytes.
func UnmarshalQueryLog(data []byte) (*core.QueryLog, error) {
	var entry core.QueryLog
	if err := unmarshal(data, func(c fieldCodec) { queryLogFields(c, &entry) }); err != nil {
		return nil, err
	}
	return &entry, nil
}

func watermarkFields(c fieldCodec, w *core.Watermark) {
	c.UUID(&w.TenantId)
	c.Time(&w.Since)
	c.UUID(&w.BatchId)
	c.Time(&w.UpdatedAt)
}

// MarshalWatermark serializes a Watermark to bytes.
func MarshalWatermark(watermark *core.Watermark) []byte {
	return marshal(func(c fieldCodec) { watermarkFields(c, watermark) })
}

// UnmarshalWatermark deserializes a Watermark from bytes.
func UnmarshalWatermark(data []byte) (*core.Watermark, error) {
	var watermark core.Watermark
	if err := unmarshal(data, func(c fieldCodec) { watermarkFields(c, &watermark) }); err != nil {
		return nil, err
	}
	return &watermark, nil
}
