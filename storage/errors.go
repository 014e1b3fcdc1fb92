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

import "errors"

var (
	// ErrNotFound is returned when a keyed lookup has no record.
	ErrNotFound = errors.New("record not found")

	// ErrTransactionFailed wraps a write that kept losing commit conflicts.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInvalidQuery reports arguments a store cannot act on, such as a
	// missing key part or a non-positive limit.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed wraps any failure to decode a stored value.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData reports a stored value shorter than its encoding claims.
	ErrTruncatedData = errors.New("truncated data")
)
