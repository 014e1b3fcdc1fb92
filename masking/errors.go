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

import "errors"

var (
	// ErrSecretStoreRequired is returned when a salt provider is built without a secret store.
	ErrSecretStoreRequired = errors.New("secret store is required")

	// ErrSaltProviderRequired is returned when an engine is built without a salt provider.
	ErrSaltProviderRequired = errors.New("salt provider is required")

	// ErrMappingRepositoryRequired is returned when an engine is built without a mapping store.
	ErrMappingRepositoryRequired = errors.New("mask mapping repository is required")

	// ErrSaltUnavailable indicates neither a tenant salt nor the global salt exists.
	ErrSaltUnavailable = errors.New("no masking salt available")

	// ErrSaltVersionNotFound indicates a historical salt version is no longer stored.
	ErrSaltVersionNotFound = errors.New("salt version not found")

	// ErrUnknownKind indicates a masking kind the engine does not implement.
	ErrUnknownKind = errors.New("unknown masking kind")
)
