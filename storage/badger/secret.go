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


package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
)

// SecretRepository implements storage.SecretStore for BadgerDB.
//
// Every version is kept under its own key; a second key holds a copy of the
// latest version so the common lookup is a single read.
type SecretRepository struct {
	backend *Backend
}

var _ storage.SecretStore = (*SecretRepository)(nil)

// NewSecretRepository creates a new SecretRepository.
func NewSecretRepository(backend *Backend) *SecretRepository {
	return &SecretRepository{
		backend: backend,
	}
}

// GetSecret returns the latest version of a secret, or nil, nil.
func (r *SecretRepository) GetSecret(ctx context.Context, name string) (*core.Secret, error) {
	var secret *core.Secret
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		secret, err = readSecret(tx, makeSecretLatestKey(name))
		return err
	}, false)
	return secret, err
}

// GetSecretVersion returns one version of a secret, or nil, nil.
func (r *SecretRepository) GetSecretVersion(ctx context.Context, name string, version int) (*core.Secret, error) {
	var secret *core.Secret
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		secret, err = readSecret(tx, makeSecretKey(name, version))
		return err
	}, false)
	return secret, err
}

// PutSecret stores value as the next version of name.
// Concurrent writers of the same name are serialized by conflict detection.
func (r *SecretRepository) PutSecret(ctx context.Context, name, value string) (*core.Secret, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: secret name is empty", storage.ErrInvalidQuery)
	}
	if value == "" {
		return nil, fmt.Errorf("%w: secret value is empty", storage.ErrInvalidQuery)
	}

	var stored *core.Secret
	err := r.backend.UpdateWithRetry(func(tx *badger.Txn) error {
		latestKey := makeSecretLatestKey(name)
		latest, err := readSecret(tx, latestKey)
		if err != nil {
			return err
		}

		secret := &core.Secret{
			Name:      name,
			Value:     value,
			Version:   1,
			CreatedAt: time.Now().UTC(),
		}
		if latest != nil {
			secret.Version = latest.Version + 1
		}

		data := storage.MarshalSecret(secret)
		if err := tx.Set(makeSecretKey(name, secret.Version), data); err != nil {
			return err
		}
		if err := tx.Set(latestKey, data); err != nil {
			return err
		}
		stored = secret
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// readSecret reads a secret from a transaction.
// Returns nil, nil if the key doesn't exist.
func readSecret(tx *badger.Txn, key []byte) (*core.Secret, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var secret *core.Secret
	err = item.Value(func(val []byte) error {
		var err error
		secret, err = storage.UnmarshalSecret(val)
		return err
	})
	return secret, err
}
