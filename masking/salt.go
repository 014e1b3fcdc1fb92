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
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/storage"
	"golang.org/x/sync/singleflight"
)

const (
	// GlobalSaltName is the secret used when a tenant has no salt of its own.
	GlobalSaltName = "pii_masking_global_salt"

	tenantSaltPrefix = "pii_masking_company_"
	saltBytes        = 32

	// absentVersion is the current-version pointer of a name known to have no
	// secret. Stored versions start at 1.
	absentVersion = 0
)

// TenantSaltName returns the secret name holding a tenant's salt.
func TenantSaltName(tenantId uuid.UUID) string {
	return tenantSaltPrefix + tenantId.String()
}

// GenerateSalt returns 32 random bytes, hex encoded.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SaltProvider resolves masking salts from a SecretStore and caches them for
// the life of the process.
//
// Cached salts are keyed by name and version. A separate pointer records the
// current version of each name, or that the name has no secret at all, so
// tenants masking with the global salt don't re-read their own name on every
// call. Invalidate and Rotate drop pointers so the next lookup reads the store
// again, while historical versions stay resolvable through SaltAt.
type SaltProvider struct {
	secrets storage.SecretStore
	logger  *slog.Logger

	mu      sync.RWMutex
	current map[string]int
	salts   map[string]core.Salt
	group   singleflight.Group
}

// SaltOption configures a SaltProvider.
type SaltOption func(*SaltProvider) error

// WithSaltLogger sets a custom logger.
// Default is slog.Default().
func WithSaltLogger(logger *slog.Logger) SaltOption {
	return func(p *SaltProvider) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewSaltProvider creates a salt provider backed by secrets.
func NewSaltProvider(secrets storage.SecretStore, opts ...SaltOption) (*SaltProvider, error) {
	if secrets == nil {
		return nil, ErrSecretStoreRequired
	}

	p := &SaltProvider{
		secrets: secrets,
		logger:  slog.Default(),
		current: make(map[string]int),
		salts:   make(map[string]core.Salt),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "salt-provider")
	return p, nil
}

// Salt returns the salt to use for a tenant.
// The tenant's own salt wins; if it is absent or cannot be read the global salt
// is used. uuid.Nil selects the global salt directly. ErrSaltUnavailable is
// returned when neither exists.
func (p *SaltProvider) Salt(ctx context.Context, tenantId uuid.UUID) (core.Salt, error) {
	if tenantId != uuid.Nil {
		salt, err := p.lookup(ctx, TenantSaltName(tenantId))
		switch {
		case err != nil:
			p.logger.Warn("tenant salt lookup failed, falling back to global salt",
				"tenant_id", tenantId, "error", err)
		case salt != nil:
			return *salt, nil
		default:
			p.logger.Debug("no tenant salt, using global salt", "tenant_id", tenantId)
		}
	}

	salt, err := p.lookup(ctx, GlobalSaltName)
	if err != nil {
		return core.Salt{}, fmt.Errorf("%w: %w", ErrSaltUnavailable, err)
	}
	if salt == nil {
		return core.Salt{}, ErrSaltUnavailable
	}
	salt.Global = true
	return *salt, nil
}

// SaltAt returns a specific version of a named salt.
func (p *SaltProvider) SaltAt(ctx context.Context, name string, version int) (core.Salt, error) {
	p.mu.RLock()
	salt, ok := p.salts[cacheKey(name, version)]
	p.mu.RUnlock()
	if ok {
		return salt, nil
	}

	secret, err := p.secrets.GetSecretVersion(ctx, name, version)
	if err != nil {
		return core.Salt{}, fmt.Errorf("failed to read salt %s: %w", cacheKey(name, version), err)
	}
	if secret == nil || secret.Value == "" {
		return core.Salt{}, fmt.Errorf("%w: %s", ErrSaltVersionNotFound, cacheKey(name, version))
	}

	salt = saltFromSecret(secret)
	p.mu.Lock()
	p.salts[cacheKey(name, version)] = salt
	p.mu.Unlock()
	return salt, nil
}

// Rotate stores value as the next version of the tenant's salt, or of the
// global salt when tenantId is uuid.Nil. An empty value generates a fresh salt.
//
// Only this process forgets its cached pointer; other processes keep masking
// with the previous version until they are restarted or invalidated.
func (p *SaltProvider) Rotate(ctx context.Context, tenantId uuid.UUID, value string) (core.Salt, error) {
	name := GlobalSaltName
	if tenantId != uuid.Nil {
		name = TenantSaltName(tenantId)
	}

	if value == "" {
		generated, err := GenerateSalt()
		if err != nil {
			return core.Salt{}, err
		}
		value = generated
	}

	secret, err := p.secrets.PutSecret(ctx, name, value)
	if err != nil {
		return core.Salt{}, fmt.Errorf("failed to store salt %s: %w", name, err)
	}

	p.mu.Lock()
	delete(p.current, name)
	p.mu.Unlock()

	salt := saltFromSecret(secret)
	salt.Global = name == GlobalSaltName
	p.logger.Info("salt rotated", "name", name, "version", salt.Version)
	return salt, nil
}

// Invalidate clears every cached salt.
func (p *SaltProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.current)
	clear(p.salts)
	p.logger.Info("salt cache cleared")
}

// lookup returns the current version of a named salt, or nil if it doesn't exist.
func (p *SaltProvider) lookup(ctx context.Context, name string) (*core.Salt, error) {
	p.mu.RLock()
	version, ok := p.current[name]
	var salt core.Salt
	if ok && version != absentVersion {
		salt, ok = p.salts[cacheKey(name, version)]
	}
	p.mu.RUnlock()
	if ok && version == absentVersion {
		return nil, nil
	}
	if ok {
		return &salt, nil
	}

	// Concurrent misses for the same name share one store read
	v, err, _ := p.group.Do(name, func() (any, error) {
		secret, err := p.secrets.GetSecret(ctx, name)
		if err != nil {
			return nil, err
		}
		if secret == nil || secret.Value == "" {
			p.mu.Lock()
			p.current[name] = absentVersion
			p.mu.Unlock()
			return nil, nil
		}

		salt := saltFromSecret(secret)
		p.mu.Lock()
		p.salts[cacheKey(salt.Name, salt.Version)] = salt
		p.current[salt.Name] = salt.Version
		p.mu.Unlock()
		return salt, nil
	})
	if err != nil {
		return nil, err
	}
	found, ok := v.(core.Salt)
	if !ok {
		return nil, nil
	}
	return &found, nil
}

func saltFromSecret(secret *core.Secret) core.Salt {
	return core.Salt{
		Name:    secret.Name,
		Value:   secret.Value,
		Version: secret.Version,
	}
}

func cacheKey(name string, version int) string {
	return name + "@" + strconv.Itoa(version)
}
