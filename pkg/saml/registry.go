package saml

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lib/pq"
	saml2 "github.com/russellhaering/gosaml2"

	"github.com/loamlabs/ssobridge/pkg/observability"
)

// providerCacheSize bounds the in-process config cache. Configs are immutable
// after registration, so cached entries never go stale.
const providerCacheSize = 256

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = pq.ErrorCode("23505")

// Registry stores and retrieves per-tenant SAML trust configurations. It is
// the leaf dependency of every other component in the flow.
type Registry struct {
	db       *sql.DB
	validate *validator.Validate
	cache    *lru.Cache[string, *Provider]
	logger   *observability.Logger
}

// NewRegistry creates a provider registry backed by the given database.
func NewRegistry(db *sql.DB, logger *observability.Logger) *Registry {
	cache, _ := lru.New[string, *Provider](providerCacheSize)
	return &Registry{
		db:       db,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cache:    cache,
		logger:   logger,
	}
}

// Register validates the config, serializes it, and persists the provider
// record. providerId uniqueness is enforced by the storage layer; a duplicate
// surfaces as ErrProviderExists, never as a silent overwrite.
func (r *Registry) Register(ctx context.Context, cfg *SAMLConfig) (*Provider, error) {
	if cfg == nil {
		return nil, &ValidationError{Reason: "config is required"}
	}
	if err := r.validate.StructCtx(ctx, cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, &ValidationError{Field: fe.Field(), Reason: fmt.Sprintf("failed %q validation", fe.Tag())}
		}
		return nil, &ValidationError{Reason: err.Error()}
	}

	// The default email attribute reuses the NameID. That only yields a real
	// email when the IdP asserts an email-format NameID.
	if emailMappingUnset(cfg) && cfg.IdentifierFormat != "" && cfg.IdentifierFormat != saml2.NameIdFormatEmailAddress {
		r.logger.WithField("provider_id", cfg.ProviderID).
			Warn("mapping.email is unset and identifierFormat is not email-based; provisioned emails will mirror the NameID")
	}

	serialized, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize provider config: %w", err)
	}

	provider := &Provider{
		Issuer:     cfg.Issuer,
		ProviderID: cfg.ProviderID,
		Config:     cfg,
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO sso_providers (issuer, provider_id, saml_config, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, cfg.Issuer, cfg.ProviderID, serialized).Scan(&provider.ID, &provider.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("provider %q: %w", cfg.ProviderID, ErrProviderExists)
		}
		return nil, fmt.Errorf("failed to store provider: %w", err)
	}

	r.cache.Add(provider.ProviderID, provider)
	r.logger.WithField("provider_id", provider.ProviderID).Info("registered sso provider")
	return provider, nil
}

// Lookup resolves a provider by its external providerId. A missing provider
// is a terminal ErrProviderNotFound for every caller.
func (r *Registry) Lookup(ctx context.Context, providerID string) (*Provider, error) {
	if cached, ok := r.cache.Get(providerID); ok {
		return cached, nil
	}

	provider := &Provider{}
	var serialized []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, issuer, provider_id, saml_config, created_at
		FROM sso_providers
		WHERE provider_id = $1
	`, providerID).Scan(&provider.ID, &provider.Issuer, &provider.ProviderID, &serialized, &provider.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("provider %q: %w", providerID, ErrProviderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load provider: %w", err)
	}

	provider.Config = &SAMLConfig{}
	if err := json.Unmarshal(serialized, provider.Config); err != nil {
		return nil, fmt.Errorf("failed to deserialize provider config: %w", err)
	}

	r.cache.Add(provider.ProviderID, provider)
	return provider, nil
}

// List returns all registered providers, ordered by providerId.
func (r *Registry) List(ctx context.Context) ([]*Provider, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, issuer, provider_id, saml_config, created_at
		FROM sso_providers
		ORDER BY provider_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []*Provider
	for rows.Next() {
		provider := &Provider{}
		var serialized []byte
		if err := rows.Scan(&provider.ID, &provider.Issuer, &provider.ProviderID, &serialized, &provider.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		provider.Config = &SAMLConfig{}
		if err := json.Unmarshal(serialized, provider.Config); err != nil {
			return nil, fmt.Errorf("failed to deserialize provider config: %w", err)
		}
		providers = append(providers, provider)
	}
	return providers, rows.Err()
}

func emailMappingUnset(cfg *SAMLConfig) bool {
	return cfg.Mapping == nil || cfg.Mapping.Email == ""
}
