package saml

import (
	"context"
	"fmt"
	"strings"

	saml2 "github.com/russellhaering/gosaml2"

	"github.com/loamlabs/ssobridge/pkg/observability"
)

// Flow drives the SP-initiated SSO handshake: login-redirect construction,
// metadata publishing, and assertion consumption. It holds no per-request
// state; the whole flow is request/response with state externalized to the
// IdP redirect and the subsequent POST.
type Flow struct {
	registry *Registry
	opts     SPOptions
	logger   *observability.Logger
}

// NewFlow creates a flow engine over the given registry. opts carries
// configuration-time toolkit dependencies (validation clock).
func NewFlow(registry *Registry, opts SPOptions, logger *observability.Logger) *Flow {
	return &Flow{registry: registry, opts: opts, logger: logger}
}

// Consume validates an IdP POST-binding response and extracts the normalized
// identity. The response body is attacker-reachable: every parse or
// validation failure is logged with its cause and surfaced uniformly as
// ErrInvalidResponse, with no partial attribute data.
func (f *Flow) Consume(ctx context.Context, providerID, samlResponse, relayState string) (*AssertionResult, error) {
	provider, err := f.registry.Lookup(ctx, providerID)
	if err != nil {
		return nil, err
	}

	if samlResponse == "" {
		return nil, f.reject(providerID, fmt.Errorf("missing SAMLResponse"))
	}

	sp, err := buildServiceProvider(provider, f.opts)
	if err != nil {
		return nil, f.reject(providerID, fmt.Errorf("failed to build service provider: %w", err))
	}

	// Signature verification, audience/conditions checking, and assertion
	// decryption happen inside the toolkit; this component owns the decision.
	info, err := sp.RetrieveAssertionInfo(samlResponse)
	if err != nil {
		return nil, f.reject(providerID, fmt.Errorf("assertion validation failed: %w", err))
	}
	if info == nil {
		return nil, f.reject(providerID, fmt.Errorf("assertion validation returned no result"))
	}
	if info.WarningInfo != nil {
		if info.WarningInfo.InvalidTime {
			return nil, f.reject(providerID, fmt.Errorf("assertion outside its validity window"))
		}
		if info.WarningInfo.NotInAudience {
			return nil, f.reject(providerID, fmt.Errorf("assertion not in expected audience"))
		}
	}

	raw := extractAttributes(info)
	identity := MapAttributes(raw, provider.Config.Mapping)

	if domain := provider.Config.Domain; domain != "" {
		if !strings.HasSuffix(strings.ToLower(identity.Email), "@"+strings.ToLower(domain)) {
			return nil, f.reject(providerID, fmt.Errorf("asserted email %q not in configured domain %q", identity.Email, domain))
		}
	}

	return &AssertionResult{Identity: identity, RelayState: relayState}, nil
}

// reject logs the causing detail and returns the uniform rejection. Internal
// cryptographic failure detail stays in the logs.
func (f *Flow) reject(providerID string, cause error) error {
	f.logger.WithField("provider_id", providerID).WithError(cause).Warn("rejected SAML response")
	return ErrInvalidResponse
}

// extractAttributes flattens the parsed assertion into the raw attribute set
// consumed by the mapper. The subject NameID is stored under the nameID key;
// multi-valued attributes keep their first value.
func extractAttributes(info *saml2.AssertionInfo) map[string]string {
	raw := make(map[string]string, len(info.Values)+1)
	for name, attr := range info.Values {
		if len(attr.Values) > 0 {
			raw[name] = attr.Values[0].Value
		}
	}
	if info.NameID != "" {
		raw[DefaultIDAttribute] = info.NameID
	}
	return raw
}
