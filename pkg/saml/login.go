package saml

import (
	"context"
	"fmt"
)

// BuildLoginRedirect constructs the redirect-binding AuthnRequest URL for an
// SP-initiated login against the given provider. The caller's final redirect
// target travels as RelayState; it is not bound into protocol state here.
func (f *Flow) BuildLoginRedirect(ctx context.Context, providerID, relayState string) (string, error) {
	provider, err := f.registry.Lookup(ctx, providerID)
	if err != nil {
		return "", err
	}

	sp, err := buildServiceProvider(provider, f.opts)
	if err != nil {
		f.logger.WithField("provider_id", providerID).WithError(err).Warn("cannot build service provider for login")
		return "", fmt.Errorf("%w: %v", ErrRequestBuild, err)
	}

	authURL, err := sp.BuildAuthURL(relayState)
	if err != nil {
		f.logger.WithField("provider_id", providerID).WithError(err).Warn("failed to build auth URL")
		return "", fmt.Errorf("%w: %v", ErrRequestBuild, err)
	}
	if authURL == "" {
		return "", ErrRequestBuild
	}
	return authURL, nil
}
