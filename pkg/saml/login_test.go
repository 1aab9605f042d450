package saml

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow_BuildLoginRedirect(t *testing.T) {
	flow := newTestFlow(t, testConfig())

	authURL, err := flow.BuildLoginRedirect(context.Background(), "acme", "https://app.example.com/dashboard")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "idp.example.com", parsed.Host)
	assert.Equal(t, "/sso", parsed.Path)
	assert.NotEmpty(t, parsed.Query().Get("SAMLRequest"))
	assert.Equal(t, "https://app.example.com/dashboard", parsed.Query().Get("RelayState"))
}

func TestFlow_BuildLoginRedirect_NoRelayState(t *testing.T) {
	flow := newTestFlow(t, testConfig())

	authURL, err := flow.BuildLoginRedirect(context.Background(), "acme", "")
	require.NoError(t, err)
	assert.Contains(t, authURL, "https://idp.example.com/sso")
}

func TestFlow_BuildLoginRedirect_UnknownProvider(t *testing.T) {
	flow := newEmptyFlow(t)

	_, err := flow.BuildLoginRedirect(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestFlow_BuildLoginRedirect_BadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Cert = "not-a-cert"
	flow := newTestFlow(t, cfg)

	_, err := flow.BuildLoginRedirect(context.Background(), "acme", "")
	assert.ErrorIs(t, err, ErrRequestBuild)
}
