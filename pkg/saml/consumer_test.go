package saml

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	saml2 "github.com/russellhaering/gosaml2"
	"github.com/russellhaering/gosaml2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loamlabs/ssobridge/pkg/observability"
)

// newTestFlow returns a flow over a sqlmock-backed registry with the given
// provider config stored under its providerId.
func newTestFlow(t *testing.T, cfg *SAMLConfig) *Flow {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	serialized, err := json.Marshal(cfg)
	require.NoError(t, err)
	mock.ExpectQuery("SELECT id, issuer, provider_id, saml_config, created_at").
		WithArgs(cfg.ProviderID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "issuer", "provider_id", "saml_config", "created_at"}).
			AddRow(int64(1), cfg.Issuer, cfg.ProviderID, serialized, time.Now()))

	logger := observability.NewLogger(observability.ErrorLevel, nil)
	return NewFlow(NewRegistry(db, logger), SPOptions{}, logger)
}

// newEmptyFlow returns a flow over a registry with no providers.
func newEmptyFlow(t *testing.T) *Flow {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectQuery("SELECT id, issuer, provider_id, saml_config, created_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "issuer", "provider_id", "saml_config", "created_at"}))

	logger := observability.NewLogger(observability.ErrorLevel, nil)
	return NewFlow(NewRegistry(db, logger), SPOptions{}, logger)
}

func TestFlow_Consume_UnknownProvider(t *testing.T) {
	flow := newEmptyFlow(t)

	_, err := flow.Consume(context.Background(), "ghost", "anything", "")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestFlow_Consume_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"missing response", ""},
		{"not base64", "not-valid-base64!@#$"},
		{"not xml", base64.StdEncoding.EncodeToString([]byte("invalid-xml"))},
		{"unsigned response", base64.StdEncoding.EncodeToString([]byte(
			`<samlp:Response xmlns:samlp="urn:oasis:names:tc:SAML:2.0:protocol"></samlp:Response>`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := newTestFlow(t, testConfig())

			_, err := flow.Consume(context.Background(), "acme", tt.response, "")
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestFlow_Consume_RejectionIsUniform(t *testing.T) {
	flow := newTestFlow(t, testConfig())

	_, err := flow.Consume(context.Background(), "acme", "garbage", "")
	require.Error(t, err)

	// The rejection carries no parse detail for the response sender.
	assert.Equal(t, ErrInvalidResponse, err)
}

func TestExtractAttributes(t *testing.T) {
	info := &saml2.AssertionInfo{
		NameID: "user-1",
		Values: saml2.Values{
			"email": types.Attribute{
				Name:   "email",
				Values: []types.AttributeValue{{Value: "ada@example.com"}, {Value: "second@example.com"}},
			},
			"givenName": types.Attribute{
				Name:   "givenName",
				Values: []types.AttributeValue{{Value: "Ada"}},
			},
			"emptyAttr": types.Attribute{Name: "emptyAttr"},
		},
	}

	raw := extractAttributes(info)

	assert.Equal(t, "user-1", raw["nameID"])
	// Multi-valued attributes keep their first value.
	assert.Equal(t, "ada@example.com", raw["email"])
	assert.Equal(t, "Ada", raw["givenName"])
	_, hasEmpty := raw["emptyAttr"]
	assert.False(t, hasEmpty)
}
