package saml

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow_Metadata_XML(t *testing.T) {
	flow := newTestFlow(t, testConfig())

	body, contentType, err := flow.Metadata(context.Background(), "acme", MetadataFormatXML)
	require.NoError(t, err)

	assert.Equal(t, "application/xml", contentType)
	doc := string(body)
	assert.Contains(t, doc, "EntityDescriptor")
	assert.Contains(t, doc, `entityID="https://sp.example.com"`)
	// The ACS endpoint is injected when the stored document omits it.
	assert.Contains(t, doc, "AssertionConsumerService")
	assert.Contains(t, doc, "https://sp.example.com/sso/saml2/callback/acme")
	assert.Contains(t, doc, "urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST")
}

func TestFlow_Metadata_DefaultsToXML(t *testing.T) {
	flow := newTestFlow(t, testConfig())

	_, contentType, err := flow.Metadata(context.Background(), "acme", "")
	require.NoError(t, err)
	assert.Equal(t, "application/xml", contentType)
}

func TestFlow_Metadata_JSON(t *testing.T) {
	flow := newTestFlow(t, testConfig())

	body, contentType, err := flow.Metadata(context.Background(), "acme", MetadataFormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, "https://sp.example.com", summary["entityId"])
	assert.Equal(t, "acme", summary["providerId"])
	assert.Equal(t, "https://sp.example.com/sso/saml2/callback/acme", summary["callbackUrl"])
}

func TestFlow_Metadata_UnknownProvider(t *testing.T) {
	flow := newEmptyFlow(t)

	_, _, err := flow.Metadata(context.Background(), "ghost", MetadataFormatXML)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestFlow_Metadata_PreservesStoredACS(t *testing.T) {
	cfg := testConfig()
	cfg.SpMetadata.Metadata = `<md:EntityDescriptor xmlns:md="urn:oasis:names:tc:SAML:2.0:metadata" entityID="https://sp.example.com">
  <md:SPSSODescriptor protocolSupportEnumeration="urn:oasis:names:tc:SAML:2.0:protocol">
    <md:AssertionConsumerService Binding="urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST" Location="https://sp.example.com/custom/acs" index="0"/>
  </md:SPSSODescriptor>
</md:EntityDescriptor>`
	flow := newTestFlow(t, cfg)

	body, _, err := flow.Metadata(context.Background(), "acme", MetadataFormatXML)
	require.NoError(t, err)

	doc := string(body)
	assert.Contains(t, doc, "https://sp.example.com/custom/acs")
	// The configured callbackUrl is not injected next to an existing ACS.
	assert.NotContains(t, doc, "https://sp.example.com/sso/saml2/callback/acme")
}

func TestFlow_Metadata_MalformedStoredDocument(t *testing.T) {
	cfg := testConfig()
	cfg.SpMetadata.Metadata = "<not-closed"
	flow := newTestFlow(t, cfg)

	_, _, err := flow.Metadata(context.Background(), "acme", MetadataFormatXML)
	assert.Error(t, err)
}
