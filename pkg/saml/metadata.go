package saml

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/beevik/etree"
	saml2 "github.com/russellhaering/gosaml2"
)

// spMetadataSummary is the JSON rendering of the SP descriptor. It is a
// convenience echo of the structured fields, not a federation document.
type spMetadataSummary struct {
	EntityID         string `json:"entityId"`
	ProviderID       string `json:"providerId"`
	CallbackURL      string `json:"callbackUrl"`
	Binding          string `json:"binding,omitempty"`
	IdentifierFormat string `json:"identifierFormat,omitempty"`
}

// Metadata renders the SP metadata document for a registered provider. XML is
// the canonical format. It is a pure function of the stored config.
func (f *Flow) Metadata(ctx context.Context, providerID string, format MetadataFormat) ([]byte, string, error) {
	provider, err := f.registry.Lookup(ctx, providerID)
	if err != nil {
		return nil, "", err
	}

	if format == MetadataFormatJSON {
		cfg := provider.Config
		body, err := json.Marshal(spMetadataSummary{
			EntityID:         cfg.Issuer,
			ProviderID:       cfg.ProviderID,
			CallbackURL:      cfg.CallbackURL,
			Binding:          cfg.SpMetadata.Binding,
			IdentifierFormat: cfg.IdentifierFormat,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode metadata: %w", err)
		}
		return body, "application/json", nil
	}

	body, err := renderSPMetadata(provider)
	if err != nil {
		return nil, "", err
	}
	return body, "application/xml", nil
}

// renderSPMetadata normalizes the stored SP descriptor: the entityID and an
// AssertionConsumerService endpoint are guaranteed to be present even when
// the registered document omits them.
func renderSPMetadata(p *Provider) ([]byte, error) {
	cfg := p.Config

	doc := etree.NewDocument()
	if err := doc.ReadFromString(cfg.SpMetadata.Metadata); err != nil {
		return nil, fmt.Errorf("stored SP metadata is not well-formed XML: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "EntityDescriptor" {
		return nil, fmt.Errorf("stored SP metadata has no EntityDescriptor root")
	}

	if root.SelectAttrValue("entityID", "") == "" {
		root.CreateAttr("entityID", cfg.Issuer)
	}

	descriptor := childElement(root, "SPSSODescriptor")
	if descriptor == nil {
		descriptor = root.CreateElement("md:SPSSODescriptor")
		descriptor.CreateAttr("protocolSupportEnumeration", "urn:oasis:names:tc:SAML:2.0:protocol")
	}

	if childElement(descriptor, "AssertionConsumerService") == nil {
		binding := cfg.SpMetadata.Binding
		if binding == "" {
			binding = saml2.BindingHttpPost
		}
		acs := descriptor.CreateElement("md:AssertionConsumerService")
		acs.CreateAttr("Binding", binding)
		acs.CreateAttr("Location", cfg.CallbackURL)
		acs.CreateAttr("index", "1")
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

// childElement finds a direct child by local tag name, ignoring namespace
// prefixes.
func childElement(parent *etree.Element, tag string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}
