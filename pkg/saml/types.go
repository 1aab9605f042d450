package saml

import "time"

// Default attribute names used by the identity mapper when the provider
// config does not override them.
const (
	// DefaultIDAttribute is the key the assertion consumer stores the
	// subject NameID under in the raw attribute set.
	DefaultIDAttribute = "nameID"

	// DefaultEmailAttribute is the attribute the mapper reads the email from
	// when mapping.email is unset. It intentionally falls back to the NameID:
	// many IdPs assert an email-format NameID and nothing else. If the
	// provider's identifierFormat is not email-based this default produces a
	// non-email value, so registration logs a warning when mapping.email is
	// absent and the identifier format is non-email.
	DefaultEmailAttribute = "nameID"

	DefaultFirstNameAttribute   = "givenName"
	DefaultLastNameAttribute    = "surname"
	DefaultDisplayNameAttribute = "displayName"
)

// DefaultRole is the organization role assigned to provisioned members when
// the provider config does not specify one.
const DefaultRole = "member"

// Provider is a stored per-tenant IdP trust relationship. The config is
// persisted as a serialized blob; the typed form is what the rest of the
// package operates on.
type Provider struct {
	ID         int64       `json:"id"`
	Issuer     string      `json:"issuer"`
	ProviderID string      `json:"providerId"`
	Config     *SAMLConfig `json:"config"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// SAMLConfig is the trust configuration for one tenant/IdP pair.
type SAMLConfig struct {
	ProviderID  string `json:"providerId" validate:"required"`
	Issuer      string `json:"issuer" validate:"required"`
	EntryPoint  string `json:"entryPoint" validate:"required,url"`
	Cert        string `json:"cert" validate:"required"`
	CallbackURL string `json:"callbackUrl" validate:"required,url"`

	// Optional assertion-validation constraints.
	Audience string `json:"audience,omitempty"`
	Domain   string `json:"domain,omitempty"`

	Mapping *AttributeMapping `json:"mapping,omitempty"`

	IdpMetadata *IdpMetadata `json:"idpMetadata,omitempty"`
	SpMetadata  SpMetadata   `json:"spMetadata"`

	WantAssertionsSigned bool   `json:"wantAssertionsSigned,omitempty"`
	SignatureAlgorithm   string `json:"signatureAlgorithm,omitempty"`
	DigestAlgorithm      string `json:"digestAlgorithm,omitempty"`
	IdentifierFormat     string `json:"identifierFormat,omitempty"`

	PrivateKey       string            `json:"privateKey,omitempty"`
	DecryptionPvk    string            `json:"decryptionPvk,omitempty"`
	AdditionalParams map[string]string `json:"additionalParams,omitempty"`
}

// AttributeMapping overrides the attribute names the identity mapper reads.
// Zero-value fields fall back to the package defaults.
type AttributeMapping struct {
	ID          string            `json:"id,omitempty"`
	Email       string            `json:"email,omitempty"`
	FirstName   string            `json:"firstName,omitempty"`
	LastName    string            `json:"lastName,omitempty"`
	ExtraFields map[string]string `json:"extraFields,omitempty"`
}

// IdpMetadata carries the IdP federation metadata document and optional
// decryption key material. All fields degrade to protocol defaults when
// absent.
type IdpMetadata struct {
	Metadata   string `json:"metadata,omitempty"`
	PrivateKey string `json:"privateKey,omitempty"`
}

// SpMetadata carries the SP federation metadata document. Metadata itself is
// always required; key material and binding preference are optional.
type SpMetadata struct {
	Metadata   string `json:"metadata" validate:"required"`
	PrivateKey string `json:"privateKey,omitempty"`
	Binding    string `json:"binding,omitempty"`
}

// NormalizedIdentity is the ephemeral result of mapping a validated
// assertion's attributes through the provider's mapping config. It is never
// persisted as-is.
type NormalizedIdentity struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name,omitempty"`
	ExtraFields map[string]string `json:"extraFields,omitempty"`

	// Attributes is the full raw attribute set, always preserved for
	// collaborator hooks.
	Attributes map[string]string `json:"attributes"`
}

// AssertionResult is the terminal-success output of the assertion consumer.
type AssertionResult struct {
	Identity   *NormalizedIdentity
	RelayState string
}

// MetadataFormat selects the rendering of the SP metadata document.
type MetadataFormat string

const (
	MetadataFormatXML  MetadataFormat = "xml"
	MetadataFormatJSON MetadataFormat = "json"
)
