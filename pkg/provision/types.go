package provision

import (
	"context"
	"time"

	"github.com/loamlabs/ssobridge/pkg/saml"
)

// User is the locally provisioned account a federated identity resolves to.
// Federated identities are treated as pre-verified; there is no local email
// verification step.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Session binds an authenticated user to a provider login.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	ProviderID string    `json:"providerId"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// OrganizationProvisioning configures tenant membership creation. A resolver
// returning an empty organization id is a no-op, not an error.
type OrganizationProvisioning struct {
	GetOrganizationID func(identity *saml.NormalizedIdentity) string
	DefaultRole       string
}

// Options are the configuration-time collaborator hooks of the provisioner.
type Options struct {
	// ProvisionUser, when set, fully overrides identity resolution; the
	// default find-or-create path is skipped.
	ProvisionUser func(ctx context.Context, identity *saml.NormalizedIdentity) (*User, error)

	Organization *OrganizationProvisioning

	// SessionTTL defaults to 24h when zero.
	SessionTTL time.Duration
}

// Result is the outcome of a successful provisioning pass.
type Result struct {
	User       *User
	Session    *Session
	RedirectTo string
}
