package provision

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loamlabs/ssobridge/pkg/observability"
	"github.com/loamlabs/ssobridge/pkg/saml"
)

const defaultSessionTTL = 24 * time.Hour

// Provisioner turns a validated, normalized identity into a local user,
// optional organization membership, and a session. Each call is
// all-or-nothing: every write happens inside one transaction, so an aborted
// request leaves no partial user or session observable.
type Provisioner struct {
	db     *sql.DB
	opts   Options
	logger *observability.Logger
}

// NewProvisioner creates a provisioner with the given collaborator hooks.
func NewProvisioner(db *sql.DB, opts Options, logger *observability.Logger) *Provisioner {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	return &Provisioner{db: db, opts: opts, logger: logger}
}

// Provision resolves the identity to a user, ensures organization membership
// when configured, and issues a session. The redirect target is relayState
// when present, else the provider's stored issuer.
func (p *Provisioner) Provision(ctx context.Context, identity *saml.NormalizedIdentity, providerID, issuer, relayState string) (*Result, error) {
	if identity == nil {
		return nil, fmt.Errorf("identity is required")
	}

	// The hook owns identity resolution entirely when configured.
	var user *User
	if p.opts.ProvisionUser != nil {
		hooked, err := p.opts.ProvisionUser(ctx, identity)
		if err != nil {
			return nil, fmt.Errorf("provisionUser hook failed: %w", err)
		}
		user = hooked
	} else if identity.Email == "" {
		return nil, fmt.Errorf("identity has no email to provision a user from")
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if user == nil {
		user, err = upsertUser(ctx, tx, identity)
		if err != nil {
			return nil, err
		}
	}

	if org := p.opts.Organization; org != nil && org.GetOrganizationID != nil {
		if orgID := org.GetOrganizationID(identity); orgID != "" {
			role := org.DefaultRole
			if role == "" {
				role = saml.DefaultRole
			}
			if err := ensureMembership(ctx, tx, orgID, user.ID, role); err != nil {
				return nil, err
			}
		}
	}

	session, err := insertSession(ctx, tx, user.ID, providerID, p.opts.SessionTTL)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit provisioning: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"provider_id": providerID,
		"user_id":     user.ID,
	}).Info("provisioned sso login")

	redirect := relayState
	if redirect == "" {
		redirect = issuer
	}
	return &Result{User: user, Session: session, RedirectTo: redirect}, nil
}

// upsertUser finds or creates the user by email. Concurrent identical
// callbacks converge on one row: the no-op DO UPDATE makes RETURNING yield
// the surviving row either way.
func upsertUser(ctx context.Context, tx *sql.Tx, identity *saml.NormalizedIdentity) (*User, error) {
	user := &User{}
	err := tx.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		ON CONFLICT (email) DO UPDATE SET updated_at = NOW()
		RETURNING id, email, name, email_verified, created_at, updated_at
	`, uuid.NewString(), identity.Email, identity.Name).Scan(
		&user.ID, &user.Email, &user.Name, &user.EmailVerified, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return user, nil
}

// ensureMembership creates the (org, user) membership at most once. The
// unique constraint plus conflict-ignore makes repeated callbacks idempotent.
func ensureMembership(ctx context.Context, tx *sql.Tx, orgID, userID, role string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO organization_members (organization_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (organization_id, user_id) DO NOTHING
	`, orgID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to ensure organization membership: %w", err)
	}
	return nil
}

func insertSession(ctx context.Context, tx *sql.Tx, userID, providerID string, ttl time.Duration) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		ProviderID: providerID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, provider_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, session.ID, session.UserID, session.ProviderID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}
