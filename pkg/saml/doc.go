// Package saml implements SP-initiated SAML 2.0 single sign-on: a registry
// of per-tenant IdP trust configurations, SP metadata publishing, redirect
// binding login initiation, and POST-binding assertion consumption with
// attribute-to-identity mapping.
//
// The package owns validation decisions end to end. Signature and condition
// checking is delegated to the gosaml2 toolkit, but every rejection surfaces
// here as the uniform ErrInvalidResponse so callers can never leak
// cryptographic detail to the response sender.
package saml
