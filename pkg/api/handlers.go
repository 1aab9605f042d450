package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/loamlabs/ssobridge/pkg/httputil"
	"github.com/loamlabs/ssobridge/pkg/saml"
)

// sessionCookieName carries the issued session id back to the browser.
const sessionCookieName = "ssobridge_session"

type signInRequest struct {
	ProviderID  string `json:"providerId"`
	CallbackURL string `json:"callbackURL"`
}

type redirectResponse struct {
	URL      string `json:"url"`
	Redirect bool   `json:"redirect"`
}

// handleRegister handles POST /sso/saml2/register.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var cfg saml.SAMLConfig
	if !httputil.ParseJSONOrError(w, r, &cfg) {
		return
	}

	provider, err := s.registry.Register(r.Context(), &cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.metrics.ProvidersRegistered.Inc()
	httputil.WriteSuccess(w, redactProvider(provider))
}

// handleListProviders handles GET /sso/saml2/providers.
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.registry.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	redacted := make([]*saml.Provider, 0, len(providers))
	for _, p := range providers {
		redacted = append(redacted, redactProvider(p))
	}
	httputil.WriteSuccess(w, redacted)
}

// handleMetadata handles GET /sso/saml2/sp/metadata?providerId=&format=.
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	providerID := r.URL.Query().Get("providerId")
	if providerID == "" {
		httputil.WriteBadRequest(w, "providerId is required")
		return
	}

	format := saml.MetadataFormat(r.URL.Query().Get("format"))
	switch format {
	case "", saml.MetadataFormatXML, saml.MetadataFormatJSON:
	default:
		httputil.WriteBadRequest(w, "format must be xml or json")
		return
	}

	body, contentType, err := s.flow.Metadata(r.Context(), providerID, format)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// handleSignIn handles POST /sso/saml2/sign-in. The caller's callbackURL is
// threaded through the IdP round-trip as RelayState.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.ProviderID == "" {
		httputil.WriteBadRequest(w, "providerId is required")
		return
	}

	url, err := s.flow.BuildLoginRedirect(r.Context(), req.ProviderID, req.CallbackURL)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.metrics.LoginsInitiated.WithLabelValues(req.ProviderID).Inc()
	httputil.WriteSuccess(w, redirectResponse{URL: url, Redirect: true})
}

// handleCallback handles POST /sso/saml2/callback/{providerId}: the
// POST-binding assertion consumer followed by identity provisioning and
// session issuance.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	providerID := mux.Vars(r)["providerId"]

	if err := r.ParseForm(); err != nil {
		httputil.WriteBadRequest(w, "invalid form body")
		return
	}
	samlResponse := r.FormValue("SAMLResponse")
	relayState := r.FormValue("RelayState")

	result, err := s.flow.Consume(r.Context(), providerID, samlResponse, relayState)
	if err != nil {
		s.metrics.CallbacksConsumed.WithLabelValues(providerID, "rejected").Inc()
		s.writeError(w, err)
		return
	}

	// Resolving the provider again is a cache hit; the issuer feeds the
	// default redirect target.
	provider, err := s.registry.Lookup(r.Context(), providerID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.provisioner.Provision(r.Context(), result.Identity, providerID, provider.Issuer, result.RelayState)
	if err != nil {
		s.logger.WithField("provider_id", providerID).WithError(err).Error("provisioning failed")
		httputil.WriteInternalError(w, errors.New("failed to provision user"))
		return
	}

	s.metrics.CallbacksConsumed.WithLabelValues(providerID, "ok").Inc()
	s.metrics.UsersProvisioned.Inc()

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    res.Session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(res.Session.ExpiresAt).Seconds()),
	})

	httputil.WriteSuccess(w, redirectResponse{URL: res.RedirectTo, Redirect: true})
}

// writeError maps flow errors onto the HTTP taxonomy. Anything unrecognized
// is an internal error; detail for those stays in the logs.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, saml.ErrProviderNotFound):
		httputil.WriteNotFoundError(w, "provider not found")
	case errors.Is(err, saml.ErrProviderExists):
		httputil.WriteConflict(w, "provider already registered")
	case saml.IsValidationError(err):
		httputil.WriteValidationError(w, err.Error())
	case errors.Is(err, saml.ErrInvalidResponse):
		httputil.WriteBadRequest(w, "Invalid SAML response")
	case errors.Is(err, saml.ErrRequestBuild):
		httputil.WriteBadRequest(w, "could not build login request")
	case errors.Is(err, saml.ErrUnauthorized):
		httputil.WriteUnauthorized(w, "authentication failed")
	default:
		s.logger.WithError(err).Error("internal error")
		httputil.WriteInternalError(w, errors.New("internal server error"))
	}
}

// redactProvider strips private key material before a config is echoed back.
func redactProvider(p *saml.Provider) *saml.Provider {
	if p == nil || p.Config == nil {
		return p
	}
	clone := *p
	cfg := *p.Config
	cfg.PrivateKey = ""
	cfg.DecryptionPvk = ""
	if cfg.IdpMetadata != nil {
		idp := *cfg.IdpMetadata
		idp.PrivateKey = ""
		cfg.IdpMetadata = &idp
	}
	sp := cfg.SpMetadata
	sp.PrivateKey = ""
	cfg.SpMetadata = sp
	clone.Config = &cfg
	return &clone
}
