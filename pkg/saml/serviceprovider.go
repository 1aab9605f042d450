package saml

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"fmt"

	saml2 "github.com/russellhaering/gosaml2"
	"github.com/russellhaering/gosaml2/types"
	dsig "github.com/russellhaering/goxmldsig"
)

// SPOptions carries configuration-time dependencies of SP descriptor
// construction. The clock is injected rather than read from a process-wide
// singleton so validation time can be fixed per test.
type SPOptions struct {
	Clock *dsig.Clock
}

// buildServiceProvider assembles a gosaml2 service provider from a stored
// trust config. The IdP side comes from idpMetadata when present, otherwise
// from the entryPoint/cert connection parameters.
func buildServiceProvider(p *Provider, opts SPOptions) (*saml2.SAMLServiceProvider, error) {
	cfg := p.Config
	if cfg == nil {
		return nil, fmt.Errorf("provider %q has no config", p.ProviderID)
	}

	ssoURL := cfg.EntryPoint
	idpIssuer := cfg.EntryPoint
	certStore := &dsig.MemoryX509CertificateStore{}

	if cfg.IdpMetadata != nil && cfg.IdpMetadata.Metadata != "" {
		metadata := &types.EntityDescriptor{}
		if err := xml.Unmarshal([]byte(cfg.IdpMetadata.Metadata), metadata); err != nil {
			return nil, fmt.Errorf("failed to parse IdP metadata: %w", err)
		}
		if metadata.IDPSSODescriptor == nil {
			return nil, fmt.Errorf("IdP metadata has no IDPSSODescriptor")
		}
		idpIssuer = metadata.EntityID

		for _, kd := range metadata.IDPSSODescriptor.KeyDescriptors {
			for _, xcert := range kd.KeyInfo.X509Data.X509Certificates {
				if xcert.Data == "" {
					continue
				}
				cert, err := parseCertificate(xcert.Data)
				if err != nil {
					return nil, fmt.Errorf("failed to parse IdP metadata certificate: %w", err)
				}
				certStore.Roots = append(certStore.Roots, cert)
			}
		}

		for _, svc := range metadata.IDPSSODescriptor.SingleSignOnServices {
			if svc.Binding == saml2.BindingHttpRedirect {
				ssoURL = svc.Location
				break
			}
			if ssoURL == cfg.EntryPoint && svc.Location != "" {
				ssoURL = svc.Location
			}
		}
	}

	if len(certStore.Roots) == 0 {
		cert, err := parseCertificate(cfg.Cert)
		if err != nil {
			return nil, fmt.Errorf("failed to parse IdP certificate: %w", err)
		}
		certStore.Roots = append(certStore.Roots, cert)
	}

	if ssoURL == "" {
		return nil, fmt.Errorf("no single sign-on endpoint in provider config")
	}

	keyStore, err := buildKeyStore(cfg)
	if err != nil {
		return nil, err
	}

	nameIDFormat := cfg.IdentifierFormat
	if nameIDFormat == "" {
		// Persistent identifiers; the AuthnRequest NameIDPolicy allows the
		// IdP to create subjects it has not seen before.
		nameIDFormat = saml2.NameIdFormatPersistent
	}

	audience := cfg.Audience
	if audience == "" {
		audience = cfg.Issuer
	}

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderSSOURL:      ssoURL,
		IdentityProviderIssuer:      idpIssuer,
		ServiceProviderIssuer:       cfg.Issuer,
		AssertionConsumerServiceURL: cfg.CallbackURL,
		AudienceURI:                 audience,
		IDPCertificateStore:         certStore,
		SPKeyStore:                  keyStore,
		SignAuthnRequests:           keyStore != nil,
		NameIdFormat:                nameIDFormat,
		AllowMissingAttributes:      true,
		Clock:                       opts.Clock,
	}
	if cfg.SignatureAlgorithm != "" {
		sp.SignAuthnRequestsAlgorithm = cfg.SignatureAlgorithm
	}
	return sp, nil
}

// buildKeyStore returns the SP key store used for request signing and
// assertion decryption, or nil when no key material is configured.
func buildKeyStore(cfg *SAMLConfig) (dsig.X509KeyStore, error) {
	pvk := cfg.DecryptionPvk
	if pvk == "" && cfg.IdpMetadata != nil {
		pvk = cfg.IdpMetadata.PrivateKey
	}
	if pvk == "" {
		pvk = cfg.SpMetadata.PrivateKey
	}
	if pvk == "" {
		pvk = cfg.PrivateKey
	}
	if pvk == "" {
		return nil, nil
	}

	keyBlock, _ := pem.Decode([]byte(pvk))
	if keyBlock == nil {
		return nil, fmt.Errorf("failed to decode private key PEM")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	if err != nil {
		pkcs8Key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		var ok bool
		privateKey, ok = pkcs8Key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not RSA")
		}
	}

	return &dsig.TLSCertKeyStore{
		PrivateKey:  privateKey,
		Certificate: [][]byte{[]byte(cfg.Cert)},
	}, nil
}

// parseCertificate accepts a PEM-encoded or raw base64 DER certificate.
func parseCertificate(data string) (*x509.Certificate, error) {
	if block, _ := pem.Decode([]byte(data)); block != nil {
		return x509.ParseCertificate(block.Bytes)
	}
	der, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("certificate is neither PEM nor base64 DER: %w", err)
	}
	return x509.ParseCertificate(der)
}
