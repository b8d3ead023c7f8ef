// Package service implements the embedded certificate authority. The chain is
// generated once per process lifetime (or loaded from externally provisioned
// PEM material) and cached; it is never regenerated mid-process.
package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"sync"
	"time"

	caDomain "github.com/allisson/signflow/internal/ca/domain"
	"github.com/allisson/signflow/internal/errors"
)

const (
	rootKeyBits = 3072
	leafKeyBits = 2048

	rootValidity         = 20 * 365 * 24 * time.Hour
	intermediateValidity = 10 * 365 * 24 * time.Hour
	signingValidity      = 5 * 365 * 24 * time.Hour
)

// Material holds externally provisioned PEM chain material. Either all six
// values are provided or none: a partial set is a configuration error, never
// a silent fallback to a freshly generated, inconsistent chain.
type Material struct {
	RootCertPEM         []byte
	RootKeyPEM          []byte
	IntermediateCertPEM []byte
	IntermediateKeyPEM  []byte
	SigningCertPEM      []byte
	SigningKeyPEM       []byte
}

// empty reports whether no material was provided at all.
func (m *Material) empty() bool {
	return len(m.RootCertPEM) == 0 && len(m.RootKeyPEM) == 0 &&
		len(m.IntermediateCertPEM) == 0 && len(m.IntermediateKeyPEM) == 0 &&
		len(m.SigningCertPEM) == 0 && len(m.SigningKeyPEM) == 0
}

// complete reports whether every piece of material was provided.
func (m *Material) complete() bool {
	return len(m.RootCertPEM) > 0 && len(m.RootKeyPEM) > 0 &&
		len(m.IntermediateCertPEM) > 0 && len(m.IntermediateKeyPEM) > 0 &&
		len(m.SigningCertPEM) > 0 && len(m.SigningKeyPEM) > 0
}

// Authority issues and caches the process-wide certificate chain.
type Authority interface {
	// Chain returns the cached chain, generating or loading it on first call.
	// Concurrent first callers are serialized; every caller observes the same
	// chain for the process lifetime.
	Chain() (*caDomain.CertificateChain, error)

	// SigningIdentity returns the leaf signing identity plus issuance chain.
	SigningIdentity() (*caDomain.SigningIdentity, error)
}

// authority implements Authority with single-initialization caching.
type authority struct {
	material Material

	once    sync.Once
	chain   *caDomain.CertificateChain
	initErr error
}

// NewAuthority creates an Authority. Pass a zero Material to generate a fresh
// chain at first use.
func NewAuthority(material Material) Authority {
	return &authority{material: material}
}

// Chain returns the process-wide chain, initializing it exactly once.
func (a *authority) Chain() (*caDomain.CertificateChain, error) {
	a.once.Do(func() {
		a.chain, a.initErr = a.initChain()
	})
	return a.chain, a.initErr
}

// SigningIdentity returns the leaf identity backed by the cached chain.
func (a *authority) SigningIdentity() (*caDomain.SigningIdentity, error) {
	chain, err := a.Chain()
	if err != nil {
		return nil, err
	}
	return chain.SigningIdentity(), nil
}

// initChain loads provisioned material when present, otherwise generates.
func (a *authority) initChain() (*caDomain.CertificateChain, error) {
	switch {
	case a.material.empty():
		return GenerateChain()
	case a.material.complete():
		return a.loadChain()
	default:
		return nil, errors.Wrap(errors.ErrConfiguration,
			"partially provisioned CA material: provide all six PEM values or none")
	}
}

// loadChain parses provisioned PEM material and verifies its consistency.
func (a *authority) loadChain() (*caDomain.CertificateChain, error) {
	rootCert, err := caDomain.ParseCertPEM(a.material.RootCertPEM)
	if err != nil {
		return nil, errors.Wrap(err, "root certificate")
	}
	rootKey, err := caDomain.ParseKeyPEM(a.material.RootKeyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "root key")
	}
	intermediateCert, err := caDomain.ParseCertPEM(a.material.IntermediateCertPEM)
	if err != nil {
		return nil, errors.Wrap(err, "intermediate certificate")
	}
	intermediateKey, err := caDomain.ParseKeyPEM(a.material.IntermediateKeyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "intermediate key")
	}
	signingCert, err := caDomain.ParseCertPEM(a.material.SigningCertPEM)
	if err != nil {
		return nil, errors.Wrap(err, "signing certificate")
	}
	signingKey, err := caDomain.ParseKeyPEM(a.material.SigningKeyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "signing key")
	}

	chain := &caDomain.CertificateChain{
		RootCert:         rootCert,
		RootKey:          rootKey,
		IntermediateCert: intermediateCert,
		IntermediateKey:  intermediateKey,
		SigningCert:      signingCert,
		SigningKey:       signingKey,
	}

	if err := chain.Verify(); err != nil {
		return nil, errors.Wrap(errors.ErrConfiguration, err.Error())
	}

	return chain, nil
}

// GenerateChain builds a fresh Root -> Intermediate -> Signing chain with
// RSA keys and SHA-256 signatures throughout.
func GenerateChain() (*caDomain.CertificateChain, error) {
	rootKey, err := rsa.GenerateKey(rand.Reader, rootKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate root key: %w", err)
	}
	rootTemplate, err := caTemplate("Signflow Root CA", rootValidity)
	if err != nil {
		return nil, err
	}
	rootCert, err := issueCertificate(rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to issue root certificate: %w", err)
	}

	intermediateKey, err := rsa.GenerateKey(rand.Reader, rootKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate intermediate key: %w", err)
	}
	intermediateTemplate, err := caTemplate("Signflow Document CA", intermediateValidity)
	if err != nil {
		return nil, err
	}
	intermediateCert, err := issueCertificate(intermediateTemplate, rootCert, &intermediateKey.PublicKey, rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to issue intermediate certificate: %w", err)
	}

	signingKey, err := rsa.GenerateKey(rand.Reader, leafKeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	signingTemplate, err := leafTemplate("Signflow Document Signer", signingValidity)
	if err != nil {
		return nil, err
	}
	signingCert, err := issueCertificate(signingTemplate, intermediateCert, &signingKey.PublicKey, intermediateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to issue signing certificate: %w", err)
	}

	return &caDomain.CertificateChain{
		RootCert:         rootCert,
		RootKey:          rootKey,
		IntermediateCert: intermediateCert,
		IntermediateKey:  intermediateKey,
		SigningCert:      signingCert,
		SigningKey:       signingKey,
	}, nil
}

// caTemplate builds a CA certificate template (cA=true, cert signing usage).
func caTemplate(commonName string, validity time.Duration) (*x509.Certificate, error) {
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"Signflow"},
		},
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.Add(validity),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}, nil
}

// leafTemplate builds the signing certificate template: cA=false, key usage
// digital signature + non-repudiation (content commitment).
func leafTemplate(commonName string, validity time.Duration) (*x509.Certificate, error) {
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"Signflow"},
		},
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.Add(validity),
		IsCA:                  false,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageContentCommitment,
		SignatureAlgorithm:    x509.SHA256WithRSA,
	}, nil
}

// issueCertificate signs template with the parent's key and parses the result.
// The subject key identifier is derived from the public key so authority key
// identifiers link child certificates to their issuer.
func issueCertificate(
	template, parent *x509.Certificate,
	publicKey *rsa.PublicKey,
	signingKey *rsa.PrivateKey,
) (*x509.Certificate, error) {
	pubDER, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	ski := sha256.Sum256(pubDER)
	template.SubjectKeyId = ski[:20]

	der, err := x509.CreateCertificate(rand.Reader, template, parent, publicKey, signingKey)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}

// randomSerial returns a random 128-bit certificate serial number.
func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate serial: %w", err)
	}
	return serial, nil
}
