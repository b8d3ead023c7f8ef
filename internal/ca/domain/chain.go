// Package domain defines the certificate authority's trust material: the
// three-tier Root -> Intermediate -> Signing chain used to attach a
// verifiable signing identity to finalized documents.
package domain

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"

	"github.com/allisson/signflow/internal/errors"
)

// CertificateChain holds the issued trust material. The root is self-signed,
// the intermediate is signed by the root, and the signing (leaf) certificate
// is signed by the intermediate. Once handed out, a chain must never be
// regenerated mid-process: documents already signed under it would lose
// chain-of-trust consistency.
type CertificateChain struct {
	RootCert *x509.Certificate
	RootKey  *rsa.PrivateKey

	IntermediateCert *x509.Certificate
	IntermediateKey  *rsa.PrivateKey

	SigningCert *x509.Certificate
	SigningKey  *rsa.PrivateKey
}

// SigningIdentity is the leaf identity plus its issuance chain, ordered leaf
// issuer first ([intermediate, root]). This is what gets embedded alongside
// a finalized document.
type SigningIdentity struct {
	Certificate *x509.Certificate
	Key         *rsa.PrivateKey
	Chain       []*x509.Certificate
}

// SigningIdentity returns the chain's leaf identity.
func (c *CertificateChain) SigningIdentity() *SigningIdentity {
	return &SigningIdentity{
		Certificate: c.SigningCert,
		Key:         c.SigningKey,
		Chain:       []*x509.Certificate{c.IntermediateCert, c.RootCert},
	}
}

// Verify checks the chain's internal consistency: issuer/subject links and
// each certificate's signature against its issuer's public key.
func (c *CertificateChain) Verify() error {
	if err := c.RootCert.CheckSignatureFrom(c.RootCert); err != nil {
		return errors.Wrap(err, "root certificate is not self-signed")
	}
	if err := c.IntermediateCert.CheckSignatureFrom(c.RootCert); err != nil {
		return errors.Wrap(err, "intermediate certificate is not signed by root")
	}
	if err := c.SigningCert.CheckSignatureFrom(c.IntermediateCert); err != nil {
		return errors.Wrap(err, "signing certificate is not signed by intermediate")
	}
	return nil
}

// EncodeCertPEM renders a certificate in PEM format.
func EncodeCertPEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

// EncodeKeyPEM renders an RSA private key in PKCS#8 PEM format.
func EncodeKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal private key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParseCertPEM decodes a PEM-encoded certificate.
func ParseCertPEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.Wrap(errors.ErrConfiguration, "invalid certificate PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse certificate")
	}
	return cert, nil
}

// ParseKeyPEM decodes a PEM-encoded RSA private key in PKCS#8 or PKCS#1 form.
func ParseKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.Wrap(errors.ErrConfiguration, "invalid private key PEM")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.Wrap(errors.ErrConfiguration, "private key is not RSA")
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}
	return key, nil
}
