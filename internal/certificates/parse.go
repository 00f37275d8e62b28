package certificates

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

const certificatePemBlockType = "CERTIFICATE"

// ErrMalformedCertificate reports bytes that do not decode to a single X.509 certificate.
var ErrMalformedCertificate = errors.New("malformed certificate")

// ParseCertificate decodes DER bytes, or a PEM CERTIFICATE block, into an X.509 certificate.
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedCertificate)
	}
	derBytes := data
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != certificatePemBlockType {
			return nil, fmt.Errorf("%w: unexpected PEM block type %s", ErrMalformedCertificate, block.Type)
		}
		derBytes = block.Bytes
	}
	certificate, err := x509.ParseCertificate(derBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedCertificate, err)
	}
	return certificate, nil
}

// EncodePEM returns the PEM encoding of the certificate.
func EncodePEM(certificate *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: certificatePemBlockType, Bytes: certificate.Raw})
}

// Fingerprint returns the sha256 fingerprint of the DER encoding as "sha256:<hex>".
func Fingerprint(certificate *x509.Certificate) string {
	digest := sha256.Sum256(certificate.Raw)
	return "sha256:" + hex.EncodeToString(digest[:])
}

// FileBaseName derives a stable file name for the certificate from its subject and fingerprint.
func FileBaseName(certificate *x509.Certificate) string {
	digest := sha256.Sum256(certificate.Raw)
	commonName := sanitizeFileNameComponent(certificate.Subject.CommonName)
	if commonName == "" {
		commonName = "certificate"
	}
	return fmt.Sprintf("%s-%s", commonName, hex.EncodeToString(digest[:4]))
}

func sanitizeFileNameComponent(value string) string {
	var builder strings.Builder
	for _, character := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case character >= 'a' && character <= 'z', character >= '0' && character <= '9':
			builder.WriteRune(character)
		case character == '-' || character == '_' || character == '.':
			builder.WriteRune(character)
		default:
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_.")
}
