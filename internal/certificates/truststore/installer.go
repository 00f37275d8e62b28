package truststore

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/tyemirov/sslfix/internal/certificates"
)

// InstalledCertificate describes a certificate that was added to the store.
type InstalledCertificate struct {
	Subject     string
	Fingerprint string
	Certificate *x509.Certificate
}

// Installer parses certificate bytes and adds them to a Store.
type Installer struct {
	store Store
}

// NewInstaller constructs an Installer over the provided Store.
func NewInstaller(store Store) *Installer {
	return &Installer{store: store}
}

// Install parses data and adds the certificate to the store.
// The store is only opened once parsing succeeds and is always closed after a successful Open.
func (installer *Installer) Install(ctx context.Context, data []byte) (installed InstalledCertificate, err error) {
	certificate, parseErr := certificates.ParseCertificate(data)
	if parseErr != nil {
		return InstalledCertificate{}, parseErr
	}

	if openErr := installer.store.Open(ctx); openErr != nil {
		if errors.Is(openErr, ErrStoreAccessDenied) {
			return InstalledCertificate{}, openErr
		}
		return InstalledCertificate{}, accessDenied("open store", openErr)
	}
	defer func() {
		if closeErr := installer.store.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close store: %w", closeErr))
		}
	}()

	if addErr := installer.store.Add(ctx, certificate); addErr != nil {
		return InstalledCertificate{}, fmt.Errorf("add certificate %s: %w", certificate.Subject.CommonName, addErr)
	}

	return InstalledCertificate{
		Subject:     certificate.Subject.String(),
		Fingerprint: certificates.Fingerprint(certificate),
		Certificate: certificate,
	}, nil
}
