// Package provisioning downloads root certificates and installs them one at a time.
package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/tyemirov/sslfix/internal/certificates/truststore"
)

// Fetcher downloads certificate bytes for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Installer adds certificate bytes to the trusted root store.
type Installer interface {
	Install(ctx context.Context, data []byte) (truststore.InstalledCertificate, error)
}

// Reporter receives progress notifications.
type Reporter interface {
	Downloading(url string)
	Installed(url string, certificate truststore.InstalledCertificate)
}

// Provisioner runs the download then install sequence over an ordered URL list.
type Provisioner struct {
	fetcher   Fetcher
	installer Installer
	reporter  Reporter
}

// NewProvisioner constructs a Provisioner.
func NewProvisioner(fetcher Fetcher, installer Installer, reporter Reporter) (*Provisioner, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if installer == nil {
		return nil, errors.New("installer is required")
	}
	if reporter == nil {
		return nil, errors.New("reporter is required")
	}
	return &Provisioner{fetcher: fetcher, installer: installer, reporter: reporter}, nil
}

// Run processes urls in order and stops at the first failure; later URLs are never attempted.
func (provisioner *Provisioner) Run(ctx context.Context, urls []string) error {
	if len(urls) == 0 {
		return errors.New("no certificate urls configured")
	}
	for _, url := range urls {
		provisioner.reporter.Downloading(url)
		data, err := provisioner.fetcher.Fetch(ctx, url)
		if err != nil {
			return fmt.Errorf("download %s: %w", url, err)
		}
		installed, err := provisioner.installer.Install(ctx, data)
		if err != nil {
			return fmt.Errorf("install %s: %w", url, err)
		}
		provisioner.reporter.Installed(url, installed)
	}
	return nil
}
