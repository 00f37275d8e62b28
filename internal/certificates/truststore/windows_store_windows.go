//go:build windows

package truststore

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/tyemirov/sslfix/internal/certificates"
)

// windowsStore adds certificates to a LocalMachine system store through CryptoAPI.
type windowsStore struct {
	configuration Configuration
	handle        windows.Handle
}

func newWindowsStore(commandRunner certificates.CommandRunner, fileSystem certificates.FileSystem, configuration Configuration) (Store, error) {
	if configuration.WindowsStoreName == "" {
		configuration.WindowsStoreName = defaultWindowsStoreName
	}
	return &windowsStore{configuration: configuration}, nil
}

func (store *windowsStore) Open(ctx context.Context) error {
	if store.handle != 0 {
		return nil
	}
	storeName, err := windows.UTF16PtrFromString(store.configuration.WindowsStoreName)
	if err != nil {
		return accessDenied("encode store name", err)
	}
	handle, err := windows.CertOpenStore(
		windows.CERT_STORE_PROV_SYSTEM,
		0,
		0,
		windows.CERT_SYSTEM_STORE_LOCAL_MACHINE|windows.CERT_STORE_OPEN_EXISTING_FLAG,
		uintptr(unsafe.Pointer(storeName)),
	)
	if err != nil {
		return accessDenied(fmt.Sprintf("open LocalMachine\\%s store", store.configuration.WindowsStoreName), err)
	}
	store.handle = handle
	return nil
}

func (store *windowsStore) Add(ctx context.Context, certificate *x509.Certificate) error {
	if store.handle == 0 {
		return ErrStoreNotOpen
	}
	if len(certificate.Raw) == 0 {
		return errors.New("certificate has no DER encoding")
	}
	certificateContext, err := windows.CertCreateCertificateContext(
		windows.X509_ASN_ENCODING|windows.PKCS_7_ASN_ENCODING,
		&certificate.Raw[0],
		uint32(len(certificate.Raw)),
	)
	if err != nil {
		return fmt.Errorf("create certificate context: %w", err)
	}
	defer func() { _ = windows.CertFreeCertificateContext(certificateContext) }()

	err = windows.CertAddCertificateContextToStore(store.handle, certificateContext, windows.CERT_STORE_ADD_USE_EXISTING, nil)
	if err != nil {
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return accessDenied("add certificate", err)
		}
		return fmt.Errorf("add certificate to windows store: %w", err)
	}
	return nil
}

func (store *windowsStore) Close() error {
	if store.handle == 0 {
		return nil
	}
	handle := store.handle
	store.handle = 0
	return windows.CertCloseStore(handle, 0)
}
