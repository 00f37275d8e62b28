package truststore

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"runtime"

	"github.com/tyemirov/sslfix/internal/certificates"
)

const (
	commandNameSecurity            = "security"
	commandNameUpdateCACertificate = "update-ca-certificates"
	commandNameUpdateCATrust       = "update-ca-trust"
	commandNameTrust               = "trust"

	defaultLockFileName          = ".sslfix.lock"
	defaultMacOSKeychainPath     = "/Library/Keychains/System.keychain"
	defaultWindowsStoreName      = "Root"
	defaultAnchorFilePermissions = 0o644
)

var (
	// ErrStoreAccessDenied reports that the trusted root store could not be opened for writing.
	ErrStoreAccessDenied = errors.New("access to the trusted root store was denied")
	// ErrStoreNotOpen reports a mutation attempted outside an Open/Close pair.
	ErrStoreNotOpen = errors.New("trusted root store is not open")
)

// Store is a machine-wide trusted root certificate store.
// Open acquires write access, Add inserts one certificate, Close releases the store.
type Store interface {
	Open(ctx context.Context) error
	Add(ctx context.Context, certificate *x509.Certificate) error
	Close() error
}

// Configuration controls store behavior across platforms.
type Configuration struct {
	LinuxAnchorDirectory       string
	LinuxAnchorFilePermissions fs.FileMode
	LinuxRefreshCommand        []string
	LinuxLockFileName          string
	MacOSKeychainPath          string
	WindowsStoreName           string
}

type storeFactory func(commandRunner certificates.CommandRunner, fileSystem certificates.FileSystem, configuration Configuration) (Store, error)

var supportedFactories = map[string]storeFactory{
	"darwin":  newKeychainStore,
	"linux":   newAnchorStore,
	"windows": newWindowsStore,
}

// NewSystemStore constructs the Store for the running operating system.
func NewSystemStore(commandRunner certificates.CommandRunner, fileSystem certificates.FileSystem, configuration Configuration) (Store, error) {
	factory, found := supportedFactories[runtime.GOOS]
	if !found {
		return nil, fmt.Errorf("unsupported operating system %s", runtime.GOOS)
	}
	return factory(commandRunner, fileSystem, configuration)
}

func accessDenied(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreAccessDenied, operation, err)
}
