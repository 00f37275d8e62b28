package truststore

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"github.com/tyemirov/sslfix/internal/certificates"
)

// keychainStore trusts certificates as roots in the macOS System keychain through the security tool.
type keychainStore struct {
	commandRunner   certificates.CommandRunner
	fileSystem      certificates.FileSystem
	configuration   Configuration
	effectiveUserID func() int
	temporaryDir    func() string
	open            bool
}

func newKeychainStore(commandRunner certificates.CommandRunner, fileSystem certificates.FileSystem, configuration Configuration) (Store, error) {
	if configuration.MacOSKeychainPath == "" {
		configuration.MacOSKeychainPath = defaultMacOSKeychainPath
	}
	return &keychainStore{
		commandRunner:   commandRunner,
		fileSystem:      fileSystem,
		configuration:   configuration,
		effectiveUserID: os.Geteuid,
		temporaryDir:    os.TempDir,
	}, nil
}

func (store *keychainStore) Open(ctx context.Context) error {
	if store.effectiveUserID() != 0 {
		return accessDenied("open system keychain", errors.New("administrator privileges are required"))
	}
	exists, err := store.fileSystem.FileExists(store.configuration.MacOSKeychainPath)
	if err != nil {
		return accessDenied("open system keychain", err)
	}
	if !exists {
		return accessDenied("open system keychain", fmt.Errorf("keychain not found at %s", store.configuration.MacOSKeychainPath))
	}
	store.open = true
	return nil
}

func (store *keychainStore) Add(ctx context.Context, certificate *x509.Certificate) error {
	if !store.open {
		return ErrStoreNotOpen
	}
	certificatePath, err := store.fileSystem.WriteTemporaryFile(store.temporaryDir(), certificates.FileBaseName(certificate)+"-*.pem", certificates.EncodePEM(certificate))
	if err != nil {
		return fmt.Errorf("write temporary certificate: %w", err)
	}
	defer func() { _ = store.fileSystem.Remove(certificatePath) }()

	arguments := []string{"add-trusted-cert", "-d", "-r", "trustRoot", "-k", store.configuration.MacOSKeychainPath, certificatePath}
	if err := store.commandRunner.Run(ctx, commandNameSecurity, arguments); err != nil {
		return fmt.Errorf("install certificate in macos keychain: %w", err)
	}
	return nil
}

func (store *keychainStore) Close() error {
	store.open = false
	return nil
}
