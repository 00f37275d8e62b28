package truststore

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/tyemirov/sslfix/internal/certificates"
)

const anchorLockRetryInterval = 100 * time.Millisecond

// Distribution anchor directories paired with the command that rebuilds the bundle from them.
var linuxAnchorLayouts = []struct {
	directory      string
	refreshCommand []string
}{
	{directory: "/usr/local/share/ca-certificates", refreshCommand: []string{commandNameUpdateCACertificate}},
	{directory: "/etc/pki/ca-trust/source/anchors", refreshCommand: []string{commandNameUpdateCATrust, "extract"}},
	{directory: "/etc/ca-certificates/trust-source/anchors", refreshCommand: []string{commandNameTrust, "extract-compat"}},
}

// anchorStore writes PEM anchors into a distribution trust directory and rebuilds the system bundle.
// Open holds an exclusive file lock inside the directory until Close.
type anchorStore struct {
	commandRunner certificates.CommandRunner
	fileSystem    certificates.FileSystem
	configuration Configuration
	lock          *flock.Flock
}

func newAnchorStore(commandRunner certificates.CommandRunner, fileSystem certificates.FileSystem, configuration Configuration) (Store, error) {
	if configuration.LinuxAnchorFilePermissions == 0 {
		configuration.LinuxAnchorFilePermissions = defaultAnchorFilePermissions
	}
	if configuration.LinuxLockFileName == "" {
		configuration.LinuxLockFileName = defaultLockFileName
	}
	if configuration.LinuxAnchorDirectory == "" || len(configuration.LinuxRefreshCommand) == 0 {
		directory, refreshCommand := detectLinuxAnchorLayout(commandRunner)
		if configuration.LinuxAnchorDirectory == "" {
			configuration.LinuxAnchorDirectory = directory
		}
		if len(configuration.LinuxRefreshCommand) == 0 {
			configuration.LinuxRefreshCommand = refreshCommand
		}
	}
	return &anchorStore{
		commandRunner: commandRunner,
		fileSystem:    fileSystem,
		configuration: configuration,
	}, nil
}

// detectLinuxAnchorLayout picks the first layout whose refresh tool is installed.
func detectLinuxAnchorLayout(commandRunner certificates.CommandRunner) (string, []string) {
	for _, layout := range linuxAnchorLayouts {
		if commandRunner.Available(layout.refreshCommand[0]) {
			return layout.directory, layout.refreshCommand
		}
	}
	return linuxAnchorLayouts[0].directory, linuxAnchorLayouts[0].refreshCommand
}

func (store *anchorStore) Open(ctx context.Context) error {
	if store.lock != nil {
		return nil
	}
	directory := store.configuration.LinuxAnchorDirectory
	if err := store.fileSystem.EnsureDirectory(directory, 0o755); err != nil {
		return accessDenied("ensure anchor directory", err)
	}
	lock := flock.New(filepath.Join(directory, store.configuration.LinuxLockFileName))
	locked, err := lock.TryLockContext(ctx, anchorLockRetryInterval)
	if err != nil {
		return accessDenied("lock anchor directory", err)
	}
	if !locked {
		return accessDenied("lock anchor directory", errors.New("lock not acquired"))
	}
	store.lock = lock
	return nil
}

func (store *anchorStore) Add(ctx context.Context, certificate *x509.Certificate) error {
	if store.lock == nil {
		return ErrStoreNotOpen
	}
	anchorPath := filepath.Join(store.configuration.LinuxAnchorDirectory, certificates.FileBaseName(certificate)+".crt")
	content := certificates.EncodePEM(certificate)

	current, currentErr := store.anchorIsCurrent(anchorPath, content)
	if currentErr != nil {
		return currentErr
	}
	if !current {
		if err := store.fileSystem.WriteFile(anchorPath, content, store.configuration.LinuxAnchorFilePermissions); err != nil {
			return accessDenied("write anchor", err)
		}
	}

	// Refresh runs for unchanged anchors too.
	refreshCommand := store.configuration.LinuxRefreshCommand
	if len(refreshCommand) == 0 {
		return errors.New("no trust store refresh command configured")
	}
	if err := store.commandRunner.Run(ctx, refreshCommand[0], refreshCommand[1:]); err != nil {
		return fmt.Errorf("refresh linux trust store: %w", err)
	}
	return nil
}

func (store *anchorStore) Close() error {
	if store.lock == nil {
		return nil
	}
	lock := store.lock
	store.lock = nil
	return lock.Unlock()
}

func (store *anchorStore) anchorIsCurrent(anchorPath string, content []byte) (bool, error) {
	exists, err := store.fileSystem.FileExists(anchorPath)
	if err != nil {
		return false, fmt.Errorf("check anchor path: %w", err)
	}
	if !exists {
		return false, nil
	}
	existing, err := store.fileSystem.ReadFile(anchorPath)
	if err != nil {
		return false, nil
	}
	return bytes.Equal(existing, content), nil
}
