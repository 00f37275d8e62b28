//go:build !windows

package truststore

import (
	"errors"

	"github.com/tyemirov/sslfix/internal/certificates"
)

func newWindowsStore(commandRunner certificates.CommandRunner, fileSystem certificates.FileSystem, configuration Configuration) (Store, error) {
	return nil, errors.New("the windows root store is only reachable from windows")
}
