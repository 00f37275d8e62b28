package certificates

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newSelfSignedDER(t *testing.T, commonName string) []byte {
	t.Helper()
	privateKey, keyErr := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if keyErr != nil {
		t.Fatalf("generate key: %v", keyErr)
	}
	template := x509.Certificate{
		SerialNumber:          big.NewInt(42),
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"Internet Security Research Group"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	derBytes, createErr := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if createErr != nil {
		t.Fatalf("create certificate: %v", createErr)
	}
	return derBytes
}

func TestParseCertificateAcceptsEncodings(t *testing.T) {
	derBytes := newSelfSignedDER(t, "ISRG Root X1")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: certificatePemBlockType, Bytes: derBytes})

	testCases := []struct {
		name  string
		input []byte
	}{
		{name: "der", input: derBytes},
		{name: "pem", input: pemBytes},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(testingT *testing.T) {
			certificate, err := ParseCertificate(testCase.input)
			if err != nil {
				testingT.Fatalf("parse certificate: %v", err)
			}
			if certificate.Subject.CommonName != "ISRG Root X1" {
				testingT.Fatalf("unexpected common name %q", certificate.Subject.CommonName)
			}
		})
	}
}

func TestParseCertificateRejectsMalformedInput(t *testing.T) {
	derBytes := newSelfSignedDER(t, "ISRG Root X2")

	testCases := []struct {
		name  string
		input []byte
	}{
		{name: "nil", input: nil},
		{name: "whitespace", input: []byte("  \n")},
		{name: "html error page", input: []byte("<html><body>Not Found</body></html>")},
		{name: "truncated der", input: derBytes[:len(derBytes)/2]},
		{name: "private key pem", input: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1, 2, 3}})},
		{name: "pem with garbage body", input: pem.EncodeToMemory(&pem.Block{Type: certificatePemBlockType, Bytes: []byte("garbage")})},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(testingT *testing.T) {
			certificate, err := ParseCertificate(testCase.input)
			if !errors.Is(err, ErrMalformedCertificate) {
				testingT.Fatalf("expected ErrMalformedCertificate, got %v", err)
			}
			if certificate != nil {
				testingT.Fatalf("expected nil certificate")
			}
		})
	}
}

func TestFingerprintAndFileBaseName(t *testing.T) {
	certificate, err := ParseCertificate(newSelfSignedDER(t, "ISRG Root X1"))
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	fingerprint := Fingerprint(certificate)
	if !strings.HasPrefix(fingerprint, "sha256:") || len(fingerprint) != len("sha256:")+64 {
		t.Fatalf("unexpected fingerprint %q", fingerprint)
	}
	baseName := FileBaseName(certificate)
	if !strings.HasPrefix(baseName, "isrg_root_x1-") {
		t.Fatalf("unexpected base name %q", baseName)
	}
	if baseName != FileBaseName(certificate) {
		t.Fatalf("file base name is not stable")
	}
	if !strings.Contains(string(EncodePEM(certificate)), "BEGIN CERTIFICATE") {
		t.Fatalf("expected PEM encoding")
	}
}

func TestOperatingSystemFileSystemRoundTrip(t *testing.T) {
	fileSystem := NewOperatingSystemFileSystem()
	directory := filepath.Join(t.TempDir(), "anchors")
	if err := fileSystem.EnsureDirectory(directory, 0o755); err != nil {
		t.Fatalf("ensure directory: %v", err)
	}
	path := filepath.Join(directory, "root.crt")
	exists, err := fileSystem.FileExists(path)
	if err != nil || exists {
		t.Fatalf("expected missing file, exists=%v err=%v", exists, err)
	}
	if err := fileSystem.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	content, err := fileSystem.ReadFile(path)
	if err != nil || string(content) != "content" {
		t.Fatalf("unexpected content %q err=%v", content, err)
	}
	if err := fileSystem.Remove(path); err != nil {
		t.Fatalf("remove file: %v", err)
	}
	if err := fileSystem.Remove(path); err != nil {
		t.Fatalf("remove missing file: %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected file to be removed, got %v", statErr)
	}
	directoryExists, err := fileSystem.FileExists(directory)
	if err != nil || directoryExists {
		t.Fatalf("directories are not files, exists=%v err=%v", directoryExists, err)
	}
}

func TestOperatingSystemFileSystemWriteTemporaryFile(t *testing.T) {
	fileSystem := NewOperatingSystemFileSystem()
	directory := t.TempDir()

	first, err := fileSystem.WriteTemporaryFile(directory, "root-*.pem", []byte("first"))
	if err != nil {
		t.Fatalf("write temporary file: %v", err)
	}
	second, err := fileSystem.WriteTemporaryFile(directory, "root-*.pem", []byte("second"))
	if err != nil {
		t.Fatalf("write temporary file: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct temporary paths, got %s twice", first)
	}
	if filepath.Dir(first) != directory || !strings.HasPrefix(filepath.Base(first), "root-") || !strings.HasSuffix(first, ".pem") {
		t.Fatalf("unexpected temporary path %s", first)
	}
	content, readErr := fileSystem.ReadFile(first)
	if readErr != nil || string(content) != "first" {
		t.Fatalf("unexpected content %q err=%v", content, readErr)
	}
	if _, missingErr := fileSystem.WriteTemporaryFile(filepath.Join(directory, "absent"), "root-*.pem", nil); missingErr == nil {
		t.Fatalf("expected an error for a missing directory")
	}
}
