package sources

import (
	"strings"
)

const (
	// LetsEncryptCertificatePrefix is the only origin trusted by default.
	LetsEncryptCertificatePrefix = "https://letsencrypt.org/certs/"

	// ISRGRootX1URL locates the DER-encoded ISRG Root X1 certificate.
	ISRGRootX1URL = LetsEncryptCertificatePrefix + "isrgrootx1.der"
	// ISRGRootX2URL locates the DER-encoded ISRG Root X2 certificate.
	ISRGRootX2URL = LetsEncryptCertificatePrefix + "isrg-root-x2.der"
)

// DefaultCertificateURLs returns the ordered list of certificates installed by default.
func DefaultCertificateURLs() []string {
	return []string{ISRGRootX1URL, ISRGRootX2URL}
}

// DefaultAllowedPrefixes returns the default allow-list entries.
func DefaultAllowedPrefixes() []string {
	return []string{LetsEncryptCertificatePrefix}
}

// AllowList gates downloads to a fixed set of URL prefixes.
// The check is a literal prefix match, not URL or host validation.
type AllowList struct {
	prefixes []string
}

// NewAllowList constructs an AllowList, dropping blank and duplicate entries.
func NewAllowList(prefixes []string) AllowList {
	seen := map[string]struct{}{}
	sanitized := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		trimmed := strings.TrimSpace(prefix)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		sanitized = append(sanitized, trimmed)
	}
	return AllowList{prefixes: sanitized}
}

// Permits reports whether url starts with one of the allowed prefixes.
func (allowList AllowList) Permits(url string) bool {
	for _, prefix := range allowList.prefixes {
		if strings.HasPrefix(url, prefix) {
			return true
		}
	}
	return false
}

// Prefixes returns a copy of the allowed prefixes.
func (allowList AllowList) Prefixes() []string {
	return append([]string{}, allowList.prefixes...)
}
