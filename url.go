package scout

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// URLHash returns the SHA-512 hex digest of the URL's bytes. It is the
// uniqueness key for pages and domains in the catalog.
func URLHash(rawURL string) string {
	sum := sha512.Sum512([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// DomainFromURL extracts the domain name and canonical domain URL from a
// page URL. A URL without a scheme is assumed to be http. Both returns are
// empty if no host can be determined.
func DomainFromURL(rawURL string) (name string, domainURL string) {
	ref := rawURL
	if !strings.Contains(ref, "://") {
		ref = "http://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return "", ""
	}
	return u.Host, fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}

// NormalizeURL applies the standard safe normalization rules to a URL
// string, dropping fragments. Used on operator-supplied seed URLs so
// equivalent spellings hash to the same page.
func NormalizeURL(rawURL string) (string, error) {
	return purell.NormalizeURLString(rawURL,
		purell.FlagsSafe|purell.FlagRemoveFragment)
}

// DomainNameVariants returns the spellings under which a domain may have
// been registered: as given, without a trailing slash, and with one. The
// catalog checks all three on lookup.
func DomainNameVariants(name string) []string {
	stripped := strings.TrimRight(name, "/")
	variants := []string{name}
	if stripped != name {
		variants = append(variants, stripped)
	} else {
		variants = append(variants, name+"/")
	}
	return variants
}
