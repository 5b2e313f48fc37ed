// Package urlkey normalizes article URLs and derives the stable identity
// key used to recognize the same article across scrapes.
package urlkey

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const shortHashLen = 12 // hex chars of SHA-1, 48 bits

// Resolver holds the per-site URL knowledge: which hosts carry
// non-identifying query parameters and how each source embeds article ids.
type Resolver struct {
	stripQueryHosts []string
	siteIDPatterns  map[string]*regexp.Regexp
	hostSources     map[string]string
}

type Config struct {
	StripQueryHosts []string
	SiteIDPatterns  map[string]string
	HostSources     map[string]string
}

func New(cfg Config) (*Resolver, error) {
	patterns := make(map[string]*regexp.Regexp, len(cfg.SiteIDPatterns))
	for source, pattern := range cfg.SiteIDPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("site id pattern for %q: %w", source, err)
		}
		patterns[strings.ToLower(source)] = re
	}

	hosts := make([]string, 0, len(cfg.StripQueryHosts))
	for _, h := range cfg.StripQueryHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}

	sources := make(map[string]string, len(cfg.HostSources))
	for host, source := range cfg.HostSources {
		sources[strings.ToLower(strings.TrimSpace(host))] = strings.ToLower(strings.TrimSpace(source))
	}

	return &Resolver{
		stripQueryHosts: hosts,
		siteIDPatterns:  patterns,
		hostSources:     sources,
	}, nil
}

// Canonicalize normalizes scheme and host and strips the trailing slash.
// For the configured allow-list of hosts the query string and fragment are
// dropped; unknown hosts keep them, since they might encode identity there.
// An unparseable URL comes back unchanged, which keeps the transform
// idempotent.
func (r *Resolver) Canonicalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return trimmed
	}

	parsed.Scheme = "https"
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""

	if r.isStripQueryHost(parsed.Host) {
		parsed.RawQuery = ""
		parsed.Fragment = ""
	}
	return parsed.String()
}

// ExtractSiteID pulls a stable per-site article identifier out of a known
// URL shape. Unrecognized sources or shapes return ok=false; this never
// guesses.
func (r *Resolver) ExtractSiteID(canonical, source string) (string, bool) {
	if strings.TrimSpace(canonical) == "" {
		return "", false
	}

	tag := strings.ToLower(strings.TrimSpace(source))
	re, ok := r.siteIDPatterns[tag]
	if !ok {
		if host := hostOf(canonical); host != "" {
			for fragment, mapped := range r.hostSources {
				if strings.Contains(host, fragment) {
					re, ok = r.siteIDPatterns[mapped]
					break
				}
			}
		}
	}
	if !ok || re == nil {
		return "", false
	}

	match := re.FindStringSubmatch(canonical)
	if len(match) < 2 || match[1] == "" {
		return "", false
	}
	return match[1], true
}

// IdentityKey builds the deterministic per-record key. A known site id wins;
// otherwise a truncated digest of the canonical URL stands in for it.
func (r *Resolver) IdentityKey(source, canonical, siteID string) string {
	src := strings.ToLower(strings.TrimSpace(source))
	if siteID != "" {
		return src + ":" + siteID
	}
	return src + ":" + shortHash(canonical)
}

func (r *Resolver) isStripQueryHost(host string) bool {
	for _, fragment := range r.stripQueryHosts {
		if strings.Contains(host, fragment) {
			return true
		}
	}
	return false
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

func shortHash(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:shortHashLen]
}
