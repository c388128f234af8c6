// Per-community link policy for chat messages.
//
// Malformed links fail safe: anything which can't be parsed in to a scheme and host is blocked.
package urlpolicy

import (
	"net/url"
	"strings"

	"github.com/bluesky-social/chatmod/chatmod/helpers"
	"github.com/bluesky-social/chatmod/chatmod/settings"

	"github.com/PuerkitoBio/purell"
)

const (
	ReasonUnparseable    = "unparseable"
	ReasonInsecureScheme = "insecure_scheme"
	ReasonIPAddress      = "ip_address"
	ReasonBlockedDomain  = "blocked_domain"
	ReasonNotAllowed     = "domain_not_allowed"
	ReasonShortener      = "shortener"
)

// canonicalization before host checks; numeric host encodings are decoded so "http://3232235777/" is seen as a dotted IPv4 host
const normalizeFlags = purell.FlagsSafe | purell.FlagRemoveDotSegments | purell.FlagRemoveDuplicateSlashes | purell.FlagDecodeDWORDHost | purell.FlagDecodeOctalHost | purell.FlagDecodeHexHost | purell.FlagRemoveUnnecessaryHostDots

type Result struct {
	// every link found in the message, in order
	URLs []string
	// links which violate policy, as they appeared in the message, de-duplicated
	Blocked []string
	// first policy reason for each blocked link
	Reasons map[string]string
}

// Extracts links from a raw chat message and checks each against the community's URL settings.
func Check(message string, cfg settings.URLSettings) Result {
	res := Result{
		URLs:    []string{},
		Blocked: []string{},
		Reasons: map[string]string{},
	}
	res.URLs = append(res.URLs, helpers.ExtractTextURLs(message)...)
	if cfg.AllowAllURLs {
		return res
	}
	for _, raw := range res.URLs {
		if _, dup := res.Reasons[raw]; dup {
			continue
		}
		if reason := CheckURL(raw, cfg); reason != "" {
			res.Blocked = append(res.Blocked, raw)
			res.Reasons[raw] = reason
		}
	}
	return res
}

// Checks a single link. Returns the reason it is blocked, or empty string if it is allowed.
func CheckURL(raw string, cfg settings.URLSettings) string {
	if cfg.AllowAllURLs {
		return ""
	}
	clean, err := purell.NormalizeURLString(raw, normalizeFlags)
	if err != nil {
		return ReasonUnparseable
	}
	u, err := url.Parse(clean)
	if err != nil {
		return ReasonUnparseable
	}
	host := strings.ToLower(u.Hostname())
	scheme := strings.ToLower(u.Scheme)
	if host == "" || (scheme != "http" && scheme != "https") {
		return ReasonUnparseable
	}

	if cfg.RequireHTTPS && scheme != "https" {
		return ReasonInsecureScheme
	}
	if cfg.BlockIPAddresses && helpers.HostIsIPv4(host) {
		return ReasonIPAddress
	}
	for _, d := range cfg.BlockedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && strings.Contains(host, d) {
			return ReasonBlockedDomain
		}
	}
	if len(cfg.AllowedDomains) > 0 {
		allowed := false
		for _, d := range cfg.AllowedDomains {
			if helpers.HostMatchesDomain(host, d) {
				allowed = true
				break
			}
		}
		if !allowed {
			return ReasonNotAllowed
		}
	}
	if cfg.BlockShorteners {
		if s := helpers.HostShortener(host); s != "" && !trusted(host, s, cfg.TrustedShorteners) {
			return ReasonShortener
		}
	}
	return ""
}

func trusted(host, shortener string, trustedShorteners []string) bool {
	for _, t := range trustedShorteners {
		if strings.EqualFold(strings.TrimSpace(t), shortener) || helpers.HostMatchesDomain(host, t) {
			return true
		}
	}
	return false
}
