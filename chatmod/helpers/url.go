package helpers

import (
	"regexp"
	"strings"
)

// Well-known link shortener domains. Links through these hide their destination.
var KnownShorteners = []string{
	"bit.ly",
	"buff.ly",
	"cutt.ly",
	"goo.gl",
	"is.gd",
	"ow.ly",
	"rebrand.ly",
	"shorturl.at",
	"t.co",
	"tiny.cc",
	"tinyurl.com",
}

// Top-level domains handed out for free, and heavily used for throwaway spam sites.
var FreeTLDs = []string{
	"cf",
	"ga",
	"gq",
	"ml",
	"tk",
}

var ipv4HostRegex = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// Checks whether a hostname starts with a dotted-decimal IPv4 address. Does not validate octet ranges.
func HostIsIPv4(host string) bool {
	return ipv4HostRegex.MatchString(host)
}

// Checks if host equals domain, or is a subdomain of it. Both are compared lower-case.
func HostMatchesDomain(host, domain string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Returns the known shortener domain which host belongs to, or empty string.
func HostShortener(host string) string {
	for _, s := range KnownShorteners {
		if HostMatchesDomain(host, s) {
			return s
		}
	}
	return ""
}
