// Package subdomain turns free-text business names into DNS-safe labels and maps
// request hosts and lookup keys back onto those labels.
package subdomain

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/gowso/bizsites/pkg/model"
	"golang.org/x/net/idna"
)

// MaxLabelLength is the DNS limit for a single label.
const MaxLabelLength = 63

var labelPattern = regexp.MustCompile(`^[a-z0-9](-?[a-z0-9])*$`)

// Normalize lower-cases name, collapses every run of characters outside [a-z0-9] into a
// single hyphen, trims hyphens from both ends and truncates to MaxLabelLength.
// A name made only of punctuation normalizes to "".
func Normalize(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if isLabelRune(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	label := b.String()
	if len(label) > MaxLabelLength {
		label = strings.TrimRight(label[:MaxLabelLength], "-")
	}
	return label
}

// Validate checks that label can be published as a DNS label.
func Validate(label string) error {
	if label == "" {
		return &model.ValidationError{Reason: "business name does not contain any letters or digits"}
	}
	if len(label) > MaxLabelLength {
		return &model.ValidationError{Reason: fmt.Sprintf("subdomain %q is longer than %d characters", label, MaxLabelLength)}
	}
	if !labelPattern.MatchString(label) {
		return &model.ValidationError{Reason: fmt.Sprintf("subdomain %q is not a valid DNS label", label)}
	}
	if _, err := idna.Registration.ToASCII(label); err != nil {
		return &model.ValidationError{Reason: fmt.Sprintf("subdomain %q is not a valid DNS label: %v", label, err)}
	}
	return nil
}

// SanitizeKey lower-cases a lookup key and strips every character outside [a-z0-9-].
func SanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		if isLabelRune(r) || r == '-' {
			return r
		}
		return -1
	}, strings.ToLower(key))
}

// FQDN joins a label and the base domain.
func FQDN(label, domain string) string {
	return label + "." + strings.TrimSuffix(domain, ".")
}

// LabelFromHost returns the label of a {label}.{domain} host. When domain is empty any
// host with at least three labels yields its first label.
func LabelFromHost(host, domain string) (string, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))

	if domain == "" {
		parts := strings.Split(host, ".")
		if len(parts) < 3 || parts[0] == "" {
			return "", false
		}
		return parts[0], true
	}

	if !strings.HasSuffix(host, "."+domain) {
		return "", false
	}
	label := strings.TrimSuffix(host, "."+domain)
	if label == "" || strings.Contains(label, ".") {
		return "", false
	}
	return label, true
}

// LabelOf reduces a stored subdomain, which may be a bare label or a full host name, to its label.
func LabelOf(subdomain string) string {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if i := strings.IndexByte(subdomain, '.'); i >= 0 {
		return subdomain[:i]
	}
	return subdomain
}

func isLabelRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
