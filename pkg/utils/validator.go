package utils

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/wavelens/gradient/pkg/constants"
	"github.com/wavelens/gradient/pkg/responses"
)

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{0,63}$`)

// CheckSlug validates a URL-safe index name: lowercase, starts with a
// letter, alphanumeric plus dashes, max 64 characters.
func CheckSlug(name string) error {
	if !slugPattern.MatchString(name) {
		return responses.NewValidation(fmt.Sprintf("invalid name %q: must be a lowercase slug", name))
	}
	return nil
}

// CheckPort validates the 1-65535 port range.
func CheckPort(port int) error {
	if port < 1 || port > 65535 {
		return responses.NewValidation(fmt.Sprintf("port out of range 1-65535: %d", port))
	}
	return nil
}

// CheckHost rejects loopback, link-local, private and unspecified
// addresses. Build servers must be reachable remote machines.
func CheckHost(host string) error {
	if host == "" {
		return responses.NewValidation("host must not be empty")
	}
	if strings.EqualFold(host, "localhost") {
		return responses.NewValidation("loopback host not allowed")
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Hostname; resolution is deferred to dispatch time.
		return nil
	}
	if ip.IsLoopback() || ip.IsUnspecified() {
		return responses.NewValidation(fmt.Sprintf("loopback host not allowed: %s", host))
	}
	if ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return responses.NewValidation(fmt.Sprintf("private host not allowed: %s", host))
	}
	return nil
}

// CheckArchitectures validates a non-empty set of known platform tuples.
func CheckArchitectures(architectures []string) error {
	if len(architectures) == 0 {
		return responses.NewValidation("at least one architecture is required")
	}
	unknown := lo.Filter(architectures, func(a string, _ int) bool {
		return !constants.IsArchitecture(a)
	})
	if len(unknown) > 0 {
		return responses.NewValidation(fmt.Sprintf("unknown architectures: %s", strings.Join(unknown, ", ")))
	}
	return nil
}

// CheckFeatures validates a non-empty feature tag set. Tags follow the
// same slug rules as names.
func CheckFeatures(features []string) error {
	if len(features) == 0 {
		return responses.NewValidation("at least one feature tag is required")
	}
	for _, f := range features {
		if !slugPattern.MatchString(f) {
			return responses.NewValidation(fmt.Sprintf("invalid feature tag %q", f))
		}
	}
	return nil
}
