package validation

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	apperrors "github.com/comic-spoiler/spoiler-detector/internal/errors"
)

// EndpointValidator checks the base URLs the service dials: model
// inference services and artifact hosts.
type EndpointValidator struct {
	schemes []string
	hosts   []string
}

// NewEndpointValidator accepts the given schemes, http and https when none
// are passed. Any host is allowed until RestrictHosts is called.
func NewEndpointValidator(schemes ...string) *EndpointValidator {
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	return &EndpointValidator{schemes: schemes}
}

// RestrictHosts limits endpoints to the listed hostnames.
func (v *EndpointValidator) RestrictHosts(hosts ...string) *EndpointValidator {
	v.hosts = append(v.hosts, hosts...)
	return v
}

// Validate reports why endpoint cannot be dialled. name identifies the
// setting in the message, e.g. "detector".
func (v *EndpointValidator) Validate(name, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return apperrors.NewValidationError(fmt.Sprintf("%s endpoint is not configured", name), nil)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("%s endpoint is not a URL", name), err)
	}
	if !slices.ContainsFunc(v.schemes, func(s string) bool { return strings.EqualFold(s, u.Scheme) }) {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s endpoint must use %s, got %q", name, strings.Join(v.schemes, " or "), u.Scheme), nil)
	}
	if u.Hostname() == "" {
		return apperrors.NewValidationError(fmt.Sprintf("%s endpoint has no host", name), nil)
	}
	if len(v.hosts) > 0 && !slices.Contains(v.hosts, u.Hostname()) {
		return apperrors.NewValidationError(fmt.Sprintf("%s endpoint host %s is not allowed", name, u.Hostname()), nil)
	}
	return nil
}
