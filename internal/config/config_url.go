// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var (
	pushgatewaySchemes = []string{"http", "https"}
	natsSchemes        = []string{"nats", "tls", "ws", "wss"}
)

// parseServiceURL parses raw and checks it names a host over one of schemes.
func parseServiceURL(raw, field string, schemes []string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return nil, fmt.Errorf("%s scheme must be one of %s, got %q", field, strings.Join(schemes, ", "), u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%s host is required", field)
	}
	return u, nil
}

// validateHTTPURL checks a Pushgateway base URL. A path prefix is allowed for
// gateways behind a reverse proxy; query strings and fragments are not,
// since the push client appends /metrics/job/<job> itself.
func validateHTTPURL(rawURL, field string) error {
	u, err := parseServiceURL(rawURL, field, pushgatewaySchemes)
	if err != nil {
		return err
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("%s must not contain a query or fragment", field)
	}
	if strings.Contains(u.Path, "/metrics/job/") {
		return fmt.Errorf("%s should be the gateway base URL, not a job path", field)
	}
	return nil
}

// validateNATSURL checks a NATS server URL or a comma-separated list of
// them, the form nats.Connect accepts for clusters.
func validateNATSURL(rawURL string) error {
	servers := strings.Split(rawURL, ",")
	for _, server := range servers {
		if strings.TrimSpace(server) == "" {
			return fmt.Errorf("NATS_URL contains an empty server entry")
		}
		if _, err := parseServiceURL(server, "NATS_URL", natsSchemes); err != nil {
			return err
		}
	}
	return nil
}
