package cip

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	defaultAPIVersion    = 4
	defaultServerAddress = "localhost"

	tokenMarker = ";jsessionid="
)

// Params holds named parameters for a CIP operation. A nil value means the
// parameter is absent and never overrides a default.
type Params map[string]any

// DefaultParams returns the parameters sent with every request
func DefaultParams(apiVersion int, serverAddress string) Params {
	if apiVersion <= 0 {
		apiVersion = defaultAPIVersion
	}
	if serverAddress == "" {
		serverAddress = defaultServerAddress
	}
	return Params{
		"apiversion":    apiVersion,
		"serveraddress": serverAddress,
	}
}

// MergeParams returns a copy of defaults overlaid with the non-nil values of given
func MergeParams(defaults, given Params) Params {
	merged := make(Params, len(defaults)+len(given))
	for k, v := range defaults {
		if v != nil {
			merged[k] = v
		}
	}
	for k, v := range given {
		if v != nil {
			merged[k] = v
		}
	}
	return merged
}

// Values converts the parameters to url.Values, skipping nil entries
func (p Params) Values() url.Values {
	values := make(url.Values, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case nil:
			continue
		case []string:
			values[k] = append([]string(nil), val...)
		default:
			values.Set(k, fmt.Sprint(val))
		}
	}
	return values
}

// Encode serializes the parameters as a query string. Keys come out in
// lexical order; callers must not rely on any particular order.
func (p Params) Encode() string {
	return p.Values().Encode()
}

// BuildURL joins endpoint and operation, inserts the session token marker
// when token is set and appends params as a query string. Passing nil params
// yields a URL without a query string.
func BuildURL(endpoint, operation string, params Params, token string) string {
	var sb strings.Builder
	sb.WriteString(endpoint)
	sb.WriteString(strings.TrimPrefix(operation, "/"))

	if token != "" {
		sb.WriteString(tokenMarker)
		sb.WriteString(token)
	}

	if query := params.Encode(); query != "" {
		sb.WriteByte('?')
		sb.WriteString(query)
	}

	return sb.String()
}

// URL builds an absolute URL for operation with the client defaults merged
// into params. The session token is included when includeToken is true and
// a session is open.
func (c *Client) URL(operation string, params Params, includeToken bool) string {
	token := ""
	if includeToken {
		token = c.Token()
	}
	return BuildURL(c.endpoint, operation, MergeParams(c.defaults, params), token)
}
