package cip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/blang/semver"
)

// ServerVersion is the version report of a CIP installation. Raw holds the
// CIP version; Components lists per-service versions when the installation
// reports them.
type ServerVersion struct {
	Raw        string
	Components map[string]string
}

type versionResponse struct {
	Version json.RawMessage `json:"version"`
}

// ServerVersion asks the service for its version
func (c *Client) ServerVersion(ctx context.Context) (*ServerVersion, error) {
	const op = "system/getversion"
	if err := c.requireSession(op); err != nil {
		return nil, err
	}

	var payload versionResponse
	if err := c.callJSON(ctx, Op(op), nil, &payload); err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace(payload.Version)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, malformedf(op, "missing version")
	}

	version := &ServerVersion{}
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &version.Raw); err != nil {
			return nil, &MalformedResultError{Op: op, Reason: "invalid version", Err: err}
		}
	case '{':
		var components map[string]any
		if err := json.Unmarshal(raw, &components); err != nil {
			return nil, &MalformedResultError{Op: op, Reason: "invalid version", Err: err}
		}
		version.Components = make(map[string]string, len(components))
		for name, v := range components {
			version.Components[name] = fmt.Sprint(v)
		}
		version.Raw = version.Components["cip"]
	default:
		version.Raw = string(raw)
	}

	return version, nil
}

// Semver parses Raw leniently ("9.1" and "v9.1.2" are accepted). A missing
// or unparsable version is a malformed result of system/getversion.
func (v *ServerVersion) Semver() (semver.Version, error) {
	const op = "system/getversion"
	if v.Raw == "" {
		return semver.Version{}, malformedf(op, "no version reported")
	}
	parsed, err := semver.ParseTolerant(v.Raw)
	if err != nil {
		return semver.Version{}, &MalformedResultError{Op: op, Reason: fmt.Sprintf("invalid version %q", v.Raw), Err: err}
	}
	return parsed, nil
}

// AtLeast reports whether the server version is minimum or newer
func (v *ServerVersion) AtLeast(minimum string) (bool, error) {
	current, err := v.Semver()
	if err != nil {
		return false, err
	}
	required, err := semver.ParseTolerant(minimum)
	if err != nil {
		return false, &PreconditionError{Reason: fmt.Sprintf("invalid minimum version %q", minimum), Err: err}
	}
	return current.GTE(required), nil
}
