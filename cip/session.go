package cip

import (
	"context"
	"fmt"
)

type sessionOpenResponse struct {
	JSessionID string `json:"jsessionid"`
}

// Open logs in and stores the session token. Every later call carries it.
func (c *Client) Open(ctx context.Context, username, password string) error {
	if username == "" {
		return preconditionf(opSessionOpen, "username is required")
	}

	resp, err := c.Call(ctx, Operation{"session", "open"}, Params{
		"user":     username,
		"password": password,
	}, nil)
	if err != nil {
		return err
	}

	if resp.Empty() {
		return &AuthError{Reason: "jsessionid is missing from the response: empty body"}
	}

	var payload sessionOpenResponse
	if err := resp.Decode(&payload); err != nil {
		return &AuthError{Reason: fmt.Sprintf("jsessionid is missing from the response: %v", err)}
	}
	if payload.JSessionID == "" {
		return &AuthError{Reason: "jsessionid is missing from the response"}
	}

	c.mu.Lock()
	c.token = payload.JSessionID
	c.mu.Unlock()

	c.logger.Debug().Str("user", username).Msg("CIP session opened")
	return nil
}

// Close ends the session. It is best effort: the local token is dropped as
// soon as the close call returns, whatever its outcome, so the client is
// disconnected even when an error is returned. The error only reports that
// the server may keep the session until it expires; callers that are
// shutting down may ignore it.
func (c *Client) Close(ctx context.Context) error {
	const op = "session/close"
	if err := c.requireSession(op); err != nil {
		return err
	}

	_, err := c.Call(ctx, Op(op), nil, nil)

	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	if err != nil {
		c.logger.Debug().Err(err).Msg("CIP session close failed, token dropped")
		return fmt.Errorf("failed to close session: %w", err)
	}

	c.logger.Debug().Msg("CIP session closed")
	return nil
}

// IsConnected reports whether a session token is held. It does not ask the server.
func (c *Client) IsConnected() bool {
	return c.Token() != ""
}

// Token returns the current session token, or "" when disconnected
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}
