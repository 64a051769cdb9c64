// Package client is a minimal Go client for the gateway's socket protocol:
// one connection per request, newline-delimited JSON.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
)

// Client talks to a gateway over its Unix socket.
type Client struct {
	socketPath string
}

// New creates a client for the gateway socket at path.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// SocketPath returns the socket path this client dials.
func (c *Client) SocketPath() string { return c.socketPath }

// CommandError is a {success:false} response from the gateway.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string { return e.Message }

type request struct {
	Command string `json:"command"`
	Args    any    `json:"args,omitempty"`
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Call sends one command and returns the raw data payload. Gateway-side
// failures return a *CommandError.
func (c *Client) Call(ctx context.Context, command string, args any) (json.RawMessage, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to gateway: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	payload, err := json.Marshal(request{Command: command, Args: args})
	if err != nil {
		return nil, err
	}
	payload = append(payload, '\n')
	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		uc.CloseWrite()
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	if !resp.Success {
		return nil, &CommandError{Message: resp.Error}
	}
	return resp.Data, nil
}

// CallInto sends one command and decodes the data payload into out.
func (c *Client) CallInto(ctx context.Context, command string, args, out any) error {
	data, err := c.Call(ctx, command, args)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
