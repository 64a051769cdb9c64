// Package server is the command gateway: it accepts connections on a local
// Unix socket, frames newline-delimited JSON requests, and bridges each
// connection's blocking I/O to the graph-owner loop.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"homegate/gateway"
	"homegate/protocol"
)

// maxRequestBytes bounds a single request line. Anything larger is framing
// corruption, not a command.
const maxRequestBytes = 1 << 20

// Server accepts client connections and dispatches their commands to the
// Manager. One connection carries exactly one request.
type Server struct {
	mgr     *gateway.Manager
	ln      net.Listener
	path    string
	timeout time.Duration
	wg      sync.WaitGroup
}

// New listens on a Unix socket at path. A stale socket file from a previous
// run is removed first. timeout bounds each request's wait on the
// graph-owner loop; zero disables the bound.
func New(mgr *gateway.Manager, path string, timeout time.Duration) (*Server, error) {
	if err := removeStaleSocket(path); err != nil {
		return nil, err
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, err
	}
	return &Server{mgr: mgr, ln: ln, path: path, timeout: timeout}, nil
}

// removeStaleSocket deletes a leftover socket file, but refuses to delete a
// socket another gateway instance is still serving.
func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	conn, err := net.DialTimeout("unix", path, 250*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("socket %s is already in use", path)
	}
	return os.Remove(path)
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string { return s.path }

// Serve runs the accept loop until ctx is cancelled, then waits for
// in-flight connections to finish.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()
	slog.Info("command gateway listening", "socket", s.path)

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			slog.Warn("accept failed", "err", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}

	s.wg.Wait()
	os.Remove(s.path)
	return ctx.Err()
}

// handleConn serves one request: read to the first newline, dispatch, write
// the response, half-close, close. Malformed requests get an error
// response, never an abrupt disconnect.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	line, err := readLine(conn)
	if err != nil {
		// Framing corruption is the one case that aborts a connection
		// without a well-formed response being possible; still try.
		writeResponse(conn, protocol.Fail(fmt.Sprintf("reading request: %v", err)))
		return
	}

	var req protocol.Request
	if err := json.Unmarshal(line, &req); err != nil {
		writeResponse(conn, protocol.Fail(fmt.Sprintf("invalid request: %v", err)))
		return
	}

	writeResponse(conn, s.Dispatch(ctx, req))
}

func readLine(conn net.Conn) ([]byte, error) {
	r := bufio.NewReaderSize(io.LimitReader(conn, maxRequestBytes), 4096)
	line, err := r.ReadBytes('\n')
	if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
		return nil, err
	}
	return line, nil
}

func writeResponse(conn net.Conn, resp protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		data = []byte(`{"success":false,"error":"internal: encoding response"}`)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		slog.Debug("response write failed", "err", err)
		return
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		uc.CloseWrite()
	}
}
