package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"homegate/protocol"
)

// WebSocketBridge serves the same request/response protocol over WebSocket,
// for clients that cannot open a local socket. One request message yields
// one response message; the connection stays open between requests.
type WebSocketBridge struct {
	srv      *Server
	http     *http.Server
	upgrader websocket.Upgrader
}

// NewWebSocketBridge creates a bridge on addr, dispatching through srv.
func NewWebSocketBridge(srv *Server, addr string) *WebSocketBridge {
	b := &WebSocketBridge{
		srv: srv,
		upgrader: websocket.Upgrader{
			// Local bridge; the gateway has no origin policy of its own.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWebSocket)
	b.http = &http.Server{Addr: addr, Handler: mux}
	return b
}

// Start runs the HTTP listener until ctx is cancelled.
func (b *WebSocketBridge) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		b.http.Shutdown(shutdownCtx)
	}()
	slog.Info("websocket bridge listening", "addr", b.http.Addr)
	if err := b.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("websocket bridge: %w", err)
	}
	return nil
}

func (b *WebSocketBridge) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req protocol.Request
		var resp protocol.Response
		if err := json.Unmarshal(data, &req); err != nil {
			resp = protocol.Fail(fmt.Sprintf("invalid request: %v", err))
		} else {
			resp = b.srv.Dispatch(r.Context(), req)
		}

		out, err := json.Marshal(resp)
		if err != nil {
			out = []byte(`{"success":false,"error":"internal: encoding response"}`)
		}
		writeMu.Lock()
		err = conn.WriteMessage(websocket.TextMessage, out)
		writeMu.Unlock()
		if err != nil {
			return
		}
	}
}
