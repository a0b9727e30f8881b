package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/isdelr/hackernews-be/internal/apperr"
	"github.com/isdelr/hackernews-be/internal/resolvers"
	ws "github.com/isdelr/hackernews-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades subscription requests and streams their results.
type WebSocketHandler struct {
	resolver *resolvers.Resolver
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Only the listed
// origins may open a subscription from a browser; "*" allows any.
func NewWebSocketHandler(resolver *resolvers.Resolver, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		resolver: resolver,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients send no Origin.
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// NewLink serves the newLink subscription. The connection stays open until
// the client goes away or the event channel ends the stream.
func (h *WebSocketHandler) NewLink(w http.ResponseWriter, r *http.Request) {
	rc, err := requestContext(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := ws.NewClient(conn)
	stream := h.resolver.NewLink(ctx, rc)

	go client.WritePump()
	go func() {
		client.ReadPump()
		cancel()
	}()

	log.Info().Str("remote_addr", r.RemoteAddr).Msg("Client subscribed to new links")
	if !h.forward(ctx, stream, client) {
		// The event channel dropped us; tell the client before closing.
		select {
		case client.Send <- ws.NewErrorMessage(string(apperr.DataUnavailable), "subscription ended"):
		default:
		}
	}
	close(client.Send)
	log.Info().Str("remote_addr", r.RemoteAddr).Msg("Client unsubscribed from new links")
}

// forward reports whether the stream ended because the client went away.
func (h *WebSocketHandler) forward(ctx context.Context, stream <-chan resolvers.LinkPayload, client *ws.Client) bool {
	for {
		select {
		case link, ok := <-stream:
			if !ok {
				return ctx.Err() != nil
			}
			select {
			case client.Send <- ws.Message{Type: ws.TypeNewLink, Payload: link}:
			case <-ctx.Done():
				return true
			}
		case <-ctx.Done():
			return true
		}
	}
}
