package resolvers

import (
	"context"

	"github.com/isdelr/hackernews-be/internal/auth"
	"github.com/isdelr/hackernews-be/internal/services"
	"github.com/isdelr/hackernews-be/internal/websocket"
)

// DataAccess groups the store facades a resolver may call.
type DataAccess struct {
	Links services.LinkServiceProvider
	Users services.UserServiceProvider
	Votes services.VoteServiceProvider
}

// EventChannel is the publish/subscribe bus used for live updates.
type EventChannel interface {
	Publish(topic string, payload interface{})
	Subscribe(ctx context.Context, topic string) *websocket.Subscription
}

// RequestContext is built once per request by the gateway and handed,
// unmodified, to the operation the request names.
type RequestContext struct {
	Identity auth.Identity
	Data     DataAccess
	Events   EventChannel
}

type contextKey string

const requestContextKey = contextKey("requestContext")

// WithRequestContext stores rc in ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// FromContext returns the RequestContext stored by WithRequestContext.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey).(*RequestContext)
	return rc, ok
}
