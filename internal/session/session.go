// Package session resolves the shopper identity that keys cart and wishlist
// persistence.
//
// REST clients send a Storefront-Session header (RFC 8941 dictionary):
//
//	Storefront-Session: sid="7f0c...", uid="42"
//
// sid identifies the browsing session and uid, when present, the signed-in
// user. Requests without the header are anonymous; the server mints a new
// sid and echoes it back so the client can keep its cart. MCP tools receive
// the same values as tool arguments.
package session

import (
	"context"

	"github.com/google/uuid"

	"storefront/internal/model"
)

// HeaderName carries the session identity on requests and responses.
const HeaderName = "Storefront-Session"

// Identity is who a request acts for.
type Identity struct {
	SessionID string
	UserID    string // empty when anonymous
}

// Anonymous reports whether no user is signed in.
func (id Identity) Anonymous() bool {
	return id.UserID == ""
}

// Owner is the persistence key for the identity's ledgers. Signed-in
// users keep one cart across sessions.
func (id Identity) Owner() string {
	if id.UserID != "" {
		return "user:" + id.UserID
	}
	return "anon:" + id.SessionID
}

// New mints an anonymous identity with a fresh session id.
func New() Identity {
	return Identity{SessionID: uuid.NewString()}
}

// Resolve builds an identity from explicit values, minting a session id
// when sessionID is empty. Used where there is no header, such as MCP
// tool calls.
func Resolve(sessionID, userID string) (Identity, error) {
	id := Identity{SessionID: sessionID, UserID: userID}
	if id.SessionID == "" {
		id.SessionID = uuid.NewString()
	}
	if err := id.validate(); err != nil {
		return Identity{}, model.NewValidationError("session", err.Error())
	}
	return id, nil
}

// contextKey is the type for context values to avoid collisions
type contextKey string

const identityKey contextKey = "storefront.session"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
