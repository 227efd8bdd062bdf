package api

import "context"

// Principal is the authenticated caller.
type Principal struct {
	UserID  int64
	Login   string
	Name    string
	IsAdmin bool
	// Method is "api_key" or "session".
	Method string
	// KeyID is set when the caller authenticated with an API key.
	KeyID int64
}

type ctxKey string

const (
	ctxKeyPrincipal     ctxKey = "principal"
	ctxKeyPrincipalSlot ctxKey = "principal_slot"
)

// principalSlot lets a middleware wrapping RequireAuth see who was
// authenticated further down the chain.
type principalSlot struct {
	p *Principal
}

func withPrincipalSlot(ctx context.Context) (context.Context, *principalSlot) {
	s := &principalSlot{}
	return context.WithValue(ctx, ctxKeyPrincipalSlot, s), s
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	if s, ok := ctx.Value(ctxKeyPrincipalSlot).(*principalSlot); ok {
		s.p = p
	}
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

func PrincipalFromContext(ctx context.Context) *Principal {
	v := ctx.Value(ctxKeyPrincipal)
	if v == nil {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}
