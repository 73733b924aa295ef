package event

import "context"

type scopeKey struct{}

type sourceKey struct{}

// ScopeFrom returns the scope of the listener being invoked.
// It returns nil outside of a handler or for listeners registered without
// a scope.
func ScopeFrom(ctx context.Context) any {
	return ctx.Value(scopeKey{})
}

func withScope(ctx context.Context, scope any) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// WithSource annotates ctx so that events dispatched with it carry source in
// their metadata.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

func sourceFrom(ctx context.Context) string {
	s, _ := ctx.Value(sourceKey{}).(string)
	return s
}
