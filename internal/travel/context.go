package travel

import "context"

type contextKey string

const sessionIDKey contextKey = "monitorSessionID"

func NewContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)

	return id, ok
}

func sessionLabel(ctx context.Context) string {
	if id, ok := SessionIDFromContext(ctx); ok && id != "" {
		return id
	}

	return "-"
}
