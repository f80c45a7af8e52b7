package ctxutil

import (
	"context"
	"strings"
)

type requestDataKey struct{}

// RequestData is the acting identity attached by the auth middleware.
type RequestData struct {
	UserID      string
	DisplayName string
	TokenString string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// ActorID returns the acting user id or "" when the request is anonymous.
func ActorID(ctx context.Context) string {
	rd := GetRequestData(ctx)
	if rd == nil {
		return ""
	}
	return strings.TrimSpace(rd.UserID)
}
