package logging

import "context"

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	recordIDKey  contextKey = "record_id"
	sourceKey    contextKey = "source"
)

// WithSessionID adds a session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithRecordID adds a tracking record ID to the context.
func WithRecordID(ctx context.Context, recordID string) context.Context {
	return context.WithValue(ctx, recordIDKey, recordID)
}

// GetSessionID retrieves the session ID from the context.
// Returns empty string if not present.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRecordID retrieves the tracking record ID from the context.
// Returns empty string if not present.
func GetRecordID(ctx context.Context) string {
	if id, ok := ctx.Value(recordIDKey).(string); ok {
		return id
	}
	return ""
}

// WithSource adds a work item source key (e.g. "task:P-003/T-1") to the context.
func WithSource(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sourceKey, key)
}

// GetSource retrieves the source key from the context.
func GetSource(ctx context.Context) string {
	key, _ := ctx.Value(sourceKey).(string)
	return key
}
