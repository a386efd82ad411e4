package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts session_id, record_id and source from context and adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if sessionID := GetSessionID(ctx); sessionID != "" {
		e.Str("session_id", sessionID)
	}

	if recordID := GetRecordID(ctx); recordID != "" {
		e.Str("record_id", recordID)
	}

	if source := GetSource(ctx); source != "" {
		e.Str("source", source)
	}
}
