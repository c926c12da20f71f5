package context

import "context"

type ContextKey string

var (
	RequestIDKey = ContextKey("X-Request-Id")
	RunIDKey     = ContextKey("X-Run-Id")
	RecordIDKey  = ContextKey("X-Record-Id")
	SourceKey    = ContextKey("X-Source")
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, ok := ctx.Value(RequestIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

func GetRunID(ctx context.Context) string {
	value, ok := ctx.Value(RunIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRecordID(ctx context.Context, recordID string) context.Context {
	return context.WithValue(ctx, RecordIDKey, recordID)
}

func GetRecordID(ctx context.Context) string {
	value, ok := ctx.Value(RecordIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

func GetSource(ctx context.Context) string {
	value, ok := ctx.Value(SourceKey).(string)
	if !ok {
		return ""
	}
	return value
}

// LogFields returns the run-scoped values stored on ctx as logger fields.
func LogFields(ctx context.Context) map[string]any {
	fields := map[string]any{}
	if v := GetRunID(ctx); v != "" {
		fields["run_id"] = v
	}
	if v := GetRecordID(ctx); v != "" {
		fields["record_id"] = v
	}
	if v := GetRequestID(ctx); v != "" {
		fields["request_id"] = v
	}
	if v := GetSource(ctx); v != "" {
		fields["source"] = v
	}
	return fields
}
