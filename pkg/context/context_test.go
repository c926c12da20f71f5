package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogFields(t *testing.T) {
	t.Run("empty context has no fields", func(t *testing.T) {
		assert.Empty(t, LogFields(context.Background()))
	})

	t.Run("run and record ids are exported", func(t *testing.T) {
		ctx := SetRunID(context.Background(), "run-1")
		ctx = SetRecordID(ctx, "DESC_3")
		ctx = SetSource(ctx, "descriptions.csv")

		fields := LogFields(ctx)
		assert.Equal(t, "run-1", fields["run_id"])
		assert.Equal(t, "DESC_3", fields["record_id"])
		assert.Equal(t, "descriptions.csv", fields["source"])
		assert.NotContains(t, fields, "request_id")
	})

	t.Run("getters tolerate missing values", func(t *testing.T) {
		assert.Equal(t, "", GetRequestID(context.Background()))
		assert.Equal(t, "req", GetRequestID(SetRequestID(context.Background(), "req")))
	})
}
