package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/user"
)

func TestRollbarLogger(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	logger := NewRollbarLogger(zap.New(obs), core.NewTestConfig())

	usr := user.User{ID: "42", Username: "jdoe"}
	err := errors.New("boom")
	logger.Error("saving member", err, map[string]interface{}{"member_id": "m1"}, usr, user.User{ID: "ignored"})
	logger.Info("started")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "saving member", entries[0].Message)
		ctx := entries[0].ContextMap()
		assert.Equal(t, "boom", ctx["error"])
		assert.Equal(t, "m1", ctx["member_id"])
		assert.Equal(t, "42", ctx["user_id"])
		assert.Empty(t, entries[1].Context)
	}
}
