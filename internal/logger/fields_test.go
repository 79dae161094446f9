package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  provider  ", Value: "  Gemini  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	require.Len(t, fields, 1)
	assert.Equal(t, "provider", fields[0].Key)
	assert.Equal(t, "Gemini", fields[0].String)

	assert.Empty(t, StringFields())
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithFields(zap.New(core), zap.String("foo", "bar")).Info("test log")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "bar", entries[0].ContextMap()["foo"])

	fallback := WithFields(nil, zap.String("baz", "qux"))
	require.NotNil(t, fallback)
	fallback.Info("another log")
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithCommonFields(zap.New(core), "gemini", "model-x").Info("test log")
	WithCommonFields(zap.New(core), "gemini", "  ").Info("no model")

	entries := observed.All()
	require.Len(t, entries, 2)

	assert.Equal(t, map[string]any{FieldProvider: "gemini", FieldModel: "model-x"}, entries[0].ContextMap())
	assert.Equal(t, map[string]any{FieldProvider: "gemini"}, entries[1].ContextMap())
}

func TestWithResume(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	base := WithRun(zap.New(core), "run-1")

	WithResume(base, "alice", "Backend_Engineer", 2).Info("versioned")
	WithResume(base, "bob", "", 0).Info("bare")

	entries := observed.All()
	require.Len(t, entries, 2)

	assert.Equal(t, map[string]any{
		FieldRunID:    "run-1",
		FieldResume:   "alice",
		FieldJobTitle: "Backend_Engineer",
		FieldVersion:  int64(2),
	}, entries[0].ContextMap())
	assert.Equal(t, map[string]any{FieldRunID: "run-1", FieldResume: "bob"}, entries[1].ContextMap())
}
