package squash

import (
	"encoding/json"
	"testing"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentError has no message of its own.
type silentError struct {
	Attempt int
}

func (e *silentError) Error() string {
	return ""
}

func testClientConfig() ClientConfig {
	return ClientConfig{
		Client:      "go",
		APIKey:      "api-key",
		Endpoint:    "https://squash.example.com/api/1.0/notify",
		AppVersion:  "1.0.0",
		Build:       42,
		Revision:    "6d3f0a1",
		DeviceID:    "device-id",
		UserID:      "user-id",
		Environment: "test",
	}
}

func roundTrip(t *testing.T, entry Entry) (Entry, []byte) {
	t.Helper()
	encoded, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded Entry
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	return decoded, encoded
}

func TestNewEntry_ClientSettings(t *testing.T) {
	cfg := testClientConfig()
	entry := NewEntry(cfg, "log", pkgerrors.New("boom"))

	assert.Equal(t, cfg.Client, entry.Client)
	assert.Equal(t, cfg.APIKey, entry.APIKey)
	assert.Equal(t, cfg.Endpoint, entry.Endpoint)
	assert.Equal(t, cfg.AppVersion, entry.AppVersion)
	assert.Equal(t, cfg.Build, entry.Build)
	assert.Equal(t, cfg.Revision, entry.Revision)
	assert.Equal(t, cfg.DeviceID, entry.DeviceID)
	assert.Equal(t, cfg.UserID, entry.UserID)
	assert.Equal(t, cfg.Environment, entry.Environment)
}

func TestNewEntry_RoundTrip(t *testing.T) {
	err := pkgerrors.Wrap(pkgerrors.New("connection reset"), "sync failed")
	entry := NewEntry(testClientConfig(), "syncing", err)
	entry.OccurredAt = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	entry.UserData = map[string]any{"request_id": "req-7"}

	decoded, encoded := roundTrip(t, entry)

	assert.Equal(t, "syncing", decoded.LogMessage)
	assert.Equal(t, "sync failed: connection reset", decoded.Message)
	assert.Equal(t, entry.ClassName, decoded.ClassName)
	assert.Equal(t, entry.Backtraces, decoded.Backtraces)
	assert.Equal(t, entry.Ivars, decoded.Ivars)
	assert.Equal(t, entry.ParentExceptions, decoded.ParentExceptions)
	assert.Equal(t, entry.UserData, decoded.UserData)
	assert.Len(t, decoded.ParentExceptions, 2)
	assert.True(t, entry.OccurredAt.Equal(decoded.OccurredAt))

	reencoded, marshalErr := json.Marshal(decoded)
	require.NoError(t, marshalErr)
	assert.JSONEq(t, string(encoded), string(reencoded))
}

func TestNewEntry_MessageFallsBackToLogMessage(t *testing.T) {
	entry := NewEntry(testClientConfig(), "Jake can't program", &silentError{})
	decoded, _ := roundTrip(t, entry)

	assert.Equal(t, "Jake can't program", decoded.Message)
	assert.Equal(t, "Jake can't program", decoded.LogMessage)
	assert.Equal(t, map[string]any{"Attempt": float64(0)}, decoded.Ivars)
}

func TestNewEntry_NoMessage(t *testing.T) {
	entry := NewEntry(testClientConfig(), "", &silentError{})
	decoded, _ := roundTrip(t, entry)

	assert.Equal(t, NoMessage, decoded.Message)
	assert.Equal(t, "No message", decoded.Message)
	assert.Empty(t, decoded.LogMessage)
}

func TestNewEntry_WithoutError(t *testing.T) {
	entry := NewEntry(testClientConfig(), "cache rebuilt", nil)

	assert.Equal(t, "cache rebuilt", entry.Message)
	assert.Empty(t, entry.ClassName)
	assert.Nil(t, entry.Backtraces)
	assert.Nil(t, entry.Ivars)
	assert.NotNil(t, entry.ParentExceptions)
	assert.Empty(t, entry.ParentExceptions)

	_, encoded := roundTrip(t, entry)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(encoded, &raw))
	assert.NotContains(t, raw, "class_name")
	assert.Nil(t, raw["backtraces"])
	assert.Nil(t, raw["ivars"])
	assert.Equal(t, []any{}, raw["parent_exceptions"])
}

func TestEntry_WireKeys(t *testing.T) {
	entry := NewEntry(testClientConfig(), "log", pkgerrors.New("boom"))
	entry.EventID = "evt-1"
	entry.Fingerprint = "fp"
	contextID := uint64(9)
	entry.ContextID = &contextID

	encoded, err := json.Marshal(entry)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(encoded, &raw))

	for _, key := range []string{
		"client", "api_key", "environment", "revision", "build", "version",
		"device_id", "user_id", "occurred_at", "log_message", "message",
		"class_name", "backtraces", "ivars", "parent_exceptions",
	} {
		assert.Contains(t, raw, key)
	}
	for _, key := range []string{"Endpoint", "EventID", "Fingerprint", "ContextID", "user_data"} {
		assert.NotContains(t, raw, key)
	}

	frame := raw["backtraces"].([]any)[0].(map[string]any)["backtrace"].([]any)[0].(map[string]any)
	assert.Equal(t, "obfuscated", frame["type"])
	for _, key := range []string{"file", "line", "symbol", "class_name"} {
		assert.Contains(t, frame, key)
	}
}
