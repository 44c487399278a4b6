// context.go propagates run IDs, cxdb context IDs and the reporting user and
// device through context.Context.

package squash

import "context"

// Context key types (unexported to avoid collisions)
type runIDKey struct{}
type contextIDKey struct{}
type userIDKey struct{}
type deviceIDKey struct{}

// contextIDSet is used to distinguish "zero value" from "not set"
type contextIDSet struct {
	id uint64
}

// WithRunID returns a context with the run ID attached.
// The run ID is used to correlate hook enrichment with runner-boundary errors.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext extracts the run ID from context.
// Returns empty string and false if not set or if the run ID is empty.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, runIDKey{})
}

// WithContextID returns a context with the cxdb context ID attached.
// Entries recorded with this context are linked to that conversation.
func WithContextID(ctx context.Context, contextID uint64) context.Context {
	return context.WithValue(ctx, contextIDKey{}, contextIDSet{id: contextID})
}

// ContextIDFromContext extracts the cxdb context ID from context.
// Returns 0 and false if not set.
func ContextIDFromContext(ctx context.Context) (uint64, bool) {
	set, ok := ctx.Value(contextIDKey{}).(contextIDSet)
	if !ok {
		return 0, false
	}
	return set.id, true
}

// WithUserID returns a context carrying the user on whose behalf work is done.
// It overrides ClientConfig.UserID for entries recorded with this context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext extracts the user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, userIDKey{})
}

// WithDeviceID returns a context carrying the device the work runs for.
// It overrides ClientConfig.DeviceID for entries recorded with this context.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey{}, deviceID)
}

// DeviceIDFromContext extracts the device ID from context.
func DeviceIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, deviceIDKey{})
}

func stringFromContext(ctx context.Context, key any) (string, bool) {
	s, ok := ctx.Value(key).(string)
	return s, ok && s != ""
}

// ContextIDProvider is an optional interface that session implementations can
// satisfy to enable automatic context linkage for entries.
//
// The ai-agents-sdk CXDBSession already implements this interface via its
// ContextID() method.
type ContextIDProvider interface {
	ContextID(ctx context.Context) (uint64, error)
}
