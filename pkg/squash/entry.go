// entry.go defines the Squash notification document and assembles it from an error.

package squash

import "time"

// NoMessage is the message reported when neither the error nor the log
// message provides one.
const NoMessage = "No message"

// Entry is one Squash notification. JSON field names follow the Squash
// ingestion API and must not change.
type Entry struct {
	// Client identity

	Client      string `json:"client"`
	APIKey      string `json:"api_key"`
	Environment string `json:"environment"`

	// Revision is the source control revision (build SHA) of the running code.
	Revision string `json:"revision"`

	// Build is the numeric build or version code.
	Build int `json:"build"`

	// AppVersion is the human-readable application version.
	AppVersion string `json:"version"`

	DeviceID string `json:"device_id"`
	UserID   string `json:"user_id"`

	// OccurredAt is when the error was reported.
	OccurredAt time.Time `json:"occurred_at"`

	// Error details

	// LogMessage is the caller's description of what was happening.
	LogMessage string `json:"log_message,omitempty"`

	// Message is the error message, falling back to LogMessage, then NoMessage.
	Message string `json:"message"`

	// ClassName is the error's fully qualified type name. Empty when no error was given.
	ClassName string `json:"class_name,omitempty"`

	// Backtraces is nil when no error was given.
	Backtraces []ThreadBacktrace `json:"backtraces"`

	// Ivars holds the error's own fields. Nil when no error was given.
	Ivars map[string]any `json:"ivars"`

	// ParentExceptions lists the error's causes, outermost first. Never nil.
	ParentExceptions []NestedException `json:"parent_exceptions"`

	// UserData carries arbitrary additional context.
	UserData map[string]any `json:"user_data,omitempty"`

	// Delivery bookkeeping, not part of the document

	// Endpoint is the Squash notify URL the entry is meant for.
	Endpoint string `json:"-"`

	// EventID uniquely identifies the entry (UUID). Sinks use it for idempotency.
	EventID string `json:"-"`

	// Fingerprint groups entries with the same error shape.
	Fingerprint string `json:"-"`

	// ContextID optionally links the entry to a cxdb context.
	// Uses pointer to distinguish "not set" from "zero value".
	ContextID *uint64 `json:"-"`
}

// NewEntry builds an Entry for err using the client settings in cfg.
// err may be nil, in which case only the log message is reported.
func NewEntry(cfg ClientConfig, logMessage string, err error) Entry {
	return Entry{
		Client:           cfg.Client,
		APIKey:           cfg.APIKey,
		Environment:      cfg.Environment,
		Revision:         cfg.Revision,
		Build:            cfg.Build,
		AppVersion:       cfg.AppVersion,
		DeviceID:         cfg.DeviceID,
		UserID:           cfg.UserID,
		Endpoint:         cfg.Endpoint,
		LogMessage:       logMessage,
		Message:          entryMessage(logMessage, err),
		ClassName:        ClassName(err),
		Backtraces:       Backtraces(err),
		Ivars:            Ivars(err),
		ParentExceptions: NestedExceptions(err),
	}
}

func entryMessage(logMessage string, err error) string {
	if msg := Message(err); msg != nil {
		return *msg
	}
	if logMessage != "" {
		return logMessage
	}
	return NoMessage
}
