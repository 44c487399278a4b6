// scrubber.go implements fail-closed sensitive data redaction for Squash entries.

package squash

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	redacted           = "[REDACTED]"
	redactedScrubError = "[REDACTED:SCRUB_ERROR]"
	truncationMarker   = "...[TRUNCATED]"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitivePatterns contains additional regex patterns for sensitive ivar and user_data keys.
	SensitivePatterns []string

	// MaxMessageSize is the maximum length for messages (default: 4096).
	MaxMessageSize int

	// MaxFrames is the maximum number of frames kept per backtrace (default: 256).
	MaxFrames int

	// MaxValueSize is the maximum length of a single string value in ivars or user_data (default: 1024).
	MaxValueSize int

	// MaxFieldsSize is the maximum encoded size of an ivars or user_data map (default: 16384).
	MaxFieldsSize int

	// ScrubMessages enables scrubbing of messages and string values for secrets/PII (default: true).
	ScrubMessages bool

	// FailClosed enables fail-closed behavior: on any scrub error, fully redact (default: true).
	FailClosed bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize: 4096,
		MaxFrames:      256,
		MaxValueSize:   1024,
		MaxFieldsSize:  16384,
		ScrubMessages:  true,
		FailClosed:     true,
	}
}

// Compiled regex patterns for message scrubbing (compiled once at package init)
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`), // Authorization: Bearer <token>
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),                                // OpenAI-style keys (including sk-proj-)
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),                                  // GitHub tokens
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),                         // GitHub PAT
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),                        // Slack tokens
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), // JWT tokens

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)passwd[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)credential[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`), // Email
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                                 // SSN
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),           // Credit card
}

// Sensitive key patterns (case-insensitive substring match)
var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
}

// Home and temp directories in frame file paths
var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^/home/[^/]+/`),
	regexp.MustCompile(`^/Users/[^/]+/`),
	regexp.MustCompile(`^C:\\Users\\[^\\]+\\`),
	regexp.MustCompile(`^/tmp/[^/]+/`),
}

// Scrubber redacts sensitive data from Squash entries.
type Scrubber struct {
	cfg      ScrubberConfig
	keys     []*regexp.Regexp
	badRegex bool
}

// NewScrubber creates a new scrubber with the given configuration.
// With FailClosed set, an invalid SensitivePatterns entry makes every key sensitive.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	s := &Scrubber{cfg: cfg}
	for _, p := range cfg.SensitivePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			s.badRegex = true
			continue
		}
		s.keys = append(s.keys, re)
	}
	return s
}

// ScrubEntry returns a copy of entry with messages, ivars, user_data and
// frame paths scrubbed, including those of every parent exception.
func (s *Scrubber) ScrubEntry(entry Entry) Entry {
	entry.Message = s.ScrubMessage(entry.Message)
	entry.LogMessage = s.ScrubMessage(entry.LogMessage)
	entry.Backtraces = s.ScrubBacktraces(entry.Backtraces)
	entry.Ivars = s.ScrubFields(entry.Ivars)
	entry.UserData = s.ScrubFields(entry.UserData)

	if entry.ParentExceptions != nil {
		nested := make([]NestedException, len(entry.ParentExceptions))
		for i, ne := range entry.ParentExceptions {
			if ne.Message != nil {
				msg := s.ScrubMessage(*ne.Message)
				ne.Message = &msg
			}
			ne.Backtraces = s.ScrubBacktraces(ne.Backtraces)
			ne.Ivars = s.ScrubFields(ne.Ivars)
			nested[i] = ne
		}
		entry.ParentExceptions = nested
	}
	return entry
}

// ScrubMessage scrubs sensitive patterns from a message.
func (s *Scrubber) ScrubMessage(msg string) string {
	if !s.cfg.ScrubMessages || msg == "" {
		return msg
	}

	// Truncate if too large first
	if s.cfg.MaxMessageSize > 0 && len(msg) > s.cfg.MaxMessageSize {
		msg = truncateWithMarker(msg, s.cfg.MaxMessageSize)
	}

	result := msg
	for _, pattern := range messageScrubPatterns {
		result = pattern.ReplaceAllString(result, redacted)
	}
	return result
}

// ScrubBacktraces normalizes user-specific directories in frame files and
// caps the number of frames per backtrace. The input is not modified.
func (s *Scrubber) ScrubBacktraces(backtraces []ThreadBacktrace) []ThreadBacktrace {
	if backtraces == nil {
		return nil
	}

	result := make([]ThreadBacktrace, len(backtraces))
	for i, bt := range backtraces {
		frames := bt.Backtrace
		if s.cfg.MaxFrames > 0 && len(frames) > s.cfg.MaxFrames {
			frames = frames[:s.cfg.MaxFrames]
		}
		if frames != nil {
			scrubbed := make([]StackFrame, len(frames))
			for j, fr := range frames {
				if fr.File != nil {
					file := normalizePath(*fr.File)
					fr.File = &file
				}
				scrubbed[j] = fr
			}
			frames = scrubbed
		}
		bt.Backtrace = frames
		result[i] = bt
	}
	return result
}

// ScrubFields redacts values under sensitive keys, scrubs string values as
// messages and truncates long strings, at any nesting depth. Values are
// normalized through their JSON form. On an encoding error every value is
// replaced with "[REDACTED:SCRUB_ERROR]" when FailClosed is set.
func (s *Scrubber) ScrubFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}

	normalized, err := normalizeFields(fields)
	if err != nil {
		if s.cfg.FailClosed {
			return redactAll(fields, redactedScrubError)
		}
		return fields
	}

	result := s.scrubJSONMap(normalized)
	if s.cfg.MaxFieldsSize > 0 {
		if encoded, err := json.Marshal(result); err != nil || len(encoded) > s.cfg.MaxFieldsSize {
			return redactAll(result, "[REDACTED:SIZE_LIMIT]")
		}
	}
	return result
}

// scrubJSONValue recursively scrubs a JSON value (map, array, or primitive).
func (s *Scrubber) scrubJSONValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return s.scrubJSONMap(v)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = s.scrubJSONValue(item)
		}
		return result
	case string:
		str := s.ScrubMessage(v)
		if s.cfg.MaxValueSize > 0 && len(str) > s.cfg.MaxValueSize {
			str = truncateWithMarker(str, s.cfg.MaxValueSize)
		}
		return str
	default:
		return v // Numbers, booleans, null pass through
	}
}

// scrubJSONMap scrubs a JSON object, redacting whole values under sensitive keys.
func (s *Scrubber) scrubJSONMap(m map[string]any) map[string]any {
	result := make(map[string]any, len(m))
	for key, value := range m {
		if s.isSensitiveKey(key) {
			result[key] = redacted
		} else {
			result[key] = s.scrubJSONValue(value)
		}
	}
	return result
}

// isSensitiveKey checks if a key matches sensitive patterns.
func (s *Scrubber) isSensitiveKey(key string) bool {
	if s.badRegex && s.cfg.FailClosed {
		return true
	}
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	for _, re := range s.keys {
		if re.MatchString(key) {
			return true
		}
	}
	return false
}

// normalizeFields converts fields into plain JSON values (maps, slices,
// strings, json.Number, bool, nil).
func normalizeFields(fields map[string]any) (map[string]any, error) {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var normalized map[string]any
	if err := decodeJSON(encoded, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// decodeJSON decodes data keeping numbers as json.Number.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func redactAll(fields map[string]any, placeholder string) map[string]any {
	result := make(map[string]any, len(fields))
	for key := range fields {
		result[key] = placeholder
	}
	return result
}

func normalizePath(path string) string {
	for _, pattern := range pathNormalizationPatterns {
		path = pattern.ReplaceAllString(path, "/[PATH]/")
	}
	return path
}

// truncateWithMarker truncates a string on a rune boundary and adds a truncation marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= len(truncationMarker) {
		return truncationMarker[:maxLen]
	}
	n := maxLen - len(truncationMarker)
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + truncationMarker
}
