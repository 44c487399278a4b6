// fingerprint.go generates stable hashes for grouping similar entries.

package squash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintFrames is the number of leading frames that identify an error site.
const fingerprintFrames = 3

// Fingerprint generates a hash for grouping similar entries.
// The fingerprint is based on:
//   - the error's class name (or the log message when no error was given)
//   - the first 3 frames of the faulted backtrace, as class_name.symbol
//   - the class names of the parent exceptions
//
// It ignores variable data like timestamps, event IDs, messages,
// line numbers, file paths and user data.
func Fingerprint(entry Entry) string {
	var parts []string
	if entry.ClassName != "" {
		parts = append(parts, entry.ClassName)
	} else {
		parts = append(parts, entry.LogMessage)
	}

	parts = append(parts, frameKeys(entry.Backtraces)...)

	for _, ne := range entry.ParentExceptions {
		parts = append(parts, ne.ClassName)
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))

	// Return hex-encoded first 16 bytes (32 hex chars)
	return hex.EncodeToString(hash[:16])
}

// frameKeys names the leading frames of the first faulted backtrace.
func frameKeys(backtraces []ThreadBacktrace) []string {
	for _, bt := range backtraces {
		if !bt.Faulted {
			continue
		}
		var keys []string
		for _, fr := range bt.Backtrace {
			keys = append(keys, fr.ClassName+"."+fr.Symbol)
			if len(keys) == fingerprintFrames {
				break
			}
		}
		return keys
	}
	return nil
}
