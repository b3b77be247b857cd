// Package boundary is the thin adapter an FFI host (JNI, a CLI, a test
// harness) calls across. Both entry points take and return plain
// strings and a JSON payload; neither ever panics or returns a
// non-JSON string, regardless of what goes wrong inside the core (spec
// §4.6, §7, §9).
package boundary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Gustyx-Power/PayloadPack/payload"
)

// ProgressFunc mirrors payload.ProgressFunc at the boundary: the host
// supplies this to observe extraction progress. It is invoked
// synchronously on the extraction call's goroutine.
type ProgressFunc = payload.ProgressFunc

// Inspect parses a payload file and returns its inspection as a JSON
// string, or a JSON error object on failure. It never panics.
func Inspect(path string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = errorJSON(fmt.Sprintf("internal error: %v", r))
		}
	}()

	inspection, err := payload.Inspect(path)
	if err != nil {
		return errorJSON(err.Error())
	}

	out, err := json.Marshal(inspection)
	if err != nil {
		return errorJSON(fmt.Sprintf("failed to encode inspection: %v", err))
	}
	return string(out)
}

// Extract extracts every partition in path into outputDir and returns
// the result as a JSON string, or a JSON error object on failure. It
// never panics: an internal fault during extraction is caught and
// reported the same way a typed error would be.
func Extract(path, outputDir string, progress ProgressFunc) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = statusErrorJSON(fmt.Sprintf("internal error: %v", r))
		}
	}()

	res, err := payload.Extract(path, outputDir, progress)
	if err != nil {
		return statusErrorJSON(err.Error())
	}

	out, err := json.Marshal(res)
	if err != nil {
		return statusErrorJSON(fmt.Sprintf("failed to encode result: %v", err))
	}
	return string(out)
}

// sanitize guarantees a message can be embedded between double quotes
// in hand-built JSON without breaking the encoding: embedded double
// quotes are substituted with single quotes (spec §4.5) rather than
// escaped, so this path never needs to also worry about backslash
// escaping order.
func sanitize(msg string) string {
	return strings.ReplaceAll(msg, `"`, "'")
}

func errorJSON(msg string) string {
	return fmt.Sprintf(`{"error": %q}`, sanitize(msg))
}

func statusErrorJSON(msg string) string {
	return fmt.Sprintf(`{"status": "error", "message": %q}`, sanitize(msg))
}
