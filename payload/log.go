package payload

import (
	"io"
	"log"
)

// Logger is the package-level logger used for local-recoverable
// conditions (spec §7 tier 1): a missing payload_properties.txt, an
// unsupported install-operation type, a partition without
// new_partition_info, a duplicate partition name. Unrecognized manifest
// fields are skipped by the decoder without being logged.
// It is silent by default so library use never writes to a host's
// stderr uninvited; callers such as the CLI redirect it with SetLogger.
var Logger = log.New(io.Discard, "payload: ", log.LstdFlags)

// SetLogger replaces the package logger. Passing nil restores the
// silent default.
func SetLogger(l *log.Logger) {
	if l == nil {
		Logger = log.New(io.Discard, "payload: ", log.LstdFlags)
		return
	}
	Logger = l
}
