package payload

import "fmt"

const (
	kib uint64 = 1024
	mib uint64 = kib * 1024
	gib uint64 = mib * 1024
)

// humanBytes renders n using base-1024 units with two decimal digits,
// matching the property tests in spec §8 exactly: 0 -> "0 B", 1024 ->
// "1.00 KB", 1536 -> "1.50 KB", 1048576 -> "1.00 MB", 1073741824 ->
// "1.00 GB". This is deliberately hand-rolled rather than delegated to
// github.com/dustin/go-humanize: that package's IBytes rounds and
// labels differently (e.g. it would render exact powers of two without
// the fixed two-decimal mantissa this format requires), so it cannot
// serve the authoritative size_human field without breaking the tested
// format. go-humanize is still used for informational log lines in the
// CLI, where exact formatting isn't load-bearing.
func humanBytes(n uint64) string {
	switch {
	case n >= gib:
		return fmt.Sprintf("%.2f GB", float64(n)/float64(gib))
	case n >= mib:
		return fmt.Sprintf("%.2f MB", float64(n)/float64(mib))
	case n >= kib:
		return fmt.Sprintf("%.2f KB", float64(n)/float64(kib))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
