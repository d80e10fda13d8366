package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// byteSizePattern matches "[~]?<number><unit>" with an optional leading
// tilde (progress lines sometimes prefix an approximate size with one) and
// a unit. The unit match is case-sensitive; ParseByteSize normalizes the
// unit's case with matchUnitCase first.
var byteSizePattern = regexp.MustCompile(`^~?(\d+(?:\.\d+)?)\s*(B|KB|KiB|MB|MiB|GB|GiB|TB|TiB)$`)

var unitMultiplier = map[string]float64{
	"B":   1,
	"KB":  1000,
	"KiB": 1024,
	"MB":  1000 * 1000,
	"MiB": 1024 * 1024,
	"GB":  1000 * 1000 * 1000,
	"GiB": 1024 * 1024 * 1024,
	"TB":  1000 * 1000 * 1000 * 1000,
	"TiB": 1024 * 1024 * 1024 * 1024,
}

// unitOrder lists units from largest to smallest for FormatByteSize's
// greedy selection.
var unitOrder = []string{"TiB", "TB", "GiB", "GB", "MiB", "MB", "KiB", "KB", "B"}

// ParseByteSize parses a progress-line byte-size string per the grammar
// "[~]?<number><unit>". It is a total function: any malformed input
// returns (0, false) rather than an error, matching the streaming parser's
// need to skip unparseable fields without aborting the job.
func ParseByteSize(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	m := byteSizePattern.FindStringSubmatch(matchUnitCase(s))
	if m == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	mult, ok := unitMultiplier[m[2]]
	if !ok {
		return 0, false
	}

	return int64(value * mult), true
}

// matchUnitCase normalizes casing of the known unit suffixes so the
// pattern's unit alternation (which is case-sensitive for the "i") can
// match inputs like "1.2mib" or "1.2MIB" the same as "1.2MiB".
func matchUnitCase(s string) string {
	upper := strings.ToUpper(s)
	for _, canonical := range unitOrder {
		if strings.HasSuffix(upper, strings.ToUpper(canonical)) {
			prefixLen := len(s) - len(canonical)
			if prefixLen >= 0 {
				return s[:prefixLen] + canonical
			}
		}
	}
	return s
}

// FormatByteSize renders n using the same unit grammar ParseByteSize
// accepts, choosing decimal (1000-based) units and at most 3 significant
// digits so that FormatByteSize(n) round-trips through ParseByteSize as an
// identity for values representable with 3 significant digits.
func FormatByteSize(n int64) string {
	if n == 0 {
		return "0B"
	}

	value := float64(n)
	unit := "B"
	for _, candidate := range []string{"TB", "GB", "MB", "KB"} {
		if value/unitMultiplier[candidate] >= 1 {
			unit = candidate
			value /= unitMultiplier[candidate]
			break
		}
	}

	return fmt.Sprintf("%s%s", trimToSigFigs(value, 3), unit)
}

func trimToSigFigs(v float64, sig int) string {
	s := strconv.FormatFloat(v, 'g', sig, 64)
	return s
}

// LogBytes renders n as a human-friendly binary size for log lines
// (e.g. "1.2 MiB"). This is the one place the byte-size concern reaches
// for github.com/dustin/go-humanize rather than the hand-rolled grammar
// above — logging wants readability, not round-trip parseability.
func LogBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
