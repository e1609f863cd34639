package domain

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// hourRe and minuteRe match the two duration components of a wait
	// expression, e.g. "2 hr 22 min" -> hours=2, minutes=22. "1 hr or less"
	// carries only an hour component and means exactly one hour.
	hourRe   = regexp.MustCompile(`(\d+)\s*hr`)
	minuteRe = regexp.MustCompile(`(\d+)\s*min`)
)

// unavailableMarker is the sentinel hospitals publish when no estimate is
// posted. Matched as a substring, case-insensitively.
const unavailableMarker = "not available"

// Plausibility bounds for duration components. Values beyond these still
// parse but mark the result suspect (§ quality flag, not a rejection): a
// 60-hour wait is almost certainly a feed glitch, but dropping it would hide
// the glitch from downstream quality checks.
const (
	maxPlausibleHours   = 48
	maxPlausibleMinutes = 59
)

// ParsedWait is the outcome of parsing one wait-time string: either an
// available duration in minutes or an explicit unavailable marker. The fields
// are unexported so available ⟺ minutes-present holds by construction.
type ParsedWait struct {
	minutes   float64
	available bool
	suspect   bool
}

// AvailableWait returns a ParsedWait carrying a concrete duration.
func AvailableWait(minutes float64) ParsedWait {
	return ParsedWait{minutes: minutes, available: true}
}

// UnavailableWait returns the explicit no-data marker.
func UnavailableWait() ParsedWait {
	return ParsedWait{}
}

// Available reports whether a duration was published.
func (w ParsedWait) Available() bool { return w.available }

// Minutes returns the parsed duration. The bool is false when the wait is
// unavailable, in which case the value is meaningless.
func (w ParsedWait) Minutes() (float64, bool) { return w.minutes, w.available }

// Suspect reports whether a component fell outside plausible bounds.
func (w ParsedWait) Suspect() bool { return w.suspect }

// ParseWaitTime converts free-form wait-time text into a ParsedWait.
// Shapes are tried in priority order: unavailable marker, range, single
// duration. Text matching none of them yields a ParseError carrying the
// original string; zero minutes is never used as a fallback.
func ParseWaitTime(text string) (ParsedWait, error) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return ParsedWait{}, &ParseError{Text: text}
	}

	if strings.Contains(lowered, unavailableMarker) {
		return UnavailableWait(), nil
	}

	// Range form "<low> to <high>". Some feeds omit the space after "to"
	// ("2 hr 44 min to4 hr 25 min"), so normalize before splitting.
	if idx := rangeSplitIndex(lowered); idx >= 0 {
		low, errLow := extractMinutes(lowered[:idx])
		high, errHigh := extractMinutes(lowered[idx+2:])
		if errLow != nil || errHigh != nil {
			return ParsedWait{}, &ParseError{Text: text}
		}
		mean := math.Round((low.minutes+high.minutes)/2*10) / 10
		w := AvailableWait(mean)
		w.suspect = low.suspect || high.suspect
		return w, nil
	}

	w, err := extractMinutes(lowered)
	if err != nil {
		return ParsedWait{}, &ParseError{Text: text}
	}
	return w, nil
}

// rangeSplitIndex locates the "to" separating a range's bounds, or -1 when
// the text is not a range. The token must follow a space so duration words
// containing "to" elsewhere never split.
func rangeSplitIndex(text string) int {
	idx := strings.Index(text, " to")
	if idx < 0 {
		return -1
	}
	return idx + 1
}

// extractMinutes parses one duration expression ("2 hr 12 min", "45 min",
// "1 hr or less") into total minutes. At least one component must match.
func extractMinutes(expr string) (ParsedWait, error) {
	var hours, minutes int
	var matched, suspect bool

	if m := hourRe.FindStringSubmatch(expr); m != nil {
		hours, _ = strconv.Atoi(m[1])
		matched = true
		if hours > maxPlausibleHours {
			suspect = true
		}
	}
	if m := minuteRe.FindStringSubmatch(expr); m != nil {
		minutes, _ = strconv.Atoi(m[1])
		matched = true
		if minutes > maxPlausibleMinutes {
			suspect = true
		}
	}
	if !matched {
		return ParsedWait{}, &ParseError{Text: expr}
	}

	w := AvailableWait(float64(hours*60 + minutes))
	w.suspect = suspect
	return w, nil
}
