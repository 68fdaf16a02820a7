package domain

import (
	"regexp"
	"strconv"
	"strings"
)

const MaxRefNoLength = 50

var refNoPattern = regexp.MustCompile(`^[A-Za-z0-9\-_/]+$`)

// ValidateFormat checks a reference number against the accepted character set and length.
func ValidateFormat(refNo string) error {
	if refNo == "" || len(refNo) > MaxRefNoLength || !refNoPattern.MatchString(refNo) {
		return ErrInvalidFormat
	}
	return nil
}

// SuggestNext increments the trailing decimal run of last.
// Zero padding is kept when the incremented value still fits the original width;
// otherwise the wider value is used as is. The prefix is preserved verbatim.
// It returns false when last has no trailing digits.
func SuggestNext(last string) (string, bool) {
	end := len(last)
	start := end
	for start > 0 && last[start-1] >= '0' && last[start-1] <= '9' {
		start--
	}
	if start == end {
		return "", false
	}

	prefix, digits := last[:start], last[start:]
	next, ok := incrementDecimal(digits)
	if !ok {
		return "", false
	}
	if len(next) < len(digits) {
		next = strings.Repeat("0", len(digits)-len(next)) + next
	}
	return prefix + next, true
}

// incrementDecimal adds one to a string of ASCII digits of any length.
func incrementDecimal(digits string) (string, bool) {
	if len(digits) <= 18 {
		n, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatUint(n+1, 10), true
	}

	out := []byte(digits)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < '9' {
			out[i]++
			return strings.TrimLeft(string(out), "0"), true
		}
		out[i] = '0'
	}
	return "1" + string(out), true
}
