package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ISODateLayout is the canonical date format for every date field.
const ISODateLayout = "2006-01-02"

var (
	isoDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	relativeDaysRun = regexp.MustCompile(`(?i)(\d+)\s*days?`)
)

// NormalizeDate converts a free-form date into YYYY-MM-DD (UTC). Input that
// already has the canonical shape is returned unchanged. The bool is false
// when the input cannot be parsed.
func NormalizeDate(input string) (string, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", false
	}
	if isoDatePattern.MatchString(s) {
		return s, true
	}
	t, err := parseAny(s)
	if err != nil {
		return "", false
	}
	return t.UTC().Format(ISODateLayout), true
}

// parseAny guards the third-party parser, which can panic on some malformed input.
func parseAny(s string) (t time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errUnparseable
		}
	}()
	return dateparse.ParseIn(s, time.UTC)
}

// ComputeValidUntil resolves a quote expiry expression. An absolute date is
// returned as-is (normalized); a relative "N days" expression is added to
// quoteDate. Anything else, or a relative expression without a usable quote
// date, yields false.
func ComputeValidUntil(quoteDate, expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", false
	}

	if d, ok := NormalizeDate(expr); ok {
		return d, true
	}
	m := relativeDaysRun.FindStringSubmatch(expr)
	if m == nil {
		return "", false
	}

	days, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	base, ok := NormalizeDate(quoteDate)
	if !ok {
		return "", false
	}
	t, err := time.Parse(ISODateLayout, base)
	if err != nil {
		return "", false
	}
	return t.AddDate(0, 0, days).Format(ISODateLayout), true
}
