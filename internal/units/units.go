// Package units formats byte counts for log lines and the batch HTML
// report, using the teacher's otherwise-idle golang.org/x/text dependency
// for locale-aware digit grouping rather than a hand-rolled comma inserter.
package units

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Printer is a locale-bound formatter for byte counts. The zero value is
// not usable; construct one with NewPrinter.
type Printer struct {
	p *message.Printer
}

// NewPrinter returns a Printer formatting numbers for tag (e.g.
// language.English). An unrecognized or zero tag falls back to
// language.English rather than erroring, since this is a display-only
// concern with no effect on optimization outcomes.
func NewPrinter(tag language.Tag) Printer {
	if tag == (language.Tag{}) {
		tag = language.English
	}
	return Printer{p: message.NewPrinter(tag)}
}

// Bytes formats n with locale-appropriate digit grouping, e.g. "1,048,576
// bytes" under language.English.
func (pr Printer) Bytes(n int64) string {
	return pr.p.Sprintf("%v bytes", number.Decimal(n))
}

// Delta formats a byte-count change with an explicit sign, e.g. "-2,048
// bytes" for a reduction or "+0 bytes" for no change.
func (pr Printer) Delta(n int64) string {
	sign := "+"
	if n < 0 {
		sign = "-"
		n = -n
	}
	return sign + pr.Bytes(n)
}

// Percent formats saved/original as a percentage with one decimal place,
// e.g. "37.2%". Returns "0.0%" when original is zero.
func (pr Printer) Percent(saved, original int64) string {
	if original <= 0 {
		return "0.0%"
	}
	pct := float64(saved) / float64(original) * 100
	return pr.p.Sprintf("%v%%", number.Decimal(pct, number.MaxFractionDigits(1), number.MinFractionDigits(1)))
}

// Plain formats n without locale grouping, for contexts (structured log
// fields) where a stable machine-parseable form matters more than
// readability.
func Plain(n int64) string {
	return fmt.Sprintf("%d", n)
}
