// Package invoice formats and parses human-facing sequential invoice numbers.
package invoice

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// Prefix tags every invoice number.
const Prefix = "INV-"

// minWidth is the zero-padded width of the sequence part. Numbers beyond
// three digits widen naturally (INV-1000) rather than truncating.
const minWidth = 3

// Format renders a sequence number as an invoice number, e.g. 1 -> "INV-001",
// 1234 -> "INV-1234".
func Format(seq int64) string {
	return fmt.Sprintf("%s%0*d", Prefix, minWidth, seq)
}

// Parse extracts the sequence number from an invoice number of any width.
func Parse(number string) (int64, error) {
	rest, ok := strings.CutPrefix(number, Prefix)
	if !ok {
		return 0, errors.Errorf("invoice number %q: missing %q prefix", number, Prefix)
	}
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invoice number %q", number)
	}
	if seq < 1 {
		return 0, errors.Errorf("invoice number %q: sequence must be positive", number)
	}
	return seq, nil
}
