// Package txnumber generates human-readable receipt numbers for kiosk transactions.
package txnumber

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const prefix = "TXN"

// New returns a receipt number of the form TXN + YYYYMMDDHHMMSS + 4 random digits.
// Two checkouts within the same second can still collide on the suffix, so callers
// must retry on a unique-constraint violation.
func New(now time.Time) (string, error) {
	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generating receipt suffix: %w", err)
	}
	return fmt.Sprintf("%s%s%04d", prefix, now.Format("20060102150405"), suffix.Int64()), nil
}
