package order

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/jackc/pgx/v5"

	"github.com/slimecraft/shop/internal/sequence"
)

// Reference numbers are the externally shown order identifier: "SC-"
// followed by 16 decimal digits.
const (
	refPrefix = "SC-"
	refDigits = 16

	// DefaultRefAttempts bounds the random allocation loop before the
	// allocator falls back to the sequence counter.
	DefaultRefAttempts = 5

	// in the fallback, the counter occupies the low digits and a random
	// prefix fills the rest
	refSeqDigits = 10
)

// ReferenceAllocator produces candidate reference numbers. Random
// candidates are sparse in a 10^16 space; when the caller reports too many
// collisions the allocator derives a guaranteed-fresh value from the
// sequences table instead of looping forever.
type ReferenceAllocator struct {
	seq         *sequence.Repository
	maxAttempts int
	intN        func(int) int
}

func NewReferenceAllocator(seq *sequence.Repository, maxAttempts int) *ReferenceAllocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRefAttempts
	}
	return &ReferenceAllocator{seq: seq, maxAttempts: maxAttempts, intN: rand.IntN}
}

// MaxAttempts returns the bound on random candidates.
func (a *ReferenceAllocator) MaxAttempts() int {
	return a.maxAttempts
}

// Candidate returns a fresh random reference number.
func (a *ReferenceAllocator) Candidate() string {
	buf := make([]byte, 0, len(refPrefix)+refDigits)
	buf = append(buf, refPrefix...)
	for i := 0; i < refDigits; i++ {
		buf = append(buf, byte('0'+a.intN(10)))
	}
	return string(buf)
}

type sequenceQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Fallback builds a reference from the monotonic order-reference counter
// plus a random prefix, still 16 digits. Counter exhaustion (beyond ten
// digits) is a reportable error, not a retry.
func (a *ReferenceAllocator) Fallback(ctx context.Context, db sequenceQuerier) (string, error) {
	next, err := a.seq.Next(ctx, db, "order_reference")
	if err != nil {
		return "", fmt.Errorf("reference fallback: %w", err)
	}
	if next >= 1e10 {
		return "", fmt.Errorf("reference fallback: counter exhausted at %d", next)
	}

	prefixDigits := refDigits - refSeqDigits
	buf := make([]byte, 0, len(refPrefix)+refDigits)
	buf = append(buf, refPrefix...)
	for i := 0; i < prefixDigits; i++ {
		buf = append(buf, byte('0'+a.intN(10)))
	}
	return fmt.Sprintf("%s%0*d", string(buf), refSeqDigits, next), nil
}
