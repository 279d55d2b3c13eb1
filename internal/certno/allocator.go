// Package certno allocates certificate numbers: a fixed 3-digit prefix
// followed by 6 random digits, checked for collisions against the interns
// table so every issued number is unique at allocation time.
package certno

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/athenura/internhub-backend/internal/db"
)

// ErrExhausted is returned when no free number is found within the attempt
// budget. The number space has 900 000 values per prefix, so hitting this
// means the space is close to full and a wider prefix is needed.
var ErrExhausted = errors.New("certno: no free certificate number within attempt budget")

// Lookup is the single query the allocator needs. Satisfied by db.Querier;
// tests supply a stub.
type Lookup interface {
	GetInternByCertificateNumber(ctx context.Context, number string) (db.Intern, error)
}

// Allocator generates candidate numbers and probes the interns table until
// one is free.
type Allocator struct {
	lookup      Lookup
	prefix      string
	maxAttempts int
	logger      *slog.Logger

	// Overridable for deterministic tests.
	now     func() time.Time
	randInt func(n int) int
}

// New constructs an Allocator. prefix defaults to "100" and maxAttempts to 50
// when zero-valued.
func New(lookup Lookup, prefix string, maxAttempts int, logger *slog.Logger) *Allocator {
	if prefix == "" {
		prefix = "100"
	}
	if maxAttempts <= 0 {
		maxAttempts = 50
	}
	return &Allocator{
		lookup:      lookup,
		prefix:      prefix,
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         time.Now,
		randInt:     rand.Intn,
	}
}

// Allocate returns a certificate number that matched no intern record at the
// time of the check.
//
// On a lookup failure it does not error: availability wins over strict
// uniqueness, and the fallback of prefix + the last 6 digits of the current
// unix-milli timestamp is returned instead. The unique constraint on
// interns.certificate_number still rejects an actual duplicate at write time.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		// 6 random digits, never starting with 0, so every number is
		// visually 9 digits with a recognisable prefix.
		candidate := fmt.Sprintf("%s%06d", a.prefix, 100000+a.randInt(900000))

		_, err := a.lookup.GetInternByCertificateNumber(ctx, candidate)
		if errors.Is(err, sql.ErrNoRows) {
			return candidate, nil
		}
		if err != nil {
			fallback := a.timestampFallback()
			a.logger.Warn("certno: collision check failed, using timestamp fallback",
				"error", err,
				"number", fallback,
			)
			return fallback, nil
		}
		// Collision — try again.
	}
	return "", ErrExhausted
}

func (a *Allocator) timestampFallback() string {
	ms := fmt.Sprintf("%d", a.now().UnixMilli())
	return a.prefix + ms[len(ms)-6:]
}
