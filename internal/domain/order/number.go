package order

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pos/backend/internal/domain/shared"
)

// NumberReserver claims an order number so concurrent tills cannot hand out
// the same one. Reserve returns false when the number is already taken.
type NumberReserver interface {
	Reserve(ctx context.Context, number string) (bool, error)
}

// FormatNumber renders ORD-YYYYMMDD-NNNN.
func FormatNumber(day time.Time, suffix int) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), suffix)
}

// NumberGenerator produces order numbers with a random four digit suffix,
// retrying on collision.
type NumberGenerator struct {
	reserver    NumberReserver
	suffix      func() int
	maxAttempts int
}

// NewNumberGenerator creates a generator backed by the given reserver.
func NewNumberGenerator(reserver NumberReserver) *NumberGenerator {
	return &NumberGenerator{
		reserver:    reserver,
		suffix:      func() int { return 1000 + rand.IntN(9000) },
		maxAttempts: 5,
	}
}

// WithSuffixSource replaces the random suffix source.
func (g *NumberGenerator) WithSuffixSource(fn func() int) *NumberGenerator {
	g.suffix = fn
	return g
}

// Next returns a reserved order number for the day of now.
func (g *NumberGenerator) Next(ctx context.Context, now time.Time) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		number := FormatNumber(now, g.suffix())
		ok, err := g.reserver.Reserve(ctx, number)
		if err != nil {
			return "", shared.NewDependencyError("reserve order number", err)
		}
		if ok {
			return number, nil
		}
	}
	return "", shared.NewDomainError(shared.CodeAlreadyExists,
		fmt.Sprintf("no free order number after %d attempts", g.maxAttempts))
}
