package extract

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"placereviews/internal/domain"
)

// Stop reasons reported by the Loader.
const (
	StopTarget    = "target"
	StopStalled   = "stalled"
	StopExhausted = "exhausted"
	StopCanceled  = "canceled"
)

// Counter reports how many review entries are currently rendered.
type Counter interface {
	Count(ctx context.Context, s domain.Surface) (int, error)
}

// Loader scrolls a surface until enough review entries are rendered or
// progress stalls. The page gives no completion signal, so it polls the
// entry count between scroll steps.
type Loader struct {
	MaxIterations int
	StallLimit    int
	ScrollDelta   int
	ScrollPane    string
	Settle        time.Duration
	KeyEvery      int
	KeySettle     time.Duration
}

func NewLoader(p *Patterns) *Loader {
	return &Loader{
		MaxIterations: 50,
		StallLimit:    10,
		ScrollDelta:   800,
		ScrollPane:    p.ScrollPane,
		Settle:        600 * time.Millisecond,
		KeyEvery:      5,
		KeySettle:     500 * time.Millisecond,
	}
}

type LoadResult struct {
	Count      int
	Iterations int
	Reason     string
}

// Load converges toward target rendered entries. Falling short is not an
// error; callers treat Count as a lower bound.
func (l *Loader) Load(ctx context.Context, s domain.Surface, c Counter, target int) LoadResult {
	prev, stalls, scrolls := 0, 0, 0
	res := LoadResult{Reason: StopExhausted}

	for res.Iterations < l.MaxIterations {
		if ctx.Err() != nil {
			res.Reason = StopCanceled
			break
		}
		res.Iterations++

		n, err := c.Count(ctx, s)
		if err != nil {
			log.Debug().Err(err).Int("iteration", res.Iterations).Msg("loader count failed")
			n = prev
		}
		res.Count = n

		if n >= target {
			res.Reason = StopTarget
			break
		}
		if n == prev {
			stalls++
			if stalls >= l.StallLimit {
				res.Reason = StopStalled
				break
			}
		} else {
			stalls = 0
		}
		prev = n

		scrolls++
		if err := s.Scroll(ctx, l.ScrollPane, l.ScrollDelta); err != nil {
			log.Debug().Err(err).Int("iteration", res.Iterations).Msg("loader scroll failed")
		}
		_ = s.Wait(ctx, l.Settle)

		if l.KeyEvery > 0 && scrolls%l.KeyEvery == 0 {
			if err := s.PressEnd(ctx); err != nil {
				log.Debug().Err(err).Msg("loader end key failed")
			}
			_ = s.Wait(ctx, l.KeySettle)
		}
	}

	log.Debug().
		Int("count", res.Count).
		Int("target", target).
		Int("iterations", res.Iterations).
		Str("reason", res.Reason).
		Msg("loader done")
	return res
}
