package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"placereviews/internal/domain"
)

// DismissalPolicy clicks away interstitials (consent banners, app-install
// prompts) in order. A missing button is the normal case.
type DismissalPolicy struct {
	Steps []DialogStep
}

func NewDismissalPolicy(p *Patterns) *DismissalPolicy {
	return &DismissalPolicy{Steps: p.Dialogs}
}

// Run tries every step once and returns the labels it clicked. Only a
// failing step marked Required produces an error.
func (d *DismissalPolicy) Run(ctx context.Context, s domain.Surface) ([]string, error) {
	var clicked []string
	for _, st := range d.Steps {
		err := s.ClickButton(ctx, st.Label, st.Timeout())
		switch {
		case err == nil:
			log.Debug().Str("label", st.Label).Msg("dialog dismissed")
			clicked = append(clicked, st.Label)
		case st.Required:
			return clicked, fmt.Errorf("required dialog step %q: %w", st.Label, err)
		case !errors.Is(err, domain.ErrElementNotFound):
			log.Debug().Err(err).Str("label", st.Label).Msg("dialog step failed")
		}
	}
	return clicked, nil
}
