package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"placereviews/internal/domain"
)

type Mode string

const (
	ModeStructured Mode = "structured"
	ModeTextScan   Mode = "text-scan"
	ModeAuto       Mode = "auto"
)

const (
	lookbackRunes  = 200
	lookaheadRunes = 1000
)

// Segment is the raw text attributed to one candidate review.
type Segment struct {
	Before string // name (and sometimes rating) region
	Anchor string // relative date phrase
	After  string // body region
	Mode   Mode
}

// SegmentSource reads review segments off a rendered page. Count is the
// progress signal the Loader polls while scrolling.
type SegmentSource interface {
	Mode() Mode
	Count(ctx context.Context, s domain.Surface) (int, error)
	Segments(ctx context.Context, s domain.Surface) ([]Segment, error)
}

// NewSource returns the SegmentSource for mode.
func NewSource(mode Mode, p *Patterns) (SegmentSource, error) {
	switch mode {
	case ModeStructured:
		return &Structured{p: p}, nil
	case ModeTextScan:
		return &TextScan{p: p}, nil
	case ModeAuto, "":
		return &Auto{structured: &Structured{p: p}, textScan: &TextScan{p: p}}, nil
	default:
		return nil, fmt.Errorf("unknown extract mode %q", mode)
	}
}

// ---- structured: one DOM element per review ----

type Structured struct{ p *Patterns }

func (s *Structured) Mode() Mode { return ModeStructured }

func (s *Structured) Count(ctx context.Context, surf domain.Surface) (int, error) {
	return surf.Count(ctx, s.p.ReviewItemSelector)
}

func (s *Structured) Segments(ctx context.Context, surf domain.Surface) ([]Segment, error) {
	html, err := surf.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read dom: %w", err)
	}
	texts, err := ElementTexts(html, s.p.ReviewItemSelector)
	if err != nil {
		return nil, err
	}
	out := make([]Segment, 0, len(texts))
	for _, t := range texts {
		if seg, ok := SplitElement(s.p, t); ok {
			out = append(out, seg)
		}
	}
	return out, nil
}

// ElementTexts returns the text content of every element matching selector,
// in document order.
func ElementTexts(html, selector string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse dom: %w", err)
	}
	var out []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, sel.Text())
	})
	return out, nil
}

// SplitElement splits one review element's text at its first date anchor.
func SplitElement(p *Patterns, text string) (Segment, bool) {
	loc := p.anchorRe.FindStringIndex(text)
	if loc == nil {
		return Segment{}, false
	}
	return Segment{
		Before: strings.TrimSpace(text[:loc[0]]),
		Anchor: text[loc[0]:loc[1]],
		After:  strings.TrimSpace(text[loc[1]:]),
		Mode:   ModeStructured,
	}, true
}

// ---- text-scan: anchors in the full visible text ----

type TextScan struct{ p *Patterns }

func (t *TextScan) Mode() Mode { return ModeTextScan }

func (t *TextScan) Count(ctx context.Context, surf domain.Surface) (int, error) {
	text, err := surf.Text(ctx)
	if err != nil {
		return 0, err
	}
	return len(t.p.anchorRe.FindAllStringIndex(text, -1)), nil
}

func (t *TextScan) Segments(ctx context.Context, surf domain.Surface) ([]Segment, error) {
	text, err := surf.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return SplitText(t.p, text), nil
}

// SplitText slices text around every anchor match. The lookback window is
// capped at 200 runes and the body window at 1000 runes or the next anchor,
// whichever comes first.
func SplitText(p *Patterns, text string) []Segment {
	locs := p.anchorRe.FindAllStringIndex(text, -1)
	out := make([]Segment, 0, len(locs))
	for i, loc := range locs {
		start, end := loc[0], loc[1]

		limit := len(text)
		if i+1 < len(locs) {
			limit = locs[i+1][0]
		}
		bodyEnd := advanceRunes(text, start, lookaheadRunes)
		if limit < bodyEnd {
			bodyEnd = limit
		}
		if bodyEnd < end {
			bodyEnd = end
		}

		out = append(out, Segment{
			Before: text[retreatRunes(text, start, lookbackRunes):start],
			Anchor: text[start:end],
			After:  text[end:bodyEnd],
			Mode:   ModeTextScan,
		})
	}
	return out
}

// ---- auto: structured first, text-scan when the item selector finds nothing ----

type Auto struct {
	structured *Structured
	textScan   *TextScan
}

func (a *Auto) Mode() Mode { return ModeAuto }

// Count follows Segments: rendered review elements when there are any,
// anchors in the page text otherwise. Text anchors also match owner replies
// and header dates, so they are not mixed into the structured count.
func (a *Auto) Count(ctx context.Context, surf domain.Surface) (int, error) {
	if n, err := a.structured.Count(ctx, surf); err == nil && n > 0 {
		return n, nil
	}
	return a.textScan.Count(ctx, surf)
}

func (a *Auto) Segments(ctx context.Context, surf domain.Surface) ([]Segment, error) {
	segs, err := a.structured.Segments(ctx, surf)
	if err == nil && len(segs) > 0 {
		return segs, nil
	}
	return a.textScan.Segments(ctx, surf)
}

// advanceRunes returns the byte offset n runes after from (clamped to len).
func advanceRunes(s string, from, n int) int {
	i := from
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

// retreatRunes returns the byte offset n runes before from (clamped to 0).
func retreatRunes(s string, from, n int) int {
	i := from
	for ; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return i
}
