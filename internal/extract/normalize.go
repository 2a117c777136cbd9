package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"placereviews/internal/domain"
)

const (
	maxBodyRunes        = 500
	maxNameRunes        = 100
	minBodyRunes        = 10
	repeatProbeRunes    = 50
	minRepeatProbeRunes = 20

	structuredRatingWindow = 20
	textScanRatingWindow   = 50
)

var (
	twoWordNameRe  = regexp.MustCompile(`^[A-Z][a-z]+\s+[A-Z][a-z]+`)
	trailingRunRe  = regexp.MustCompile(`([A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*)\s*$`)
	bledNameRe     = regexp.MustCompile(`\s+[A-Z][a-z]+\s+[A-Z][a-z]+\s*$`)
	leadingStarsRe = regexp.MustCompile(`^[★☆\s]+`)
	ratingPhraseRe = regexp.MustCompile(`(?i)(\d)\s*star`)
)

// Normalizer turns raw segments into review records.
type Normalizer struct{ p *Patterns }

func NewNormalizer(p *Patterns) *Normalizer { return &Normalizer{p: p} }

// Normalize derives name, rating and body for one segment. ok is false when
// the segment has no anchor or its body is too short to be a review.
func (n *Normalizer) Normalize(seg Segment) (domain.Review, bool) {
	if seg.Anchor == "" {
		return domain.Review{}, false
	}

	textScan := seg.Mode == ModeTextScan
	var name string
	window := structuredRatingWindow
	if textScan {
		name = TrailingName(seg.Before)
		window = textScanRatingWindow
	} else {
		name = ExtractName(seg.Before)
	}
	name = strings.TrimSpace(headRunes(name, maxNameRunes))
	if name == "" {
		name = n.p.AnonymousName
	}

	body := n.Body(seg.After, textScan)
	if utf8.RuneCountInString(body) < minBodyRunes {
		return domain.Review{}, false
	}

	return domain.Review{
		Name:   name,
		Rating: ParseRating(headRunes(seg.After, window), n.p.DefaultRating),
		Text:   body,
		Date:   strings.TrimSpace(seg.Anchor),
	}, true
}

// Records normalizes segs in order, dropping the ones that don't parse.
func (n *Normalizer) Records(segs []Segment) []domain.Review {
	out := make([]domain.Review, 0, len(segs))
	for _, s := range segs {
		if r, ok := n.Normalize(s); ok {
			out = append(out, r)
		}
	}
	return out
}

// ExtractName trims titles and affiliations off a reviewer prefix:
// "Dawn Melancon, Realtor, NextHome" -> "Dawn Melancon".
func ExtractName(full string) string {
	if i := strings.IndexByte(full, ','); i >= 0 {
		return strings.TrimSpace(full[:i])
	}
	words := strings.Fields(full)
	if len(words) >= 2 {
		firstTwo := words[0] + " " + words[1]
		if twoWordNameRe.MatchString(firstTwo) {
			return firstTwo
		}
	}
	return strings.TrimSpace(full)
}

// TrailingName returns the run of capitalized words that ends the lookback
// window, i.e. the words right before the date anchor.
func TrailingName(before string) string {
	m := trailingRunRe.FindStringSubmatch(before)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseRating counts star glyphs in window, falling back to a "<d> star"
// phrase and then to def.
func ParseRating(window string, def int) int {
	if n := strings.Count(window, "★"); n > 0 {
		return min(n, 5)
	}
	if m := ratingPhraseRe.FindStringSubmatch(window); m != nil {
		d, _ := strconv.Atoi(m[1])
		return min(d, 5)
	}
	return def
}

// Body cleans a raw body region. stripBledName removes a trailing
// capitalized two-word run, which in text-scan mode is usually the next
// reviewer's name.
func (n *Normalizer) Body(after string, stripBledName bool) string {
	s := leadingStarsRe.ReplaceAllString(after, "")
	s = stripChrome(s, n.p.UIChrome)
	s = collapseRepeat(s)
	if stripBledName {
		s = bledNameRe.ReplaceAllString(s, "")
		s = stripChrome(s, n.p.UIChrome)
	}
	return headRunes(strings.TrimSpace(s), maxBodyRunes)
}

// stripChrome removes UI labels from both ends until none is left.
func stripChrome(s string, chrome []string) string {
	s = strings.TrimSpace(s)
	for changed := true; changed; {
		changed = false
		for _, c := range chrome {
			if c == "" {
				continue
			}
			if strings.HasPrefix(s, c) && boundaryAt(s, len(c)) {
				s = strings.TrimSpace(s[len(c):])
				changed = true
			}
			if strings.HasSuffix(s, c) && boundaryBefore(s, len(s)-len(c)) {
				s = strings.TrimSpace(s[:len(s)-len(c)])
				changed = true
			}
		}
	}
	return s
}

func boundaryAt(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r)
}

func boundaryBefore(s string, i int) bool {
	if i <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r)
}

// collapseRepeat undoes the collapsed-then-expanded double rendering: when
// the second half starts with the opening of the text, only the second half
// is kept. Otherwise, a later full restatement of the opening that is at
// least as long as what precedes it wins.
func collapseRepeat(s string) string {
	r := []rune(s)
	half := len(r) / 2
	probeLen := min(repeatProbeRunes, half)
	if probeLen < minRepeatProbeRunes {
		return s
	}
	probe := string(r[:probeLen])

	second := strings.TrimSpace(string(r[half:]))
	if strings.HasPrefix(second, probe) {
		return second
	}

	if i := strings.LastIndex(s, probe); i > 0 {
		rest := s[i:]
		if len(rest) >= i {
			return rest
		}
	}
	return s
}

// headRunes returns at most n leading runes of s.
func headRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
