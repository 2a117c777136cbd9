package extract

import "placereviews/internal/domain"

const dedupeTextRunes = 50

// Dedupe drops repeated reviews, keeping the first occurrence. Reviews carry
// no stable id, so the key is the name plus the opening of the text.
func Dedupe(rs []domain.Review) []domain.Review {
	seen := make(map[string]struct{}, len(rs))
	out := make([]domain.Review, 0, len(rs))
	for _, r := range rs {
		key := r.Name + headRunes(r.Text, dedupeTextRunes)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
