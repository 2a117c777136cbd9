package domain

// Review is one reviewer entry reconstructed from the rendered page.
type Review struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"` // 0..5, 0 = unknown
	Text   string `json:"text"`
	Date   string `json:"date"` // relative phrase as rendered, e.g. "3 weeks ago"
}
