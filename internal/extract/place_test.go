package extract_test

import (
	"testing"

	"placereviews/internal/domain"
	"placereviews/internal/extract"
)

func TestPlaceSummary(t *testing.T) {
	p := extract.DefaultPatterns()
	cases := []struct {
		name  string
		title string
		body  string
		want  domain.PlaceInfo
	}{
		{
			name:  "full header",
			title: "Perry G. Gruman - 127 reviews - Google Maps",
			body:  "Perry G. Gruman\n4.9(127)\nLawyer\n1234 W Kennedy Blvd Tampa, FL 33609\nOpen 24 hours",
			want: domain.PlaceInfo{
				Name:        "Perry G. Gruman",
				Address:     "1234 W Kennedy Blvd Tampa, FL 33609",
				Rating:      4.9,
				ReviewCount: 127,
			},
		},
		{
			name:  "thousands separator and en dash",
			title: "Joe's Pizza – 1,234 reviews",
			body:  "Rated 4.5 stars",
			want:  domain.PlaceInfo{Name: "Joe's Pizza", Rating: 4.5, ReviewCount: 1234},
		},
		{
			name:  "nothing matches",
			title: "Google Maps",
			body:  "Sign in to continue",
			want:  domain.PlaceInfo{},
		},
		{
			name:  "out of range rating ignored",
			title: "Place - Maps",
			body:  "7.2 stars",
			want:  domain.PlaceInfo{Name: "Place"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := p.PlaceSummary(c.title, c.body); got != c.want {
				t.Fatalf("PlaceSummary = %+v, want %+v", got, c.want)
			}
		})
	}
}
