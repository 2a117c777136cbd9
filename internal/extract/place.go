package extract

import (
	"regexp"
	"strconv"
	"strings"

	"placereviews/internal/domain"
)

var (
	titleNameRe     = regexp.MustCompile(`^(.+?)\s*[-–]`)
	titleReviewsRe  = regexp.MustCompile(`(?i)(\d[\d,]*)\s*reviews?`)
	bodyPlaceRateRe = regexp.MustCompile(`(?i)(\d\.\d)\s*(?:stars?|\()`)
)

// PlaceSummary parses the place header out of the page title and body
// text. Each field is matched independently; misses stay zero.
func (p *Patterns) PlaceSummary(title, body string) domain.PlaceInfo {
	var info domain.PlaceInfo

	if m := titleNameRe.FindStringSubmatch(title); m != nil {
		info.Name = strings.TrimSpace(m[1])
	}
	if m := titleReviewsRe.FindStringSubmatch(title); m != nil {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			info.ReviewCount = n
		}
	}
	if m := bodyPlaceRateRe.FindStringSubmatch(body); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil && f <= 5 {
			info.Rating = f
		}
	}
	if m := p.addressRe.FindStringSubmatch(body); m != nil {
		info.Address = strings.TrimSpace(m[1])
	}
	return info
}
