package domain

// PlaceInfo is the summary block of a place page. Unparsed fields stay zero.
type PlaceInfo struct {
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}
