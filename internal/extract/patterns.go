// Package extract turns a rendered map-service page into review and place
// records: it drives the scroll loop, segments the page around relative-date
// anchors, and normalizes each segment into a domain.Review.
package extract

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

//go:embed patterns.yaml
var defaultPatterns []byte

type DialogStep struct {
	Label     string `yaml:"label"`
	TimeoutMS int    `yaml:"timeout_ms"`
	Required  bool   `yaml:"required"`
}

func (d DialogStep) Timeout() time.Duration {
	return time.Duration(d.TimeoutMS) * time.Millisecond
}

type Timing struct {
	AfterNavigateMS int `yaml:"after_navigate_ms"`
	AfterDialogsMS  int `yaml:"after_dialogs_ms"`
	AfterLoadMS     int `yaml:"after_load_ms"`
}

// Patterns is the versioned table of selectors and text patterns the
// extractor depends on.
type Patterns struct {
	Version            string       `yaml:"version"`
	Anchor             string       `yaml:"anchor"`
	ReviewItemSelector string       `yaml:"review_item_selector"`
	ScrollPane         string       `yaml:"scroll_pane"`
	DefaultRating      int          `yaml:"default_rating"`
	AnonymousName      string       `yaml:"anonymous_name"`
	UIChrome           []string     `yaml:"ui_chrome"`
	StreetSuffixes     []string     `yaml:"street_suffixes"`
	Dialogs            []DialogStep `yaml:"dialogs"`
	Timing             Timing       `yaml:"timing"`

	anchorRe  *regexp.Regexp
	addressRe *regexp.Regexp
}

// DefaultPatterns returns the embedded pattern table.
func DefaultPatterns() *Patterns {
	p, err := parsePatterns(defaultPatterns, nil)
	if err != nil {
		panic(fmt.Sprintf("extract: embedded patterns: %v", err))
	}
	return p
}

// LoadPatterns reads a YAML override from path. Keys missing from the file
// keep their embedded defaults. An empty path returns the defaults.
func LoadPatterns(path string) (*Patterns, error) {
	if path == "" {
		return DefaultPatterns(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read patterns %s: %w", path, err)
	}
	return parsePatterns(data, DefaultPatterns())
}

func parsePatterns(data []byte, base *Patterns) (*Patterns, error) {
	p := &Patterns{}
	if base != nil {
		*p = *base
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse patterns: %w", err)
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Patterns) compile() error {
	if p.Anchor == "" {
		return fmt.Errorf("patterns: anchor is empty")
	}
	re, err := regexp.Compile(p.Anchor)
	if err != nil {
		return fmt.Errorf("patterns: anchor: %w", err)
	}
	p.anchorRe = re

	if p.DefaultRating < 0 || p.DefaultRating > 5 {
		return fmt.Errorf("patterns: default_rating %d out of range", p.DefaultRating)
	}
	if p.AnonymousName == "" {
		p.AnonymousName = "Anonymous"
	}

	suffixes := make([]string, 0, len(p.StreetSuffixes))
	for _, s := range p.StreetSuffixes {
		if s = strings.TrimSpace(s); s != "" {
			suffixes = append(suffixes, regexp.QuoteMeta(s))
		}
	}
	if len(suffixes) == 0 {
		return fmt.Errorf("patterns: street_suffixes is empty")
	}
	p.addressRe = regexp.MustCompile(`(?i)(\d+\s+[A-Za-z0-9\s,]+(?:` + strings.Join(suffixes, "|") + `)[^,]*,\s*[A-Z]{2}\s*\d{5})`)
	return nil
}

func (p *Patterns) AnchorRe() *regexp.Regexp { return p.anchorRe }
