package scrape

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	digitsRe     = regexp.MustCompile(`\d+`)

	// Boilerplate that routinely leaks into extracted article bodies.
	noiseRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Advertisement\s*`),
		regexp.MustCompile(`(?i)Subscribe now.*`),
		regexp.MustCompile(`(?i)Sign up.*`),
		regexp.MustCompile(`(?i)Read more.*`),
		regexp.MustCompile(`(?i)©\s*\d{4}.*`),
	}
)

// CleanText collapses whitespace and strips common boilerplate patterns
// (ads, subscription prompts, copyright lines) from extracted content.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	for _, re := range noiseRes {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

// Absolute formats tried in priority order before falling back to a
// generic parse.
var dateFormats = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"02/01/2006",
}

// StandardizeDate converts the date strings sites publish ("2h ago",
// "Feb 15, 2025", "2025-02-15", "15/02/2025") to ISO-8601. Relative
// phrases are resolved against now. Returns "" when nothing parses.
func StandardizeDate(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	lower := strings.ToLower(raw)
	if strings.Contains(lower, "ago") {
		num := digitsRe.FindString(lower)
		if num == "" {
			return ""
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return ""
		}
		switch {
		case strings.Contains(lower, "h"):
			return now.Add(-time.Duration(n) * time.Hour).Format(time.RFC3339)
		case strings.Contains(lower, "d"):
			return now.AddDate(0, 0, -n).Format(time.RFC3339)
		}
		return ""
	}

	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.RFC3339)
		}
	}

	// Last resort: the formats above miss plenty of real-world variants.
	if t, err := dateparse.ParseAny(raw); err == nil {
		return t.Format(time.RFC3339)
	}
	return ""
}
