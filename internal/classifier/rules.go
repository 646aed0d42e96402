package classifier

import (
	"context"
	"regexp"
	"strings"
)

// DefaultHazardQuestion is used when no per-incident question can be generated
const DefaultHazardQuestion = "Is it blocking the road or causing immediate danger?"

var complaintKeywords = []string{
	"complaint", "feedback", "service error", "system down", "website",
	"not working", "cannot access", "portal", "online", "app",
}

var incidentKeywords = []string{
	"report incident", "report an incident", "fallen tree", "pothole",
	"flood", "accident", "blocking", "hazard", "emergency", "incident",
}

// categoryRule maps description keywords to a category/sub-category pair
type categoryRule struct {
	keywords []string
	category Category
}

var categoryRules = []categoryRule{
	{[]string{"fallen tree", "pokok tumbang", "tree fall", "tree fell", "pohon tumbang"},
		Category{"Bencana Alam", "Pokok Tumbang"}},
	{[]string{"flood", "banjir", "water overflow", "flooded"},
		Category{"Bencana Alam", "Banjir"}},
	{[]string{"landslide", "tanah runtuh", "soil collapse"},
		Category{"Bencana Alam", "Tanah Runtuh"}},
	{[]string{"pothole", "lubang jalan", "road hole", "damaged road"},
		Category{"Jalan Raya", "Lubang Jalan"}},
	{[]string{"crack", "retak jalan", "road crack"},
		Category{"Jalan Raya", "Jalan Retak"}},
	{[]string{"street light", "lampu jalan", "lamp", "lighting"},
		Category{"Infrastruktur", "Lampu Jalan"}},
	{[]string{"drain", "longkang", "parit", "drainage"},
		Category{"Infrastruktur", "Longkang"}},
	{[]string{"traffic light", "lampu isyarat", "signal"},
		Category{"Infrastruktur", "Lampu Isyarat"}},
	{[]string{"garbage", "sampah", "trash", "rubbish", "waste"},
		Category{"Pengurusan Sampah", "Sampah Berserakan"}},
	{[]string{"website", "system", "service", "app", "online", "portal"},
		Category{"Service/ System Error", "--"}},
}

// street prefixes and well-known areas recognised by the local extractor
var locationPrefixes = []string{"jalan", "lorong", "lebuh", "persiaran"}

var knownAreas = []string{
	"georgetown", "bayan lepas", "tanjung tokong", "air itam", "jelutong",
	"gelugor", "batu ferringhi", "pulau tikus",
}

var postcodeRe = regexp.MustCompile(`\b\d{5}\b`)

// Rules is a deterministic keyword-driven classifier. It backs intent
// detection and category classification in production (those were keyword
// tables in the source system) and serves as the local fallback for the
// generative capabilities.
type Rules struct{}

// NewRules creates a rule-based classifier
func NewRules() *Rules {
	return &Rules{}
}

// DetectIntentKeywords matches complaint and incident keyword tables
func (r *Rules) DetectIntentKeywords(_ context.Context, text string) (IntentKeywords, error) {
	lower := strings.ToLower(text)

	var result IntentKeywords
	for _, k := range complaintKeywords {
		if strings.Contains(lower, k) {
			result.IsComplaint = true
			break
		}
	}
	for _, k := range incidentKeywords {
		if strings.Contains(lower, k) {
			result.IsIncident = true
			break
		}
	}
	return result, nil
}

// ExtractDescriptionAndLocation keeps the full message as the description and
// scans for a street prefix, a known area or a postcode to fill the location.
func (r *Rules) ExtractDescriptionAndLocation(_ context.Context, text string) (Extraction, error) {
	return Extraction{
		Description: strings.TrimSpace(text),
		Location:    extractLocation(text),
	}, nil
}

// GenerateHazardQuestion returns the fixed hazard question
func (r *Rules) GenerateHazardQuestion(_ context.Context, _ string) (string, error) {
	return DefaultHazardQuestion, nil
}

// ClassifyCategory matches the description against the category keyword table.
// Unmatched descriptions fall through to "Lain-lain".
func (r *Rules) ClassifyCategory(_ context.Context, description string) (Category, error) {
	lower := strings.ToLower(description)

	for _, rule := range categoryRules {
		for _, k := range rule.keywords {
			if strings.Contains(lower, k) {
				return rule.category, nil
			}
		}
	}
	return Category{Category: "Lain-lain", SubCategory: "--"}, nil
}

// extractLocation returns the location fragment starting at a recognised
// street prefix, or a known area / postcode match, or "".
func extractLocation(text string) string {
	lower := strings.ToLower(text)

	for _, prefix := range locationPrefixes {
		idx := indexOfWord(lower, prefix)
		if idx < 0 {
			continue
		}
		fragment := text[idx:]
		if cut := strings.IndexAny(fragment, ",.\n"); cut > 0 {
			fragment = fragment[:cut]
		}
		return strings.TrimSpace(fragment)
	}

	for _, area := range knownAreas {
		if idx := strings.Index(lower, area); idx >= 0 {
			return strings.TrimSpace(text[idx : idx+len(area)])
		}
	}

	if m := postcodeRe.FindString(text); m != "" {
		return m
	}

	return ""
}

// indexOfWord finds s as a whole word in lower-cased text
func indexOfWord(lower, word string) int {
	start := 0
	for {
		idx := strings.Index(lower[start:], word)
		if idx < 0 {
			return -1
		}
		idx += start
		before := idx == 0 || lower[idx-1] == ' ' || lower[idx-1] == ','
		after := idx+len(word) >= len(lower) || lower[idx+len(word)] == ' '
		if before && after {
			return idx
		}
		start = idx + len(word)
	}
}
