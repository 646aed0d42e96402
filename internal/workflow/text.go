package workflow

import "strings"

var affirmatives = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "ok": true,
	"okay": true, "sure": true, "correct": true, "confirm": true,
	"ya": true, "betul": true,
}

var negatives = map[string]bool{
	"no": true, "n": true, "nope": true, "tidak": true, "tak": true,
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isAffirmative(text string) bool {
	if affirmatives[text] {
		return true
	}
	return strings.HasPrefix(text, "yes")
}

func isNegative(text string) bool {
	if negatives[text] {
		return true
	}
	return strings.HasPrefix(text, "no ") || strings.HasPrefix(text, "not ")
}

func containsAny(text string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}
