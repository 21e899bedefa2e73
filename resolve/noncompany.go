package resolve

import (
	"regexp"
	"strings"

	"github.com/kashishkap00r/company-chatter/rules"
)

// companyHintTokens suppress the sentence heuristic: a phrase carrying
// one of these is very likely an actual company name.
var companyHintTokens = map[string]bool{
	"bank":            true,
	"bancorp":         true,
	"bancshares":      true,
	"beverages":       true,
	"bio":             true,
	"biosciences":     true,
	"capital":         true,
	"chemicals":       true,
	"company":         true,
	"communications":  true,
	"corp":            true,
	"corporation":     true,
	"energy":          true,
	"engineering":     true,
	"financial":       true,
	"foods":           true,
	"group":           true,
	"holding":         true,
	"holdings":        true,
	"inc":             true,
	"industries":      true,
	"insurance":       true,
	"international":   true,
	"labs":            true,
	"limited":         true,
	"ltd":             true,
	"motors":          true,
	"pharma":          true,
	"pharmaceuticals": true,
	"plc":             true,
	"private":         true,
	"pvt":             true,
	"retail":          true,
	"sa":              true,
	"systems":         true,
	"technologies":    true,
	"technology":      true,
}

// sentenceStartTokens open the kind of editorial sentences that leak
// into the company field upstream.
var sentenceStartTokens = map[string]bool{
	"we":          true,
	"we've":       true,
	"our":         true,
	"this":        true,
	"that":        true,
	"these":       true,
	"those":       true,
	"broader":     true,
	"sectoral":    true,
	"check":       true,
	"have":        true,
	"introducing": true,
	"given":       true,
	"are":         true,
}

var (
	sentenceWordRe = regexp.MustCompile(`[A-Za-z0-9&'.-]+`)
	commentsOnRe   = regexp.MustCompile(`\bcomments?\s+on\b`)
)

// IsNonCompanyLabel reports whether a raw name should be quarantined as
// a non-company label: either the explicit rules flag it (allow-list
// permitting), or the sentence heuristic fires.
func IsNonCompanyLabel(name string, nonCompany *rules.NonCompanyRules) bool {
	return nonCompany.Matches(name) || LooksLikeTopicOrSentence(name)
}

// LooksLikeTopicOrSentence detects editorial phrases mistaken for
// company names ("We expect strong growth...", "Minister on tariffs").
func LooksLikeTopicOrSentence(name string) bool {
	var words []string
	for _, w := range sentenceWordRe.FindAllString(name, -1) {
		words = append(words, strings.ToLower(w))
	}
	if len(words) == 0 {
		return false
	}

	if sentenceStartTokens[words[0]] && len(words) > 4 {
		return true
	}

	lowered := strings.Join(words, " ")
	if commentsOnRe.MatchString(lowered) {
		return true
	}

	hasOn := false
	hasMinister := false
	hasHint := false
	for _, w := range words {
		switch w {
		case "on":
			hasOn = true
		case "minister", "secretary":
			hasMinister = true
		}
		if companyHintTokens[w] {
			hasHint = true
		}
	}
	if hasOn && len(words) >= 4 && !hasHint {
		return true
	}
	return hasMinister && hasOn
}
