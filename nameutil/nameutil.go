// Package nameutil provides the pure name-normalization primitives
// shared by entity resolution and alias matching: tokenization with a
// fixed equivalence table, legal-suffix stripping, acronym expansion,
// and the normalized keys used for rule lookup and bucketing.
package nameutil

import (
	"regexp"
	"strings"
)

// legalSuffixTokens is the closed set of trailing tokens that carry no
// identity signal ("Acme Industries Limited" == "Acme Industries").
var legalSuffixTokens = map[string]bool{
	"limited":     true,
	"ltd":         true,
	"inc":         true,
	"corp":        true,
	"corporation": true,
	"company":     true,
	"co":          true,
	"private":     true,
	"pvt":         true,
	"plc":         true,
}

// acronymExpansions expands a known acronym when it is the final token.
var acronymExpansions = map[string][]string{
	"amc": {"asset", "management", "company"},
}

// tokenEquivalents collapses trivial spelling and abbreviation variants
// at the token level before any other normalization.
var tokenEquivalents = map[string]string{
	"tech":         "technology",
	"technologies": "technology",
	"inds":         "industries",
	"hathaway":     "hathway",
	"prod":         "products",
}

var (
	alnumRunRe    = regexp.MustCompile(`[a-z0-9]+`)
	nonAlnumRunRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// Tokens lowercases name, splits it into alphanumeric runs, and applies
// the token equivalence table. Empty input yields an empty slice.
func Tokens(name string) []string {
	raw := alnumRunRe.FindAllString(strings.ToLower(name), -1)
	tokens := make([]string, len(raw))
	for i, tok := range raw {
		if eq, ok := tokenEquivalents[tok]; ok {
			tokens[i] = eq
		} else {
			tokens[i] = tok
		}
	}
	return tokens
}

// HasLegalSuffix reports whether the last token of name is a legal
// suffix such as "ltd" or "corporation".
func HasLegalSuffix(name string) bool {
	tokens := Tokens(name)
	return len(tokens) > 0 && legalSuffixTokens[tokens[len(tokens)-1]]
}

// StripLegalSuffixes removes trailing legal-suffix tokens.
func StripLegalSuffixes(tokens []string) []string {
	return stripSuffixTokens(tokens, legalSuffixTokens)
}

// StripAcronymSuffixes removes trailing legal-suffix tokens using the
// restricted subset consulted by the initialism checks, which keeps
// "company" and "co" because they frequently contribute initials.
func StripAcronymSuffixes(tokens []string) []string {
	return stripSuffixTokens(tokens, acronymSuffixStripTokens)
}

// acronymSuffixStripTokens is legalSuffixTokens minus "company"/"co".
var acronymSuffixStripTokens = func() map[string]bool {
	m := make(map[string]bool, len(legalSuffixTokens))
	for tok := range legalSuffixTokens {
		if tok == "company" || tok == "co" {
			continue
		}
		m[tok] = true
	}
	return m
}()

func stripSuffixTokens(tokens []string, suffixes map[string]bool) []string {
	stripped := append([]string(nil), tokens...)
	for len(stripped) > 0 && suffixes[stripped[len(stripped)-1]] {
		stripped = stripped[:len(stripped)-1]
	}
	return stripped
}

// expandAcronymTokens expands a known acronym at the final position only
// ("hdfc amc" -> "hdfc asset management company").
func expandAcronymTokens(tokens []string) []string {
	var expanded []string
	for i, tok := range tokens {
		if exp, ok := acronymExpansions[tok]; ok && i == len(tokens)-1 {
			expanded = append(expanded, exp...)
		} else {
			expanded = append(expanded, tok)
		}
	}
	return expanded
}

// NormalizedTokens applies the acronym expansion and then strips
// trailing legal suffixes. This is the token form all compatibility
// heuristics operate on.
func NormalizedTokens(name string) []string {
	return StripLegalSuffixes(expandAcronymTokens(Tokens(name)))
}

// NameKey is the space-joined normalized token form, used as the
// bucketing key and the rule-lookup key. Empty when the name has no
// alphanumeric content or consists solely of legal suffixes.
func NameKey(name string) string {
	return strings.Join(NormalizedTokens(name), " ")
}

// RawNameKey lowercases and single-spaces the alphanumeric content of
// name without suffix stripping. Non-company rules match on this form.
func RawNameKey(name string) string {
	return strings.TrimSpace(nonAlnumRunRe.ReplaceAllString(strings.ToLower(name), " "))
}

// NormalizeAliasPhrase produces the canonical surface form used for
// alias vocabulary entries and story text: lowercase, "&" spelled out,
// curly apostrophes straightened, alphanumeric runs single-spaced.
func NormalizeAliasPhrase(text string) string {
	normalized := strings.ToLower(text)
	normalized = strings.ReplaceAll(normalized, "&", " and ")
	normalized = strings.ReplaceAll(normalized, "’", "'")
	normalized = nonAlnumRunRe.ReplaceAllString(normalized, " ")
	return strings.Join(strings.Fields(normalized), " ")
}

// Slugify converts value into a lowercase dash-separated identifier.
// Empty or fully non-alphanumeric input yields "unknown".
func Slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = nonAlnumRunRe.ReplaceAllString(value, "-")
	value = strings.Trim(value, "-")
	if value == "" {
		return "unknown"
	}
	return value
}

// IsDigits reports whether s is non-empty and consists only of ASCII
// digits. Numeric-only aliases are discarded by the vocabulary builder.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
