package resolve

import (
	"strings"

	"github.com/kashishkap00r/company-chatter/nameutil"
	"github.com/kashishkap00r/company-chatter/rules"
)

// similarityThreshold is the Ratcliff/Obershelp ratio at or above which
// two normalized names are considered the same company. Calibrated against
// the curated rule files; changing the metric requires recalibration.
const similarityThreshold = 0.93

// softTokens may trail a single-token name without changing identity
// ("Zomato" vs "Zomato India").
var softTokens = map[string]bool{
	"india":         true,
	"indian":        true,
	"group":         true,
	"global":        true,
	"international": true,
	"holding":       true,
	"holdings":      true,
}

// initialismIgnoredTokens are skipped when deriving initials from a
// full name ("State Bank of India" -> "sbi").
var initialismIgnoredTokens = map[string]bool{
	"and": true,
	"of":  true,
	"the": true,
}

// Compatible reports whether two company names may refer to the same
// company. Block pairs always win; alias pairs always merge; otherwise
// a sequence of lexical heuristics is applied to the normalized token
// forms. The predicate is symmetric and deterministic.
func Compatible(leftName, rightName string, aliasPairs, blockPairs *rules.PairSet) bool {
	leftKey := nameutil.NameKey(leftName)
	rightKey := nameutil.NameKey(rightName)
	if leftKey == "" || rightKey == "" {
		return false
	}

	if blockPairs.Contains(leftKey, rightKey) {
		return false
	}
	if aliasPairs.Contains(leftKey, rightKey) {
		return true
	}

	left := nameutil.NormalizedTokens(leftName)
	right := nameutil.NormalizedTokens(rightName)
	if len(left) == 0 || len(right) == 0 {
		return false
	}
	if equalTokens(left, right) {
		return true
	}
	if strings.Join(left, "") == strings.Join(right, "") {
		return true
	}

	if ratio(strings.Join(left, " "), strings.Join(right, " ")) >= similarityThreshold {
		return true
	}

	shorter, longer := left, right
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) >= 3 && equalTokens(longer[:len(shorter)], shorter) {
		return true
	}
	if len(shorter) == 1 && isSoftExtension(shorter, longer) {
		return true
	}

	if len(shorter) >= 2 && tokenSubset(shorter, longer) {
		return true
	}

	leftAcronym := nameutil.StripAcronymSuffixes(nameutil.Tokens(leftName))
	rightAcronym := nameutil.StripAcronymSuffixes(nameutil.Tokens(rightName))
	return matchesTrailingInitialism(leftAcronym, rightAcronym) ||
		matchesTrailingInitialism(rightAcronym, leftAcronym) ||
		matchesFullInitialism(leftAcronym, rightAcronym) ||
		matchesFullInitialism(rightAcronym, leftAcronym)
}

// isSoftExtension reports whether longer is shorter followed only by
// soft tokens.
func isSoftExtension(shorter, longer []string) bool {
	if len(shorter) == 0 || len(shorter) > len(longer) {
		return false
	}
	if !equalTokens(longer[:len(shorter)], shorter) {
		return false
	}
	tail := longer[len(shorter):]
	if len(tail) == 0 {
		return false
	}
	for _, tok := range tail {
		if !softTokens[tok] {
			return false
		}
	}
	return true
}

// matchesTrailingInitialism reports whether, after a shared token
// prefix, the short side ends in exactly one token equal to the
// concatenated first letters of the long side's remaining tokens
// ("hdfc amc" vs "hdfc asset management company").
func matchesTrailingInitialism(shortTokens, longTokens []string) bool {
	sharedPrefix := 0
	for sharedPrefix < len(shortTokens) && sharedPrefix < len(longTokens) &&
		shortTokens[sharedPrefix] == longTokens[sharedPrefix] {
		sharedPrefix++
	}

	shortTail := shortTokens[sharedPrefix:]
	longTail := longTokens[sharedPrefix:]
	if len(shortTail) != 1 || len(longTail) < 2 {
		return false
	}

	shortValue := shortTail[0]
	initials := make([]byte, 0, len(longTail))
	for _, tok := range longTail {
		if tok != "" {
			initials = append(initials, tok[0])
		}
	}
	return len(shortValue) >= 2 && shortValue == string(initials)
}

// matchesFullInitialism reports whether the short side is a single
// token equal to the first letters of the long side's tokens, skipping
// connective words ("sbi" vs "state bank of india").
func matchesFullInitialism(shortTokens, longTokens []string) bool {
	if len(shortTokens) != 1 || len(longTokens) < 2 {
		return false
	}

	shortValue := shortTokens[0]
	initials := make([]byte, 0, len(longTokens))
	for _, tok := range longTokens {
		if initialismIgnoredTokens[tok] {
			continue
		}
		initials = append(initials, tok[0])
	}
	return len(shortValue) >= 2 && shortValue == string(initials)
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func tokenSubset(shorter, longer []string) bool {
	longerSet := make(map[string]bool, len(longer))
	for _, tok := range longer {
		longerSet[tok] = true
	}
	for _, tok := range shorter {
		if !longerSet[tok] {
			return false
		}
	}
	return true
}
