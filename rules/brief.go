package rules

import (
	"github.com/kashishkap00r/company-chatter/nameutil"
)

// BriefAliasRules is the curated alias vocabulary for story matching:
// per-company alias phrases, global and per-company blocked phrases,
// ambiguity overrides, and companies restricted to curated aliases only.
// All phrases are stored in normalized alias-phrase form.
type BriefAliasRules struct {
	CompanyAliases        map[string]map[string]bool
	AliasOverrides        map[string]string
	BlockedAliases        map[string]bool
	CompanyBlockedAliases map[string]map[string]bool
	StrictCompanies       map[string]bool
}

// EmptyBriefAliasRules returns a rule set with no entries.
func EmptyBriefAliasRules() *BriefAliasRules {
	return &BriefAliasRules{
		CompanyAliases:        make(map[string]map[string]bool),
		AliasOverrides:        make(map[string]string),
		BlockedAliases:        make(map[string]bool),
		CompanyBlockedAliases: make(map[string]map[string]bool),
		StrictCompanies:       make(map[string]bool),
	}
}

type briefAliasPayload struct {
	CompanyAliases        map[string][]string `json:"company_aliases"`
	AliasOverrides        map[string]string   `json:"alias_overrides"`
	BlockedAliases        []string            `json:"blocked_aliases"`
	CompanyBlockedAliases map[string][]string `json:"company_blocked_aliases"`
	StrictCompanies       []string            `json:"strict_companies"`
}

// LoadBriefAliasRules reads the dailybrief alias rule file, normalizing
// every phrase and dropping entries that normalize to empty.
func LoadBriefAliasRules(path string) *BriefAliasRules {
	parsed := EmptyBriefAliasRules()

	var payload briefAliasPayload
	if !readJSONObject(path, &payload) {
		return parsed
	}

	for companyID, aliases := range payload.CompanyAliases {
		if companyID == "" {
			continue
		}
		set := normalizePhraseSet(aliases)
		if len(set) > 0 {
			parsed.CompanyAliases[companyID] = set
		}
	}
	for alias, companyID := range payload.AliasOverrides {
		aliasKey := nameutil.NormalizeAliasPhrase(alias)
		if aliasKey != "" && companyID != "" {
			parsed.AliasOverrides[aliasKey] = companyID
		}
	}
	for _, alias := range payload.BlockedAliases {
		if aliasKey := nameutil.NormalizeAliasPhrase(alias); aliasKey != "" {
			parsed.BlockedAliases[aliasKey] = true
		}
	}
	for companyID, aliases := range payload.CompanyBlockedAliases {
		if companyID == "" {
			continue
		}
		set := normalizePhraseSet(aliases)
		if len(set) > 0 {
			parsed.CompanyBlockedAliases[companyID] = set
		}
	}
	for _, companyID := range payload.StrictCompanies {
		if companyID != "" {
			parsed.StrictCompanies[companyID] = true
		}
	}
	return parsed
}

func normalizePhraseSet(phrases []string) map[string]bool {
	set := make(map[string]bool, len(phrases))
	for _, phrase := range phrases {
		if key := nameutil.NormalizeAliasPhrase(phrase); key != "" {
			set[key] = true
		}
	}
	return set
}
