// Package brief matches canonical companies against Daily Brief story
// text. The vocabulary builder derives the set of surface phrases that
// may identify each company; the matcher scans normalized story text
// with longest-first word-boundary patterns and emits one mention row
// per (company, story) pair.
package brief

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kashishkap00r/company-chatter/market"
	"github.com/kashishkap00r/company-chatter/nameutil"
	"github.com/kashishkap00r/company-chatter/resolve"
	"github.com/kashishkap00r/company-chatter/rules"
)

// AliasSpec is one compiled detection phrase for a company. FirstToken
// enables cheap rejection before the pattern runs.
type AliasSpec struct {
	Alias      string
	FirstToken string
	Pattern    *regexp.Regexp
}

// BuildAliasSets computes the normalized alias phrases per canonical
// company: display-name forms, merged member names, curated aliases,
// and the market symbol, minus blocked, numeric-only, and too-short
// phrases. Strict companies use only their curated aliases.
func BuildAliasSets(companies []resolve.Company, mergedGroups []resolve.MergedGroup, aliasRules *rules.BriefAliasRules) map[string]map[string]bool {
	if aliasRules == nil {
		aliasRules = rules.EmptyBriefAliasRules()
	}
	memberNames := memberNamesByCanonicalID(mergedGroups)

	aliasesByCompany := make(map[string]map[string]bool, len(companies))
	for _, company := range companies {
		if company.ID == "" {
			continue
		}

		aliases := make(map[string]bool)
		explicit := aliasRules.CompanyAliases[company.ID]

		if aliasRules.StrictCompanies[company.ID] {
			for alias := range explicit {
				aliases[alias] = true
			}
		} else {
			if normalized := nameutil.NormalizeAliasPhrase(company.Name); normalized != "" {
				aliases[normalized] = true
			}
			collapsed := nameutil.NormalizeAliasPhrase(strings.Join(nameutil.NormalizedTokens(company.Name), " "))
			if collapsed != "" {
				aliases[collapsed] = true
			}
			for _, memberName := range memberNames[company.ID] {
				if alias := nameutil.NormalizeAliasPhrase(memberName); alias != "" {
					aliases[alias] = true
				}
			}
			for alias := range explicit {
				aliases[alias] = true
			}
			if symbol := market.SymbolAlias(company.URL); symbol != "" {
				aliases[symbol] = true
			}
			for alias, overrideCompanyID := range aliasRules.AliasOverrides {
				if overrideCompanyID == company.ID {
					aliases[alias] = true
				}
			}
		}

		companyBlocked := aliasRules.CompanyBlockedAliases[company.ID]
		kept := make(map[string]bool, len(aliases))
		for alias := range aliases {
			if len(alias) < 2 || nameutil.IsDigits(alias) {
				continue
			}
			if aliasRules.BlockedAliases[alias] || companyBlocked[alias] {
				continue
			}
			kept[alias] = true
		}
		aliasesByCompany[company.ID] = kept
	}
	return aliasesByCompany
}

// BuildAliasSpecs disambiguates the per-company alias sets and compiles
// them to scan patterns. An alias claimed by several companies survives
// only for the company named by an explicit override; otherwise it is
// dropped everywhere. Specs are sorted longest-first, ties broken by
// the alias string.
func BuildAliasSpecs(aliasesByCompany map[string]map[string]bool, aliasRules *rules.BriefAliasRules) map[string][]AliasSpec {
	if aliasRules == nil {
		aliasRules = rules.EmptyBriefAliasRules()
	}

	aliasClaims := make(map[string]int)
	for _, aliases := range aliasesByCompany {
		for alias := range aliases {
			aliasClaims[alias]++
		}
	}

	specsByCompany := make(map[string][]AliasSpec, len(aliasesByCompany))
	for companyID, aliases := range aliasesByCompany {
		specs := []AliasSpec{}
		for _, alias := range sortedKeys(aliases) {
			if aliasRules.BlockedAliases[alias] {
				continue
			}
			overrideCompany, hasOverride := aliasRules.AliasOverrides[alias]
			if hasOverride && overrideCompany != companyID {
				continue
			}
			if !hasOverride && aliasClaims[alias] > 1 {
				continue
			}
			firstToken, _, _ := strings.Cut(alias, " ")
			specs = append(specs, AliasSpec{
				Alias:      alias,
				FirstToken: firstToken,
				Pattern:    compileAliasPattern(alias),
			})
		}
		sort.Slice(specs, func(i, j int) bool {
			if len(specs[i].Alias) != len(specs[j].Alias) {
				return len(specs[i].Alias) > len(specs[j].Alias)
			}
			return specs[i].Alias < specs[j].Alias
		})
		specsByCompany[companyID] = specs
	}
	return specsByCompany
}

// compileAliasPattern builds a word-boundary pattern for a normalized
// alias. Story text is ASCII-alphanumeric lowercase by construction,
// so \b is an exact token boundary; internal spaces match whitespace
// runs.
func compileAliasPattern(alias string) *regexp.Regexp {
	patternText := strings.ReplaceAll(regexp.QuoteMeta(alias), " ", `\s+`)
	return regexp.MustCompile(`\b(?:` + patternText + `)\b`)
}

func memberNamesByCanonicalID(groups []resolve.MergedGroup) map[string][]string {
	names := make(map[string][]string, len(groups))
	for _, group := range groups {
		if group.CanonicalID == "" {
			continue
		}
		seen := make(map[string]bool)
		var collected []string
		add := func(name string) {
			name = strings.TrimSpace(name)
			if name != "" && !seen[name] {
				seen[name] = true
				collected = append(collected, name)
			}
		}
		add(group.CanonicalName)
		for _, member := range group.Members {
			add(member.Name)
		}
		names[group.CanonicalID] = append(names[group.CanonicalID], collected...)
	}
	return names
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
