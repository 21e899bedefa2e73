package brief

import (
	"testing"

	"github.com/kashishkap00r/company-chatter/resolve"
	"github.com/kashishkap00r/company-chatter/rules"
)

func TestBuildAliasSets(t *testing.T) {
	companies := []resolve.Company{
		{ID: "hdfc-bank", Name: "HDFC Bank", URL: "https://zerodha.com/markets/stocks/NSE/HDFCBANK/"},
		{ID: "itc", Name: "ITC Limited"},
	}
	mergedGroups := []resolve.MergedGroup{
		{
			CanonicalID:   "hdfc-bank",
			CanonicalName: "HDFC Bank",
			Members: []resolve.Member{
				{ID: "hdfc-bank", Name: "HDFC Bank"},
				{ID: "hdfc-bank-ltd", Name: "HDFC Bank Ltd"},
			},
		},
	}

	sets := BuildAliasSets(companies, mergedGroups, rules.EmptyBriefAliasRules())

	hdfc := sets["hdfc-bank"]
	for _, want := range []string{"hdfc bank", "hdfc bank ltd", "hdfcbank"} {
		if !hdfc[want] {
			t.Errorf("hdfc-bank aliases missing %q: %v", want, hdfc)
		}
	}

	itc := sets["itc"]
	if !itc["itc limited"] || !itc["itc"] {
		t.Errorf("itc aliases missing display or collapsed form: %v", itc)
	}
}

func TestBuildAliasSetsFilters(t *testing.T) {
	companies := []resolve.Company{
		{ID: "bse", Name: "BSE", URL: "https://zerodha.com/markets/stocks/BSE/500325/"},
	}
	aliasRules := rules.EmptyBriefAliasRules()
	aliasRules.BlockedAliases["bse"] = true

	sets := BuildAliasSets(companies, nil, aliasRules)

	aliases := sets["bse"]
	if aliases["bse"] {
		t.Error("globally blocked alias must be removed")
	}
	if aliases["500325"] {
		t.Error("numeric-only symbol alias must be removed")
	}
}

func TestBuildAliasSetsStrictCompany(t *testing.T) {
	companies := []resolve.Company{
		{ID: "lic", Name: "Life Insurance Corporation of India", URL: "https://zerodha.com/markets/stocks/NSE/LICI/"},
	}
	aliasRules := rules.EmptyBriefAliasRules()
	aliasRules.StrictCompanies["lic"] = true
	aliasRules.CompanyAliases["lic"] = map[string]bool{"lic": true}

	sets := BuildAliasSets(companies, nil, aliasRules)

	aliases := sets["lic"]
	if len(aliases) != 1 || !aliases["lic"] {
		t.Errorf("strict company must keep only curated aliases, got %v", aliases)
	}
}

func TestBuildAliasSpecsAmbiguity(t *testing.T) {
	aliasesByCompany := map[string]map[string]bool{
		"jupiter-wagons":    {"jupiter": true, "jupiter wagons": true},
		"jupiter-hospitals": {"jupiter": true, "jupiter life line": true},
	}

	t.Run("ambiguous alias dropped everywhere", func(t *testing.T) {
		specs := BuildAliasSpecs(aliasesByCompany, rules.EmptyBriefAliasRules())
		for companyID, companySpecs := range specs {
			for _, spec := range companySpecs {
				if spec.Alias == "jupiter" {
					t.Errorf("ambiguous alias retained for %s", companyID)
				}
			}
		}
		if len(specs["jupiter-wagons"]) != 1 || specs["jupiter-wagons"][0].Alias != "jupiter wagons" {
			t.Errorf("unambiguous alias lost: %v", specs["jupiter-wagons"])
		}
	})

	t.Run("override names a winner", func(t *testing.T) {
		aliasRules := rules.EmptyBriefAliasRules()
		aliasRules.AliasOverrides["jupiter"] = "jupiter-wagons"
		specs := BuildAliasSpecs(aliasesByCompany, aliasRules)

		var wagonsHas, hospitalsHas bool
		for _, spec := range specs["jupiter-wagons"] {
			if spec.Alias == "jupiter" {
				wagonsHas = true
			}
		}
		for _, spec := range specs["jupiter-hospitals"] {
			if spec.Alias == "jupiter" {
				hospitalsHas = true
			}
		}
		if !wagonsHas || hospitalsHas {
			t.Errorf("override winner=%v loser=%v, want true/false", wagonsHas, hospitalsHas)
		}
	})
}

func TestBuildAliasSpecsOrdering(t *testing.T) {
	aliasesByCompany := map[string]map[string]bool{
		"hdfc-bank": {"hdfc": true, "hdfc bank": true, "hdfcbank": true},
	}
	specs := BuildAliasSpecs(aliasesByCompany, rules.EmptyBriefAliasRules())

	got := specs["hdfc-bank"]
	if len(got) != 3 {
		t.Fatalf("specs = %d, want 3", len(got))
	}
	if got[0].Alias != "hdfc bank" || got[1].Alias != "hdfcbank" || got[2].Alias != "hdfc" {
		t.Errorf("specs not longest-first: %v", []string{got[0].Alias, got[1].Alias, got[2].Alias})
	}
	if got[0].FirstToken != "hdfc" {
		t.Errorf("first token = %q, want hdfc", got[0].FirstToken)
	}
}

func TestAliasPatternWordBoundaries(t *testing.T) {
	specs := BuildAliasSpecs(map[string]map[string]bool{
		"itc": {"itc": true},
	}, rules.EmptyBriefAliasRules())

	pattern := specs["itc"][0].Pattern
	if !pattern.MatchString("itc posted strong results") {
		t.Error("should match at word boundary")
	}
	if pattern.MatchString("glitch in the system") {
		t.Error("must not match inside a word")
	}
	if pattern.MatchString("pitched itcetera") {
		t.Error("must not match a prefix of a longer token")
	}
}
