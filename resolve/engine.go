package resolve

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kashishkap00r/company-chatter/market"
	"github.com/kashishkap00r/company-chatter/nameutil"
	"github.com/kashishkap00r/company-chatter/rules"
)

// Rules bundles the curated rule sets consulted during resolution.
// Nil fields behave as empty rule sets.
type Rules struct {
	AliasPairs *rules.PairSet
	BlockPairs *rules.PairSet
	NonCompany *rules.NonCompanyRules
}

// Resolve runs the full resolution pipeline over the raw inputs and
// returns canonical companies, rewritten rows, and the report. It
// never fails: every raw id ends in either the alias map or the
// quarantine, and malformed inputs degrade to empty output.
func Resolve(companies []RawCompany, quotes, mentions []Row, ruleSet Rules) *Result {
	r := newResolver(companies, quotes, mentions, ruleSet)

	r.quarantineNonCompanies()
	r.applyAliasRules()
	r.mergeByMarketKey()
	r.mergeByNameBucket()
	r.mergeAcrossBuckets()
	r.refineComponents()
	result := r.canonicalize()

	slog.Info("resolve: resolution complete",
		"input_companies", len(companies),
		"canonical_companies", len(result.Companies),
		"quarantined", len(result.Quarantine),
		"merged_groups", len(result.Report.MergedGroups),
		"market_conflicts", len(result.Report.MarketConflicts))
	return result
}

// resolver carries the mutable state of a single resolution run.
type resolver struct {
	companies []RawCompany
	quotes    []Row
	mentions  []Row

	aliasPairs *rules.PairSet
	blockPairs *rules.PairSet
	nonCompany *rules.NonCompanyRules

	byID         map[string]RawCompany
	workingURL   map[string]string
	marketKeys   map[string]string
	quoteCounts  map[string]int
	mentionCount map[string]int

	uf         *unionFind
	quarantine map[string]string

	marketConflicts   []MarketConflict
	crossBucketMerges []CrossBucketMerge
	refined           map[string][]string
	refinedKeys       []string
}

func newResolver(companies []RawCompany, quotes, mentions []Row, ruleSet Rules) *resolver {
	// The Reliance consumer/industries block is domain knowledge baked
	// into the engine; rule files extend it but cannot remove it.
	blockPairs := rules.NewPairSet(nil)
	if ruleSet.BlockPairs != nil {
		blockPairs = rules.NewPairSet(ruleSet.BlockPairs.Pairs)
	}
	blockPairs.Add(
		nameutil.NameKey("Reliance Consumer Products"),
		nameutil.NameKey("Reliance Industries"),
	)

	aliasPairs := ruleSet.AliasPairs
	if aliasPairs == nil {
		aliasPairs = rules.NewPairSet(nil)
	}

	r := &resolver{
		companies:    companies,
		quotes:       quotes,
		mentions:     mentions,
		aliasPairs:   aliasPairs,
		blockPairs:   blockPairs,
		nonCompany:   ruleSet.NonCompany,
		byID:         make(map[string]RawCompany, len(companies)),
		workingURL:   make(map[string]string, len(companies)),
		marketKeys:   make(map[string]string, len(companies)),
		quoteCounts:  make(map[string]int),
		mentionCount: make(map[string]int),
		quarantine:   make(map[string]string),
	}

	ids := make([]string, 0, len(companies))
	for _, c := range companies {
		r.byID[c.ID] = c
		r.workingURL[c.ID] = c.URL
		r.marketKeys[c.ID] = market.KeyFromURL(c.URL)
		ids = append(ids, c.ID)
	}
	r.uf = newUnionFind(ids)

	for _, q := range quotes {
		r.quoteCounts[q.CompanyID()]++
	}
	for _, m := range mentions {
		r.mentionCount[m.CompanyID()]++
	}
	return r
}

// quarantineNonCompanies flags raw names matching the non-company rules
// or the sentence heuristic before any merging happens.
func (r *resolver) quarantineNonCompanies() {
	for _, c := range r.companies {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if IsNonCompanyLabel(name, r.nonCompany) {
			r.quarantine[c.ID] = ReasonNonCompanyLabel
		}
	}
}

// applyAliasRules unions every pair of raw ids whose name keys match an
// explicit alias pair. Blocks do not veto curated aliases.
func (r *resolver) applyAliasRules() {
	idsByRuleKey := make(map[string][]string)
	for _, c := range r.companies {
		key := nameutil.NameKey(c.Name)
		idsByRuleKey[key] = append(idsByRuleKey[key], c.ID)
	}
	for _, ids := range idsByRuleKey {
		sort.Strings(ids)
	}

	for _, pair := range r.aliasPairs.Pairs {
		for _, leftID := range idsByRuleKey[pair.A] {
			for _, rightID := range idsByRuleKey[pair.B] {
				if leftID != rightID {
					r.uf.union(leftID, rightID)
				}
			}
		}
	}
}

// mergeByMarketKey unions compatible names sharing an exchange/symbol,
// then resolves market keys still claimed by multiple components: the
// strongest component stays primary, mention-only components are
// quarantined, and quote-backed losers survive detached from the key.
func (r *resolver) mergeByMarketKey() {
	groups := make(map[string][]string)
	for _, c := range r.companies {
		if r.quarantine[c.ID] != "" {
			continue
		}
		if key := r.marketKeys[c.ID]; key != "" {
			groups[key] = append(groups[key], c.ID)
		}
	}

	keys := sortedKeys(groups)
	for _, key := range keys {
		ids := groups[key]
		sort.Strings(ids)
		for i, leftID := range ids {
			for _, rightID := range ids[i+1:] {
				if r.compatibleIDs(leftID, rightID) {
					r.uf.union(leftID, rightID)
				}
			}
		}
	}

	for _, key := range keys {
		componentMap := make(map[string][]string)
		for _, id := range groups[key] {
			root := r.uf.find(id)
			componentMap[root] = append(componentMap[root], id)
		}
		if len(componentMap) <= 1 {
			continue
		}

		roots := sortedKeys(componentMap)
		primaryRoot := roots[0]
		bestScore, bestSize := r.componentScore(componentMap[primaryRoot]), len(componentMap[primaryRoot])
		for _, root := range roots[1:] {
			score, size := r.componentScore(componentMap[root]), len(componentMap[root])
			if score > bestScore || (score == bestScore && size > bestSize) {
				primaryRoot, bestScore, bestSize = root, score, size
			}
		}

		conflict := MarketConflict{MarketKey: key}
		for _, root := range roots {
			componentIDs := componentMap[root]
			sort.Strings(componentIDs)

			quoteCount, mentionCount := 0, 0
			for _, id := range componentIDs {
				quoteCount += r.quoteCounts[id]
				mentionCount += r.mentionCount[id]
			}
			conflict.Components = append(conflict.Components, ConflictComponent{
				Root:         root,
				IsPrimary:    root == primaryRoot,
				QuoteCount:   quoteCount,
				MentionCount: mentionCount,
				Members:      r.members(componentIDs),
			})

			if root == primaryRoot {
				continue
			}
			if quoteCount == 0 {
				for _, id := range componentIDs {
					r.quarantine[id] = ReasonMarketKeyConflict
				}
				continue
			}
			for _, id := range componentIDs {
				r.workingURL[id] = ""
				r.marketKeys[id] = ""
			}
		}
		r.marketConflicts = append(r.marketConflicts, conflict)
	}
}

// mergeByNameBucket unions compatible survivors sharing a normalized
// name key, guarding against conflicting explicit market identities.
func (r *resolver) mergeByNameBucket() {
	buckets := make(map[string][]string)
	for _, c := range r.companies {
		if r.quarantine[c.ID] != "" {
			continue
		}
		key := nameutil.NameKey(c.Name)
		if key == "" {
			key = c.ID
		}
		buckets[key] = append(buckets[key], c.ID)
	}

	for _, key := range sortedKeys(buckets) {
		ids := buckets[key]
		sort.Strings(ids)
		for i, leftID := range ids {
			for _, rightID := range ids[i+1:] {
				leftName := r.byID[leftID].Name
				rightName := r.byID[rightID].Name
				leftRuleKey := nameutil.NameKey(leftName)
				rightRuleKey := nameutil.NameKey(rightName)
				if r.blockPairs.Contains(leftRuleKey, rightRuleKey) {
					continue
				}
				leftMarket := r.marketKeys[leftID]
				rightMarket := r.marketKeys[rightID]
				if leftMarket != "" && rightMarket != "" && leftMarket != rightMarket &&
					!r.aliasPairs.Contains(leftRuleKey, rightRuleKey) {
					continue
				}
				if Compatible(leftName, rightName, r.aliasPairs, r.blockPairs) {
					r.uf.union(leftID, rightID)
				}
			}
		}
	}
}

// mergeAcrossBuckets catches acronym/full-name variants stranded in
// separate buckets by comparing component anchors, while still
// refusing to join components with different market identities.
func (r *resolver) mergeAcrossBuckets() {
	components := r.currentComponents()
	roots := sortedKeys(components)

	componentMarketKeys := make(map[string][]string, len(components))
	anchors := make(map[string]string, len(components))
	for _, root := range roots {
		componentMarketKeys[root] = r.componentMarketKeys(components[root])
		anchors[root] = r.pickAnchor(components[root])
	}

	for i, leftRoot := range roots {
		leftAnchor := anchors[leftRoot]
		leftName := r.byID[leftAnchor].Name
		leftKeys := componentMarketKeys[leftRoot]

		for _, rightRoot := range roots[i+1:] {
			rightAnchor := anchors[rightRoot]
			if r.uf.find(leftAnchor) == r.uf.find(rightAnchor) {
				continue
			}

			rightName := r.byID[rightAnchor].Name
			rightKeys := componentMarketKeys[rightRoot]
			if r.blockPairs.Contains(nameutil.NameKey(leftName), nameutil.NameKey(rightName)) {
				continue
			}
			if len(leftKeys) > 0 && len(rightKeys) > 0 && !equalTokens(leftKeys, rightKeys) {
				continue
			}
			if !Compatible(leftName, rightName, r.aliasPairs, r.blockPairs) {
				continue
			}

			r.uf.union(leftAnchor, rightAnchor)
			r.crossBucketMerges = append(r.crossBucketMerges, CrossBucketMerge{
				LeftRoot:        leftRoot,
				RightRoot:       rightRoot,
				LeftAnchor:      Member{ID: leftAnchor, Name: leftName},
				RightAnchor:     Member{ID: rightAnchor, Name: rightName},
				LeftMarketKeys:  leftKeys,
				RightMarketKeys: rightKeys,
			})
		}
	}
}

// refineComponents enforces pairwise compatibility inside each merged
// component, splitting off clusters that only joined through weak
// transitive intermediates.
func (r *resolver) refineComponents() {
	components := r.currentComponents()
	r.refined = make(map[string][]string, len(components))
	r.refinedKeys = r.refinedKeys[:0]

	for _, root := range sortedKeys(components) {
		ids := components[root]
		if len(ids) <= 1 {
			r.addRefined(root, ids)
			continue
		}

		sorted := append([]string(nil), ids...)
		sort.Slice(sorted, func(i, j int) bool {
			return r.memberRankLess(sorted[j], sorted[i]) // descending
		})

		var clusters [][]string
		for _, id := range sorted {
			name := r.byID[id].Name
			placed := false
			for ci, cluster := range clusters {
				fits := true
				for _, otherID := range cluster {
					if !Compatible(name, r.byID[otherID].Name, r.aliasPairs, r.blockPairs) {
						fits = false
						break
					}
				}
				if fits {
					clusters[ci] = append(cluster, id)
					placed = true
					break
				}
			}
			if !placed {
				clusters = append(clusters, []string{id})
			}
		}

		if len(clusters) == 1 {
			r.addRefined(root, clusters[0])
			continue
		}
		for ci, cluster := range clusters {
			key := root
			if ci > 0 {
				key = fmt.Sprintf("%s#%d", root, ci)
			}
			r.addRefined(key, cluster)
		}
	}
}

func (r *resolver) addRefined(key string, ids []string) {
	r.refined[key] = ids
	r.refinedKeys = append(r.refinedKeys, key)
}

// canonicalize picks a primary member, display name, and identity for
// each final component and assembles the result.
func (r *resolver) canonicalize() *Result {
	aliasMap := make(map[string]string)
	merged := make([]Company, 0, len(r.refined))
	mergedGroups := []MergedGroup{}

	keys := append([]string(nil), r.refinedKeys...)
	sort.Strings(keys)
	for _, key := range keys {
		componentIDs := append([]string(nil), r.refined[key]...)
		sort.Strings(componentIDs)

		marketKeys := r.componentMarketKeys(componentIDs)
		primaryID := r.pickPrimary(componentIDs)
		displayName := r.pickDisplayName(componentIDs)
		canonicalURL := r.pickCanonicalURL(componentIDs)

		identitySource := SourceSingle
		identityConfidence := ConfidenceMedium
		switch {
		case len(componentIDs) > 1 && len(marketKeys) > 0:
			identitySource = SourceMarketKeyName
			if len(marketKeys) == 1 {
				identityConfidence = ConfidenceHigh
			}
		case len(componentIDs) > 1:
			identitySource = SourceName
		case canonicalURL != "":
			identitySource = SourceMarketKey
			identityConfidence = ConfidenceHigh
		}

		merged = append(merged, Company{
			ID:                 primaryID,
			Name:               displayName,
			URL:                canonicalURL,
			MarketKey:          market.KeyFromURL(canonicalURL),
			CanonicalCompanyID: primaryID,
			IdentityConfidence: identityConfidence,
			IdentitySource:     identitySource,
		})
		for _, id := range componentIDs {
			aliasMap[id] = primaryID
		}
		if len(componentIDs) > 1 {
			mergedGroups = append(mergedGroups, MergedGroup{
				CanonicalID:   primaryID,
				CanonicalName: displayName,
				Members:       r.members(componentIDs),
				MarketKeys:    marketKeys,
			})
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	sort.Slice(mergedGroups, func(i, j int) bool { return mergedGroups[i].CanonicalID < mergedGroups[j].CanonicalID })

	outQuotes, droppedQuotes := RewriteRows(r.quotes, aliasMap, r.quarantine)
	outMentions, droppedMentions := RewriteRows(r.mentions, aliasMap, r.quarantine)

	quarantined := make([]QuarantinedCompany, 0, len(r.quarantine))
	for _, id := range sortedKeys(r.quarantine) {
		quarantined = append(quarantined, QuarantinedCompany{
			ID:           id,
			Name:         r.byID[id].Name,
			Reason:       r.quarantine[id],
			MarketKey:    r.marketKeys[id],
			QuoteCount:   r.quoteCounts[id],
			MentionCount: r.mentionCount[id],
		})
	}

	report := &Report{
		Counts: Counts{
			InputCompanies:       len(r.companies),
			CanonicalCompanies:   len(merged),
			QuarantinedCompanies: len(r.quarantine),
			MergedGroups:         len(mergedGroups),
			DroppedQuoteRows:     droppedQuotes,
			DroppedMentionRows:   droppedMentions,
			InputQuotes:          len(r.quotes),
			OutputQuotes:         len(outQuotes),
			InputMentions:        len(r.mentions),
			OutputMentions:       len(outMentions),
			MarketConflicts:      len(r.marketConflicts),
			CrossBucketMerges:    len(r.crossBucketMerges),
		},
		QuarantinedCompanies: quarantined,
		MergedGroups:         mergedGroups,
		MarketConflicts:      append([]MarketConflict{}, r.marketConflicts...),
		CrossBucketMerges:    append([]CrossBucketMerge{}, r.crossBucketMerges...),
	}

	return &Result{
		Companies:  merged,
		Quotes:     outQuotes,
		Mentions:   outMentions,
		AliasMap:   aliasMap,
		Quarantine: r.quarantine,
		Report:     report,
	}
}

// --- selection helpers ---

func (r *resolver) compatibleIDs(leftID, rightID string) bool {
	return Compatible(r.byID[leftID].Name, r.byID[rightID].Name, r.aliasPairs, r.blockPairs)
}

// componentScore weighs quote coverage over mention coverage.
func (r *resolver) componentScore(ids []string) int {
	quoteScore, mentionScore := 0, 0
	for _, id := range ids {
		quoteScore += r.quoteCounts[id]
		mentionScore += r.mentionCount[id]
	}
	return quoteScore*10 + mentionScore*3
}

// currentComponents groups non-quarantined ids by their current root,
// with member lists sorted by id.
func (r *resolver) currentComponents() map[string][]string {
	components := make(map[string][]string)
	for _, c := range r.companies {
		if r.quarantine[c.ID] != "" {
			continue
		}
		root := r.uf.find(c.ID)
		components[root] = append(components[root], c.ID)
	}
	for _, ids := range components {
		sort.Strings(ids)
	}
	return components
}

func (r *resolver) componentMarketKeys(ids []string) []string {
	seen := make(map[string]bool)
	keys := []string{}
	for _, id := range ids {
		if key := r.marketKeys[id]; key != "" && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// memberRankLess orders members ascending by (quote count, mention
// count, market-key presence, lowercase name, id); the refinement and
// anchor passes consume it in descending direction.
func (r *resolver) memberRankLess(a, b string) bool {
	if r.quoteCounts[a] != r.quoteCounts[b] {
		return r.quoteCounts[a] < r.quoteCounts[b]
	}
	if r.mentionCount[a] != r.mentionCount[b] {
		return r.mentionCount[a] < r.mentionCount[b]
	}
	aMarket := r.marketKeys[a] != ""
	bMarket := r.marketKeys[b] != ""
	if aMarket != bMarket {
		return bMarket
	}
	aName := strings.ToLower(r.byID[a].Name)
	bName := strings.ToLower(r.byID[b].Name)
	if aName != bName {
		return aName < bName
	}
	return a < b
}

// pickAnchor selects a component's representative for the cross-bucket
// pass: the strongest member by the standard rank.
func (r *resolver) pickAnchor(ids []string) string {
	anchor := ids[0]
	for _, id := range ids[1:] {
		if r.memberRankLess(anchor, id) {
			anchor = id
		}
	}
	return anchor
}

// pickPrimary chooses the canonical id for a component: market key and
// URL presence first, then coverage, then a clean un-suffixed name,
// then the shortest name.
func (r *resolver) pickPrimary(ids []string) string {
	best := ids[0]
	for _, id := range ids[1:] {
		if r.primaryLess(best, id) {
			best = id
		}
	}
	return best
}

func (r *resolver) primaryLess(a, b string) bool {
	aMarket := r.marketKeys[a] != ""
	bMarket := r.marketKeys[b] != ""
	if aMarket != bMarket {
		return bMarket
	}
	aURL := r.workingURL[a] != ""
	bURL := r.workingURL[b] != ""
	if aURL != bURL {
		return bURL
	}
	if r.quoteCounts[a] != r.quoteCounts[b] {
		return r.quoteCounts[a] < r.quoteCounts[b]
	}
	if r.mentionCount[a] != r.mentionCount[b] {
		return r.mentionCount[a] < r.mentionCount[b]
	}
	aSuffix := nameutil.HasLegalSuffix(r.byID[a].Name)
	bSuffix := nameutil.HasLegalSuffix(r.byID[b].Name)
	if aSuffix != bSuffix {
		return aSuffix
	}
	aLen := len(r.byID[a].Name)
	bLen := len(r.byID[b].Name)
	if aLen != bLen {
		return aLen > bLen
	}
	return a > b
}

// pickDisplayName prefers the shortest un-suffixed, earliest-sorted
// variant in the component.
func (r *resolver) pickDisplayName(ids []string) string {
	best := ids[0]
	for _, id := range ids[1:] {
		if r.displayLess(id, best) {
			best = id
		}
	}
	return r.byID[best].Name
}

func (r *resolver) displayLess(a, b string) bool {
	aName := r.byID[a].Name
	bName := r.byID[b].Name
	aSuffix := nameutil.HasLegalSuffix(aName)
	bSuffix := nameutil.HasLegalSuffix(bName)
	if aSuffix != bSuffix {
		return bSuffix
	}
	aTokens := len(nameutil.Tokens(aName))
	bTokens := len(nameutil.Tokens(bName))
	if aTokens != bTokens {
		return aTokens < bTokens
	}
	if len(aName) != len(bName) {
		return len(aName) < len(bName)
	}
	aLower := strings.ToLower(aName)
	bLower := strings.ToLower(bName)
	if aLower != bLower {
		return aLower < bLower
	}
	return a < b
}

// pickCanonicalURL returns the first member URL carrying a valid
// market identity, scanning members in id order.
func (r *resolver) pickCanonicalURL(ids []string) string {
	for _, id := range ids {
		url := strings.TrimSpace(r.workingURL[id])
		if url == "" {
			continue
		}
		if market.KeyFromURL(url) != "" {
			return url
		}
	}
	return ""
}

func (r *resolver) members(ids []string) []Member {
	members := make([]Member, 0, len(ids))
	for _, id := range ids {
		members = append(members, Member{ID: id, Name: r.byID[id].Name})
	}
	return members
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
