// Package rules loads the external JSON rule files that steer entity
// resolution and alias matching. Every loader is total: a missing file
// degrades silently and a malformed one with a warning to an empty rule
// set, never an error (curator files must not be able to break the
// build).
package rules

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/kashishkap00r/company-chatter/nameutil"
)

// Pair is an unordered pair of name keys, stored with A <= B.
type Pair struct {
	A string
	B string
}

// MakePair canonicalizes an unordered name-key pair.
func MakePair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// PairSet holds alias or block pairs keyed by normalized name keys.
// Pairs is sorted for deterministic iteration.
type PairSet struct {
	Pairs   []Pair
	present map[Pair]bool
}

// NewPairSet builds a PairSet from canonicalized pairs, dropping
// duplicates and sorting.
func NewPairSet(pairs []Pair) *PairSet {
	set := &PairSet{present: make(map[Pair]bool, len(pairs))}
	for _, p := range pairs {
		if set.present[p] {
			continue
		}
		set.present[p] = true
		set.Pairs = append(set.Pairs, p)
	}
	sort.Slice(set.Pairs, func(i, j int) bool {
		if set.Pairs[i].A != set.Pairs[j].A {
			return set.Pairs[i].A < set.Pairs[j].A
		}
		return set.Pairs[i].B < set.Pairs[j].B
	})
	return set
}

// Contains reports whether the unordered pair (a, b) is in the set.
func (s *PairSet) Contains(a, b string) bool {
	if s == nil {
		return false
	}
	return s.present[MakePair(a, b)]
}

// Add inserts an unordered pair, keeping Pairs sorted.
func (s *PairSet) Add(a, b string) {
	p := MakePair(a, b)
	if s.present[p] {
		return
	}
	s.present[p] = true
	s.Pairs = append(s.Pairs, p)
	sort.Slice(s.Pairs, func(i, j int) bool {
		if s.Pairs[i].A != s.Pairs[j].A {
			return s.Pairs[i].A < s.Pairs[j].A
		}
		return s.Pairs[i].B < s.Pairs[j].B
	})
}

// Len returns the number of pairs.
func (s *PairSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Pairs)
}

// LoadPairRules reads a {key: [[name, name], ...]} rule file and
// normalizes both sides via the name key. Pairs where either side
// normalizes to empty, or both sides collide, are dropped.
func LoadPairRules(path, key string) *PairSet {
	var payload map[string]json.RawMessage
	if !readJSONObject(path, &payload) {
		return NewPairSet(nil)
	}

	var rawPairs []json.RawMessage
	if raw, ok := payload[key]; ok {
		if err := json.Unmarshal(raw, &rawPairs); err != nil {
			slog.Warn("rules: ignoring malformed pair list", "path", path, "key", key, "error", err)
			return NewPairSet(nil)
		}
	}

	var pairs []Pair
	for _, rawItem := range rawPairs {
		var item []string
		if err := json.Unmarshal(rawItem, &item); err != nil || len(item) != 2 {
			continue
		}
		left := nameutil.NameKey(item[0])
		right := nameutil.NameKey(item[1])
		if left == "" || right == "" || left == right {
			continue
		}
		pairs = append(pairs, MakePair(left, right))
	}
	return NewPairSet(pairs)
}

// NonCompanyRules drives the quarantine pre-pass: exact raw name keys,
// case-insensitive regex patterns, and an allow-list that overrides both.
type NonCompanyRules struct {
	ExactNameKeys map[string]bool
	AllowNameKeys map[string]bool
	NamePatterns  []*regexp.Regexp
}

// Matches reports whether name is flagged by the explicit non-company
// rules. The allow-list wins over both exact names and patterns.
func (r *NonCompanyRules) Matches(name string) bool {
	if r == nil {
		return false
	}
	nameKey := nameutil.RawNameKey(name)
	if r.AllowNameKeys[nameKey] {
		return false
	}
	if r.ExactNameKeys[nameKey] {
		return true
	}
	for _, pattern := range r.NamePatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// Allows reports whether name is explicitly allow-listed.
func (r *NonCompanyRules) Allows(name string) bool {
	return r != nil && r.AllowNameKeys[nameutil.RawNameKey(name)]
}

type nonCompanyPayload struct {
	ExactNames   []string `json:"exact_names"`
	NamePatterns []string `json:"name_patterns"`
	AllowNames   []string `json:"allow_names"`
}

// LoadNonCompanyRules reads the non-company rule file. Invalid regex
// patterns are skipped individually.
func LoadNonCompanyRules(path string) *NonCompanyRules {
	rules := &NonCompanyRules{
		ExactNameKeys: make(map[string]bool),
		AllowNameKeys: make(map[string]bool),
	}

	var payload nonCompanyPayload
	if !readJSONObject(path, &payload) {
		return rules
	}

	for _, name := range payload.ExactNames {
		if key := nameutil.RawNameKey(name); key != "" {
			rules.ExactNameKeys[key] = true
		}
	}
	for _, name := range payload.AllowNames {
		if key := nameutil.RawNameKey(name); key != "" {
			rules.AllowNameKeys[key] = true
		}
	}
	for _, pattern := range payload.NamePatterns {
		text := strings.TrimSpace(pattern)
		if text == "" {
			continue
		}
		compiled, err := regexp.Compile("(?i)" + text)
		if err != nil {
			slog.Warn("rules: skipping invalid non-company pattern", "path", path, "pattern", text, "error", err)
			continue
		}
		rules.NamePatterns = append(rules.NamePatterns, compiled)
	}
	return rules
}

// readJSONObject decodes path into out. Returns false (leaving out
// untouched) when the file is absent or not a JSON object. An absent
// file is silent; other read failures and malformed content are logged.
func readJSONObject(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("rules: unable to read rule file", "path", path, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("rules: ignoring malformed rule file", "path", path, "error", err)
		return false
	}
	return true
}
