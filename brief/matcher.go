package brief

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kashishkap00r/company-chatter/nameutil"
	"github.com/kashishkap00r/company-chatter/resolve"
	"github.com/kashishkap00r/company-chatter/rules"
)

// Post is one Daily Brief publication with its extracted story units.
type Post struct {
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Date           string  `json:"date"`
	SitemapLastmod string  `json:"sitemap_lastmod,omitempty"`
	Stories        []Story `json:"stories"`
}

// Story is one story unit inside a brief post.
type Story struct {
	StoryID  string `json:"story_id,omitempty"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Source   string `json:"source"`
	Text     string `json:"text"`
	URL      string `json:"url,omitempty"`
}

// StoryMention links a canonical company to a story that mentions it.
type StoryMention struct {
	CompanyID     string `json:"company_id"`
	StoryID       string `json:"story_id"`
	StoryTitle    string `json:"story_title"`
	StoryURL      string `json:"story_url"`
	PostTitle     string `json:"post_title"`
	StoryDate     string `json:"story_date"`
	StoryPosition int    `json:"story_position"`
	StorySource   string `json:"story_source"`
	MentionCount  int    `json:"mention_count"`
}

// MatchStories scans every story against every company's alias specs
// and returns one mention row per (company, story) pair. Stories are
// scanned in input order, companies in canonical-list order, aliases
// longest-first; overlapping span matches are suppressed.
func MatchStories(companies []resolve.Company, mergedGroups []resolve.MergedGroup, aliasRules *rules.BriefAliasRules, posts []Post) []StoryMention {
	aliasesByCompany := BuildAliasSets(companies, mergedGroups, aliasRules)
	specsByCompany := BuildAliasSpecs(aliasesByCompany, aliasRules)

	companyIDs := make([]string, 0, len(companies))
	for _, company := range companies {
		if company.ID != "" {
			companyIDs = append(companyIDs, company.ID)
		}
	}

	mentions := []StoryMention{}
	seen := make(map[[2]string]bool)

	for _, post := range posts {
		postURL := strings.TrimSpace(post.URL)
		if postURL == "" {
			continue
		}
		postTitle := strings.TrimSpace(post.Title)
		storyDate := strings.TrimSpace(post.Date)
		if storyDate == "" {
			storyDate = strings.TrimSpace(post.SitemapLastmod)
		}

		for _, story := range post.Stories {
			storyTitle := strings.TrimSpace(story.Title)
			if storyTitle == "" {
				storyTitle = postTitle
			}
			if storyTitle == "" {
				storyTitle = "Daily Brief story"
			}
			storyID := strings.TrimSpace(story.StoryID)
			if storyID == "" {
				storyID = nameutil.Slugify(fmt.Sprintf("%s-%d-%s", postURL, story.Position, storyTitle))
			}

			normalizedText := nameutil.NormalizeAliasPhrase(story.Text)
			if normalizedText == "" {
				continue
			}
			storyTokens := make(map[string]bool)
			for _, tok := range strings.Fields(normalizedText) {
				storyTokens[tok] = true
			}

			for _, companyID := range companyIDs {
				specs := specsByCompany[companyID]
				if len(specs) == 0 {
					continue
				}
				if !anyFirstTokenPresent(specs, storyTokens) {
					continue
				}

				count := countMentions(normalizedText, specs)
				if count == 0 {
					continue
				}

				key := [2]string{companyID, storyID}
				if seen[key] {
					continue
				}
				seen[key] = true
				mentions = append(mentions, StoryMention{
					CompanyID:     companyID,
					StoryID:       storyID,
					StoryTitle:    storyTitle,
					StoryURL:      postURL,
					PostTitle:     postTitle,
					StoryDate:     storyDate,
					StoryPosition: story.Position,
					StorySource:   story.Source,
					MentionCount:  count,
				})
			}
		}
	}

	slog.Info("brief: story matching complete",
		"posts", len(posts), "mentions", len(mentions))
	return mentions
}

// anyFirstTokenPresent is the cheap rejection: skip the regex scan when
// no alias can possibly start in this story.
func anyFirstTokenPresent(specs []AliasSpec, storyTokens map[string]bool) bool {
	for _, spec := range specs {
		if storyTokens[spec.FirstToken] {
			return true
		}
	}
	return false
}

// countMentions counts non-overlapping alias matches in the normalized
// story text, longest alias first. Spans claimed by an earlier alias
// suppress shorter matches inside them.
func countMentions(normalizedText string, specs []AliasSpec) int {
	type span struct{ start, end int }
	var occupied []span
	count := 0

	for _, spec := range specs {
		for _, loc := range spec.Pattern.FindAllStringIndex(normalizedText, -1) {
			start, end := loc[0], loc[1]
			overlaps := false
			for _, used := range occupied {
				if start < used.end && end > used.start {
					overlaps = true
					break
				}
			}
			if overlaps {
				continue
			}
			occupied = append(occupied, span{start, end})
			count++
		}
	}
	return count
}

// GroupByCompany groups mention rows per company, ordering each
// company's stories by mention count, then story date, then title.
func GroupByCompany(storyMentions []StoryMention) map[string][]StoryMention {
	byCompany := make(map[string][]StoryMention)
	for _, row := range storyMentions {
		if row.CompanyID == "" {
			continue
		}
		byCompany[row.CompanyID] = append(byCompany[row.CompanyID], row)
	}

	for _, rows := range byCompany {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].MentionCount != rows[j].MentionCount {
				return rows[i].MentionCount > rows[j].MentionCount
			}
			if rows[i].StoryDate != rows[j].StoryDate {
				return rows[i].StoryDate > rows[j].StoryDate
			}
			return strings.ToLower(rows[i].StoryTitle) < strings.ToLower(rows[j].StoryTitle)
		})
	}
	return byCompany
}
