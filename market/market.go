// Package market extracts exchange/symbol identities from canonical
// market URLs. Only https://{zerodha.com,thechatter.zerodha.com}
// /markets/stocks/<EXCHANGE>/<SYMBOL>/ paths count; slug-form company
// URLs are stale and carry no market identity.
package market

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/kashishkap00r/company-chatter/nameutil"
)

var exchanges = map[string]bool{
	"NSE": true,
	"BSE": true,
}

var marketHosts = map[string]bool{
	"zerodha.com":            true,
	"thechatter.zerodha.com": true,
}

var symbolRe = regexp.MustCompile(`^[A-Z0-9._&-]+$`)

// KeyFromURL parses rawURL into an "EXCHANGE:SYMBOL" market key.
// Malformed, non-market, or foreign-host URLs yield "".
func KeyFromURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if !strings.EqualFold(parsed.Scheme, "https") {
		return ""
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	if !marketHosts[host] {
		return ""
	}

	var parts []string
	for _, part := range strings.Split(parsed.Path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) != 4 {
		return ""
	}
	if !strings.EqualFold(parts[0], "markets") || !strings.EqualFold(parts[1], "stocks") {
		return ""
	}

	exchange := strings.ToUpper(parts[2])
	symbol := strings.ToUpper(parts[3])
	if !exchanges[exchange] {
		return ""
	}
	if !symbolRe.MatchString(symbol) {
		return ""
	}
	return exchange + ":" + symbol
}

// SymbolAlias returns the normalized symbol from a market URL when it
// is usable as a text alias (2-12 characters after normalization).
// Numeric-only symbols are filtered later by the vocabulary builder.
func SymbolAlias(rawURL string) string {
	key := KeyFromURL(rawURL)
	if key == "" {
		return ""
	}
	_, symbol, _ := strings.Cut(key, ":")
	normalized := nameutil.NormalizeAliasPhrase(symbol)
	if len(normalized) > 1 && len(normalized) <= 12 {
		return normalized
	}
	return ""
}
