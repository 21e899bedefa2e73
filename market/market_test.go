package market

import "testing"

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "nse stock", url: "https://zerodha.com/markets/stocks/NSE/SBIN/", want: "NSE:SBIN"},
		{name: "bse stock", url: "https://zerodha.com/markets/stocks/BSE/500325/", want: "BSE:500325"},
		{name: "chatter host", url: "https://thechatter.zerodha.com/markets/stocks/NSE/TCS/", want: "NSE:TCS"},
		{name: "www prefix stripped", url: "https://www.zerodha.com/markets/stocks/NSE/INFY/", want: "NSE:INFY"},
		{name: "lowercase path segments", url: "https://zerodha.com/markets/stocks/nse/itc/", want: "NSE:ITC"},
		{name: "symbol with ampersand", url: "https://zerodha.com/markets/stocks/NSE/M&M/", want: "NSE:M&M"},
		{name: "no trailing slash", url: "https://zerodha.com/markets/stocks/NSE/SBIN", want: "NSE:SBIN"},
		{name: "foreign host", url: "https://example.com/markets/stocks/NSE/SBIN/", want: ""},
		{name: "unknown exchange", url: "https://zerodha.com/markets/stocks/NYSE/IBM/", want: ""},
		{name: "slug url", url: "https://thechatter.zerodha.com/companies/sbi/", want: ""},
		{name: "extra path segment", url: "https://zerodha.com/markets/stocks/NSE/SBIN/extra/", want: ""},
		{name: "bad symbol characters", url: "https://zerodha.com/markets/stocks/NSE/SB IN/", want: ""},
		{name: "empty", url: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeyFromURL(tt.url); got != tt.want {
				t.Errorf("KeyFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestSymbolAlias(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "plain symbol", url: "https://zerodha.com/markets/stocks/NSE/SBIN/", want: "sbin"},
		{name: "ampersand symbol normalized", url: "https://zerodha.com/markets/stocks/NSE/M&M/", want: "m and m"},
		{name: "single char symbol too short", url: "https://zerodha.com/markets/stocks/NSE/X/", want: ""},
		{name: "non-market url", url: "https://example.com/", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SymbolAlias(tt.url); got != tt.want {
				t.Errorf("SymbolAlias(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
