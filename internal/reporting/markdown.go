package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"rep-protocol/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	units := func(v *uint256.Int) string { return domain.FormatUnits(v, r.Decimals) }

	// Header
	sb.WriteString("# Rep Market Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Tokens | %d |\n", s.TotalTokens))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Mints | %d |\n", s.Mints))
	sb.WriteString(fmt.Sprintf("| Burns | %d |\n", s.Burns))
	sb.WriteString(fmt.Sprintf("| Traders | %d |\n", s.Traders))
	sb.WriteString(fmt.Sprintf("| Mint Volume | %s |\n", units(s.MintVolume)))
	sb.WriteString(fmt.Sprintf("| Burn Volume | %s |\n", units(s.BurnVolume)))
	sb.WriteString(fmt.Sprintf("| Fees | %s |\n", units(s.Fees)))
	sb.WriteString(fmt.Sprintf("| First Trade | %s |\n", formatTime(s.FirstTrade)))
	sb.WriteString(fmt.Sprintf("| Last Trade | %s |\n", formatTime(s.LastTrade)))
	sb.WriteString("\n")

	// Tokens
	sb.WriteString("## Tokens\n\n")
	if len(r.Tokens) == 0 {
		sb.WriteString("No tokens created.\n")
		return sb.String()
	}

	sb.WriteString("| Ticker | Token | Royalty (bps) | Mints | Burns | Traders | Mint Volume | Burn Volume | Fees | Supply | Reserve |\n")
	sb.WriteString("|--------|-------|---------------|-------|-------|---------|-------------|-------------|------|--------|---------|\n")
	for _, t := range r.Tokens {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %s | %s | %s | %s | %s |\n",
			escapeCell(t.Ticker), t.Token, t.RoyaltyBPS, t.Mints, t.Burns, t.Traders,
			units(t.MintVolume), units(t.BurnVolume), units(t.Fees),
			units(t.Supply), units(t.Reserve)))
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
