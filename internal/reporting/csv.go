package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderCSV renders one row per token. Amounts are in base units.
func RenderCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("ticker,token,creator,royalty_bps,created_at,mints,burns,traders,")
	sb.WriteString("mint_volume,burn_volume,fees,tokens_minted,tokens_burned,supply,reserve,last_trade\n")

	// Rows
	for _, t := range r.Tokens {
		last := ""
		if !t.LastTrade.IsZero() {
			last = t.LastTrade.UTC().Format(time.RFC3339Nano)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%s,%d,%d,%d,%s,%s,%s,%s,%s,%s,%s,%s\n",
			csvField(t.Ticker),
			t.Token,
			t.Creator,
			t.RoyaltyBPS,
			t.CreatedAt.UTC().Format(time.RFC3339Nano),
			t.Mints,
			t.Burns,
			t.Traders,
			t.MintVolume.Dec(),
			t.BurnVolume.Dec(),
			t.Fees.Dec(),
			t.TokensMinted.Dec(),
			t.TokensBurned.Dec(),
			t.Supply.Dec(),
			t.Reserve.Dec(),
			last,
		))
	}

	return sb.String()
}

// csvField quotes s when it contains a separator, quote or newline.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
