package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"rep-protocol/internal/domain"
	"rep-protocol/internal/events"
	"rep-protocol/internal/idhash"
	"rep-protocol/internal/logger"
	"rep-protocol/internal/replay"
	"rep-protocol/internal/reporting"
	"rep-protocol/internal/storage/memory"
)

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "Re-execute the journal into a fresh market and verify every result",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "batch-size", Value: replay.DefaultBatchSize, Usage: "Journal page size"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log, err := logger.NewLogger(cfg.Development, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			stores, err := openStores(c.Context, cfg, log)
			if err != nil {
				return err
			}
			defer stores.Close()

			// Verification only: nothing is projected.
			m, err := newMarket(cfg, stores, nil, nil, log)
			if err != nil {
				return err
			}

			res, err := replay.NewRunner(stores.journal, log).
				WithBatchSize(c.Uint64("batch-size")).
				Run(c.Context, replay.MarketEngine(m))
			if err != nil {
				return err
			}

			type tokenSummary struct {
				Address     domain.Address `json:"address"`
				Ticker      string         `json:"ticker"`
				TotalSupply string         `json:"total_supply"`
				Reserve     string         `json:"reserve_balance"`
			}
			out := struct {
				Applied int            `json:"applied"`
				NextSeq uint64         `json:"next_seq"`
				Elapsed string         `json:"elapsed"`
				Tokens  []tokenSummary `json:"tokens"`
			}{Applied: res.Applied, NextSeq: res.NextSeq, Elapsed: res.Duration.String()}
			for _, s := range m.TokenStates(c.Context) {
				out.Tokens = append(out.Tokens, tokenSummary{
					Address:     s.Address,
					Ticker:      s.Ticker,
					TotalSupply: domain.FormatUnits(s.TotalSupply, cfg.Decimals),
					Reserve:     domain.FormatUnits(s.ReserveBalance, cfg.Decimals),
				})
			}
			return printJSON(out)
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Rebuild the market from the journal and write REPORT.md and rep_tokens.csv",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output-dir", Value: "output", Usage: "Output directory for reports"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log, err := logger.NewLogger(cfg.Development, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			stores, err := openStores(c.Context, cfg, log)
			if err != nil {
				return err
			}
			defer stores.Close()

			// The report reads a projection rebuilt from the journal so it
			// never depends on how far the live projection got.
			reps, trades := memory.NewRepStore(), memory.NewTradeStore()
			projection := events.NewProjection(events.ProjectionStores{
				Reps:     reps,
				Events:   memory.NewEventStore(),
				Trades:   trades,
				Progress: memory.NewProjectionProgressStore(),
			})
			m, err := newMarket(cfg, stores, projection, nil, log)
			if err != nil {
				return err
			}
			if _, err := replay.NewRunner(stores.journal, log).Run(c.Context, replay.MarketEngine(m)); err != nil {
				return err
			}

			r, err := reporting.NewGenerator(reps, trades).WithDecimals(cfg.Decimals).Generate(c.Context)
			if err != nil {
				return fmt.Errorf("generate report: %w", err)
			}

			dir := c.String("output-dir")
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			files := map[string]string{
				"REPORT.md":      reporting.RenderMarkdown(r),
				"rep_tokens.csv": reporting.RenderCSV(r),
			}
			for name, content := range files {
				path := filepath.Join(dir, name)
				if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Printf("  - %s\n", path)
			}
			return nil
		},
	}
}

func paramsCommand() *cli.Command {
	return &cli.Command{
		Name:  "params",
		Usage: "Print the factory configuration",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			p, err := cfg.FactoryParams()
			if err != nil {
				return err
			}
			cc := p.Curve.Config()
			return printJSON(map[string]interface{}{
				"factory":         p.Address,
				"owner":           p.Owner,
				"minting_fee_bps": p.MintingFeeBPS,
				"creation_fee":    domain.FormatUnits(p.CreationFee, cfg.Decimals),
				"fee_policy":      p.FeePolicy,
				"curve": map[string]interface{}{
					"exponent":        cc.Exponent,
					"virtual_supply":  domain.FormatUnits(cc.VirtualSupply, cfg.Decimals),
					"virtual_reserve": domain.FormatUnits(cc.VirtualReserve, cfg.Decimals),
				},
			})
		},
	}
}

func addressCommand() *cli.Command {
	return &cli.Command{
		Name:  "address",
		Usage: "Print the token address of (ticker, creator)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ticker", Required: true},
			&cli.StringFlag{Name: "creator", Required: true},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			p, err := cfg.FactoryParams()
			if err != nil {
				return err
			}
			creator, err := domain.ParseAddress(c.String("creator"))
			if err != nil {
				return fmt.Errorf("creator: %w", err)
			}
			fmt.Println(idhash.DeriveRepAddress(p.Address, c.String("ticker"), creator))
			return nil
		},
	}
}

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote-sale",
		Usage: "Evaluate the sale function for human amounts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "supply", Required: true},
			&cli.StringFlag{Name: "reserve", Required: true},
			&cli.StringFlag{Name: "amount", Required: true},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			p, err := cfg.FactoryParams()
			if err != nil {
				return err
			}

			supply, err := domain.ParseUnits(c.String("supply"), cfg.Decimals)
			if err != nil {
				return fmt.Errorf("supply: %w", err)
			}
			reserve, err := domain.ParseUnits(c.String("reserve"), cfg.Decimals)
			if err != nil {
				return fmt.Errorf("reserve: %w", err)
			}
			amount, err := domain.ParseUnits(c.String("amount"), cfg.Decimals)
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}

			gross, err := p.Curve.SaleReturn(supply, reserve, amount)
			if err != nil {
				return err
			}
			fmt.Println(domain.FormatUnits(gross, cfg.Decimals))
			return nil
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
