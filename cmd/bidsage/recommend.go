package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bidsage/internal/pricing"
	"bidsage/internal/store"
)

// parseCohortArgs splits a command line into common flags and a cohort
// filter. Unknown flags are an error; there are no positional arguments.
func parseCohortArgs(args []string) (commonFlags, store.Filter, []string, error) {
	var cf commonFlags
	f := store.Filter{}
	var rest []string

	intPtr := func(raw, name string) (*int, error) {
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: %q", name, raw)
		}
		return &v, nil
	}

	for i := 0; i < len(args); i++ {
		if v, ok := takeValue(args, &i, "--config"); ok {
			cf.configPath = v
			continue
		}
		if v, ok := takeValue(args, &i, "--db"); ok {
			cf.dbPath = v
			continue
		}
		if v, ok := takeValue(args, &i, "--log-level"); ok {
			cf.logLevel = v
			continue
		}
		if v, ok := takeValue(args, &i, "--species"); ok {
			f.Species = v
			continue
		}
		if v, ok := takeValue(args, &i, "--shiny"); ok {
			switch strings.ToLower(v) {
			case "", "any":
			case "yes":
				t := true
				f.Shiny = &t
			case "no":
				fa := false
				f.Shiny = &fa
			default:
				return cf, f, nil, fmt.Errorf("invalid --shiny value %q (want any, yes or no)", v)
			}
			continue
		}
		if v, ok := takeValue(args, &i, "--gender"); ok {
			f.Gender = v
			continue
		}
		if v, ok := takeValue(args, &i, "--nature"); ok {
			f.Nature = v
			continue
		}
		if v, ok := takeValue(args, &i, "--min-total-iv"); ok {
			pct, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return cf, f, nil, fmt.Errorf("invalid value for --min-total-iv: %q", v)
			}
			f.MinIVTotal = &pct
			continue
		}

		handled := false
		for _, iv := range []struct {
			flag string
			dst  **int
		}{
			{"--iv-hp", &f.MinIVHP},
			{"--iv-atk", &f.MinIVAtk},
			{"--iv-def", &f.MinIVDef},
			{"--iv-spatk", &f.MinIVSpAtk},
			{"--iv-spdef", &f.MinIVSpDef},
			{"--iv-speed", &f.MinIVSpeed},
		} {
			if v, ok := takeValue(args, &i, iv.flag); ok {
				p, err := intPtr(v, iv.flag)
				if err != nil {
					return cf, f, nil, err
				}
				*iv.dst = p
				handled = true
				break
			}
		}
		if handled {
			continue
		}

		if v, ok := takeValue(args, &i, "--min-level"); ok {
			p, err := intPtr(v, "--min-level")
			if err != nil {
				return cf, f, nil, err
			}
			f.MinLevel = p
			continue
		}
		if v, ok := takeValue(args, &i, "--max-level"); ok {
			p, err := intPtr(v, "--max-level")
			if err != nil {
				return cf, f, nil, err
			}
			f.MaxLevel = p
			continue
		}

		rest = append(rest, args[i])
	}

	return cf, f, rest, nil
}

func runRecommend(args []string) error {
	cf, f, rest, err := parseCohortArgs(args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if strings.TrimSpace(f.Species) == "" {
		return fmt.Errorf("--species is required")
	}

	cfg, err := resolveConfig(cf)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	advisor := pricing.NewAdvisor(st)
	rec, err := advisor.RecommendFor(context.Background(), f)
	if err != nil {
		if errors.Is(err, pricing.ErrNoSamples) || errors.Is(err, pricing.ErrNotEnoughSamples) {
			fmt.Println(err.Error())
			return nil
		}
		return err
	}

	fmt.Printf("Recommendation for %q\n", f.Species)
	fmt.Printf("  Samples:       %d used (%d before outlier rejection)\n", rec.Count, rec.OriginalCount)
	fmt.Printf("  Median price:  %s\n", comma(rec.Median))
	fmt.Printf("  Stdev:         %.2f\n", rec.Stdev)
	fmt.Printf("  Bid range:     %s - %s\n", comma(rec.ConservativeBid), comma(rec.AggressiveBid))
	if rec.Trend.Direction != "flat" {
		fmt.Printf("  Trend:         %s (slope=%.2f, pct=%+.4f over last %d)\n",
			rec.Trend.Direction, rec.Trend.Slope, rec.Trend.TrendPct, rec.Trend.N)
	}
	return nil
}

func runSearch(args []string) error {
	cf, f, rest, err := parseCohortArgs(args)
	if err != nil {
		return err
	}

	limit := 20
	for i := 0; i < len(rest); i++ {
		if v, ok := takeValue(rest, &i, "--limit"); ok {
			n, convErr := strconv.Atoi(strings.TrimSpace(v))
			if convErr != nil || n <= 0 {
				return fmt.Errorf("invalid value for --limit: %q", v)
			}
			limit = n
			continue
		}
		return fmt.Errorf("unexpected argument: %s", rest[i])
	}
	if strings.TrimSpace(f.Species) == "" {
		return fmt.Errorf("--species is required")
	}

	cfg, err := resolveConfig(cf)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	advisor := pricing.NewAdvisor(st)
	sales, err := advisor.CohortSales(context.Background(), f, limit)
	if err != nil {
		return err
	}
	if len(sales) == 0 {
		fmt.Println("No settled sales match these criteria.")
		return nil
	}

	fmt.Printf("Found %d sale(s), highest price first:\n\n", len(sales))
	for _, rec := range sales {
		fmt.Println(formatSaleLine(rec))
	}
	return nil
}

// formatSaleLine renders one sale as a single console line.
func formatSaleLine(rec *store.SaleRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  #%s", rec.AuctionID)
	if rec.Shiny {
		b.WriteString(" ✨")
	}
	if rec.Level != nil {
		fmt.Fprintf(&b, " Lv.%d", *rec.Level)
	}
	if rec.Gender != "" {
		fmt.Fprintf(&b, " %s", rec.Gender)
	}
	fmt.Fprintf(&b, " %s", rec.Species)
	if rec.Nature != "" {
		fmt.Fprintf(&b, " (%s)", rec.Nature)
	}
	if rec.IVTotal != nil {
		fmt.Fprintf(&b, " %.1f%% IV", *rec.IVTotal)
	}
	if rec.WinningBid != nil {
		fmt.Fprintf(&b, " - %s Pokécoins", comma(*rec.WinningBid))
	}
	return b.String()
}

// comma renders n with thousands separators.
func comma(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func runStats(args []string) error {
	var cf commonFlags
	for i := 0; i < len(args); i++ {
		if v, ok := takeValue(args, &i, "--config"); ok {
			cf.configPath = v
			continue
		}
		if v, ok := takeValue(args, &i, "--db"); ok {
			cf.dbPath = v
			continue
		}
		if v, ok := takeValue(args, &i, "--log-level"); ok {
			cf.logLevel = v
			continue
		}
		return fmt.Errorf("unexpected argument: %s", args[i])
	}

	cfg, err := resolveConfig(cf)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Archive: %s (via %s)\n\n", cfg.DBPath.Value, cfg.DBPath.Source)
	fmt.Printf("  Total sales:       %d\n", stats.TotalSales)
	fmt.Printf("  With winning bid:  %d\n", stats.WithWinningBid)
	fmt.Printf("  Shiny sales:       %d\n", stats.ShinySales)
	fmt.Printf("  Distinct species:  %d\n", stats.DistinctSpecies)
	return nil
}
