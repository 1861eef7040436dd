package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/logger"
	"github.com/joseph-ayodele/ashwini-cargo/internal/numbering"
	repo "github.com/joseph-ayodele/ashwini-cargo/internal/repository"
)

var errUsage = errors.New("usage")

func main() {
	cfg := common.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	switch {
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		os.Exit(1)
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one subcommand. Every resource it opens is closed before it returns.
func run(ctx context.Context, cfg *common.Config, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closer := logger.New(logger.FromAppConfig(cfg.Log), stderr)
	defer closer.Close()

	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)

	if cmd == "expiry" {
		// pure date arithmetic, no store needed
		created := fs.String("created", "", "enquiry creation time, RFC 3339")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(*created))
		if err != nil {
			return fmt.Errorf("--created must be RFC 3339: %w", err)
		}
		now := time.Now()
		fmt.Fprintf(stdout, "expires_at=%s expired=%t countdown=%q\n",
			numbering.ComputeExpiry(t).Format(time.RFC3339),
			numbering.IsExpired(t, now),
			numbering.ExpiryCountdown(t, now))
		return nil
	}

	switch cmd {
	case "enquiry", "order", "daily", "monthly", "lr", "import", "health":
	default:
		return errUsage
	}

	db, err := repo.OpenSQLite(cfg.Store.SQLitePath, log)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := repo.OpenCounterStore(ctx, cfg.Store, db, log)
	if err != nil {
		return err
	}
	defer store.Close()

	loc := cfg.Numbering.Location()
	gen := numbering.NewGenerator(store,
		numbering.WithLocation(loc),
		numbering.WithLRSeed(cfg.Numbering.LRSeed),
		numbering.WithLogger(log),
	)

	switch cmd {
	case "enquiry", "order":
		date := fs.String("date", "", "YYYY-MM-DD, default today")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		d, err := parseDate(*date, loc)
		if err != nil {
			return err
		}
		var id string
		if cmd == "enquiry" {
			id, err = gen.NextEnquiryID(ctx, d)
		} else {
			id, err = gen.NextOrderID(ctx, d)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, id)
	case "daily", "monthly":
		prefix := fs.String("prefix", "", "identifier prefix, e.g. QT")
		date := fs.String("date", "", "YYYY-MM-DD, default today")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := common.NewValidator().Field("prefix", *prefix, common.Required, common.Prefix).Err(); err != nil {
			return err
		}
		d, err := parseDate(*date, loc)
		if err != nil {
			return err
		}
		var id string
		if cmd == "daily" {
			id, err = gen.DailyID(ctx, *prefix, d)
		} else {
			id, err = gen.MonthlyID(ctx, *prefix, d)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, id)
	case "lr":
		seed := fs.Int64("seed", cfg.Numbering.LRSeed, "seed used when no LR number was issued yet")
		peek := fs.Bool("peek", false, "show the next number without issuing it")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		var n string
		if *peek {
			n, err = gen.PeekNextLRNumber(ctx, *seed)
		} else {
			n, err = gen.NextSequentialNumber(ctx, *seed)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, n)
	case "import":
		in := fs.String("in", "", "JSON file with a localStorage dump")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if strings.TrimSpace(*in) == "" {
			return fmt.Errorf("--in is required")
		}
		raw, err := os.ReadFile(*in)
		if err != nil {
			return err
		}
		var snapshot map[string]string
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			return fmt.Errorf("parse %s: %w", *in, err)
		}
		report, err := repo.ImportLegacySnapshot(ctx, store, snapshot, log)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "imported=%d skipped=%d ignored=%d\n", len(report.Imported), len(report.Skipped), len(report.Ignored))
		for _, k := range report.Skipped {
			fmt.Fprintf(stdout, "  skipped %s\n", k)
		}
	case "health":
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("counter store %s: FAIL (%w)", cfg.Store.Driver, err)
		}
		fmt.Fprintf(stdout, "counter store %s: OK\n", cfg.Store.Driver)
	}
	return nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: numbering <command>")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  enquiry [--date=2025-03-14]")
	fmt.Fprintln(w, "  order [--date=2025-03-14]")
	fmt.Fprintln(w, "  daily --prefix=QT [--date=...]")
	fmt.Fprintln(w, "  monthly --prefix=INV [--date=...]")
	fmt.Fprintln(w, "  lr [--seed=19984] [--peek]")
	fmt.Fprintln(w, "  expiry --created=2025-03-10T10:00:00+05:30")
	fmt.Fprintln(w, "  import --in=./localStorage.json")
	fmt.Fprintln(w, "  health")
}
