package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/price-monitor/internal/app"
	"github.com/maltedev/price-monitor/internal/config"
	"github.com/maltedev/price-monitor/internal/history"
	"github.com/maltedev/price-monitor/internal/notify"
	"github.com/maltedev/price-monitor/pkg/logger"
)

const usage = `Usage: pricectl <command> [flags] [args]

Commands:
  add [-name NAME] <url>     track a product and record its first price
  list                       list active products
  remove <id>                stop tracking a product
  rename <id> <name>         change a product's display name
  history [-limit N] <id>    show recorded prices, oldest first
  check                      run one check cycle
  extract <url>              extract a page without recording it

Global flags (before the command):
  -static    skip the browser fallback
  -v         verbose logging
`

func main() {
	global := flag.NewFlagSet("pricectl", flag.ExitOnError)
	static := global.Bool("static", false, "skip the browser fallback")
	verbose := global.Bool("v", false, "verbose logging")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(os.Stderr, level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &cli{cfg: cfg, log: log, out: os.Stdout, withBrowser: !*static}
	if err := cli.run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	cfg         *config.Config
	log         *slog.Logger
	out         io.Writer
	withBrowser bool
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "add":
		return c.add(ctx, args)
	case "list":
		return c.list(ctx)
	case "remove":
		return c.remove(ctx, args)
	case "rename":
		return c.rename(ctx, args)
	case "history":
		return c.history(ctx, args)
	case "check":
		return c.check(ctx)
	case "extract":
		return c.extract(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) open(ctx context.Context, browser bool) (*app.App, error) {
	return app.New(ctx, c.cfg, c.log, app.Options{WithBrowser: browser && c.withBrowser})
}

func (c *cli) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	name := fs.String("name", "", "display name, also registers pages that fail to extract")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("add requires exactly one url")
	}

	a, err := c.open(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	product, out, err := a.Checker.Track(ctx, fs.Arg(0), *name)
	if err != nil && product == nil {
		return err
	}

	fmt.Fprintf(c.out, "%s %s [%s]\n", product.ID, product.Name, product.Store)
	switch {
	case out.Record != nil:
		fmt.Fprintf(c.out, "  price: %s  in stock: %t\n", notify.FormatPrice(out.Record.Price, out.Record.Currency), out.Record.InStock)
	case !out.Result.Success:
		fmt.Fprintf(c.out, "  no price yet: %s %s\n", out.Result.Reason, out.Result.Detail)
	}
	return err
}

func (c *cli) list(ctx context.Context) error {
	a, err := c.open(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.Registry.ListActive(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTORE\tNAME\tLAST PRICE\tIN STOCK")
	for _, p := range products {
		price, stock := "-", "-"
		last, err := a.History.Latest(ctx, p.ID)
		if err != nil {
			return err
		}
		if last != nil {
			price = notify.FormatPrice(last.Price, last.Currency)
			stock = strconv.FormatBool(last.InStock)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Store, p.Name, price, stock)
	}
	return w.Flush()
}

func (c *cli) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("remove requires a product id")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}

	a, err := c.open(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Registry.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "removed %s\n", id)
	return nil
}

func (c *cli) rename(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("rename requires a product id and a name")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}

	a, err := c.open(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Registry.Rename(ctx, id, args[1])
}

func (c *cli) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	limit := fs.Int("limit", history.DefaultLimit, "number of records")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("history requires a product id")
	}
	id, err := uuid.Parse(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}

	a, err := c.open(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.History.Recent(ctx, id, *limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OBSERVED AT\tPRICE\tIN STOCK")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%t\n", r.ObservedAt.Format("2006-01-02 15:04"), notify.FormatPrice(r.Price, r.Currency), r.InStock)
	}
	return w.Flush()
}

func (c *cli) check(ctx context.Context) error {
	a, err := c.open(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Checker.RunCycle(ctx)
	fmt.Fprintf(c.out, "checked %d, failed %d, drops %d, restocks %d, store errors %d (%s)\n",
		report.Checked, report.Failed, report.Drops, report.Restocks, report.StoreErrors, report.Duration.Round(time.Millisecond))
	return err
}

func (c *cli) extract(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("extract requires a url")
	}

	// Nothing is persisted, so skip the database.
	cfg := *c.cfg
	cfg.Storage = config.StorageMemory
	a, err := app.New(ctx, &cfg, c.log, app.Options{WithBrowser: c.withBrowser})
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.Extractor.Extract(ctx, args[0])
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	return res.Err()
}
