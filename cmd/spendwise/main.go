// Command spendwise is a terminal client for the Spendwise API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/client"
	"spendwise/internal/config"
	"spendwise/internal/logger"
	"spendwise/internal/models"
)

const usage = `usage: spendwise <command> [flags]

commands:
  add      record an expense
  list     list expenses and their total
  replay   send concurrent copies of one submission with the same key
`

func main() {
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(strings.TrimSpace(usage))
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	api := client.NewClient(cfg.APIURL, &http.Client{Timeout: cfg.RequestTimeout})

	switch args[0] {
	case "add":
		return runAdd(ctx, cfg, api, args[1:], out)
	case "list":
		return runList(ctx, api, args[1:], out)
	case "replay":
		return runReplay(ctx, api, args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

// formFlags registers the expense form flags on fs.
func formFlags(fs *flag.FlagSet) func() (client.ExpenseForm, error) {
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	category := fs.String("category", string(models.CategoryOther), "category")
	description := fs.String("description", "", "description")
	date := fs.String("date", time.Now().Format(models.DateLayout), "date as YYYY-MM-DD")

	return func() (client.ExpenseForm, error) {
		m, err := models.ParseMoney(*amount)
		if err != nil {
			return client.ExpenseForm{}, fmt.Errorf("invalid -amount %q: %w", *amount, err)
		}
		return client.ExpenseForm{
			Amount:      m,
			Category:    *category,
			Description: *description,
			Date:        *date,
		}, nil
	}
}

func runAdd(ctx context.Context, cfg *config.ClientConfig, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	form := formFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := form()
	if err != nil {
		return err
	}
	if !models.IsKnownCategory(f.Category) {
		fmt.Fprintf(out, "note: %q is not one of the standard categories\n", f.Category)
	}

	sub := client.NewSubmission(api, f,
		client.WithMaxAttempts(cfg.MaxAttempts),
		client.WithRetryBackoff(cfg.RetryBackoff),
	)
	key := sub.Key()
	result, err := sub.Submit(ctx)
	if err != nil {
		return fmt.Errorf("expense not saved (idempotency key %s): %w", key, err)
	}

	status := "created"
	if result.Replayed {
		status = "already recorded"
	}
	fmt.Fprintf(out, "%s %s: %s %s on %s (attempts: %d)\n",
		status, result.Expense.ID, result.Expense.Amount, result.Expense.Category, result.Expense.Date, result.Attempts)
	return nil
}

func runList(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	category := fs.String("category", "", "only show this category")
	sort := fs.String("sort", "", "date_desc, or empty for newest created first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	expenses, err := api.ListExpenses(ctx, *category, *sort)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount.Decimal())
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Date, e.Category, e.Amount, e.Description)
	}
	fmt.Fprintf(w, "\t\t%s\t%d expense(s)\n", total.StringFixed(2), len(expenses))
	return w.Flush()
}

func runReplay(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	form := formFlags(fs)
	n := fs.Int("n", 10, "number of concurrent copies")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n < 1 {
		return fmt.Errorf("-n must be positive, got %d", *n)
	}
	f, err := form()
	if err != nil {
		return err
	}

	key := client.NewSubmission(api, f).Key()
	ids := make([]string, *n)
	replayed := make([]bool, *n)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *n; i++ {
		g.Go(func() error {
			expense, r, err := api.CreateExpense(gctx, f, key)
			if err != nil {
				return fmt.Errorf("copy %d: %w", i, err)
			}
			ids[i], replayed[i] = expense.ID, r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	distinct := map[string]struct{}{}
	created := 0
	for i := range ids {
		distinct[ids[i]] = struct{}{}
		if !replayed[i] {
			created++
		}
	}
	fmt.Fprintf(out, "key %s: %d request(s), %d created, %d distinct id(s)\n", key, *n, created, len(distinct))
	if len(distinct) != 1 {
		return fmt.Errorf("expected a single stored expense, got %d", len(distinct))
	}
	return nil
}
