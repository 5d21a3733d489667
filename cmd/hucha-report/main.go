package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"hucha/internal/backend"
	"hucha/internal/config"
	"hucha/internal/core"
	applog "hucha/internal/log"
)

type Params struct {
	User   string `descr:"User name to report on (defaults to the first user)"`
	Year   int    `descr:"Year to summarize (defaults to current)"`
	Month  int    `descr:"Month 1-12 to summarize (defaults to current, 0 with --yearly)"`
	Yearly bool   `descr:"Print the twelve-month overview instead of a single month"`
}

func main() {
	boa.NewCmdT[Params]("hucha-report").
		WithShort("Print a household finance summary from the hucha database").
		WithRunFunc(func(params *Params) {
			if err := run(params); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func run(params *Params) error {
	_ = godotenv.Load()

	// The CLI reads straight from the configured backend; keep its logs out
	// of the report output.
	logger := applog.New(applog.Config{
		Level:     slog.LevelWarn,
		Component: applog.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	})

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("open storage backend: %w", err)
	}
	defer store.Close()

	user, err := resolveUser(ctx, store.ListUsers, params.User)
	if err != nil {
		return err
	}

	now := time.Now()
	year := params.Year
	if year == 0 {
		year = now.Year()
	}

	if params.Yearly {
		sum, err := store.YearSummary(ctx, user.ID, year)
		if err != nil {
			return fmt.Errorf("year summary: %w", err)
		}
		printYearSummary(user, sum)
		return nil
	}

	month := params.Month
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("invalid month %d", month)
	}

	sum, err := store.MonthSummary(ctx, user.ID, year, month)
	if err != nil {
		return fmt.Errorf("month summary: %w", err)
	}
	printMonthSummary(user, sum)
	return nil
}

func resolveUser(ctx context.Context, list func(context.Context) ([]core.User, error), name string) (core.User, error) {
	users, err := list(ctx)
	if err != nil {
		return core.User{}, fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		return core.User{}, fmt.Errorf("no users in the database")
	}
	if name == "" {
		return users[0], nil
	}
	for _, u := range users {
		if u.Name == name {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("unknown user %q", name)
}

func printMonthSummary(user core.User, sum core.MonthSummary) {
	fmt.Printf("%s, %04d-%02d\n\n", user.Name, sum.Year, sum.Month)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"", "Amount"})
	t.AppendRow(table.Row{"Income", sum.Income.StringFixed(2)})
	t.AppendRow(table.Row{"Expenses", sum.Expenses.StringFixed(2)})
	t.AppendRow(table.Row{"Savings", sum.Savings.StringFixed(2)})
	t.AppendFooter(table.Row{"Balance", sum.Balance.StringFixed(2)})
	t.SetStyle(table.StyleRounded)
	t.Render()

	if len(sum.ByCategory) == 0 {
		return
	}

	fmt.Println()
	ct := table.NewWriter()
	ct.SetOutputMirror(os.Stdout)
	ct.AppendHeader(table.Row{"Category", "Spent"})
	for _, ca := range sum.ByCategory {
		ct.AppendRow(table.Row{ca.Name, ca.Amount.StringFixed(2)})
	}
	ct.SetStyle(table.StyleRounded)
	ct.Render()
}

func printYearSummary(user core.User, sum core.YearSummary) {
	fmt.Printf("%s, %d\n\n", user.Name, sum.Year)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Month", "Income", "Expenses", "Savings", "Balance"})
	for _, m := range sum.Months {
		t.AppendRow(table.Row{
			time.Month(m.Month).String(),
			m.Income.StringFixed(2),
			m.Expenses.StringFixed(2),
			m.Savings.StringFixed(2),
			m.Balance.StringFixed(2),
		})
	}
	t.AppendFooter(table.Row{
		"Total",
		sum.Income.StringFixed(2),
		sum.Expenses.StringFixed(2),
		sum.Savings.StringFixed(2),
		sum.Balance.StringFixed(2),
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
