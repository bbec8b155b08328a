package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"expensechat/internal/aggregate"
	"expensechat/internal/cli"
	"expensechat/internal/config"
	"expensechat/internal/core"
	"expensechat/internal/log"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan)
	red    = color.New(color.FgRed)
)

// errUsage marks errors that should be followed by the usage text.
var errUsage = errors.New("usage")

type ctl struct {
	out, errOut io.Writer
	cfg         *config.Config
	logger      *log.Logger
	open        func(ctx context.Context, cfg *config.Config, logger *log.Logger) (*cli.App, error)
}

// run dispatches args and returns the process exit code.
func (c *ctl) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		printUsage(c.out)
		return 0
	}

	var err error
	switch cmd := args[0]; cmd {
	case "categorize":
		err = c.categorize(args[1:])
	case "ask":
		err = c.withApp(ctx, args[1:], c.ask)
	case "add":
		err = c.withApp(ctx, args[1:], c.add)
	case "summary":
		err = c.withApp(ctx, args[1:], c.summary)
	case "version":
		fmt.Fprintf(c.out, "expensectl v%s\n", version)
	case "help", "-h", "--help":
		printUsage(c.out)
	default:
		red.Fprintf(c.errOut, "Unknown command: %s\n\n", cmd)
		printUsage(c.errOut)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		red.Fprintf(c.errOut, "Error: %s\n", strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
		return 2
	default:
		red.Fprintf(c.errOut, "Error: %s\n", err)
		return 1
	}
}

func usageErr(format string, a ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, a...))
}

func (c *ctl) categorize(args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return usageErr("categorize needs some text")
	}
	engine, err := cli.NewCategorizer(c.cfg, c.logger)
	if err != nil {
		return err
	}
	cyan.Fprintf(c.out, "%s\n", engine.Categorize(text))
	return nil
}

func (c *ctl) withApp(ctx context.Context, args []string, fn func(context.Context, *cli.App, []string) error) error {
	app, err := c.open(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			c.logger.Warn("Failed to close backend", "error", err)
		}
	}()
	return fn(ctx, app, args)
}

func (c *ctl) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *ctl) ask(ctx context.Context, app *cli.App, args []string) error {
	fs := c.flags("ask")
	owner := fs.String("owner", "", "owner whose expenses are searched")
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if *owner == "" || question == "" {
		return usageErr("ask needs --owner and a question")
	}

	ans, err := app.Chat.Answer(ctx, *owner, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, ans.Text)
	return nil
}

func (c *ctl) add(ctx context.Context, app *cli.App, args []string) error {
	fs := c.flags("add")
	owner := fs.String("owner", "", "owner of the expense")
	amount := fs.String("amount", "", "amount, e.g. 12.50")
	date := fs.String("date", "", "date as YYYY-MM-DD, defaults to today")
	category := fs.String("category", "", "category, guessed from the title when empty")
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}
	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if *owner == "" || *amount == "" || title == "" {
		return usageErr("add needs --owner, --amount and a title")
	}

	e := core.Expense{Owner: *owner, Title: title}
	var err error
	if e.Amount, err = core.ParseMoney(*amount); err != nil {
		return usageErr("invalid amount %q", *amount)
	}
	if *date != "" {
		if e.Date, err = core.ParseDate(*date); err != nil {
			return usageErr("invalid date %q", *date)
		}
	}
	if *category != "" {
		cat, ok := core.ParseCategory(*category)
		if !ok {
			return usageErr("unknown category %q", *category)
		}
		e.Category = cat
	}

	saved, err := app.Expenses.Create(ctx, e)
	if err != nil {
		return err
	}
	green.Fprintf(c.out, "Saved #%d %s%s %q as %s on %s\n",
		saved.ID, app.Formatter.Currency, saved.Amount, saved.Title, saved.Category, saved.Date)
	return nil
}

func (c *ctl) summary(ctx context.Context, app *cli.App, args []string) error {
	fs := c.flags("summary")
	owner := fs.String("owner", "", "owner whose expenses are grouped")
	filter := fs.String("filter", aggregate.Day.String(), "daily, weekly, monthly or yearly")
	if err := fs.Parse(args); err != nil {
		return usageErr("%v", err)
	}
	if *owner == "" {
		return usageErr("summary needs --owner")
	}
	g, err := aggregate.ParseGranularity(*filter)
	if err != nil {
		return usageErr("%v", err)
	}

	sum, err := app.Summaries.Summary(ctx, *owner, g)
	if err != nil {
		return err
	}
	yellow.Fprintf(c.out, "%s summary for %s\n", strings.ToUpper(g.String()[:1])+g.String()[1:], *owner)
	fmt.Fprintln(c.out, app.Formatter.Summary(sum))
	return nil
}
