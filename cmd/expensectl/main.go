// Command expensectl answers expense questions from the terminal.
//
// Commands:
//
//	categorize <text>                        Print the category for text
//	ask --owner <id> <question>              Answer a chat question
//	add --owner <id> --amount <n> <title>    Record an expense
//	summary --owner <id> [--filter daily]    Group the owner's expenses
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"expensechat/internal/cli"
	"expensechat/internal/config"
	"expensechat/internal/log"
)

const version = "0.1.0"

func main() {
	cli.LoadEnvFile()

	// Logs go to stderr so answers on stdout stay clean.
	logCfg := log.DefaultConfig()
	logCfg.Level = slog.LevelWarn
	logCfg.Output = os.Stderr
	logger := log.New(logCfg)
	log.SetDefault(logger)

	cfg := config.Load()
	c := &ctl{
		out:    os.Stdout,
		errOut: os.Stderr,
		cfg:    cfg,
		logger: logger,
		open:   cli.NewApp,
	}
	os.Exit(c.run(context.Background(), os.Args[1:]))
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "expensechat CLI v"+version)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  expensectl <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  categorize <text>                       Print the category for text")
	fmt.Fprintln(w, "  ask --owner <id> <question>             Answer a chat question")
	fmt.Fprintln(w, "  add --owner <id> --amount <n> <title>   Record an expense")
	fmt.Fprintln(w, "  summary --owner <id> [--filter daily]   Group expenses by day, week, month or year")
	fmt.Fprintln(w, "  version                                 Print version")
	fmt.Fprintln(w, "  help                                    Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  DATA_BACKEND, SQLITE_DB_PATH   Where expenses are stored")
	fmt.Fprintln(w, "  MODEL_PATH, ALIASES_PATH       Categorizer model and alias table")
	fmt.Fprintln(w, "  CURRENCY_SYMBOL                Glyph used in answers")
}
