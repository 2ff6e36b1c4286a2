package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/brojonat/solscope/client"
	"github.com/brojonat/solscope/service/analytics"
	"github.com/brojonat/solscope/service/solana"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// newClient builds an API client from the global flags.
func newClient(c *cli.Context) *client.Client {
	// Only errors to stderr
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return client.NewClient(c.String("server-url"), nil, logger)
}

// outputMode resolves --json and --jq. A non-nil code implies JSON output.
func outputMode(c *cli.Context) (jsonOutput bool, code *gojq.Code, err error) {
	if expr := c.String("jq"); expr != "" {
		code, err = compileJQ(expr)
		if err != nil {
			return false, nil, err
		}
		return true, code, nil
	}
	return c.Bool("json"), nil, nil
}

func blockCommand() *cli.Command {
	return &cli.Command{
		Name:      "block",
		Usage:     "Analyze the transactions in one block",
		ArgsUsage: "SLOT",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("slot is required")
			}
			slot, err := strconv.ParseUint(c.Args().Get(0), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid slot %q: must be a non-negative integer", c.Args().Get(0))
			}

			jsonOutput, code, err := outputMode(c)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			report, err := newClient(c).Block(ctx, slot)
			if err != nil {
				return fmt.Errorf("failed to analyze block %d: %w", slot, err)
			}

			return render(c.App.Writer, report, jsonOutput, code, func(w io.Writer) {
				printBlockReport(w, report)
			})
		},
	}
}

func walletCommand() *cli.Command {
	return activityCommand(analytics.KindWallet, "wallet", "Summarize recent activity for a wallet", solana.DefaultWalletLimit)
}

func programCommand() *cli.Command {
	return activityCommand(analytics.KindProgram, "program", "Summarize recent activity for a program", solana.DefaultProgramLimit)
}

// activityCommand builds the wallet and program commands. Without --limit the
// request carries no limit and the server applies its configured default.
func activityCommand(kind analytics.Kind, name, usage string, defaultLimit int) *cli.Command {
	limitUsage := fmt.Sprintf("Number of recent signatures to analyze, %d-%d (server default, normally %d)",
		solana.MinLimit, solana.MaxLimit, defaultLimit)

	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "ADDRESS",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   limitUsage,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("%s address is required", name)
			}
			address := c.Args().Get(0)

			limit := 0
			if c.IsSet("limit") {
				limit = c.Int("limit")
				if err := solana.ValidateLimit(limit); err != nil {
					return fmt.Errorf("invalid --limit: %w", err)
				}
			}

			jsonOutput, code, err := outputMode(c)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			cl := newClient(c)
			var report *analytics.ActivityReport
			if kind == analytics.KindProgram {
				report, err = cl.ProgramActivity(ctx, address, limit)
			} else {
				report, err = cl.WalletActivity(ctx, address, limit)
			}
			if err != nil {
				return fmt.Errorf("failed to analyze %s %s: %w", name, address, err)
			}

			return render(c.App.Writer, report, jsonOutput, code, func(w io.Writer) {
				printActivityReport(w, report)
			})
		},
	}
}

func render(w io.Writer, v interface{}, jsonOutput bool, code *gojq.Code, human func(io.Writer)) error {
	if jsonOutput {
		return writeJSON(w, v, code)
	}
	human(w)
	return nil
}
