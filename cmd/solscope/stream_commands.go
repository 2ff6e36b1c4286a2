package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/solscope/service/analytics"
	natspkg "github.com/brojonat/solscope/service/nats"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func streamCommand() *cli.Command {
	return &cli.Command{
		Name:      "stream",
		Usage:     "Stream activity reports via SSE as the server computes them",
		ArgsUsage: "[address]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "must-jq",
				Usage: "jq filter every event must satisfy (repeatable)",
			},
		},
		Action: func(c *cli.Context) error {
			address := c.Args().First()

			jsonOutput, code, err := outputMode(c)
			if err != nil {
				return err
			}

			filters := c.StringSlice("must-jq")
			compiled := make([]*gojq.Code, 0, len(filters))
			for _, f := range filters {
				fc, err := compileJQ(f)
				if err != nil {
					return err
				}
				compiled = append(compiled, fc)
			}

			// Create context that cancels on interrupt
			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go func() {
				select {
				case <-sigChan:
					cancel()
				case <-ctx.Done():
				}
			}()

			if !jsonOutput {
				if address != "" {
					fmt.Fprintf(c.App.ErrWriter, "Connected to activity stream for: %s\n", address)
				} else {
					fmt.Fprintf(c.App.ErrWriter, "Connected to activity stream for all addresses\n")
				}
				fmt.Fprintf(c.App.ErrWriter, "Streaming reports... (Ctrl+C to stop)\n\n")
			}

			w := c.App.Writer
			return newClient(c).StreamActivity(ctx, address, func(event *natspkg.ActivityEvent) error {
				if !matchesAll(event, compiled) {
					return nil
				}
				if jsonOutput {
					return writeJSON(w, event, code)
				}
				printActivityEvent(w, event)
				return nil
			})
		},
	}
}

func printActivityEvent(w io.Writer, event *natspkg.ActivityEvent) {
	fmt.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	kind := "Wallet"
	if event.Kind == analytics.KindProgram {
		kind = "Program"
	}
	fmt.Fprintf(w, "%-10s %s\n", kind+":", event.Address)
	fmt.Fprintf(w, "Total:     %d\n", event.Total)
	fmt.Fprintf(w, "Errors:    %d\n", event.ErrorCount)
	fmt.Fprintf(w, "Success:   %s%%\n", event.SuccessRatePct)
	fmt.Fprintf(w, "Published: %s\n", event.PublishedAt.Format(time.RFC3339))
	fmt.Fprintln(w)
}
