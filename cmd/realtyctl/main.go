package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"realty/internal/app"
	"realty/internal/config"
	"realty/internal/service"
	"realty/pkg/log"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newCLI(os.Stdin, os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:      "realtyctl",
		Usage:     "Operate the Prague real estate assistant",
		Reader:    in,
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file with the same keys as the environment",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Before: setupLogger,
		After: func(c *cli.Context) error {
			log.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "build-index",
				Usage:  "Embed and index every rent listing not indexed yet",
				Action: buildIndexCommand,
			},
			{
				Name:      "ask",
				Usage:     "Ask a question, or start an interactive session when none is given",
				ArgsUsage: "[question]",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Conversation session id",
						Value:   service.DefaultSessionID,
					},
				},
			},
			{
				Name:      "classify",
				Usage:     "Print the intent of a question as JSON",
				ArgsUsage: "<question>",
				Action:    classifyCommand,
			},
			{
				Name:      "retrieve",
				Usage:     "Print the context block a question would be answered from",
				ArgsUsage: "<question>",
				Action:    retrieveCommand,
			},
			{
				Name:   "stats",
				Usage:  "Print the market overview",
				Action: statsCommand,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	if path := c.String("config"); path != "" {
		if err := os.Setenv("CONFIG_FILE", path); err != nil {
			return err
		}
	}
	log.Init(c.String("log-level"), "console", "")
	return nil
}

// withApp loads config, wires the application and releases it after fn
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func question(c *cli.Context) (string, error) {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return "", fmt.Errorf("a question is required")
	}
	return q, nil
}

func buildIndexCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		fmt.Fprintln(c.App.Writer, "Building listing index...")
		report, err := a.Knowledge.Build(ctx)
		if err != nil {
			return fmt.Errorf("index build failed after %d inserts: %w", report.Inserted, err)
		}
		fmt.Fprintf(c.App.Writer, "Done: %d listings, %d already indexed, %d inserted\n", report.Total, report.Existing, report.Inserted)
		return nil
	})
}

func askCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		session := a.Assistant.Session(c.String("session"))

		if c.Args().Present() {
			q, err := question(c)
			if err != nil {
				return err
			}
			answer, err := session.Ask(ctx, q)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, answer)
			return nil
		}

		return chatLoop(ctx, c.App.Reader, c.App.Writer, session)
	})
}

// chatLoop reads questions line by line until EOF or "exit"; "reset" clears the session
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, session *service.Session) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "exit", "quit":
			return nil
		case "reset":
			if err := session.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "Conversation cleared.")
		default:
			answer, err := session.Ask(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			} else {
				fmt.Fprintln(out, answer)
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func classifyCommand(c *cli.Context) error {
	q, err := question(c)
	if err != nil {
		return err
	}
	return withApp(c, func(ctx context.Context, a *app.App) error {
		return printJSON(c.App.Writer, a.Assistant.Classify(ctx, q))
	})
}

func retrieveCommand(c *cli.Context) error {
	q, err := question(c)
	if err != nil {
		return err
	}
	return withApp(c, func(ctx context.Context, a *app.App) error {
		intent := a.Assistant.Classify(ctx, q)
		data, err := a.Assistant.Retrieve(ctx, intent, q)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "intent: %s\n\n%s\n", intent.Type, data)
		return nil
	})
}

func statsCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		stats, err := a.Listings.MarketStats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, service.FormatMarketStats(stats))
		return nil
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
