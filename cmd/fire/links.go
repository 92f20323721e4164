package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"fire/internal/amqp"
	"fire/internal/cli"
	"fire/internal/codec"
	"fire/internal/log"
	"fire/internal/worker"
)

type historyCmd struct {
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list saved share links" }
func (*historyCmd) Usage() string {
	return `history [-n <count>]

  Lists the most recently saved share links, newest first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 10, "number of links to list")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.limit < 1 {
		fmt.Fprintln(os.Stderr, "-n must be at least 1")
		return subcommands.ExitUsageError
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	logger := cli.SetupLogger(cfg.LogLevel)
	history, err := cli.OpenHistory(logger, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer history.Close()

	entries, err := history.List(ctx, c.limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing history: %v\n", err)
		return subcommands.ExitFailure
	}

	var b strings.Builder
	b.WriteString("# Saved links\n\n")
	if len(entries) == 0 {
		b.WriteString("_No link saved yet._\n")
	} else {
		b.WriteString("| Saved | Format | Link |\n|:--|:--|:--|\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", e.CreatedAt.Local().Format(time.DateTime), e.Codec, e.URL)
		}
	}
	if err := printMarkdown(b.String()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type feedCmd struct{}

func (*feedCmd) Name() string     { return "feed" }
func (*feedCmd) Synopsis() string { return "follow plans shared through the message broker" }
func (*feedCmd) Usage() string {
	return `feed

  Prints one line per plan saved by any fire client publishing to AMQP_URL, until
  interrupted.
`
}

func (*feedCmd) SetFlags(*flag.FlagSet) {}

func (*feedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentAMQP)
	if cfg.AMQPURL == "" {
		fmt.Fprintln(os.Stderr, "AMQP_URL is not set")
		return subcommands.ExitUsageError
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to broker: %v\n", err)
		return subcommands.ExitFailure
	}
	defer client.Close()

	// sealed plans stay opaque here, the feed never asks for passphrases
	registry, err := codec.New("", nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	feed := worker.NewFeedWorker(registry, cfg.Currency, 16)
	g, gctx := errgroup.WithContext(log.WithLogger(ctx, logger))

	g.Go(func() error {
		defer feed.Close()
		return client.ConsumeShareCommitted(gctx, func(msg *amqp.ShareCommittedMessage) error {
			return feed.HandleShareMessage(gctx, msg)
		})
	})

	g.Go(func() error {
		for line := range feed.Lines() {
			fmt.Printf("%s  %s\n", line.At.Local().Format(time.DateTime), line.Text)
		}
		return nil
	})

	err = g.Wait()
	handled, unreadable := feed.Stats()
	logger.Info("Feed stopped", "handled", handled, "unreadable", unreadable)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.LogError(ctx, "Feed consumer failed", err, log.OpConsume, log.ErrorTypeNetwork, nil)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
