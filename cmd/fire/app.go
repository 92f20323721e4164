package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"fire/internal/amqp"
	"fire/internal/autosave"
	"fire/internal/cli"
	"fire/internal/codec"
	"fire/internal/config"
	"fire/internal/log"
	"fire/internal/report"
	"fire/internal/session"
	"fire/internal/storage"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var shareURL = flag.String("url", "", "share link to start from instead of the latest saved one")
var plain = flag.Bool("plain", false, "print raw markdown instead of rendering it")

// app is everything a plan command needs for one run.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	history *storage.History
	feed    *amqp.Client
	session *session.Session
}

// openApp loads configuration, opens the share history and starts a session from the
// link given with -url or from the latest saved link.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.LogLevel)
	ctx = log.WithLogger(ctx, logger)

	history, err := cli.OpenHistory(logger, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, history: history}

	var hooks []autosave.CommitHook
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// the feed is optional, saving still works without it
			logger.Warn("Share feed unavailable", log.FieldComponent, log.ComponentAMQP, log.FieldError, err)
		} else {
			a.feed = client
			hooks = append(hooks, client.CommitHook())
		}
	}

	registry, err := codec.New(cfg.Codec, promptSecret)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.session, err = session.Open(ctx, session.Options{
		Codec:      registry,
		Location:   history,
		Cooldown:   cfg.AutosaveCooldown,
		DefaultROI: cfg.DefaultROI,
		CacheSize:  cfg.CacheSize,
		CacheTTL:   cfg.CacheTTL,
		Hooks:      hooks,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	if *shareURL != "" {
		ok, err := history.Navigate(ctx, *shareURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		if !ok {
			a.Close()
			return nil, fmt.Errorf("%s: no %q parameter in %s", codec.MsgUnableToLoad, cfg.TokenParam, *shareURL)
		}
	}

	if _, err := a.session.Restore(ctx); err != nil {
		if *shareURL != "" {
			a.Close()
			return nil, err
		}
		// a broken latest link must not lock the user out, start over instead
		fmt.Fprintf(os.Stderr, "%s, starting from an empty plan\n", codec.MsgUnableToLoad)
	}
	return a, nil
}

func (a *app) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.feed != nil {
		a.feed.Close()
	}
	if a.history != nil {
		a.history.Close()
	}
}

// save shares the current plan and prints its link. When autosave already committed
// the change, its link is printed instead of saving again.
func (a *app) save(ctx context.Context) error {
	res, err := a.session.Save(ctx)
	if err != nil {
		var eerr *codec.EncodeError
		if errors.As(err, &eerr) {
			return fmt.Errorf("%s: %w", codec.MsgUnableToSave, err)
		}
		return err
	}
	if res.Unchanged {
		fmt.Println("already saved")
	}
	fmt.Println(a.history.Link(res.Token))
	return nil
}

// show renders the projection of the current plan. A rendering failure undoes the last
// change so the saved plan stays usable.
func (a *app) show(ctx context.Context, title string) error {
	return a.session.Recover(ctx, func() error {
		state := a.session.State()
		md, err := report.NewProjection(title, state, a.session.Projection(), a.cfg.Currency).Markdown()
		if err != nil {
			return err
		}
		return printMarkdown(md)
	})
}
