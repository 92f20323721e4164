package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"fire/internal/core"
)

type demoCmd struct{}

func (*demoCmd) Name() string     { return "demo" }
func (*demoCmd) Synopsis() string { return "start over from the sample plan" }
func (*demoCmd) Usage() string {
	return `demo

  Replaces the current plan with the sample plan, saves it and prints its projection.
`
}

func (*demoCmd) SetFlags(*flag.FlagSet) {}

func (*demoCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.session.LoadDemo(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading demo: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.show(ctx, "Demo plan"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := a.save(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type projectCmd struct {
	title string
}

func (*projectCmd) Name() string     { return "project" }
func (*projectCmd) Synopsis() string { return "display the projection of the plan" }
func (*projectCmd) Usage() string {
	return `project [-title <title>]

  Displays every stream and the yearly balance of the current plan.
`
}

func (c *projectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.title, "title", "FIRE plan", "report title")
}

func (c *projectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.show(ctx, c.title); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type addCmd struct {
	in core.StreamInput
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add an income or expense stream" }
func (*addCmd) Usage() string {
	return `add -name <name> -start <year> -end <year> -value <amount> -addition <amount> -increase <rate>

  Adds a stream to the plan and saves it. Use a negative addition for expenses.
  Years and amounts are rounded down, the increase is a fraction (0.02 for 2%).
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.in.Name, "name", "", "stream name")
	f.StringVar(&c.in.StartYear, "start", "", "first year of the stream")
	f.StringVar(&c.in.EndYear, "end", "", "last year of the stream")
	f.StringVar(&c.in.StartValue, "value", "0", "value before the stream starts")
	f.StringVar(&c.in.AnnualAddition, "addition", "", "amount added every year")
	f.StringVar(&c.in.AnnualAdditionIncrease, "increase", "0", "yearly growth of the addition")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	st, err := a.session.AddStream(c.in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid stream: %v\n", err)
		return subcommands.ExitUsageError
	}
	fmt.Printf("Added %q with key %d\n", st.Name, st.Key)

	if err := a.show(ctx, "FIRE plan"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := a.save(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type rmCmd struct{}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "remove streams" }
func (*rmCmd) Usage() string {
	return `rm <key|name>...

  Removes streams by key or by name and saves the plan.
`
}

func (*rmCmd) SetFlags(*flag.FlagSet) {}

func (*rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one stream key or name is required")
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	streams := a.session.State().MoneyStreams
	for _, arg := range f.Args() {
		key, ok := findStream(streams, arg)
		if !ok {
			fmt.Fprintf(os.Stderr, "no stream %q\n", arg)
			return subcommands.ExitFailure
		}
		a.session.Store().Delete(key)
		fmt.Printf("Removed %q\n", streams[key].Name)
	}

	if err := a.save(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// findStream matches arg against stream keys first, then names.
func findStream(streams map[int64]core.Stream, arg string) (int64, bool) {
	if key, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if _, ok := streams[key]; ok {
			return key, true
		}
	}
	for key, st := range streams {
		if strings.EqualFold(st.Name, arg) {
			return key, true
		}
	}
	return 0, false
}

type setCmd struct {
	roi      string
	autosave string
}

func (*setCmd) Name() string     { return "set" }
func (*setCmd) Synopsis() string { return "change the rate of return or autosave" }
func (*setCmd) Usage() string {
	return `set [-roi <rate>] [-autosave on|off]

  Changes global plan settings. With autosave on, every change is saved as it happens.
`
}

func (c *setCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.roi, "roi", "", "yearly rate of return as a fraction (0.07 for 7%)")
	f.StringVar(&c.autosave, "autosave", "", "on or off")
}

func (c *setCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.roi == "" && c.autosave == "" {
		fmt.Fprintln(os.Stderr, "nothing to set, use -roi or -autosave")
		return subcommands.ExitUsageError
	}

	var roi float64
	if c.roi != "" {
		d, err := core.ParseDecimal(c.roi)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid roi: %v\n", err)
			return subcommands.ExitUsageError
		}
		roi = d.InexactFloat64()
	}
	var autosave bool
	switch strings.ToLower(c.autosave) {
	case "":
	case "on", "true", "yes":
		autosave = true
	case "off", "false", "no":
		autosave = false
	default:
		fmt.Fprintf(os.Stderr, "Invalid autosave %q: must be on or off\n", c.autosave)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	st := a.session.Store()
	if c.roi != "" {
		st.SetROI(roi)
	}
	if c.autosave != "" {
		st.SetAutoSave(autosave)
	}
	state := a.session.State()
	fmt.Printf("roi %s, autosave %v\n", strconv.FormatFloat(state.ROI, 'f', -1, 64), state.AutoSave)

	if err := a.save(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
