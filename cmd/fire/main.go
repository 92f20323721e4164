// Command fire plans personal cash flows: it projects income and expense streams into a
// running balance and keeps the whole plan in a shareable link.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"fire/internal/cli"
	"fire/internal/log"
)

func main() {
	cli.LoadEnvFile()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&demoCmd{}, "plan")
	subcommands.Register(&projectCmd{}, "plan")
	subcommands.Register(&addCmd{}, "plan")
	subcommands.Register(&rmCmd{}, "plan")
	subcommands.Register(&setCmd{}, "plan")

	subcommands.Register(&historyCmd{}, "links")
	subcommands.Register(&feedCmd{}, "links")

	flag.Parse()

	ctx, stop := cli.GracefulShutdown(context.Background(), log.New(log.DefaultConfig()))
	status := subcommands.Execute(ctx)
	stop()
	os.Exit(int(status))
}
