package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/satishbabariya/godal/cli/commands"
	"github.com/satishbabariya/godal/cli/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		ui.New(os.Stderr).Error("%v", err)
		os.Exit(1)
	}
}
