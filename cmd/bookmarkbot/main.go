package main

import (
	"fmt"
	"log/slog"
	"os"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _                 _                        _    _           _
  | |__   ___   ___ | | ___ __ ___   __ _ _ __| | _| |__   ___ | |_
  | '_ \ / _ \ / _ \| |/ / '_ ' _ \ / _' | '__| |/ / '_ \ / _ \| __|
  | |_) | (_) | (_) |   <| | | | | | (_| | |  |   <| |_) | (_) | |_
  |_.__/ \___/ \___/|_|\_\_| |_| |_|\__,_|_|  |_|\_\_.__/ \___/ \__|

  Classify chat messages and publish them as bookmark cards

  Usage: bookmarkbot <command> [options]
         bookmarkbot --help`)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	app := newCLIApp(&deps{logger: logger})
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
