package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/rgbdplay/pkg/log"
)

func init() {
	logging.CallbackLabelLevel = 5
	logging.ColorLogLevelLabelOnly = true
	log.SetLevel(os.Getenv("RGBDPLAY_LOGGING_LEVEL"))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		stop()
		fatal(err)
	}
}

func fatal(err error) {
	log.Fatal("%v", err)
}
