// Command web runs the table-cleaning HTTP service.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"cleanbot/internal/app"
	"cleanbot/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cleanbot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	traceOut := io.Writer(io.Discard)
	if os.Getenv("CLEANBOT_TRACE_STDOUT") == "true" {
		traceOut = os.Stdout
	}

	application, err := app.New(cfg, traceOut)
	if err != nil {
		return err
	}
	return application.Run(context.Background())
}
