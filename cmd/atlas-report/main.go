package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aryankumar/atlas-report/internal/cli"
	"github.com/aryankumar/atlas-report/internal/util"
)

func main() {
	// Setup signal handling for graceful shutdown
	ctx := util.SetupSignalHandler(context.Background(), nil)

	// Execute the CLI
	err := cli.Execute(ctx)
	code := util.ExitCode(err)

	switch code {
	case util.ExitOK:
	case util.ExitPartial:
		// The report was printed; the failed projects are listed with it
		slog.Warn("report is incomplete", "error", err)
	default:
		fmt.Fprintln(os.Stderr, "Error: "+util.FriendlyError(err))
	}
	os.Exit(code)
}
