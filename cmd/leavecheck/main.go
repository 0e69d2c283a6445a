package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/leavecheck/leavecheck/cmd/leavecheck/cli"
)

func main() {
	// Optional; environment variables win over .env entries.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	command := "run"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "run":
		os.Exit(runCmd(ctx, args))
	default:
		fmt.Fprintf(os.Stderr, "leavecheck: unknown command %q\n\nusage: leavecheck run [flags]\n", command)
		os.Exit(2)
	}
}

func runCmd(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	opts := cli.RunOptions{}
	fs.StringVar(&opts.DataDir, "data", "", "directory containing the input extracts (default from LEAVECHECK_DATA_DIR)")
	fs.StringVar(&opts.OutDir, "out", "", "directory to write outputs to (default from LEAVECHECK_OUT_DIR)")
	fs.StringVar(&opts.Tolerance, "tolerance", "", "reconciliation tolerance in units (default from LEAVECHECK_TOLERANCE_UNITS)")
	fs.BoolVar(&opts.JSONOutput, "json", false, "emit the run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return cli.RunCommand(ctx, opts)
}
