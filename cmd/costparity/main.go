// Command costparity checks a candidate cost-basis engine against the
// reference engine over a set of case files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eupholio/costparity/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
