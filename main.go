package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Ctrl+C or SIGTERM cancels the run; the pipeline unwinds through cleanup
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)
	code := exitCode(ctx, err, os.Stderr)
	stop()
	os.Exit(code)
}

// exitCode reports err on stderr and maps it to the process exit status:
// 0 on success, 130 when the run was interrupted, 1 otherwise.
func exitCode(ctx context.Context, err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, "splicer: interrupted, temporary files removed")
		return 130
	}
	fmt.Fprintf(stderr, "splicer: %v\n", err)
	return 1
}
