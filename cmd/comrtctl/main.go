// Command comrtctl is operator tooling for the component-object
// runtime: inspecting the library manager, driving activation by
// hand, editing treat-as redirects, running the quiescent-unload
// sweep, and minting fresh class ids.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ncw/comrt/internal/corelog"
)

func main() {
	if err := rootCommand.Execute(); err != nil {
		corelog.Error(context.Background(), "comrtctl: command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
