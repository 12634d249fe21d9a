package main

import (
	"github.com/ncw/comrt"
	"github.com/ncw/comrt/internal/errcode"
	"github.com/spf13/cobra"
)

var registryRoot string

var rootCommand = &cobra.Command{
	Use:   "comrtctl",
	Short: "Inspect and drive the comrt component-object runtime",
	Long: `
comrtctl is operator tooling for a comrt-backed class registry: it
lists loaded libraries, activates classes by hand, edits treat-as
redirects, runs the quiescent-unload sweep, and mints fresh class ids.`,
	SilenceUsage: true,
}

func init() {
	rootCommand.PersistentFlags().StringVar(&registryRoot, "registry-root", "", "root directory of the class registry")
	_ = rootCommand.MarkPersistentFlagRequired("registry-root")

	rootCommand.AddCommand(listLibrariesCommand)
	rootCommand.AddCommand(activateCommand)
	rootCommand.AddCommand(treatAsCommand)
	rootCommand.AddCommand(freeUnusedCommand)
	rootCommand.AddCommand(guidNewCommand)
}

// newRuntime builds and initializes a Runtime rooted at registryRoot.
// Callers must Uninitialize it when done.
func newRuntime() (*comrt.Runtime, error) {
	rt := comrt.New(comrt.WithRegistryRoot(registryRoot))
	if code := rt.Initialize(); errcode.Failed(code) {
		return nil, code
	}
	return rt, nil
}
