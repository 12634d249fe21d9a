package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ncw/comrt/internal/activator"
	"github.com/ncw/comrt/internal/comif"
	"github.com/ncw/comrt/internal/guid"
	"github.com/ncw/comrt/internal/registry"
	"github.com/spf13/cobra"
)

var listLibrariesCommand = &cobra.Command{
	Use:   "list-libraries",
	Short: "List currently resident libraries and their load counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Uninitialize()

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "PATH\tLOAD COUNT")
		for _, info := range rt.Library().Snapshot() {
			fmt.Fprintf(w, "%s\t%d\n", info.Path, info.LoadCount)
		}
		return w.Flush()
	},
}

var activateContext uint32

var activateCommand = &cobra.Command{
	Use:   "activate <clsid> <iid>",
	Short: "Create an instance of clsid and query it for iid",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		clsid, err := guid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parsing clsid: %w", err)
		}
		iid, err := guid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("parsing iid: %w", err)
		}

		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Uninitialize()

		ctx := activator.ContextFlags(activateContext)
		obj, err := rt.Activator().CreateInstance(clsid, nil, ctx, iid)
		if err != nil {
			return fmt.Errorf("activating %s: %w", clsid, err)
		}
		defer obj.Release()

		fmt.Printf("activated %s, references=%d\n", clsid, refCountOf(obj))
		return nil
	},
}

func init() {
	activateCommand.Flags().Uint32Var(&activateContext, "context", uint32(activator.ContextInprocServer),
		"activation context flags (1=inproc-server, 2=inproc-handler)")
}

// refCountOf reports obj's outstanding reference count when it embeds
// comif.Base (and so exposes RefCount), purely for operator feedback.
func refCountOf(obj comif.Unknown) uint32 {
	if counter, ok := obj.(interface{ RefCount() uint32 }); ok {
		return counter.RefCount()
	}
	return 0
}

var treatAsCommand = &cobra.Command{
	Use:   "treat-as <old-clsid> <new-clsid>",
	Short: "Write a treat-as redirect (new-clsid = guid.Nil deletes it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldID, err := guid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parsing old clsid: %w", err)
		}
		newID, err := guid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("parsing new clsid: %w", err)
		}

		reg := registry.New(registry.NewConfig(registryRoot))
		if err := reg.WriteTreatAs(oldID, newID); err != nil {
			return fmt.Errorf("writing treat-as entry: %w", err)
		}
		return nil
	},
}

var freeUnusedCommand = &cobra.Command{
	Use:   "free-unused",
	Short: "Run the quiescent-unload sweep over resident libraries",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.Uninitialize()

		freed := rt.FreeUnusedLibraries()
		noun := "libraries"
		if freed == 1 {
			noun = "library"
		}
		fmt.Printf("freed %d %s\n", freed, noun)
		return nil
	},
}

var guidNewCommand = &cobra.Command{
	Use:   "guid-new",
	Short: "Mint a fresh class id",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(guid.New().String())
		return nil
	},
}
