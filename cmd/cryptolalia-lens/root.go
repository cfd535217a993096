package main

import (
	"os"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-lens/internal/messages"
	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-lens/internal/tree"
	"github.com/nspcc-dev/cryptolalia-tree/cmd/internal/cmderr"
	"github.com/nspcc-dev/cryptolalia-tree/misc"
	"github.com/spf13/cobra"
)

var command = &cobra.Command{
	Use:           "cryptolalia-lens",
	Short:         "Cryptolalia Storage Lens",
	Long:          `Cryptolalia Storage Lens provides tools to browse the timeline tree and the message list of a node storage.`,
	RunE:          entryPoint,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func entryPoint(cmd *cobra.Command, _ []string) error {
	printVersion, _ := cmd.Flags().GetBool("version")
	if printVersion {
		cmd.Println(misc.BuildInfo("Cryptolalia Lens"))

		return nil
	}

	return cmd.Usage()
}

func init() {
	// use stdout as default output for cmd.Print()
	command.SetOut(os.Stdout)
	command.Flags().Bool("version", false, "Application version")
	command.AddCommand(
		tree.Root,
		messages.Root,
	)
}

func main() {
	err := command.Execute()
	cmderr.ExitOnErr(err)
}
