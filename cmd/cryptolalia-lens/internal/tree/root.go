package tree

import (
	"github.com/spf13/cobra"
)

var vConfig string

// Root contains `tree` command definition.
var Root = &cobra.Command{
	Use:   "tree",
	Short: "Operations with a timeline hash tree",
}

func init() {
	Root.AddCommand(
		routeCMD,
		childrenCMD,
		blockCMD,
	)
}
