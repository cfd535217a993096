package messages

import (
	"github.com/spf13/cobra"
)

var vConfig string

// Root contains `messages` command definition.
var Root = &cobra.Command{
	Use:   "messages",
	Short: "Operations with the received messages",
}

func init() {
	Root.AddCommand(
		listCMD,
		putCMD,
	)
}
