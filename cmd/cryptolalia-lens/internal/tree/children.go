package tree

import (
	"io"
	"strconv"

	common "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-lens/internal"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/timeline"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var childrenCMD = &cobra.Command{
	Use:   "children",
	Short: "Print non-empty children of the branch",
	Args:  cobra.NoArgs,
	Run:   childrenFunc,
}

var (
	vLevel    int
	vBranchID uint64
)

const (
	levelFlagName  = "level"
	branchFlagName = "id"
)

func init() {
	childrenCMD.Flags().IntVar(&vLevel, levelFlagName, 1, "Branch level, must be positive")
	childrenCMD.Flags().Uint64Var(&vBranchID, branchFlagName, 1, "Branch identifier")
	common.AddConfigFileFlag(childrenCMD, &vConfig)
}

func childrenFunc(cmd *cobra.Command, _ []string) {
	r := common.OpenReplica(cmd, vConfig)
	defer r.Close(cmd.Context())

	children, err := r.GetBranchChildren(cmd.Context(), vBranchID, vLevel)
	common.ExitOnErr(cmd, common.Errf("could not get branch children: %w", err))

	printChildren(cmd.OutOrStdout(), children)
}

func printChildren(w io.Writer, children []timeline.Child) {
	out := tablewriter.NewWriter(w)
	out.SetHeader([]string{"Branch", "Hash"})
	out.SetAutoWrapText(false)

	for _, c := range children {
		out.Append([]string{
			strconv.FormatUint(c.BranchID, 10),
			hashString(c.Hash),
		})
	}

	out.Render()
}
