package tree

import (
	"encoding/hex"
	"io"
	"strconv"
	"time"

	common "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-lens/internal"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/timeline"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var routeCMD = &cobra.Command{
	Use:   "route",
	Short: "Print branch hashes from the bucket of the given time up to the root",
	Args:  cobra.NoArgs,
	Run:   routeFunc,
}

var vTime int64

const timeFlagName = "time"

func init() {
	routeCMD.Flags().Int64Var(&vTime, timeFlagName, 0, "Time in milliseconds, now if omitted")
	common.AddConfigFileFlag(routeCMD, &vConfig)
}

func routeFunc(cmd *cobra.Command, _ []string) {
	r := common.OpenReplica(cmd, vConfig)
	defer r.Close(cmd.Context())

	tm := vTime
	if tm == 0 {
		tm = time.Now().UnixMilli()
	}

	route, err := r.GetBranchRoute(cmd.Context(), tm)
	common.ExitOnErr(cmd, common.Errf("could not get branch route: %w", err))

	printRoute(cmd.OutOrStdout(), route)
}

func printRoute(w io.Writer, route timeline.Route) {
	out := tablewriter.NewWriter(w)
	out.SetHeader([]string{"Level", "Branch", "Hash"})
	out.SetAutoWrapText(false)

	for _, n := range route {
		out.Append([]string{
			strconv.Itoa(n.Level),
			strconv.FormatUint(n.BranchID, 10),
			hashString(n.Hash),
		})
	}

	out.Render()
}

func hashString(h []byte) string {
	if len(h) == 0 {
		return "<empty>"
	}
	return hex.EncodeToString(h)
}
