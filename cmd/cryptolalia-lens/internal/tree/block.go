package tree

import (
	"io"

	"github.com/mr-tron/base58"
	common "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-lens/internal"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/timeline"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var blockCMD = &cobra.Command{
	Use:   "block",
	Short: "Print leaves stored in the level-0 branch",
	Args:  cobra.NoArgs,
	Run:   blockFunc,
}

func init() {
	blockCMD.Flags().Uint64Var(&vBranchID, branchFlagName, 1, "Level-0 branch identifier")
	common.AddConfigFileFlag(blockCMD, &vConfig)
}

type leafView struct {
	Signature string `yaml:"signature"`
	Time      int64  `yaml:"time,omitempty"`
	Sender    string `yaml:"sender,omitempty"`
	Size      int    `yaml:"size"`
	Error     string `yaml:"error,omitempty"`
}

type blockView struct {
	Branch uint64     `yaml:"branch"`
	Digit  int        `yaml:"indexed_digit"`
	Leaves []leafView `yaml:"leaves"`
}

func blockFunc(cmd *cobra.Command, _ []string) {
	r := common.OpenReplica(cmd, vConfig)
	defer r.Close(cmd.Context())

	b, err := r.Tree().GetBranchData(cmd.Context(), vBranchID)
	common.ExitOnErr(cmd, common.Errf("could not get branch data: %w", err))

	common.ExitOnErr(cmd, printBlock(cmd.OutOrStdout(), vBranchID, b))
}

func printBlock(w io.Writer, id uint64, b *timeline.Block) error {
	if b == nil {
		b = timeline.NewBlock()
	}

	v := blockView{
		Branch: id,
		Digit:  b.IndexedDigit(),
		Leaves: make([]leafView, 0, b.Len()),
	}

	var h message.EnvelopeHelper
	for _, e := range b.Entries() {
		lv := leafView{
			Signature: base58.Encode(e.Signature),
			Size:      len(e.Data),
		}

		env, err := h.Unmarshal(e.Data)
		if err != nil {
			lv.Error = err.Error()
		} else {
			lv.Time = env.Time
			lv.Sender = env.Sender
		}

		v.Leaves = append(v.Leaves, lv)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return common.Errf("could not encode block: %w", err)
	}
	return enc.Close()
}
