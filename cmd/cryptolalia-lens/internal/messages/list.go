package messages

import (
	"fmt"
	"io"
	"time"

	"github.com/mr-tron/base58"
	common "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-lens/internal"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/datalist"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/replica"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCMD = &cobra.Command{
	Use:   "list",
	Short: "List messages by receipt time",
	Args:  cobra.NoArgs,
	Run:   listFunc,
}

var (
	vTime   int64
	vOffset int
	vLimit  int
	vOrder  string
)

const (
	timeFlagName   = "time"
	offsetFlagName = "offset"
	limitFlagName  = "limit"
	orderFlagName  = "order"

	orderUp   = "up"
	orderDown = "down"
)

func init() {
	ff := listCMD.Flags()
	ff.Int64Var(&vTime, timeFlagName, 0, "Receipt time in milliseconds to start from, now if omitted")
	ff.IntVar(&vOffset, offsetFlagName, 0, "Number of receipts to skip")
	ff.IntVar(&vLimit, limitFlagName, replica.DefaultLimit, "Number of receipts to read")
	ff.StringVar(&vOrder, orderFlagName, orderDown, "Listing direction: up (oldest first) or down (newest first)")
	common.AddConfigFileFlag(listCMD, &vConfig)
}

type messageView struct {
	ReceiptTime int64  `yaml:"receipt_time"`
	Signature   string `yaml:"signature"`
	Time        int64  `yaml:"time"`
	Sender      string `yaml:"sender"`
	Content     string `yaml:"content"`
}

func parseOrder(s string) (datalist.Order, error) {
	switch s {
	case orderUp:
		return datalist.Up, nil
	case orderDown:
		return datalist.Down, nil
	default:
		return 0, fmt.Errorf("invalid order %q", s)
	}
}

func listFunc(cmd *cobra.Command, _ []string) {
	order, err := parseOrder(vOrder)
	common.ExitOnErr(cmd, err)

	r := common.OpenReplica(cmd, vConfig)
	defer r.Close(cmd.Context())

	tm := vTime
	if tm == 0 {
		tm = time.Now().UnixMilli()
	}

	msgs, err := r.GetMsgList(cmd.Context(), tm, replica.Query{
		Offset: vOffset,
		Limit:  vLimit,
		Order:  order,
	})
	common.ExitOnErr(cmd, common.Errf("could not list messages: %w", err))

	common.ExitOnErr(cmd, printMessages(cmd.OutOrStdout(), msgs))
}

func printMessages(w io.Writer, msgs []replica.Message[message.Envelope]) error {
	var h message.EnvelopeHelper

	vs := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		vs = append(vs, messageView{
			ReceiptTime: m.ReceiptTime,
			Signature:   base58.Encode(h.Signature(m.Content)),
			Time:        m.Content.Time,
			Sender:      m.Content.Sender,
			Content:     string(m.Content.Content),
		})
	}

	data, err := yaml.Marshal(vs)
	if err != nil {
		return common.Errf("could not encode messages: %w", err)
	}

	_, err = w.Write(data)
	return err
}
