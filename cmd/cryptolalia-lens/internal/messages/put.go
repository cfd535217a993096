package messages

import (
	"time"

	"github.com/mr-tron/base58"
	common "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-lens/internal"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/spf13/cobra"
)

var putCMD = &cobra.Command{
	Use:   "put",
	Short: "Store a new message in the replica",
	Args:  cobra.NoArgs,
	Run:   putFunc,
}

var (
	vSender  string
	vContent string
	vCreated int64
)

const (
	senderFlagName  = "sender"
	contentFlagName = "content"
	createdFlagName = "created"
)

func init() {
	ff := putCMD.Flags()
	ff.StringVar(&vSender, senderFlagName, "", "Message sender")
	ff.StringVar(&vContent, contentFlagName, "", "Message content")
	ff.Int64Var(&vCreated, createdFlagName, 0, "Creation time in milliseconds, now if omitted")
	_ = putCMD.MarkFlagRequired(contentFlagName)
	common.AddConfigFileFlag(putCMD, &vConfig)
}

func putFunc(cmd *cobra.Command, _ []string) {
	r := common.OpenReplica(cmd, vConfig)
	defer r.Close(cmd.Context())

	env := message.Envelope{
		Time:    vCreated,
		Sender:  vSender,
		Content: []byte(vContent),
	}
	if env.Time == 0 {
		env.Time = time.Now().UnixMilli()
	}

	added, err := r.AddMsg(cmd.Context(), env)
	common.ExitOnErr(cmd, common.Errf("could not add message: %w", err))

	sig := base58.Encode(message.EnvelopeHelper{}.Signature(env))
	if !added {
		cmd.Printf("Message %s is already stored\n", sig)
		return
	}
	cmd.Printf("Message %s stored\n", sig)
}
