package common

import (
	"context"
	"fmt"
	"os"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
	branchconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/branch"
	"github.com/nspcc-dev/cryptolalia-tree/cmd/internal/nodestorage"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/replica"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	flagConfig      = "config"
	flagConfigUsage = "Path to the node configuration file"
)

// Errf returns formatted error in errFmt format if err is not nil.
func Errf(errFmt string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf(errFmt, err)
}

// ExitOnErr prints error via cmd and exits with code 1.
// Does nothing if err is nil.
func ExitOnErr(cmd *cobra.Command, err error) {
	if err != nil {
		cmd.PrintErrln(err)
		os.Exit(1)
	}
}

// AddConfigFileFlag adds the required node config flag to the command.
func AddConfigFileFlag(cmd *cobra.Command, v *string) {
	cmd.Flags().StringVar(v, flagConfig, "", flagConfigUsage)
	_ = cmd.MarkFlagRequired(flagConfig)
}

// Replica is an opened node replica with its storage.
type Replica struct {
	*replica.Replica[message.Envelope]

	st *storage.Storage
}

// Close flushes and closes the replica and its storage.
func (r *Replica) Close(ctx context.Context) error {
	if err := r.Flush(ctx); err != nil {
		return err
	}
	if err := r.Replica.Close(); err != nil {
		return err
	}
	return r.st.Close()
}

// OpenReplica opens the replica described by the node config file.
func OpenReplica(cmd *cobra.Command, configPath string) *Replica {
	c, err := config.New(config.Prm{}, config.WithConfigFile(configPath))
	ExitOnErr(cmd, Errf("could not read config: %w", err))

	st, err := nodestorage.Open(c, zap.NewNop())
	ExitOnErr(cmd, Errf("could not open storage: %w", err))

	r, err := replica.New[message.Envelope](st, branchconfig.Config(c), message.EnvelopeHelper{})
	if err != nil {
		_ = st.Close()
		ExitOnErr(cmd, Errf("could not open replica: %w", err))
	}

	return &Replica{Replica: r, st: st}
}
