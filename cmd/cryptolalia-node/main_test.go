package main

import (
	"context"
	"testing"
	"time"

	configtest "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/test"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/core/message"
	"github.com/nspcc-dev/cryptolalia-tree/pkg/replica"
	"github.com/stretchr/testify/require"
)

func TestApp_Lifecycle(t *testing.T) {
	t.Setenv("CRYPTOLALIA_STORAGE_TYPE", "memory")
	t.Setenv("CRYPTOLALIA_SYNC_NAME", "test-node")
	t.Setenv("CRYPTOLALIA_LOGGER_LEVEL", "error")

	c := initCfg(configtest.EmptyConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	c.ctx = ctx

	initApp(c)
	bootUp(c)

	require.Equal(t, "test-node", c.name)
	require.Nil(t, c.metrics)
	require.Nil(t, c.notifier)
	require.Nil(t, c.grpcServer)

	added, err := c.replica.AddMsg(ctx, message.Envelope{Time: 1000, Sender: "a", Content: []byte("hi")})
	require.NoError(t, err)
	require.True(t, added)

	msgs, err := c.replica.GetMsgList(ctx, time.Now().Add(time.Hour).UnixMilli(), replica.Query{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	cancel()
	shutdown(c)

	require.Empty(t, c.sync.Peers())
}
