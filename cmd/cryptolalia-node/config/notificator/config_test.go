package notificatorconfig_test

import (
	"testing"
	"time"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
	notificatorconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/notificator"
	configtest "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/test"
	"github.com/stretchr/testify/require"
)

func TestNotificatorSection(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		empty := configtest.EmptyConfig(t)
		require.False(t, notificatorconfig.Enabled(empty))
		require.Empty(t, notificatorconfig.Endpoint(empty))
		require.Empty(t, notificatorconfig.Subject(empty))
		require.Equal(t, notificatorconfig.TimeoutDefault, notificatorconfig.Timeout(empty))
	})

	const path = "../../../../config/example/node"

	var fileConfigTest = func(c *config.Config) {
		require.True(t, notificatorconfig.Enabled(c))
		require.Equal(t, "nats://localhost:4222", notificatorconfig.Endpoint(c))
		require.Equal(t, "chat.receipts", notificatorconfig.Subject(c))
		require.Equal(t, 3*time.Second, notificatorconfig.Timeout(c))
	}

	configtest.ForEachFileType(t, path, fileConfigTest)

	t.Run("ENV", func(t *testing.T) {
		configtest.ForEnvFileType(t, path, fileConfigTest)
	})
}
