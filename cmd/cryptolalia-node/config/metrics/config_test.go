package metricsconfig_test

import (
	"testing"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
	metricsconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/metrics"
	configtest "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/test"
	"github.com/stretchr/testify/require"
)

func TestMetricsSection(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		empty := configtest.EmptyConfig(t)
		require.False(t, metricsconfig.Enabled(empty))
		require.Equal(t, metricsconfig.AddressDefault, metricsconfig.Address(empty))
	})

	const path = "../../../../config/example/node"

	var fileConfigTest = func(c *config.Config) {
		require.True(t, metricsconfig.Enabled(c))
		require.Equal(t, "127.0.0.1:9100", metricsconfig.Address(c))
	}

	configtest.ForEachFileType(t, path, fileConfigTest)

	t.Run("ENV", func(t *testing.T) {
		configtest.ForEnvFileType(t, path, fileConfigTest)
	})
}
