package storageconfig_test

import (
	"testing"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
	storageconfig "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/storage"
	configtest "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/test"
	"github.com/stretchr/testify/require"
)

func TestStorageSection(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		empty := configtest.EmptyConfig(t)
		require.Equal(t, storageconfig.TypeDefault, storageconfig.Type(empty))
		require.Panics(t, func() { storageconfig.Path(empty) })
		require.False(t, storageconfig.Compress(empty))
		require.False(t, storageconfig.NoSync(empty))
	})

	const path = "../../../../config/example/node"

	var fileConfigTest = func(c *config.Config) {
		require.Equal(t, storageconfig.TypePebble, storageconfig.Type(c))
		require.Equal(t, "/var/lib/cryptolalia/data", storageconfig.Path(c))
		require.True(t, storageconfig.Compress(c))
		require.True(t, storageconfig.NoSync(c))
	}

	configtest.ForEachFileType(t, path, fileConfigTest)

	t.Run("ENV", func(t *testing.T) {
		configtest.ForEnvFileType(t, path, fileConfigTest)
	})
}
