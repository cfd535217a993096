package config_test

import (
	"testing"
	"time"

	"github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config"
	configtest "github.com/nspcc-dev/cryptolalia-tree/cmd/cryptolalia-node/config/test"
	"github.com/stretchr/testify/require"
)

func TestStringSlice(t *testing.T) {
	configtest.ForEachFileType(t, "test/config", func(c *config.Config) {
		cStringSlice := c.Sub("string_slice")

		val := config.StringSlice(cStringSlice, "empty")
		require.Empty(t, val)

		val = config.StringSlice(cStringSlice, "filled")
		require.Equal(t, []string{
			"string1",
			"string2",
		}, val)

		require.Panics(t, func() {
			config.StringSlice(cStringSlice, "incorrect")
		})

		val = config.StringSliceSafe(cStringSlice, "incorrect")
		require.Nil(t, val)
	})
}

func TestString(t *testing.T) {
	configtest.ForEachFileType(t, "test/config", func(c *config.Config) {
		c = c.Sub("string")

		val := config.String(c, "correct")
		require.Equal(t, "some string", val)

		require.Panics(t, func() {
			config.String(c, "incorrect")
		})

		val = config.StringSafe(c, "incorrect")
		require.Empty(t, val)
	})
}

func TestDuration(t *testing.T) {
	configtest.ForEachFileType(t, "test/config", func(c *config.Config) {
		c = c.Sub("duration")

		val := config.Duration(c, "correct")
		require.Equal(t, 15*time.Minute, val)

		require.Panics(t, func() {
			config.Duration(c, "incorrect")
		})

		val = config.DurationSafe(c, "incorrect")
		require.Equal(t, time.Duration(0), val)
	})
}

func TestBool(t *testing.T) {
	configtest.ForEachFileType(t, "test/config", func(c *config.Config) {
		c = c.Sub("bool")

		require.True(t, config.Bool(c, "correct"))
		require.True(t, config.Bool(c, "correct_string"))

		require.Panics(t, func() {
			config.Bool(c, "incorrect")
		})

		require.False(t, config.BoolSafe(c, "incorrect"))
	})
}

func TestNumbers(t *testing.T) {
	configtest.ForEachFileType(t, "test/config", func(c *config.Config) {
		c = c.Sub("number")

		const (
			posSt = "positive"
			negSt = "negative"
			fitSt = "fit_int"
			incSt = "incorrect"
		)

		require.EqualValues(t, 1, config.Int(c, posSt))
		require.EqualValues(t, 1, config.Uint(c, posSt))

		require.EqualValues(t, -1, config.Int(c, negSt))
		require.Panics(t, func() { config.Uint(c, negSt) })

		require.EqualValues(t, 1<<40, config.Int(c, fitSt))

		require.Panics(t, func() { config.Int(c, incSt) })
		require.Panics(t, func() { config.Uint(c, incSt) })

		require.Zero(t, config.IntSafe(c, incSt))
		require.Zero(t, config.UintSafe(c, incSt))
	})
}
