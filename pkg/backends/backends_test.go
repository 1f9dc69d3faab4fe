package backends

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/kairosrelay/internal/fixtures"
	"github.com/atlassian/kairosrelay/pkg/transport"
)

func TestInitBackend(t *testing.T) {
	t.Parallel()

	logger := fixtures.NewTestLogger(t)
	v := viper.New()
	pool := transport.NewTransportPool(logger, v)

	for _, name := range Names() {
		b, err := InitBackend(name, v, logger, pool)
		require.NoError(t, err, name)
		require.Equal(t, name, b.Name())
	}
	require.ElementsMatch(t, []string{"null", "rest", "telnet"}, Names())
}

func TestInitBackendErrors(t *testing.T) {
	t.Parallel()

	logger := fixtures.NewTestLogger(t)
	v := viper.New()
	pool := transport.NewTransportPool(logger, v)

	_, err := InitBackend("", v, logger, pool)
	require.Error(t, err)

	_, err = InitBackend("graphite", v, logger, pool)
	require.EqualError(t, err, `unknown backend "graphite"`)

	v.Set("kairosdb.reconnectInterval", -5)
	_, err = InitBackend("telnet", v, logger, pool)
	require.Error(t, err)
}
