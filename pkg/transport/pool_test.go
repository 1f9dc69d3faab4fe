package transport

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestGet(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name      string
		config    map[string]interface{}
		transport string
		valid     bool
	}{
		{name: "default", transport: "default", valid: true},
		{name: "unconfigured falls back", transport: "missing", valid: true},
		{name: "zero timeout", config: map[string]interface{}{"transport.t.client-timeout": 0}, transport: "t", valid: true},
		{name: "negative timeout", config: map[string]interface{}{"transport.t.client-timeout": -time.Second}, transport: "t"},
		{name: "http type", config: map[string]interface{}{"transport.t.type": "http"}, transport: "t", valid: true},
		{name: "unknown type", config: map[string]interface{}{"transport.t.type": "carrier-pigeon"}, transport: "t"},
		{name: "bad transport setting", config: map[string]interface{}{"transport.t.max-idle-connections": -1}, transport: "t"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := viper.New()
			for k, val := range tc.config {
				v.Set(k, val)
			}
			p := NewTransportPool(newTestLogger(), v)
			c, err := p.Get(tc.transport)
			if tc.valid {
				require.NoError(t, err)
				require.NotNil(t, c)
			} else {
				require.Error(t, err)
				require.Nil(t, c)
			}
		})
	}
}

func TestGetCachesPerName(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("transport.slow.client-timeout", time.Minute)
	p := NewTransportPool(newTestLogger(), v)

	c1, err := p.Get("default")
	require.NoError(t, err)
	c2, err := p.Get("default")
	require.NoError(t, err)
	require.Same(t, c1, c2)

	slow, err := p.Get("slow")
	require.NoError(t, err)
	require.NotSame(t, c1, slow)
	require.Equal(t, time.Minute, slow.Client.Timeout)
	require.Equal(t, defaultTransportClientTimeout, c1.Client.Timeout)
}

func TestGetDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("transport.broken.client-timeout", -1*time.Second)
	p := NewTransportPool(newTestLogger(), v)

	_, err := p.Get("broken")
	require.Error(t, err)
	require.NotContains(t, p.clients, "broken")

	_, err = p.Get("default")
	require.NoError(t, err)
	require.Contains(t, p.clients, "default")
}
