package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const paramHttpDialerKeepAlive = "dialer-keep-alive"
const paramHttpDialerTimeout = "dialer-timeout"
const paramHttpEnableHttp2 = "enable-http2"
const paramHttpIdleConnectionTimeout = "idle-connection-timeout"
const paramHttpMaxIdleConnections = "max-idle-connections"
const paramHttpNetwork = "network"
const paramHttpTLSHandshakeTimeout = "tls-handshake-timeout"
const paramHttpResponseHeaderTimeout = "response-header-timeout"

// httpSettings is the subset of http.Transport exposed through configuration.
type httpSettings struct {
	dialerKeepAlive       time.Duration // -1 disables keepalives, 0 uses the OS default
	dialerTimeout         time.Duration
	enableHttp2           bool
	idleConnectionTimeout time.Duration
	maxIdleConnections    int
	network               string
	tlsHandshakeTimeout   time.Duration
	responseHeaderTimeout time.Duration
}

func defaultHttpSettings() httpSettings {
	return httpSettings{
		dialerKeepAlive:       30 * time.Second,
		dialerTimeout:         5 * time.Second,
		idleConnectionTimeout: 1 * time.Minute,
		maxIdleConnections:    50,
		network:               "tcp",
		tlsHandshakeTimeout:   3 * time.Second,
	}
}

func readHttpSettings(v *viper.Viper) (httpSettings, error) {
	d := defaultHttpSettings()
	v.SetDefault(paramHttpDialerKeepAlive, d.dialerKeepAlive)
	v.SetDefault(paramHttpDialerTimeout, d.dialerTimeout)
	v.SetDefault(paramHttpEnableHttp2, d.enableHttp2)
	v.SetDefault(paramHttpIdleConnectionTimeout, d.idleConnectionTimeout)
	v.SetDefault(paramHttpMaxIdleConnections, d.maxIdleConnections)
	v.SetDefault(paramHttpNetwork, d.network)
	v.SetDefault(paramHttpTLSHandshakeTimeout, d.tlsHandshakeTimeout)
	v.SetDefault(paramHttpResponseHeaderTimeout, d.responseHeaderTimeout)

	s := httpSettings{
		dialerKeepAlive:       v.GetDuration(paramHttpDialerKeepAlive),
		dialerTimeout:         v.GetDuration(paramHttpDialerTimeout),
		enableHttp2:           v.GetBool(paramHttpEnableHttp2),
		idleConnectionTimeout: v.GetDuration(paramHttpIdleConnectionTimeout),
		maxIdleConnections:    v.GetInt(paramHttpMaxIdleConnections),
		network:               v.GetString(paramHttpNetwork),
		tlsHandshakeTimeout:   v.GetDuration(paramHttpTLSHandshakeTimeout),
		responseHeaderTimeout: v.GetDuration(paramHttpResponseHeaderTimeout),
	}

	if s.dialerKeepAlive < -1 {
		return s, fmt.Errorf("%s must be -1, 0, or positive", paramHttpDialerKeepAlive)
	}
	for param, value := range map[string]time.Duration{
		paramHttpDialerTimeout:         s.dialerTimeout,
		paramHttpIdleConnectionTimeout: s.idleConnectionTimeout,
		paramHttpTLSHandshakeTimeout:   s.tlsHandshakeTimeout,
		paramHttpResponseHeaderTimeout: s.responseHeaderTimeout,
	} {
		if value < 0 {
			return s, fmt.Errorf("%s must not be negative", param)
		}
	}
	if s.maxIdleConnections < 0 {
		return s, fmt.Errorf("%s must not be negative", paramHttpMaxIdleConnections)
	}
	return s, nil
}

func (tp *TransportPool) newHttpTransport(name string, v *viper.Viper) (*http.Transport, error) {
	s, err := readHttpSettings(v)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   s.dialerTimeout,
		KeepAlive: s.dialerKeepAlive,
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: s.tlsHandshakeTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: func(ctx context.Context, _, address string) (net.Conn, error) {
			return dialer.DialContext(ctx, s.network, address)
		},
		MaxIdleConns:          s.maxIdleConnections,
		IdleConnTimeout:       s.idleConnectionTimeout,
		ResponseHeaderTimeout: s.responseHeaderTimeout,
	}

	if !s.enableHttp2 {
		// A non-nil empty map disables HTTP/2.
		transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}

	tp.logger.WithFields(logrus.Fields{
		"name":                         name,
		paramHttpDialerKeepAlive:       s.dialerKeepAlive,
		paramHttpDialerTimeout:         s.dialerTimeout,
		paramHttpEnableHttp2:           s.enableHttp2,
		paramHttpIdleConnectionTimeout: s.idleConnectionTimeout,
		paramHttpMaxIdleConnections:    s.maxIdleConnections,
		paramHttpNetwork:               s.network,
	}).Info("created transport")

	return transport, nil
}
