package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	paramTransportClientTimeout = "client-timeout"
	paramTransportCustomHeaders = "custom-headers"
	paramTransportType          = "type"
	paramTransportUserAgent     = "user-agent"

	defaultTransportClientTimeout = 10 * time.Second
	defaultTransportUserAgent     = "kairosrelay"

	transportTypeHttp    = "http"
	defaultTransportType = transportTypeHttp

	// defaultTransportName is the section used for names which are not configured.
	defaultTransportName = "default"
)

var (
	errClientTimeoutNegative = errors.New(paramTransportClientTimeout + " must not be negative")
	errTransportTypeUnknown  = errors.New(paramTransportType + " must be " + transportTypeHttp)
)

// TransportPool hands out a Client per transport.<name> configuration section, creating
// each on first use.
type TransportPool struct {
	config *viper.Viper
	logger logrus.FieldLogger

	mu      sync.Mutex
	clients map[string]*Client
}

func NewTransportPool(logger logrus.FieldLogger, config *viper.Viper) *TransportPool {
	config.SetDefault("transport."+defaultTransportName, map[string]interface{}{})
	return &TransportPool{
		logger:  logger,
		clients: map[string]*Client{},
		config:  config,
	}
}

// Get returns the named Client. A Client which failed to build is not remembered.
func (tp *TransportPool) Get(name string) (*Client, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if hc, ok := tp.clients[name]; ok {
		return hc, nil
	}

	hc, err := tp.newClient(name)
	if err != nil {
		return nil, err
	}
	tp.clients[name] = hc
	return hc, nil
}

// section returns the configuration of the named transport, falling back to the default one.
func (tp *TransportPool) section(name string) *viper.Viper {
	if sub := tp.config.Sub("transport." + name); sub != nil {
		return sub
	}
	tp.logger.WithField("name", name).Warn("request for non-configured transport, using transport." + defaultTransportName)
	if sub := tp.config.Sub("transport." + defaultTransportName); sub != nil {
		return sub
	}
	return viper.New()
}

func (tp *TransportPool) newClient(name string) (*Client, error) {
	sub := tp.section(name)
	sub.SetDefault(paramTransportClientTimeout, defaultTransportClientTimeout)
	sub.SetDefault(paramTransportCustomHeaders, map[string]string{})
	sub.SetDefault(paramTransportType, defaultTransportType)
	sub.SetDefault(paramTransportUserAgent, defaultTransportUserAgent)

	clientTimeout := sub.GetDuration(paramTransportClientTimeout)
	if clientTimeout < 0 { // 0 means no timeout
		return nil, errClientTimeoutNegative
	}
	if sub.GetString(paramTransportType) != transportTypeHttp {
		return nil, errTransportTypeUnknown
	}
	transport, err := tp.newHttpTransport(name, sub)
	if err != nil {
		return nil, err
	}

	userAgent := sub.GetString(paramTransportUserAgent)
	tp.logger.WithFields(logrus.Fields{
		"name":                      name,
		paramTransportClientTimeout: clientTimeout,
		paramTransportUserAgent:     userAgent,
	}).Info("created client")

	return &Client{
		customHeaders: sub.GetStringMapString(paramTransportCustomHeaders),
		userAgent:     userAgent,
		Client: &http.Client{
			Transport: transport,
			Timeout:   clientTimeout,
		},
	}, nil
}
