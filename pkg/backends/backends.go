package backends

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/atlassian/kairosrelay"
	"github.com/atlassian/kairosrelay/pkg/backends/null"
	"github.com/atlassian/kairosrelay/pkg/backends/rest"
	"github.com/atlassian/kairosrelay/pkg/backends/telnet"
	"github.com/atlassian/kairosrelay/pkg/transport"
)

// All known backends.
var backends = map[string]kairosrelay.BackendFactory{
	null.BackendName:   null.NewClientFromViper,
	rest.BackendName:   rest.NewClientFromViper,
	telnet.BackendName: telnet.NewClientFromViper,
}

// Names returns the names of the known backends.
func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// GetBackend creates an instance of the named backend, or nil if
// the name is not known. The error return is only used if the named backend
// was known but failed to initialize.
func GetBackend(name string, v *viper.Viper, logger logrus.FieldLogger, pool *transport.TransportPool) (kairosrelay.Backend, error) {
	f, found := backends[name]
	if !found {
		return nil, nil
	}
	return f(v, logger.WithField("backend", name), pool)
}

// InitBackend creates an instance of the named backend.
func InitBackend(name string, v *viper.Viper, logger logrus.FieldLogger, pool *transport.TransportPool) (kairosrelay.Backend, error) {
	if name == "" {
		return nil, fmt.Errorf("no backend specified")
	}

	backend, err := GetBackend(name, v, logger, pool)
	if err != nil {
		return nil, fmt.Errorf("could not init backend %q: %v", name, err)
	}
	if backend == nil {
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	logger.Infof("Initialised backend %q", name)

	return backend, nil
}
