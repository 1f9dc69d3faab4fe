package util

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables overriding configuration,
// e.g. KRELAY_WEB_ADDRESS or KRELAY_KAIROSDB_HOST.
const EnvPrefix = "KRELAY"

var envKeyReplacer = strings.NewReplacer("-", "_", ".", "_")

// GetSubViper returns the configuration section under key. An absent section yields an
// empty viper so that defaults and environment variables still apply.
func GetSubViper(v *viper.Viper, key string) *viper.Viper {
	sub := v.Sub(key)
	if sub == nil {
		sub = viper.New()
	}
	InitViper(sub, key)
	return sub
}

// InitViper makes v read environment variables. Sections do not inherit this from their
// parent, so it has to be applied to each of them with the section name.
func InitViper(v *viper.Viper, section string) {
	prefix := EnvPrefix
	if section != "" {
		prefix += "_" + strings.ToUpper(envKeyReplacer.Replace(section))
	}
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.SetEnvPrefix(prefix)
	v.SetTypeByDefaultValue(true)
	v.AutomaticEnv()
}
