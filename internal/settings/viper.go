package settings

import (
	"strings"

	"github.com/spf13/viper"
)

// ViperProvider reads settings from a viper instance under the "opay"
// prefix, so opay.token can come from a config file, a bound flag, or the
// OPAY_TOKEN environment variable.
type ViperProvider struct {
	v      *viper.Viper
	prefix string
}

// NewViperProvider wraps v. The env key replacer is configured so nested
// keys map to OPAY_<KEY> variables.
func NewViperProvider(v *viper.Viper) *ViperProvider {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &ViperProvider{v: v, prefix: "opay"}
}

// Get returns opay.<key>.
func (p *ViperProvider) Get(key string) string {
	return p.v.GetString(p.prefix + "." + key)
}
