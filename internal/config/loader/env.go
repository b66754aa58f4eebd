package loader

import (
	"os"
	"strings"
)

// DefaultEnvPrefix is the prefix of environment overrides.
const DefaultEnvPrefix = "WINDBUS_"

// EnvLoader loads overrides from environment variables. Values stay
// strings; typed accessors convert them.
type EnvLoader struct {
	prefix  string
	environ func() []string
}

// NewEnvLoader creates an environment loader. The prefix includes the
// trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{prefix: prefix, environ: os.Environ}
}

// NewEnvLoaderFrom reads from a fixed environment instead of the process's.
func NewEnvLoaderFrom(prefix string, environ []string) *EnvLoader {
	return &EnvLoader{prefix: prefix, environ: func() []string { return environ }}
}

// Load maps PREFIX_SECTION_KEY_NAME=value to section.key_name. Variables
// without a key part are ignored. Empty values are kept.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		section, key, ok := l.envToPath(name)
		if !ok {
			continue
		}

		sub, _ := config[section].(map[string]any)
		if sub == nil {
			sub = make(map[string]any)
			config[section] = sub
		}
		sub[key] = value
	}

	return config, nil
}

// envToPath converts WINDBUS_LOOP_CLOSE_POLICY to ("loop", "close_policy").
func (l *EnvLoader) envToPath(env string) (section, key string, ok bool) {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok = strings.Cut(name, "_")
	if !ok || section == "" || key == "" {
		return "", "", false
	}
	return section, key, true
}
