package sqlite

const (
	busyTimeoutMS    = 5000
	foreignKeysParam = "_pragma=foreign_keys(1)"
)

type Config struct {
	Path string `mapstructure:"path"`
}

func (c *Config) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"path": c.Path,
	}
}
