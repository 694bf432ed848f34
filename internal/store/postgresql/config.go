package postgresql

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/loykin/proxyboot/internal/constants"
	"github.com/loykin/proxyboot/internal/util"
)

type Config struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// BuildDSN prefers DSN and otherwise builds a URL from the components when a
// host is set.
func (p *Config) BuildDSN() string {
	if dsn, ok := util.TrimEmptyCheck(p.DSN); ok {
		return dsn
	}
	host, ok := util.TrimEmptyCheck(p.Host)
	if !ok {
		return ""
	}
	port := p.Port
	if port == 0 {
		port = constants.DefaultPostgresPort
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + strings.TrimSpace(p.DBName),
		RawQuery: "sslmode=" + util.TrimWithDefault(p.SSLMode, constants.DefaultPostgresSSLMode),
	}
	if user, ok := util.TrimEmptyCheck(p.User); ok {
		u.User = url.UserPassword(user, p.Password)
	}
	return u.String()
}

func (p *Config) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"dsn": p.BuildDSN(),
	}
}
