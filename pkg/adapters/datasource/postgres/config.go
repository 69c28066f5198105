package postgres

import (
	"net"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/pg-discover/pkg/adapters/datasource"
)

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// IMPORTANT: All user-provided fields must be URL-escaped to handle special characters
// in passwords (e.g., @, /, #, ?) that would otherwise break URL parsing.
// resolveHost rewrites the host before it is embedded (Docker localhost handling).
func buildConnectionString(p datasource.ConnectionParams, resolveHost func(string) string) string {
	p = p.WithDefaults()

	host := p.Host
	if resolveHost != nil {
		host = resolveHost(host)
	}

	query := url.Values{}
	query.Set("sslmode", p.SSLMode)
	if p.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(p.ConnectTimeout))
	}
	query.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// ApplicationName is reported to the server in pg_stat_activity.
const ApplicationName = "pg-discover"
