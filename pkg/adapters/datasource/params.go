package datasource

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const (
	DefaultPort                  = 5432
	DefaultDatabase              = "postgres"
	DefaultConnectTimeoutSeconds = 10
	DefaultSSLMode               = "prefer"
)

// ConnectionParams identifies a database target and the credentials to reach it.
// Callers validate these before handing them to a Connector.
type ConnectionParams struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Database       string `json:"database"`
	User           string `json:"user"`
	Password       string `json:"password"`
	ConnectTimeout int    `json:"connect_timeout"` // seconds
	SSLMode        string `json:"ssl_mode"`
}

// WithDefaults fills zero-valued fields with the package defaults.
func (p ConnectionParams) WithDefaults() ConnectionParams {
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.Database == "" {
		p.Database = DefaultDatabase
	}
	if p.ConnectTimeout == 0 {
		p.ConnectTimeout = DefaultConnectTimeoutSeconds
	}
	if p.SSLMode == "" {
		p.SSLMode = DefaultSSLMode
	}
	return p
}

// WithDatabase returns a copy targeting a different database on the same server.
func (p ConnectionParams) WithDatabase(database string) ConnectionParams {
	if database != "" {
		p.Database = database
	}
	return p
}

// Timeout returns ConnectTimeout as a duration.
func (p ConnectionParams) Timeout() time.Duration {
	return time.Duration(p.ConnectTimeout) * time.Second
}

// Fingerprint returns a SHA-256 digest of the full target including credentials.
// It is used in cache keys so credentials are never kept in memory as plain text.
func (p ConnectionParams) Fingerprint() string {
	h := sha256.New()
	for _, part := range []string{p.Host, strconv.Itoa(p.Port), p.Database, p.User, p.Password, p.SSLMode} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// String renders the target without the password, for logs.
func (p ConnectionParams) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", p.User, p.Host, p.Port, p.Database)
}
