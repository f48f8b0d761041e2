// Package config defines the configuration model for waterlog and the
// providers that load it.
package config

// ConfigProvider defines the interface for loading configuration
type ConfigProvider interface {
	LoadConfig() (*ConfigData, error)
}

// ConfigData represents the complete service configuration
type ConfigData struct {
	HTTP    HTTPData    `yaml:"http"`
	Ingest  IngestData  `yaml:"ingest,omitempty"`
	Storage StorageData `yaml:"storage"`
	Auth    AuthData    `yaml:"auth"`
}

// HTTPData configures the REST server
type HTTPData struct {
	ListenAddr string `yaml:"listen_addr"`
}

// IngestData configures the optional TCP push listener. An empty listen
// address disables it.
type IngestData struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// StorageData selects and configures the reading store backend
type StorageData struct {
	Backend  string       `yaml:"backend"` // "sqlite" (default) or "postgres"
	SQLite   SQLiteData   `yaml:"sqlite,omitempty"`
	Postgres PostgresData `yaml:"postgres,omitempty"`
}

// SQLiteData configures the SQLite backend
type SQLiteData struct {
	Path string `yaml:"path"`
}

// PostgresData configures the Postgres backend
type PostgresData struct {
	ConnectionString string `yaml:"connection_string"`
}

// AuthData configures API authentication
type AuthData struct {
	AdminPassword string `yaml:"admin_password"`
}
