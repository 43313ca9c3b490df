package config

import (
	"cfupdater/common"

	"go.uber.org/zap/zapcore"
)

const (
	DefaultAPITokenRef = "op://Services/CF DNS API/credential"
	DefaultZoneIDRef   = "op://Services/CF DNS API/zone_id"
	DefaultRecordRef   = "op://Services/CF DNS API/hostname"

	DefaultMetaURL = "https://speed.cloudflare.com/meta"
)

type Config struct {
	Service   Service   `toml:"service" json:"service" yaml:"service"`
	Log       Log       `toml:"log" json:"log" yaml:"log"`
	Secrets   Secrets   `toml:"secrets" json:"secrets" yaml:"secrets"`
	Provider  Provider  `toml:"provider" json:"provider" yaml:"provider"`
	Discovery Discovery `toml:"discovery" json:"discovery" yaml:"discovery"`
}

type Service struct {
	Name string      `toml:"name" json:"name" yaml:"name"`
	Mode common.Mode `toml:"mode" json:"mode" yaml:"mode"`
	Runs int         `toml:"runs" json:"runs" yaml:"runs"`
}

type Log struct {
	Level     *zapcore.Level `toml:"level" json:"level" yaml:"level"`
	Encoding  *string        `toml:"encoding" json:"encoding" yaml:"encoding"`
	InfoPath  *[]string      `toml:"info_path" json:"info_path" yaml:"info_path"`
	ErrorPath *[]string      `toml:"error_path" json:"error_path" yaml:"error_path"`
}

// Secrets names the credential references handed to the secret resolver.
// The values behind them never appear in config.
type Secrets struct {
	APITokenRef string `toml:"api_token_ref" json:"api_token_ref" yaml:"api_token_ref"`
	ZoneIDRef   string `toml:"zone_id_ref" json:"zone_id_ref" yaml:"zone_id_ref"`
	RecordRef   string `toml:"record_ref" json:"record_ref" yaml:"record_ref"`
}

type Provider struct {
	// APIURL overrides the Cloudflare API base URL. Empty means production.
	APIURL string `toml:"api_url" json:"api_url" yaml:"api_url"`
	// TTL for written records. 0 or 1 selects provider-auto.
	TTL int `toml:"ttl" json:"ttl" yaml:"ttl"`
}

type Discovery struct {
	Type   string         `toml:"type" json:"type" yaml:"type"`
	Source string         `toml:"source" json:"source" yaml:"source"`
	Config map[string]any `toml:"config,omitempty" json:"config,omitempty" yaml:"config,omitempty"`
}

type DiscoveryMetaConfig struct {
	Timeout common.Duration `mapstructure:"timeout"`
	Force4  bool            `mapstructure:"force4"`
}

type DiscoveryTraceConfig struct {
	Timeout common.Duration `mapstructure:"timeout"`
	Force4  bool            `mapstructure:"force4"`
}

// Default is the configuration used when no config file is given: run
// once, discover via the Cloudflare speed-test metadata endpoint, resolve
// credentials from the stock vault references.
func Default() Config {
	return Config{
		Service: Service{
			Name: "cfupdater",
			Runs: 1,
		},
		Secrets: Secrets{
			APITokenRef: DefaultAPITokenRef,
			ZoneIDRef:   DefaultZoneIDRef,
			RecordRef:   DefaultRecordRef,
		},
		Provider: Provider{
			TTL: 1,
		},
		Discovery: Discovery{
			Type:   "meta",
			Source: DefaultMetaURL,
		},
	}
}
