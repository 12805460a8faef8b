package httpshare

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration surface for building a Share:
//
//	share:
//	  cookies: true
//	  dns: true
//	  tls_sessions: true
//	  connections: false
//	dns_ttl: 60s
//	max_idle_per_dest: 6
type Config struct {
	Share struct {
		Cookies     bool `yaml:"cookies"`
		DNS         bool `yaml:"dns"`
		TLSSessions bool `yaml:"tls_sessions"`
		Connections bool `yaml:"connections"`
	} `yaml:"share"`

	DNSTTL         Duration `yaml:"dns_ttl"`
	MaxIdlePerDest int      `yaml:"max_idle_per_dest"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "90s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// ParseConfig decodes a YAML configuration document.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads and decodes a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// NewShare builds a Share from the configuration. Enabling a kind the
// engine build does not support surfaces the usual KindNotBuiltIn error.
func (c *Config) NewShare(opts ...ShareOption) (*Share, error) {
	all := opts
	if c.DNSTTL > 0 {
		all = append(all, WithDNSTTL(time.Duration(c.DNSTTL)))
	}
	if c.MaxIdlePerDest > 0 {
		all = append(all, WithMaxIdlePerDest(c.MaxIdlePerDest))
	}

	sh := New(all...)
	wanted := map[StoreKind]bool{
		ShareCookies:     c.Share.Cookies,
		ShareDNS:         c.Share.DNS,
		ShareTLSSessions: c.Share.TLSSessions,
		ShareConnections: c.Share.Connections,
	}
	for _, kind := range StoreKinds() {
		if !wanted[kind] {
			continue
		}
		if err := sh.SetOption(kind, true); err != nil {
			sh.Destroy()
			return nil, err
		}
	}
	return sh, nil
}
