// Package config loads the service configuration from IDENTITY_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"hosi.com/identity/internal/auth"
)

// Config is the process configuration. Durations are whole seconds.
type Config struct {
	HTTPAddr string `env:"IDENTITY_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"IDENTITY_GRPC_ADDR" envDefault:":9090"`

	DBDriver    string `env:"IDENTITY_DB_DRIVER"    envDefault:"pgx"`
	DBDSN       string `env:"IDENTITY_DB_DSN"`
	AutoMigrate bool   `env:"IDENTITY_AUTO_MIGRATE" envDefault:"true"`

	SignerKey                  string `env:"IDENTITY_SIGNER_KEY,unset"`
	SignerAlg                  string `env:"IDENTITY_SIGNER_ALG"           envDefault:"HS512"`
	Issuer                     string `env:"IDENTITY_ISSUER"               envDefault:"hosi.com"`
	ValidDurationSeconds       int64  `env:"IDENTITY_VALID_DURATION"       envDefault:"3600"`
	RefreshableDurationSeconds int64  `env:"IDENTITY_REFRESHABLE_DURATION" envDefault:"7200"`
	SweepIntervalSeconds       int64  `env:"IDENTITY_SWEEP_INTERVAL"       envDefault:"600"`

	AdminPassword string `env:"IDENTITY_ADMIN_PASSWORD,unset" envDefault:"admin"`

	LoginRate  int `env:"IDENTITY_LOGIN_RATE"  envDefault:"5"`
	LoginBurst int `env:"IDENTITY_LOGIN_BURST" envDefault:"10"`

	// Addresses or CIDR ranges of reverse proxies allowed to set X-Forwarded-For.
	TrustedProxies []string `env:"IDENTITY_TRUSTED_PROXIES" envSeparator:","`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SignerKey) == "" {
		errs = append(errs, errors.New("IDENTITY_SIGNER_KEY is required"))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("IDENTITY_DB_DSN is required"))
	}
	if c.ValidDurationSeconds <= 0 {
		errs = append(errs, errors.New("IDENTITY_VALID_DURATION must be positive"))
	}
	if c.RefreshableDurationSeconds <= 0 {
		errs = append(errs, errors.New("IDENTITY_REFRESHABLE_DURATION must be positive"))
	}
	if c.SweepIntervalSeconds <= 0 {
		errs = append(errs, errors.New("IDENTITY_SWEEP_INTERVAL must be positive"))
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		errs = append(errs, errors.New("IDENTITY_LOGIN_RATE and IDENTITY_LOGIN_BURST must be positive"))
	}
	if _, err := c.Proxies(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", auth.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// Auth converts the signer settings for auth.NewService.
func (c Config) Auth() auth.Config {
	return auth.Config{
		Key:                 []byte(c.SignerKey),
		Algorithm:           c.SignerAlg,
		Issuer:              c.Issuer,
		ValidDuration:       seconds(c.ValidDurationSeconds),
		RefreshableDuration: seconds(c.RefreshableDurationSeconds),
	}
}

// Proxies parses TrustedProxies. A bare address is a single-host prefix.
func (c Config) Proxies() ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, entry := range c.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("IDENTITY_TRUSTED_PROXIES: %w", err)
			}
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("IDENTITY_TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func (c Config) SweepInterval() time.Duration { return seconds(c.SweepIntervalSeconds) }

func seconds(n int64) time.Duration { return time.Duration(n) * time.Second }
