// Package config loads the session's configuration, grounded on the
// viper-based precedence chain in marmos91/dittofs's pkg/config: CLI flags
// override environment variables override a config file override
// defaults. spec.md §6 names the exact key set a FIX session consumes;
// this package is the "configuration provider" collaborator spec.md §1
// treats as external to the core, exposing exactly those keys as a typed
// struct instead of the string-keyed lookup spec.md describes, since a
// concrete client needs a concrete struct somewhere — viper is that
// boundary.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the typed view over spec.md §6's "Configuration keys
// consumed". BackupHosts is a domain-stack addition (not named by
// spec.md) feeding discovery.StaticDirectory/EtcdDirectory with gateway
// failover candidates beyond SocketHost/SocketPort.
type Config struct {
	BeginString    string `mapstructure:"begin_string"`
	SenderCompID   string `mapstructure:"sender_comp_id"`
	TargetCompID   string `mapstructure:"target_comp_id"`
	SenderPassword string `mapstructure:"sender_password"`

	SocketHost string `mapstructure:"socket_host"`
	SocketPort int    `mapstructure:"socket_port"`

	// BackupHosts lists additional host:port gateway endpoints consulted
	// by the reconnect policy's discovery.Directory after SocketHost
	// fails (domain-stack addition, see SPEC_FULL.md).
	BackupHosts []string `mapstructure:"backup_hosts"`

	HeartBeatInterval    time.Duration `mapstructure:"heart_beat_interval"`
	ResetSeqNum          bool          `mapstructure:"reset_seq_num"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
	ReconnectInterval    time.Duration `mapstructure:"reconnect_interval"`
	MaxMissedHeartBeats  int           `mapstructure:"max_missed_heart_beats"`

	FileLogPath string `mapstructure:"file_log_path"`

	// LogonTimeout and LogoutTimeout are domain-stack additions for the
	// two bounded waits spec.md §5 names ("Logon: configurable (default
	// 10 s)"; "Logout: bounded wait (default 2x HeartBtInt)") without
	// assigning either a configuration key of its own.
	LogonTimeout  time.Duration `mapstructure:"logon_timeout"`
	LogoutTimeout time.Duration `mapstructure:"logout_timeout"`

	// ListenerTimeout bounds how long Engine waits for Listener.OnMessage
	// to return on one inbound application message (spec.md §4.4/§5), a
	// distinct concern from LogonTimeout's handshake bound — tuning one
	// must not change the other.
	ListenerTimeout time.Duration `mapstructure:"listener_timeout"`

	// CheckpointBackend selects session.Store: "file" (default) or
	// "etcd" (session.EtcdCheckpointStore).
	CheckpointBackend string   `mapstructure:"checkpoint_backend"`
	EtcdEndpoints     []string `mapstructure:"etcd_endpoints"`

	// MetricsAddr, when non-empty, is the listen address for the
	// Prometheus /metrics endpoint (domain-stack addition).
	MetricsAddr string `mapstructure:"metrics_addr"`

	// RateLimitPerSecond/RateLimitBurst configure the outbound
	// application-send throttle (middleware.RateLimitMiddleware).
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("begin_string", "FIX.4.4")
	v.SetDefault("socket_port", 0)
	v.SetDefault("heart_beat_interval", 30*time.Second)
	v.SetDefault("reset_seq_num", false)
	v.SetDefault("max_reconnect_attempts", 5)
	v.SetDefault("reconnect_interval", 5*time.Second)
	v.SetDefault("max_missed_heart_beats", 2)
	v.SetDefault("file_log_path", ".")
	v.SetDefault("logon_timeout", 10*time.Second)
	v.SetDefault("logout_timeout", 60*time.Second)
	v.SetDefault("listener_timeout", 10*time.Second)
	v.SetDefault("checkpoint_backend", "file")
	v.SetDefault("rate_limit_per_second", 50.0)
	v.SetDefault("rate_limit_burst", 10)
}

// Load resolves configuration in the order CLI flags (flags, may be nil) >
// environment variables (prefixed FIXCLIENT_) > configFile (may be empty)
// > defaults.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FIXCLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.SenderCompID == "" {
		return nil, fmt.Errorf("config: sender_comp_id is required")
	}
	if cfg.TargetCompID == "" {
		return nil, fmt.Errorf("config: target_comp_id is required")
	}
	if cfg.SocketHost == "" {
		return nil, fmt.Errorf("config: socket_host is required")
	}
	return &cfg, nil
}
