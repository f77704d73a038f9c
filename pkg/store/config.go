package store

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	BackendDevice = "device"
	BackendRemote = "remote"
	BackendMemory = "memory"
)

// Config describes where milestones live and how the process logs.
type Config interface {
	BasePath() string
	Backend() string
	RemoteURL() string
	RemoteToken() string
	RedisURL() string
	RedisTTL() time.Duration
	LogLevel() string
	ListenAddr() string
}

// LoadConfig reads a .pomo yaml file from POMO_CONFIG_PATH or the working
// directory, with POMO_* environment variables taking precedence.
func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetDefault("path", "~/.pomo.db")
	v.SetDefault("backend", BackendDevice)
	v.SetDefault("redis.ttl", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("listen", ":8080")
	v.SetConfigName(".pomo") // .yaml is implicit
	v.SetEnvPrefix("POMO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv("POMO_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	path, err := homedir.Expand(v.GetString("path"))
	if err != nil {
		return nil, fmt.Errorf("expand path: %w", err)
	}
	ttl, err := time.ParseDuration(v.GetString("redis.ttl"))
	if err != nil || ttl < 0 {
		return nil, fmt.Errorf("invalid redis.ttl %q", v.GetString("redis.ttl"))
	}

	cfg := &fileConfig{
		Path:   path,
		Kind:   strings.ToLower(v.GetString("backend")),
		Remote: v.GetString("remote.url"),
		Token:  v.GetString("remote.token"),
		Redis:  v.GetString("redis.url"),
		TTL:    ttl,
		Level:  v.GetString("log.level"),
		Listen: v.GetString("listen"),
	}
	switch cfg.Kind {
	case BackendDevice, BackendMemory:
	case BackendRemote:
		if cfg.Remote == "" {
			return nil, fmt.Errorf("backend %q needs remote.url", BackendRemote)
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Kind)
	}
	return cfg, nil
}

type fileConfig struct {
	Path   string        `json:"path"`
	Kind   string        `json:"backend"`
	Remote string        `json:"remoteUrl,omitempty"`
	Token  string        `json:"-"`
	Redis  string        `json:"redisUrl,omitempty"`
	TTL    time.Duration `json:"redisTtl,omitempty"`
	Level  string        `json:"logLevel"`
	Listen string        `json:"listen"`
}

func (f *fileConfig) BasePath() string        { return f.Path }
func (f *fileConfig) Backend() string         { return f.Kind }
func (f *fileConfig) RemoteURL() string       { return f.Remote }
func (f *fileConfig) RemoteToken() string     { return f.Token }
func (f *fileConfig) RedisURL() string        { return f.Redis }
func (f *fileConfig) RedisTTL() time.Duration { return f.TTL }
func (f *fileConfig) LogLevel() string        { return f.Level }
func (f *fileConfig) ListenAddr() string      { return f.Listen }
