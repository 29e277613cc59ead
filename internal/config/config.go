package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string `mapstructure:"mode"`
	Listen       string `mapstructure:"listen"`
	StatusListen string `mapstructure:"status_listen"`

	Log       LogConfig       `mapstructure:"log"`
	TLS       TLSConfig       `mapstructure:"tls"`
	Crypto    CryptoConfig    `mapstructure:"crypto"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Transport TransportConfig `mapstructure:"transport"`
	Files     FilesConfig     `mapstructure:"files"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Rooms     RoomsConfig     `mapstructure:"rooms"`
	Client    ClientConfig    `mapstructure:"client"`

	v      *viper.Viper
	loaded bool
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type TLSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	SelfSigned bool   `mapstructure:"self_signed"`
}

type CryptoConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Passphrase string `mapstructure:"passphrase"`
}

type AuthConfig struct {
	RequirePassword bool              `mapstructure:"require_password"`
	DBPath          string            `mapstructure:"db_path"`
	Users           map[string]string `mapstructure:"users"`
}

type TransportConfig struct {
	SendQueue    int           `mapstructure:"send_queue"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxFrame     int           `mapstructure:"max_frame"`
}

type FilesConfig struct {
	Root           string        `mapstructure:"root"`
	ChunkSize      int           `mapstructure:"chunk_size"`
	EnqueueTimeout time.Duration `mapstructure:"enqueue_timeout"`
}

type AudioConfig struct {
	MaxDrops int `mapstructure:"max_drops"`
}

type RoomsConfig struct {
	JoinLimit    int           `mapstructure:"join_limit"`
	JoinInterval time.Duration `mapstructure:"join_interval"`
}

type ClientConfig struct {
	Server             string `mapstructure:"server"`
	DownloadDir        string `mapstructure:"download_dir"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

const maxFrame = 1 << 20

// NewFlagSet declares the command line options bound into the config.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "config file (default config/config.$CONFIG_ENV.yaml)")
	fs.String("listen", "", "relay listen address")
	fs.String("status-listen", "", "status HTTP listen address, empty disables it")
	fs.String("server", "", "relay address to dial (client)")
	return fs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("listen", ":5555")
	v.SetDefault("status_listen", ":8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("tls.enabled", true)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.self_signed", false)

	v.SetDefault("crypto.enabled", true)
	v.SetDefault("crypto.passphrase", "")

	v.SetDefault("auth.require_password", true)
	v.SetDefault("auth.db_path", "")
	v.SetDefault("auth.users", map[string]string{})

	v.SetDefault("transport.send_queue", 64)
	v.SetDefault("transport.write_timeout", "5s")
	v.SetDefault("transport.max_frame", maxFrame)

	v.SetDefault("files.root", "./files")
	v.SetDefault("files.chunk_size", 1024)
	v.SetDefault("files.enqueue_timeout", "5s")

	v.SetDefault("audio.max_drops", 50)

	v.SetDefault("rooms.join_limit", 10)
	v.SetDefault("rooms.join_interval", "10s")

	v.SetDefault("client.server", "localhost:5555")
	v.SetDefault("client.download_dir", ".")
	v.SetDefault("client.insecure_skip_verify", false)
}

// Load reads defaults, the config file, RELAY_* environment variables and
// flags, in increasing order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileName := ""
	if flags != nil {
		fileName, _ = flags.GetString("config")
		for key, flag := range map[string]string{
			"listen":        "listen",
			"status_listen": "status-listen",
			"client.server": "server",
		} {
			if f := flags.Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	loaded := true
	if err := v.ReadInConfig(); err != nil {
		loaded = false
		log.Warn().Str("module", "config").Str("file", fileName).Err(err).Msg("config file not loaded, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", v.ConfigFileUsed()).Msg("loaded config")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.loaded = loaded
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Str("listen", cfg.Listen).Str("status", cfg.StatusListen).Msg("config ready")
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// Validate reports every setting that would stop the server from running.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Crypto.Enabled && c.Crypto.Passphrase == "" {
		errs = append(errs, errors.New("crypto.passphrase is required when crypto.enabled (set RELAY_CRYPTO_PASSPHRASE)"))
	}
	if c.TLS.Enabled && !c.TLS.SelfSigned && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("tls.cert_file and tls.key_file are required unless tls.self_signed"))
	}
	if c.Auth.DBPath == "" && len(c.Auth.Users) == 0 {
		errs = append(errs, errors.New("no account source: set auth.db_path or auth.users"))
	}
	if c.Transport.SendQueue <= 0 {
		errs = append(errs, errors.New("transport.send_queue must be positive"))
	}
	if c.Transport.WriteTimeout <= 0 {
		errs = append(errs, errors.New("transport.write_timeout must be positive"))
	}
	if c.Transport.MaxFrame <= 0 || c.Transport.MaxFrame > maxFrame {
		errs = append(errs, fmt.Errorf("transport.max_frame must be in (0, %d]", maxFrame))
	}
	if c.Files.ChunkSize <= 0 {
		errs = append(errs, errors.New("files.chunk_size must be positive"))
	}
	if c.Files.EnqueueTimeout <= 0 {
		errs = append(errs, errors.New("files.enqueue_timeout must be positive"))
	}
	if c.Audio.MaxDrops < 0 {
		errs = append(errs, errors.New("audio.max_drops must not be negative"))
	}
	return errors.Join(errs...)
}

// LogLevel returns the parsed log level, info when it does not parse.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Watch calls onChange with a freshly decoded config whenever the config
// file changes on disk. Only settings that can change at runtime should be
// read from it.
func (c *Config) Watch(onChange func(*Config)) {
	if c.v == nil || !c.loaded {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		next, err := decode(c.v)
		if err != nil {
			log.Error().Err(err).Str("module", "config").Str("file", e.Name).Msg("reload failed")
			return
		}
		log.Info().Str("module", "config").Str("file", e.Name).Str("op", e.Op.String()).Msg("config changed")
		onChange(next)
	})
	c.v.WatchConfig()
}
