package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"justanote/pkg/crypto"
	"justanote/pkg/errors"
)

// Storage drivers
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config holds application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Admin   AdminConfig   `yaml:"admin"`
	Wizard  WizardConfig  `yaml:"wizard"`
	Images  ImageConfig   `yaml:"images"`
	Songs   SongsConfig   `yaml:"songs"`
	Email   EmailConfig   `yaml:"email"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// BaseURL prefixes share links
	BaseURL       string `yaml:"baseUrl"`
	SecureCookies bool   `yaml:"secureCookies"`
}

type StorageConfig struct {
	Driver     string      `yaml:"driver"`
	NotesPath  string      `yaml:"notesPath"`
	SQLitePath string      `yaml:"sqlitePath"`
	MySQL      MySQLConfig `yaml:"mysql"`
	BackupDir  string      `yaml:"backupDir"`
	// SealPassphrase enables at-rest encryption of contact fields when set
	SealPassphrase string `yaml:"sealPassphrase"`
	SealSalt       string `yaml:"sealSalt"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type AdminConfig struct {
	Emails           []string `yaml:"emails"`
	PasswordHash     string   `yaml:"passwordHash"`
	PasswordHashPath string   `yaml:"passwordHashPath"`
}

type WizardConfig struct {
	MaxSessions int           `yaml:"maxSessions"`
	SessionTTL  time.Duration `yaml:"sessionTtl"`
}

type ImageConfig struct {
	MaxSide        int   `yaml:"maxSide"`
	Quality        int   `yaml:"quality"`
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
	MaxPixels      int64 `yaml:"maxPixels"`
}

type SongsConfig struct {
	SearchURL    string        `yaml:"searchUrl"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheSize    int           `yaml:"cacheSize"`
	CacheTTL     time.Duration `yaml:"cacheTtl"`
	PopularTerms []string      `yaml:"popularTerms"`
}

type EmailConfig struct {
	Endpoint          string `yaml:"endpoint"`
	ServiceID         string `yaml:"serviceId"`
	PublicKey         string `yaml:"publicKey"`
	TemplateDelivered string `yaml:"templateDelivered"`
	TemplateViewed    string `yaml:"templateViewed"`
}

// configDir returns ~/.config/justanote, or the working directory if the
// home directory is unknown
func configDir() string {
	currentUser, err := user.Current()
	if err != nil {
		return "."
	}
	return filepath.Join(currentUser.HomeDir, ".config", "justanote")
}

// GetConfigFilePath returns the path where the config file should be stored
func GetConfigFilePath() string {
	if p := os.Getenv("JUSTANOTE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(configDir(), "config.yaml")
}

// GetDefaultDataPath returns the default directory for note data
func GetDefaultDataPath() string {
	return filepath.Join(configDir(), "data")
}

// Default returns a configuration with every value set
func Default() *Config {
	dataPath := GetDefaultDataPath()
	return &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			BaseURL: "http://localhost:8080",
		},
		Storage: StorageConfig{
			Driver:     DriverFile,
			NotesPath:  filepath.Join(dataPath, "notes"),
			SQLitePath: filepath.Join(dataPath, "justanote.db"),
			BackupDir:  filepath.Join(dataPath, "backups"),
			MySQL: MySQLConfig{
				Host:     "127.0.0.1",
				Port:     "3306",
				Database: "justanote",
			},
			SealSalt: "justanote",
		},
		Admin: AdminConfig{
			PasswordHashPath: filepath.Join(configDir(), "password_hash"),
		},
		Wizard: WizardConfig{
			MaxSessions: 10000,
			SessionTTL:  2 * time.Hour,
		},
		Images: ImageConfig{
			MaxSide:        400,
			Quality:        20,
			MaxUploadBytes: 10 << 20,
			MaxPixels:      50_000_000,
		},
		Songs: SongsConfig{
			SearchURL:    "https://itunes.apple.com/search",
			Timeout:      8 * time.Second,
			CacheSize:    256,
			CacheTTL:     10 * time.Minute,
			PopularTerms: []string{"top hits 2024", "arijit singh", "ed sheeran"},
		},
		Email: EmailConfig{
			Endpoint: "https://api.emailjs.com/api/v1.0/email/send",
		},
	}
}

// LoadEnvFiles loads .env style files into the environment. Missing files
// are ignored; existing environment variables win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the config file at path (GetConfigFilePath when empty), applies
// environment overrides and validates the result. A missing file means defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigFilePath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeConfig, "CONFIG_PARSE_FAILED", "failed to parse config file").
				WithContext("path", path)
		}
	case !os.IsNotExist(err):
		return nil, errors.Wrap(err, errors.ErrTypeConfig, "CONFIG_READ_FAILED", "failed to read config file").
			WithContext("path", path)
	}

	cfg.applyEnv()

	if err := cfg.loadPasswordHashFile(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "JUSTANOTE_ADDR")
	setString(&c.Server.BaseURL, "JUSTANOTE_BASE_URL")
	if v, ok := os.LookupEnv("JUSTANOTE_SECURE_COOKIES"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Server.SecureCookies = b
		}
	}

	setString(&c.Storage.Driver, "JUSTANOTE_STORAGE_DRIVER")
	setString(&c.Storage.NotesPath, "JUSTANOTE_NOTES_PATH")
	setString(&c.Storage.SQLitePath, "JUSTANOTE_SQLITE_PATH")
	setString(&c.Storage.BackupDir, "JUSTANOTE_BACKUP_DIR")
	setString(&c.Storage.SealPassphrase, "JUSTANOTE_SEAL_PASSPHRASE")
	setString(&c.Storage.SealSalt, "JUSTANOTE_SEAL_SALT")

	setString(&c.Storage.MySQL.Host, "DB_HOST")
	setString(&c.Storage.MySQL.Port, "DB_PORT")
	setString(&c.Storage.MySQL.User, "DB_USERNAME")
	setString(&c.Storage.MySQL.Password, "DB_PASSWORD")
	setString(&c.Storage.MySQL.Database, "DB_DATABASE")

	if v, ok := os.LookupEnv("JUSTANOTE_ADMIN_EMAILS"); ok {
		c.Admin.Emails = nil
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				c.Admin.Emails = append(c.Admin.Emails, e)
			}
		}
	}
	setString(&c.Admin.PasswordHash, "JUSTANOTE_ADMIN_PASSWORD_HASH")
	setString(&c.Admin.PasswordHashPath, "JUSTANOTE_ADMIN_PASSWORD_HASH_PATH")

	setString(&c.Email.ServiceID, "JUSTANOTE_EMAILJS_SERVICE_ID")
	setString(&c.Email.PublicKey, "JUSTANOTE_EMAILJS_PUBLIC_KEY")
	setString(&c.Email.TemplateDelivered, "JUSTANOTE_EMAILJS_TEMPLATE_DELIVERED")
	setString(&c.Email.TemplateViewed, "JUSTANOTE_EMAILJS_TEMPLATE_VIEWED")
}

// loadPasswordHashFile fills Admin.PasswordHash from PasswordHashPath when
// no hash is configured inline
func (c *Config) loadPasswordHashFile() error {
	if c.Admin.PasswordHash != "" || c.Admin.PasswordHashPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.Admin.PasswordHashPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeConfig, "PASSWORD_HASH_READ_FAILED", "failed to read password hash file").
			WithContext("path", c.Admin.PasswordHashPath)
	}
	c.Admin.PasswordHash = strings.TrimSpace(string(data))
	return nil
}

func invalid(field, message string) error {
	return errors.ErrConfigInvalid.
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("invalid configuration: %s: %s", field, message))
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.NotesPath == "" {
			return invalid("storage.notesPath", "required for the file driver")
		}
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return invalid("storage.sqlitePath", "required for the sqlite driver")
		}
	case DriverMySQL:
		if c.Storage.MySQL.Host == "" || c.Storage.MySQL.Database == "" {
			return invalid("storage.mysql", "host and database are required for the mysql driver")
		}
	default:
		return invalid("storage.driver", fmt.Sprintf("unknown driver %q", c.Storage.Driver))
	}

	if c.Images.MaxSide <= 0 {
		return invalid("images.maxSide", "must be positive")
	}
	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		return invalid("images.quality", "must be between 1 and 100")
	}
	if c.Images.MaxUploadBytes <= 0 {
		return invalid("images.maxUploadBytes", "must be positive")
	}
	if c.Images.MaxPixels <= 0 {
		return invalid("images.maxPixels", "must be positive")
	}
	if c.Wizard.MaxSessions <= 0 || c.Wizard.SessionTTL <= 0 {
		return invalid("wizard", "maxSessions and sessionTtl must be positive")
	}
	if c.Admin.PasswordHash != "" {
		if _, err := crypto.ParsePasswordHash(c.Admin.PasswordHash); err != nil {
			return invalid("admin.passwordHash", "not a recognised password hash")
		}
	}
	return nil
}

// MySQLDSN returns the DSN for the configured MySQL database
func (c *Config) MySQLDSN() string {
	m := c.Storage.MySQL
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.User, m.Password, m.Host, m.Port, m.Database)
}

// Save writes the configuration to path (GetConfigFilePath when empty)
func (c *Config) Save(path string) error {
	if path == "" {
		path = GetConfigFilePath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// SavePasswordHash writes hash to the admin password hash file
func (c *Config) SavePasswordHash(hash string) error {
	path := c.Admin.PasswordHashPath
	if path == "" {
		return invalid("admin.passwordHashPath", "no password hash file configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(hash+"\n"), 0600)
}
