// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON config file,
// a .env file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"server_address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// JWTSecret signs and verifies access tokens.
	JWTSecret string `json:"jwt_secret"`

	// TokenTTL is how long an issued token stays valid.
	TokenTTL time.Duration `json:"-"`

	// UploadDir is where attachments and papers are written.
	UploadDir string `json:"upload_dir"`

	// PublicURL is the externally visible base URL used to build file links.
	// When empty, links are relative to the server root.
	PublicURL string `json:"public_url"`

	// MaxUploadMB caps the size of a single request body carrying files.
	MaxUploadMB int64 `json:"max_upload_mb"`

	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `json:"cors_origins"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// LogLevel is passed to the zap logger.
	LogLevel string `json:"log_level"`
}

// MaxUploadBytes returns MaxUploadMB in bytes.
func (o *Options) MaxUploadBytes() int64 {
	return o.MaxUploadMB << 20
}

// Validate reports settings the server cannot start without.
func (o *Options) Validate() error {
	var errs []error
	if o.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if o.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	if o.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("max upload size must be positive"))
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		errs = append(errs, errors.New("tls cert and key must be set together"))
	}
	return errors.Join(errs...)
}

// Parse loads .env (if present), then parses the command-line flags, the
// config file and environment variables, in that order of precedence.
// It returns a pointer to the Options struct containing the parsed
// configuration values.
func Parse() *Options {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("skipping .env: %v", err)
	}

	options, err := load(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("error while loading config: %v", err)
	}
	return options
}

func load(fs *flag.FlagSet, args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}
	var cors string

	fs.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&options.JWTSecret, "jwt-secret", "", "secret used to sign tokens")
	fs.DurationVar(&options.TokenTTL, "token-ttl", 7*24*time.Hour, "token lifetime")
	fs.StringVar(&options.UploadDir, "uploads", "uploads", "directory for uploaded files")
	fs.StringVar(&options.PublicURL, "public-url", "", "public base URL for file links")
	fs.Int64Var(&options.MaxUploadMB, "max-upload-mb", 20, "max upload size in MB")
	fs.StringVar(&cors, "cors", "", "comma separated allowed origins")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", "", "TLS key file")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")

	if !fs.Parsed() {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}
	options.CORSOrigins = splitList(cors)

	// Override flags with environment variables if set
	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			if err := loadFile(options.Config, options); err != nil {
				return nil, err
			}
		}
	}

	if err := applyEnv(options, getenv); err != nil {
		return nil, err
	}

	options.PublicURL = strings.TrimRight(options.PublicURL, "/")
	return options, nil
}

func loadFile(path string, options *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	file := struct {
		*Options
		TokenTTL string `json:"token_ttl"`
	}{Options: options}
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	if file.TokenTTL != "" {
		ttl, err := time.ParseDuration(file.TokenTTL)
		if err != nil {
			return fmt.Errorf("token_ttl: %w", err)
		}
		options.TokenTTL = ttl
	}
	return nil
}

func applyEnv(options *Options, getenv func(string) string) error {
	strs := map[string]*string{
		"SERVER_ADDRESS": &options.Addr,
		"DATABASE_DSN":   &options.DatabaseDSN,
		"JWT_SECRET":     &options.JWTSecret,
		"UPLOAD_DIR":     &options.UploadDir,
		"PUBLIC_URL":     &options.PublicURL,
		"TLS_CERT":       &options.TLSCert,
		"TLS_KEY":        &options.TLSKey,
		"LOG_LEVEL":      &options.LogLevel,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		options.TokenTTL = ttl
	}
	if v := getenv("MAX_UPLOAD_MB"); v != "" {
		mb, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		options.MaxUploadMB = mb
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		options.CORSOrigins = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
