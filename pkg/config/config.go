// Package config loads fintrack settings from an optional JSON file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ArionMiles/fintrack/pkg/api"
	"github.com/ArionMiles/fintrack/pkg/client"
	"github.com/ArionMiles/fintrack/pkg/schema"
)

// Store backend names accepted by FINTRACK_STORE.
const (
	StoreCSV      = "csv"
	StoreJSON     = "json"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreSheets   = "sheets"
)

// Defaults applied by Load.
const (
	DefaultStore      = StoreCSV
	DefaultCSVFile    = "data/expenses.csv"
	DefaultJSONFile   = "data/expenses.json"
	DefaultSQLitePath = "data/fintrack.db"
	DefaultListen     = ":8080"
)

// Config holds the application configuration. Every field maps to the
// environment variable named in its tag; a JSON config file uses the same keys.
type Config struct {
	// Store selects the backend: csv, json, sqlite, postgres or sheets.
	// Environment variable: FINTRACK_STORE
	Store string `koanf:"FINTRACK_STORE"`

	// File is the ledger path for the csv and json backends.
	// Environment variable: FINTRACK_FILE
	File string `koanf:"FINTRACK_FILE"`

	// Schema is the header variant (A or B) written to new ledgers.
	// Environment variable: FINTRACK_SCHEMA
	Schema string `koanf:"FINTRACK_SCHEMA"`

	// Currency fills records without one.
	// Environment variable: FINTRACK_CURRENCY
	Currency string `koanf:"FINTRACK_CURRENCY"`

	// RulesFile replaces the embedded classification rules when set.
	// Environment variable: FINTRACK_RULES_FILE
	RulesFile string `koanf:"FINTRACK_RULES_FILE"`

	// Listen is the HTTP API address.
	// Environment variable: FINTRACK_LISTEN
	Listen string `koanf:"FINTRACK_LISTEN"`

	// SQLitePath is the database file for the sqlite backend.
	// Environment variable: SQLITE_PATH
	SQLitePath string `koanf:"SQLITE_PATH"`

	PostgresHost     string `koanf:"POSTGRES_HOST"`
	PostgresPort     int    `koanf:"POSTGRES_PORT"`
	PostgresDatabase string `koanf:"POSTGRES_DB"`
	PostgresUser     string `koanf:"POSTGRES_USER"`
	PostgresPassword string `koanf:"POSTGRES_PASSWORD"`
	PostgresSSLMode  string `koanf:"POSTGRES_SSLMODE"`

	// GSheetsID is the ID of an existing Google Sheet to use.
	// Environment variable: GSHEETS_ID
	GSheetsID string `koanf:"GSHEETS_ID"`

	// GSheetsTitle is the title for a new Google Sheet (used when creating).
	// Environment variable: GSHEETS_TITLE
	GSheetsTitle string `koanf:"GSHEETS_TITLE"`

	// GSheetsName is the name of the sheet/tab within the spreadsheet.
	// Environment variable: GSHEETS_NAME
	GSheetsName string `koanf:"GSHEETS_NAME"`

	ClientSecretFile string `koanf:"GOOGLE_CLIENT_SECRET_FILE"`
	TokenFile        string `koanf:"GOOGLE_TOKEN_FILE"`
}

// Load reads path (when non-empty) and then the environment, which wins.
// Defaults are applied but the result is not validated.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), kjson.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Empty variables are treated as unset so they do not mask file values.
	skipEmpty := func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return key, value
	}
	if err := k.Load(env.ProviderWithValue("", ".", skipEmpty), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) setDefaults() {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store == "" {
		c.Store = DefaultStore
	}
	if c.File == "" {
		c.File = DefaultCSVFile
		if c.Store == StoreJSON {
			c.File = DefaultJSONFile
		}
	}
	if c.Schema == "" {
		c.Schema = string(schema.VariantA)
	}
	if c.Currency == "" {
		c.Currency = api.DefaultCurrency
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.SQLitePath == "" {
		c.SQLitePath = DefaultSQLitePath
	}
	if c.ClientSecretFile == "" {
		c.ClientSecretFile = client.DefaultSecretFile
	}
	if c.TokenFile == "" {
		c.TokenFile = client.DefaultTokenFile
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store {
	case StoreCSV, StoreJSON, StoreSQLite, StorePostgres, StoreSheets:
	default:
		errs = append(errs, fmt.Errorf("FINTRACK_STORE: unknown backend %q", c.Store))
	}

	if _, err := schema.ParseVariant(c.Schema); err != nil {
		errs = append(errs, fmt.Errorf("FINTRACK_SCHEMA: %w", err))
	}

	if c.Store == StorePostgres {
		if c.PostgresDatabase == "" {
			errs = append(errs, errors.New("POSTGRES_DB is required for the postgres store"))
		}
		if c.PostgresUser == "" {
			errs = append(errs, errors.New("POSTGRES_USER is required for the postgres store"))
		}
		if c.PostgresPort < 0 || c.PostgresPort > 65535 {
			errs = append(errs, fmt.Errorf("POSTGRES_PORT: %d out of range", c.PostgresPort))
		}
	}

	return errors.Join(errs...)
}

// ClientConfig returns the OAuth file locations for the Sheets backend.
func (c *Config) ClientConfig() client.Config {
	return client.Config{SecretFile: c.ClientSecretFile, TokenFile: c.TokenFile}
}

// Variant returns the configured schema variant, defaulting to A when invalid.
func (c *Config) Variant() schema.Variant {
	v, err := schema.ParseVariant(c.Schema)
	if err != nil {
		return schema.VariantA
	}
	return v
}
