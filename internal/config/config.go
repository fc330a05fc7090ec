// Package config loads server settings from an optional HCL file and the
// environment. Environment variables win over the file.
//
// A file looks like:
//
//	env         = "production"
//	listen_addr = ":8080"
//	store       = "postgres"
//
//	database {
//	  url = "postgres://dengue@localhost/denguewatch"
//	}
//
//	assets {
//	  boundaries = "/srv/denguewatch/regions.geojson"
//	  snapshot   = "/srv/denguewatch/dataset.csv"
//	}
//
//	dashboard {
//	  page_size     = 5
//	  import_policy = "require-all"
//	  write_rate    = 20
//	  write_burst   = 40
//	}
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/denguewatch/denguewatch/internal/ingest"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds the resolved server settings.
type Config struct {
	Env            string
	ListenAddr     string
	DatabaseURL    string
	Store          string
	BoundariesPath string
	SnapshotPath   string
	PageSize       int
	ImportPolicy   ingest.Policy
	LogMode        string
	Migrate        bool
	// WriteRate is the sustained number of mutating requests per second
	// allowed per client IP; WriteBurst is the bucket size. Zero disables it.
	WriteRate  float64
	WriteBurst int
}

// hclFile is the on-disk layout.
type hclFile struct {
	Env        string        `hcl:"env,optional"`
	ListenAddr string        `hcl:"listen_addr,optional"`
	Store      string        `hcl:"store,optional"`
	LogMode    string        `hcl:"log_mode,optional"`
	Migrate    *bool         `hcl:"migrate,optional"`
	Database   *hclDatabase  `hcl:"database,block"`
	Assets     *hclAssets    `hcl:"assets,block"`
	Dashboard  *hclDashboard `hcl:"dashboard,block"`
}

type hclDatabase struct {
	URL string `hcl:"url"`
}

type hclAssets struct {
	Boundaries string `hcl:"boundaries,optional"`
	Snapshot   string `hcl:"snapshot,optional"`
}

type hclDashboard struct {
	PageSize     int      `hcl:"page_size,optional"`
	ImportPolicy string   `hcl:"import_policy,optional"`
	WriteRate    *float64 `hcl:"write_rate,optional"`
	WriteBurst   int      `hcl:"write_burst,optional"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		Env:          "development",
		ListenAddr:   ":8080",
		Store:        StorePostgres,
		PageSize:     5,
		ImportPolicy: ingest.PolicyRequireAll,
		Migrate:      true,
		WriteRate:    20,
		WriteBurst:   40,
	}
}

// Load reads path (if non-empty) and then applies environment overrides
// looked up through getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if cfg.LogMode == "" {
		if cfg.Env == "production" {
			cfg.LogMode = "production"
		} else {
			cfg.LogMode = "development"
		}
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyFile(path string) error {
	var f hclFile
	if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
		return fmt.Errorf("decoding config %s: %w", path, err)
	}
	setString(&c.Env, f.Env)
	setString(&c.ListenAddr, f.ListenAddr)
	setString(&c.Store, f.Store)
	setString(&c.LogMode, f.LogMode)
	if f.Migrate != nil {
		c.Migrate = *f.Migrate
	}
	if f.Database != nil {
		setString(&c.DatabaseURL, f.Database.URL)
	}
	if f.Assets != nil {
		setString(&c.BoundariesPath, f.Assets.Boundaries)
		setString(&c.SnapshotPath, f.Assets.Snapshot)
	}
	if f.Dashboard != nil {
		if f.Dashboard.PageSize != 0 {
			c.PageSize = f.Dashboard.PageSize
		}
		if f.Dashboard.ImportPolicy != "" {
			p, err := ingest.ParsePolicy(f.Dashboard.ImportPolicy)
			if err != nil {
				return fmt.Errorf("config %s: %w", path, err)
			}
			c.ImportPolicy = p
		}
		if f.Dashboard.WriteRate != nil {
			c.WriteRate = *f.Dashboard.WriteRate
		}
		if f.Dashboard.WriteBurst != 0 {
			c.WriteBurst = f.Dashboard.WriteBurst
		}
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString(&c.Env, getenv("DENGUE_ENV"))
	setString(&c.ListenAddr, getenv("LISTEN_ADDR"))
	setString(&c.DatabaseURL, getenv("DATABASE_URL"))
	setString(&c.Store, getenv("DENGUE_STORE"))
	setString(&c.BoundariesPath, getenv("DENGUE_BOUNDARIES"))
	setString(&c.SnapshotPath, getenv("DENGUE_SNAPSHOT"))
	setString(&c.LogMode, getenv("LOG_MODE"))
	if v := getenv("DENGUE_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DENGUE_PAGE_SIZE: %q is not an integer", v)
		}
		c.PageSize = n
	}
	if v := getenv("DENGUE_IMPORT_POLICY"); v != "" {
		p, err := ingest.ParsePolicy(v)
		if err != nil {
			return fmt.Errorf("DENGUE_IMPORT_POLICY: %w", err)
		}
		c.ImportPolicy = p
	}
	if v := getenv("DENGUE_WRITE_RATE"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DENGUE_WRITE_RATE: %q is not a number", v)
		}
		c.WriteRate = r
	}
	if v := getenv("DENGUE_WRITE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DENGUE_WRITE_BURST: %q is not an integer", v)
		}
		c.WriteBurst = n
	}
	if v := getenv("DENGUE_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DENGUE_MIGRATE: %q is not a boolean", v)
		}
		c.Migrate = b
	}
	return nil
}

// Validate checks that the settings are usable together.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StorePostgres, StoreMemory))
	}
	if c.PageSize < 1 || c.PageSize > 500 {
		errs = append(errs, fmt.Errorf("page size %d out of range 1-500", c.PageSize))
	}
	if c.WriteRate < 0 {
		errs = append(errs, fmt.Errorf("write rate %g must not be negative", c.WriteRate))
	}
	if c.WriteRate > 0 && c.WriteBurst < 1 {
		errs = append(errs, fmt.Errorf("write burst %d must be at least 1", c.WriteBurst))
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listen address must not be empty"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
