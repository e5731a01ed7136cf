// Package database provides relational catalog database options.
package database

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/senselib/senselib/pkg/options"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var _ options.IOptions = (*Options)(nil)

// Options contains database configuration for the document catalog.
type Options struct {
	// Driver selects the database backend: postgres or sqlite.
	Driver string `json:"driver" mapstructure:"driver"`

	// DSN is the connection string. For sqlite this is a file path,
	// ":memory:" keeps the catalog in process.
	DSN string `json:"dsn" mapstructure:"dsn"`

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int `json:"max-open-conns" mapstructure:"max-open-conns"`

	// MaxIdleConns bounds idle connections.
	MaxIdleConns int `json:"max-idle-conns" mapstructure:"max-idle-conns"`

	// ConnMaxLifetime recycles connections older than this.
	ConnMaxLifetime time.Duration `json:"conn-max-lifetime" mapstructure:"conn-max-lifetime"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Driver:          DriverSQLite,
		DSN:             "senselib.db",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// AddFlags adds flags for database options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	join := options.Join(prefixes...)
	fs.StringVar(&o.Driver, join+"driver", o.Driver, "Database driver, one of: postgres, sqlite.")
	fs.StringVar(&o.DSN, join+"dsn", o.DSN, "Database connection string.")
	fs.IntVar(&o.MaxOpenConns, join+"max-open-conns", o.MaxOpenConns, "Maximum open database connections.")
	fs.IntVar(&o.MaxIdleConns, join+"max-idle-conns", o.MaxIdleConns, "Maximum idle database connections.")
	fs.DurationVar(&o.ConnMaxLifetime, join+"conn-max-lifetime", o.ConnMaxLifetime, "Maximum database connection lifetime.")
}

// Validate validates the database options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", o.Driver))
	}
	if o.DSN == "" {
		errs = append(errs, fmt.Errorf("dsn is required"))
	}
	return errs
}

// Complete completes the database options with defaults.
func (o *Options) Complete() error {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 10
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 5
	}
	return nil
}
