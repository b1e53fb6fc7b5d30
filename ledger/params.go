// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

import (
	"errors"
	"fmt"
	"os"

	"github.com/0xsoniclabs/ledger/database/kv"
	"github.com/0xsoniclabs/ledger/database/storage"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Parameters configure a ledger instance.
type Parameters struct {
	// Directory holds the database files of persistent backends.
	Directory string `yaml:"directory"`
	// Backend selects the key/value store, defaults to LevelDB.
	Backend kv.Backend `yaml:"backend"`
	// CacheSize is the LevelDB block cache size in bytes; 0 picks a default
	// based on the available memory.
	CacheSize int `yaml:"cache_size"`
	// LogLevel is a logrus level name, defaults to info.
	LogLevel string `yaml:"log_level"`
}

// DefaultParameters returns the parameters used for fields a configuration
// file does not set.
func DefaultParameters() Parameters {
	return Parameters{
		Directory: "ledger-data",
		Backend:   kv.LevelDb,
		LogLevel:  logrus.InfoLevel.String(),
	}
}

// LoadParameters reads parameters from a YAML file on top of the defaults.
func LoadParameters(path string) (Parameters, error) {
	params := DefaultParameters()
	data, err := os.ReadFile(path)
	if err != nil {
		return Parameters{}, fmt.Errorf("failed to read parameters: %w", err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return Parameters{}, fmt.Errorf("failed to parse parameters: %w", err)
	}
	return params, params.Validate()
}

func (p Parameters) Validate() error {
	var errs []error
	switch p.Backend {
	case kv.Memory, kv.LevelDb, kv.SQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", p.Backend))
	}
	if p.Backend != kv.Memory && p.Directory == "" {
		errs = append(errs, fmt.Errorf("backend %q requires a directory", p.Backend))
	}
	if p.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("negative cache size %d", p.CacheSize))
	}
	if _, err := logrus.ParseLevel(p.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NewLogger creates a logger with the configured level.
func (p Parameters) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(p.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetLevel(level)
	return logger, nil
}

// OpenDatabase opens the database described by the parameters.
func (p Parameters) OpenDatabase() (*storage.Database, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	store, err := kv.Open(p.Backend, p.Directory, p.CacheSize)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(store)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	return db, nil
}
