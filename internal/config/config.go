// Package config loads the optional pl0r.toml configuration file that
// overrides the compiler's hard limits and runtime defaults.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jkorhonen/pl0r/internal/compiler"
)

// Config is the top-level configuration document.
type Config struct {
	Limits struct {
		AddrMax         int `toml:"addr_max"`
		CodeSize        int `toml:"code_size"`
		TableSize       int `toml:"table_size"`
		MaxBlockNesting int `toml:"max_block_nesting"`
	} `toml:"limits"`

	Runtime struct {
		Trace   bool `toml:"trace"`
		Listing bool `toml:"listing"`
		// Banner is parsed but no output depends on it: the startup
		// banner and the VM's start/end lines are always printed.
		Banner bool `toml:"banner"`
	} `toml:"runtime"`
}

// Default returns a Config carrying the compiler's built-in default
// limits and runtime defaults (listing and banner on, trace off).
func Default() *Config {
	var c Config
	c.Limits.AddrMax = compiler.DefaultLimits.AddrMax
	c.Limits.CodeSize = compiler.DefaultLimits.CodeSize
	c.Limits.TableSize = compiler.DefaultLimits.TableSize
	c.Limits.MaxBlockNesting = compiler.DefaultLimits.MaxBlockNesting
	c.Runtime.Listing = true
	c.Runtime.Banner = true
	return &c
}

// Load reads path and merges it onto Default(), returning Default()
// unmodified (not an error) if path is empty. AddrMax can only be
// tightened, never raised past the built-in 2047 ceiling, since the
// instruction encoding's Addr field assumes that bound.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, err
	}
	if c.Limits.AddrMax > compiler.DefaultLimits.AddrMax {
		c.Limits.AddrMax = compiler.DefaultLimits.AddrMax
	}
	return c, nil
}

// CompilerLimits converts the config's [limits] table into compiler.Limits.
func (c *Config) CompilerLimits() compiler.Limits {
	return compiler.Limits{
		AddrMax:         c.Limits.AddrMax,
		CodeSize:        c.Limits.CodeSize,
		TableSize:       c.Limits.TableSize,
		MaxBlockNesting: c.Limits.MaxBlockNesting,
	}
}
