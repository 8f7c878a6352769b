package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jkorhonen/pl0r/internal/compiler"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, compiler.DefaultLimits.AddrMax, c.Limits.AddrMax)
	assert.Equal(t, compiler.DefaultLimits.CodeSize, c.Limits.CodeSize)
	assert.Equal(t, compiler.DefaultLimits.TableSize, c.Limits.TableSize)
	assert.Equal(t, compiler.DefaultLimits.MaxBlockNesting, c.Limits.MaxBlockNesting)
	assert.True(t, c.Runtime.Listing)
	assert.True(t, c.Runtime.Banner)
	assert.False(t, c.Runtime.Trace)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadOverridesLimitsAndRuntime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pl0r.toml")
	doc := `
[limits]
addr_max = 100
code_size = 500
table_size = 50
max_block_nesting = 2

[runtime]
trace = true
listing = false
banner = false
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, c.Limits.AddrMax)
	assert.Equal(t, 500, c.Limits.CodeSize)
	assert.Equal(t, 50, c.Limits.TableSize)
	assert.Equal(t, 2, c.Limits.MaxBlockNesting)
	assert.True(t, c.Runtime.Trace)
	assert.False(t, c.Runtime.Listing)
	assert.False(t, c.Runtime.Banner)
}

func TestLoadClampsAddrMaxCeiling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pl0r.toml")
	doc := "[limits]\naddr_max = 9999\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, compiler.DefaultLimits.AddrMax, c.Limits.AddrMax)
}

func TestLoadMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pl0r.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid toml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestCompilerLimits(t *testing.T) {
	c := Default()
	c.Limits.AddrMax = 42
	got := c.CompilerLimits()
	assert.Equal(t, compiler.Limits{
		AddrMax:         42,
		CodeSize:        compiler.DefaultLimits.CodeSize,
		TableSize:       compiler.DefaultLimits.TableSize,
		MaxBlockNesting: compiler.DefaultLimits.MaxBlockNesting,
	}, got)
}
