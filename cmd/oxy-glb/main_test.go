package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-glb/engine/config"
	"github.com/Carmen-Shannon/oxy-glb/engine/document"
)

// looseAsset writes <name>.gltf referencing <name>.bin into dir.
func looseAsset(t *testing.T, dir, name string) string {
	t.Helper()

	doc := &document.Document{
		Asset:       &document.Asset{Version: "2.0"},
		Buffers:     []document.Buffer{{URI: name + ".bin", ByteLength: 6}},
		BufferViews: []document.BufferView{{Buffer: 0, ByteLength: 6}},
	}
	data, err := document.Encode(doc, true)
	require.NoError(t, err)

	path := filepath.Join(dir, name+".gltf")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".bin"), []byte("abcdef"), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunUsageErrors(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"convert"}},
		{name: "unknown flag", args: []string{"pack", "--fast"}},
		{name: "pack arity", args: []string{"pack", "a.gltf"}},
		{name: "unpack out-dir without inputs", args: []string{"unpack", "--out-dir", t.TempDir()}},
		{name: "inspect arity", args: []string{"inspect"}},
		{name: "bad workers", args: []string{"pack", "-j", "0", "a.gltf", "b.glb"}},
		{name: "pack duplicate base names", args: []string{"pack", "--out-dir", t.TempDir(), "x/crate.gltf", "y/crate.glb"}},
		{name: "unpack duplicate base names", args: []string{"unpack", "--out-dir", t.TempDir(), "x/crate.glb", "y/crate.glb.zst"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, tt.args...)
			require.Error(t, err)
			var usage *usageError
			assert.True(t, errors.As(err, &usage), "want a usage error, got %v", err)
		})
	}
}

func TestRunHelp(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	_, stderr, err := runCLI(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Usage:")
	assert.Contains(t, stderr, "--out-dir")
}

func TestRunPackInspectUnpack(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	dir := t.TempDir()
	input := looseAsset(t, dir, "crate")
	glb := filepath.Join(dir, "crate.glb")

	stdout, _, err := runCLI(t, "pack", input, glb)
	require.NoError(t, err)
	assert.Contains(t, stdout, "packed "+input+" -> "+glb)
	assert.Contains(t, stdout, "sha256:")

	stdout, _, err = runCLI(t, "inspect", glb)
	require.NoError(t, err)
	assert.Contains(t, stdout, "glTF binary v2")
	assert.Contains(t, stdout, "JSON")
	assert.Contains(t, stdout, "BIN")
	assert.Contains(t, stdout, "buffer 0: internal")

	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))
	stdout, _, err = runCLI(t, "unpack", glb, out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "unpacked "+glb)

	bin, err := os.ReadFile(filepath.Join(out, "crate.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), bin)
}

func TestRunRefusesOverwrite(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	dir := t.TempDir()
	input := looseAsset(t, dir, "crate")
	glb := filepath.Join(dir, "crate.glb")
	require.NoError(t, os.WriteFile(glb, []byte("keep"), 0o644))

	_, _, err := runCLI(t, "pack", input, glb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	kept, err := os.ReadFile(glb)
	require.NoError(t, err)
	assert.Equal(t, []byte("keep"), kept)

	_, _, err = runCLI(t, "pack", "--overwrite", input, glb)
	require.NoError(t, err)
}

func TestRunBatchPack(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	dir := t.TempDir()
	out := filepath.Join(dir, "packed")
	inputs := []string{
		looseAsset(t, dir, "a"),
		looseAsset(t, dir, "b"),
		filepath.Join(dir, "missing.gltf"),
	}

	stdout, _, err := runCLI(t, append([]string{"pack", "--compress", "-j", "2", "--out-dir", out}, inputs...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 assets failed")
	assert.Contains(t, err.Error(), "missing.gltf")

	for _, name := range []string{"a.glb.zst", "b.glb.zst"} {
		_, statErr := os.Stat(filepath.Join(out, name))
		assert.NoError(t, statErr, name)
		assert.Contains(t, stdout, name)
	}

	stdout, _, err = runCLI(t, "inspect", filepath.Join(out, "a.glb.zst"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "buffer 0: internal")
}

func TestRunWithConfigFile(t *testing.T) {
	t.Setenv(config.EnvVar, "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "oxyglb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output:\n  compress: true\nworkers: 1\n"), 0o644))

	input := looseAsset(t, dir, "crate")
	out := filepath.Join(dir, "packed")
	_, _, err := runCLI(t, "pack", "--config", cfgPath, "--out-dir", out, input)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(out, "crate.glb.zst"))
	require.NoError(t, err)
}
