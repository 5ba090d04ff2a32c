package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/namespace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cli runs commands against a badger store persisted in a temp dir so
// state survives between invocations.
type cli struct {
	t          *testing.T
	configPath string
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	prev := logger.Default()
	t.Cleanup(func() { logger.SetDefault(prev) })

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: error
  output: stderr
store:
  type: badger
  key_prefix: workspace
  badger:
    db_path: ` + filepath.Join(dir, "db") + `
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return &cli{t: t, configPath: configPath}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", c.configPath}, args...))

	err := cmd.ExecuteContext(c.t.Context())
	return out.String(), err
}

func (c *cli) mustRun(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.run(stdin, args...)
	require.NoError(c.t, err, "bucketfs %s", strings.Join(args, " "))
	return out
}

func TestFileCommands(t *testing.T) {
	c := newCLI(t)

	c.mustRun("", "mkdir", "notebooks")
	c.mustRun("hello", "put", "notebooks/a.txt")
	assert.Equal(t, "hello", c.mustRun("", "cat", "notebooks/a.txt"))

	out := c.mustRun("", "ls", "notebooks")
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, "notebooks/a.txt")

	c.mustRun("", "cp", "notebooks", "backup")
	assert.Equal(t, "hello", c.mustRun("", "cat", "backup/a.txt"))

	c.mustRun("", "mv", "backup/a.txt", "b.txt")
	_, err := c.run("", "cat", "backup/a.txt")
	assert.True(t, namespace.IsCode(err, namespace.ErrNoSuchEntity))

	_, err = c.run("", "rm", "notebooks")
	assert.True(t, namespace.IsCode(err, namespace.ErrDirectoryNotEmpty))

	c.mustRun("", "rm", "-r", "notebooks")
	_, err = c.run("", "stat", "notebooks")
	assert.True(t, namespace.IsCode(err, namespace.ErrNoSuchEntity))
}

func TestStatAndTreeJSON(t *testing.T) {
	c := newCLI(t)

	c.mustRun("x", "put", "f.txt")
	c.mustRun("", "mkdir", "d")
	c.mustRun("y", "put", "d/g.txt")

	var entry namespace.Entry
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("", "stat", "d")), &entry))
	assert.Equal(t, namespace.EntryDirectory, entry.Type)

	var entries []namespace.Entry
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("", "tree", "--json")), &entries))
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.ElementsMatch(t, []string{"", "d/", "d/g.txt", "f.txt"}, paths)

	require.NoError(t, json.Unmarshal([]byte(c.mustRun("", "tree", "--children-first", "--json", "d")), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "d/", entries[len(entries)-1].Path)
}

func TestPutFromLocalFile(t *testing.T) {
	c := newCLI(t)

	local := filepath.Join(t.TempDir(), "in.bin")
	require.NoError(t, os.WriteFile(local, []byte{0xff, 0x00}, 0644))

	c.mustRun("", "put", "blob.bin", local)
	assert.Equal(t, string([]byte{0xff, 0x00}), c.mustRun("", "cat", "blob.bin"))
}

func TestPutWithoutParentFails(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("x", "put", "missing/a.txt")
	assert.True(t, namespace.IsCode(err, namespace.ErrParentMissing))
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bucketfs.yaml")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init", "--path", path})
	require.NoError(t, cmd.ExecuteContext(t.Context()))
	assert.Contains(t, out.String(), path)

	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init", "--path", path})
	assert.Error(t, cmd.ExecuteContext(t.Context()))
}
