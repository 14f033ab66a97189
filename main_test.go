package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yard2md/yard2md/internal/iotest"
)

func TestMainCmd_help(t *testing.T) {
	t.Parallel()

	exitCode := (&mainCmd{
		Stdout: iotest.Writer(t),
		Stderr: iotest.Writer(t),
	}).Run([]string{"-h"})
	assert.Zero(t, exitCode, "-h should have zero status code")
}

func TestMainCmd_version(t *testing.T) {
	t.Parallel()

	var buff bytes.Buffer
	exitCode := (&mainCmd{
		Stdout: &buff,
		Stderr: iotest.Writer(t),
	}).Run([]string{"-version"})
	assert.Zero(t, exitCode, "-version should have zero status code")

	assert.Contains(t, buff.String(), "yard2md")
	assert.Contains(t, buff.String(), _version)
}

func TestMainCmd_unknownFlag(t *testing.T) {
	t.Parallel()

	exitCode := (&mainCmd{
		Stdout: iotest.Writer(t),
		Stderr: iotest.Writer(t),
	}).Run([]string{"--this-flag-does-not-exist"})
	assert.NotZero(t, exitCode, "unknown flag should have non-zero status code")
}

func TestMainCmd_badLinkTemplate(t *testing.T) {
	t.Parallel()

	var buff bytes.Buffer
	exitCode := (&mainCmd{
		Stdout: iotest.Writer(t),
		Stderr: &buff,
	}).Run([]string{"-link", "Rails=https://{{.bad", "lib"})
	assert.NotZero(t, exitCode)
	assert.Contains(t, buff.String(), "bad template")
}

func TestMainCmd_generate(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	writeRubyFixture(t, srcDir)

	outDir := t.TempDir()
	exitCode := (&mainCmd{
		Stdout: iotest.Writer(t),
		Stderr: iotest.Writer(t),
	}).Run([]string{"-out", outDir, "-title", "mygem", srcDir})
	require.Zero(t, exitCode, "expected success")

	index := readFile(t, filepath.Join(outDir, "index.md"))
	assert.Contains(t, index, "title: mygem")
	assert.Contains(t, index, "User")

	page := readFile(t, filepath.Join(outDir, "User.md"))
	assert.Contains(t, page, "# User")
	assert.Contains(t, page, "A user of the system.")
	assert.Contains(t, page, "#name")
}

func TestMainCmd_check(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	writeRubyFixture(t, srcDir)

	outDir := t.TempDir()
	run := func(extra ...string) int {
		args := append(extra, "-out", outDir, "-title", "mygem", srcDir)
		return (&mainCmd{
			Stdout: iotest.Writer(t),
			Stderr: iotest.Writer(t),
		}).Run(args)
	}

	require.Equal(t, 2, run("-check"),
		"-check against an empty directory must report drift")

	require.Zero(t, run(), "expected successful generation")
	assert.Zero(t, run("-check"),
		"-check right after generation must pass")
}

func writeRubyFixture(t *testing.T, dir string) {
	t.Helper()

	src := `# A user of the system.
class User
  # @param name [String] the name
  def initialize(name)
    @name = name
  end

  # The display name.
  # @return [String]
  def name
    @name
  end
end
`
	require.NoError(t,
		os.WriteFile(filepath.Join(dir, "user.rb"), []byte(src), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	bs, err := os.ReadFile(path)
	require.NoError(t, err, "file must exist: %v", path)
	return string(bs)
}
