// Package rbsgen provides access to the rbs-inline CLI,
// which generates .rbs signature files from annotated Ruby sources.
package rbsgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"

	"braces.dev/errtrace"

	"github.com/yard2md/yard2md/internal/linebuf"
)

// CLI is a handle to the rbs-inline executable.
type CLI struct {
	// Exe is the path to the rbs-inline executable.
	// If unset, we'll search $PATH.
	Exe string

	// Log is the logger to use for the output of the command.
	Log *log.Logger
}

// GenerateRequest asks for signature files to be (re)generated.
type GenerateRequest struct {
	// Roots are the source directories to scan. required
	Roots []string

	// OutDir is the directory the signature files are written to.
	OutDir string // required
}

// Generate runs the codegen step, forwarding its output to the
// logger one line at a time.
func (c *CLI) Generate(ctx context.Context, req GenerateRequest) error {
	logger := c.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	exe := c.Exe
	if exe == "" {
		exe = "rbs-inline"
	}

	args := append([]string{"--output=" + req.OutDir}, req.Roots...)

	out, done := linebuf.Writer(func(line []byte) {
		logger.Printf("%s", bytes.TrimSuffix(line, []byte{'\n'}))
	})
	defer done()

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return errtrace.Wrap(fmt.Errorf("rbs-inline: %w", err))
	}

	return nil
}
