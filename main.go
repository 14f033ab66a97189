package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"braces.dev/errtrace"

	"github.com/yard2md/yard2md/internal/docwriter"
	"github.com/yard2md/yard2md/internal/gemmeta"
	"github.com/yard2md/yard2md/internal/highlight"
	"github.com/yard2md/yard2md/internal/markdown"
	"github.com/yard2md/yard2md/internal/rbs"
	"github.com/yard2md/yard2md/internal/rbsgen"
	"github.com/yard2md/yard2md/internal/rubysrc"
	"github.com/yard2md/yard2md/internal/yarddoc"
)

func main() {
	cmd := mainCmd{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	os.Exit(cmd.Run(os.Args[1:]))
}

// mainCmd is the actual entry point to the program.
type mainCmd struct {
	Stdout io.Writer // == os.Stdout
	Stderr io.Writer // == os.Stderr

	log *log.Logger
}

func (cmd *mainCmd) Run(args []string) (exitCode int) {
	cmd.log = log.New(cmd.Stderr, "", 0)

	opts, err := (&cliParser{
		Stdout: cmd.Stdout,
		Stderr: cmd.Stderr,
	}).Parse(args)
	if err != nil {
		// '$cmd -h' should exit with zero.
		if errors.Is(err, errHelp) {
			return 0
		}
		if !errors.Is(err, errInvalidArguments) {
			cmd.log.Printf("yard2md: %v", err)
		}
		return 1
	}

	if err := cmd.run(opts); err != nil {
		cmd.log.Printf("yard2md: %v", err)
		if errors.Is(err, errOutOfDate) {
			return 2
		}
		return 1
	}
	return 0
}

func (cmd *mainCmd) run(opts *params) (err error) {
	debugw, closeDebug, err := opts.Debug.Create(cmd.Stderr)
	if err != nil {
		return errtrace.Wrap(err)
	}
	defer func() {
		err = errors.Join(err, closeDebug())
	}()
	debugLog := log.New(debugw, "", 0)

	title, desc := opts.Title, opts.Description
	if title == "" || desc == "" {
		meta, err := (&gemmeta.Loader{Log: debugLog}).Load(".")
		if err != nil {
			return errtrace.Wrap(err)
		}
		if title == "" {
			title = meta.Name
		}
		if desc == "" {
			desc = meta.Summary
		}
	}

	var specs *yarddoc.SpecIndex
	if opts.SpecIndex != "" {
		specs, err = yarddoc.LoadSpecIndex(opts.SpecIndex)
		if err != nil {
			return errtrace.Wrap(fmt.Errorf("load spec index: %w", err))
		}
	}

	sigDir := opts.SigDir
	var sigGen SignatureGenerator
	if opts.RBSGen.Bool() {
		if sigDir == "" {
			sigDir = "sig"
		}
		sigGen = &rbsgen.CLI{
			Exe: opts.RBSGen.Path(),
			Log: debugLog,
		}
	}

	links := linkTemplates(opts.Links)

	gen := Generator{
		Log:        cmd.log,
		Finder:     &rubysrc.Finder{Exclude: opts.Exclude},
		Parser:     &rubysrc.Parser{Log: debugLog},
		Signatures: &rbs.Loader{Log: debugLog, SigDir: sigDir},
		SigGen:     sigGen,
		SigDir:     sigDir,

		Title:       title,
		Description: desc,
		Namespace:   opts.Namespace,
		Changed:     opts.Changed,
		Specs:       specs,

		NewRenderer: func(doc *yarddoc.ProjectDoc) Renderer {
			r := markdown.Renderer{
				Project: doc,
				Links:   links,
			}
			if opts.EmbedHighlight {
				r.Highlighter = &highlight.Highlighter{}
			}
			return &r
		},
		Writer: &docwriter.Writer{
			Dir:   opts.OutputDir,
			Check: opts.Check,
			Log:   debugLog,
		},
	}

	return gen.Generate(context.Background(), opts.Roots)
}
