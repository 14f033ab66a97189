package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"braces.dev/errtrace"

	"github.com/yard2md/yard2md/internal/docwriter"
	"github.com/yard2md/yard2md/internal/markdown"
	"github.com/yard2md/yard2md/internal/rbs"
	"github.com/yard2md/yard2md/internal/rbsgen"
	"github.com/yard2md/yard2md/internal/rubysrc"
	"github.com/yard2md/yard2md/internal/yarddoc"
)

// Finder searches for Ruby source files under the provided roots.
type Finder interface {
	FindFiles(roots ...string) ([]string, error)
}

var _ Finder = (*rubysrc.Finder)(nil)

// Parser parses Ruby source files into the documentation graph.
type Parser interface {
	ParseFiles(ctx context.Context, paths []string) (*rubysrc.Project, error)
}

var _ Parser = (*rubysrc.Parser)(nil)

// SignatureLoader loads the formal type signatures
// that accompany the parsed sources.
type SignatureLoader interface {
	Load(files []string) (*rbs.Data, error)
}

var _ SignatureLoader = (*rbs.Loader)(nil)

// SignatureGenerator regenerates the signature directory
// from annotated sources before extraction.
type SignatureGenerator interface {
	Generate(ctx context.Context, req rbsgen.GenerateRequest) error
}

var _ SignatureGenerator = (*rbsgen.CLI)(nil)

// Renderer renders extracted documentation into markdown pages.
type Renderer interface {
	RenderNamespace(io.Writer, *yarddoc.NamespaceDoc) error
	RenderIndex(io.Writer) error
}

var _ Renderer = (*markdown.Renderer)(nil)

// Writer persists rendered pages under the output directory.
type Writer interface {
	Write(page string, content []byte) error
	Drift() []string
	Summary() string
}

var _ Writer = (*docwriter.Writer)(nil)

// errOutOfDate is reported when -check finds stale pages.
var errOutOfDate = errors.New("documentation is out of date")

// Generator generates documentation for user-specified Ruby sources.
//
// In terms of code organization,
// Generator's purpose is to add a separation between main
// and the program's core logic to aid in testability.
type Generator struct {
	Log    *log.Logger
	Finder Finder
	Parser Parser

	Signatures SignatureLoader

	// SigGen, if non-nil, regenerates SigDir before extraction.
	SigGen SignatureGenerator
	SigDir string

	Title       string
	Description string
	Namespace   string
	Changed     []string
	Specs       *yarddoc.SpecIndex

	// NewRenderer builds the markdown renderer
	// for an extracted project.
	NewRenderer func(*yarddoc.ProjectDoc) Renderer

	Writer Writer
}

// Generate runs the generator over the provided source roots.
func (g *Generator) Generate(ctx context.Context, roots []string) error {
	if g.SigGen != nil {
		g.Log.Printf("Regenerating signatures in %v", g.SigDir)
		err := g.SigGen.Generate(ctx, rbsgen.GenerateRequest{
			Roots:  roots,
			OutDir: g.SigDir,
		})
		if err != nil {
			return errtrace.Wrap(err)
		}
	}

	files, err := g.Finder.FindFiles(roots...)
	if err != nil {
		return errtrace.Wrap(err)
	}
	if len(files) == 0 {
		return errtrace.Wrap(fmt.Errorf("no Ruby sources under %q", roots))
	}

	proj, err := g.Parser.ParseFiles(ctx, files)
	if err != nil {
		return errtrace.Wrap(fmt.Errorf("parse: %w", err))
	}

	sigs, err := g.Signatures.Load(files)
	if err != nil {
		return errtrace.Wrap(fmt.Errorf("load signatures: %w", err))
	}

	extractor := yarddoc.Extractor{
		Log:       g.Log,
		RBS:       sigs,
		Namespace: g.Namespace,
		Changed:   g.Changed,
		Specs:     g.Specs,
	}
	doc := extractor.Extract(proj, g.Title, g.Description)

	renderer := g.NewRenderer(doc)

	var buff bytes.Buffer
	for i := range doc.Namespaces {
		ns := &doc.Namespaces[i]
		if len(g.Changed) > 0 && !ns.NeedsRegeneration {
			continue
		}

		g.Log.Printf("Rendering %v", ns.Path)
		buff.Reset()
		if err := renderer.RenderNamespace(&buff, ns); err != nil {
			return errtrace.Wrap(fmt.Errorf("render %v: %w", ns.Path, err))
		}
		if err := g.Writer.Write(markdown.NamespacePage(ns.Path), buff.Bytes()); err != nil {
			return errtrace.Wrap(err)
		}
	}

	g.Log.Printf("Rendering index")
	buff.Reset()
	if err := renderer.RenderIndex(&buff); err != nil {
		return errtrace.Wrap(fmt.Errorf("render index: %w", err))
	}
	if err := g.Writer.Write(markdown.IndexPage, buff.Bytes()); err != nil {
		return errtrace.Wrap(err)
	}

	if drift := g.Writer.Drift(); len(drift) > 0 {
		for _, page := range drift {
			g.Log.Printf("out of date: %v", page)
		}
		return errOutOfDate
	}

	g.Log.Printf("%v", g.Writer.Summary())
	return nil
}
