package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/peterbourgon/ff/v3"
	"github.com/yard2md/yard2md/internal/flagvalue"
)

var (
	errHelp             = flag.ErrHelp
	errInvalidArguments = errors.New("invalid arguments")
)

// params holds all arguments for yard2md.
type params struct {
	version bool
	help    Help
	config  string

	Debug flagvalue.FileSwitch

	OutputDir string
	SigDir    string
	RBSGen    toolSwitch

	Title       string
	Description string

	Namespace string
	Changed   stringList
	Exclude   stringList
	SpecIndex string

	Check          bool
	EmbedHighlight bool
	Links          []pathTemplate

	Roots []string
}

// cliParser parses the command line arguments for yard2md.
type cliParser struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (cmd *cliParser) newFlagSet() (*params, *flag.FlagSet) {
	flag := flag.NewFlagSet("yard2md", flag.ContinueOnError)
	flag.SetOutput(cmd.Stderr)
	flag.Usage = func() {
		DefaultHelp.Write(cmd.Stderr)
	}

	var p params

	// Filesystem:
	flag.StringVar(&p.OutputDir, "out", "doc", "")
	flag.StringVar(&p.SigDir, "sig-dir", "", "")
	flag.Var(&p.Exclude, "exclude", "")
	flag.Var(&p.RBSGen, "rbs-gen", "")

	// Extraction:
	flag.StringVar(&p.Title, "title", "", "")
	flag.StringVar(&p.Description, "desc", "", "")
	flag.StringVar(&p.Namespace, "namespace", "", "")
	flag.Var(&p.Changed, "changed", "")
	flag.StringVar(&p.SpecIndex, "spec-index", "", "")

	// Markdown output:
	flag.BoolVar(&p.Check, "check", false, "")
	flag.BoolVar(&p.EmbedHighlight, "embed-highlight", false, "")
	flag.Var(flagvalue.ListOf(&p.Links), "link", "")

	// Program-level:
	flag.StringVar(&p.config, "config", "", "")
	flag.Var(&p.Debug, "debug", "")
	flag.BoolVar(&p.version, "version", false, "")
	flag.Var(&p.help, "help", "")
	flag.Var(&p.help, "h", "")

	return &p, flag
}

func (cmd *cliParser) Parse(args []string) (*params, error) {
	p, flag := cmd.newFlagSet()
	err := ff.Parse(flag, args,
		ff.WithEnvVarPrefix("YARD2MD"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	)
	if err != nil {
		return nil, err
	}
	args = flag.Args()

	if p.version {
		fmt.Fprintln(cmd.Stdout, "yard2md", _version)
		return nil, errHelp
	}

	if p.help == DefaultHelp && len(args) > 0 {
		// The user might have done "-h foo"
		// instead of "-h=foo".
		// If the argument is a known help topic,
		// take it.
		var h Help
		if err := h.Set(args[0]); err == nil {
			p.help = h
		}
	}

	switch p.help {
	case NoHelp:
		// proceed as usual
	default:
		if err := p.help.Write(cmd.Stderr); err != nil {
			fmt.Fprintln(cmd.Stderr, err)
		}
		return nil, errHelp
	}

	p.Roots = args
	if len(p.Roots) == 0 {
		fmt.Fprintln(cmd.Stderr, "Please provide at least one source root.")
		UsageHelp.Write(cmd.Stderr)
		return nil, errInvalidArguments
	}

	return p, nil
}

// stringList is a repeatable string flag.
type stringList []string

var _ flag.Getter = (*stringList)(nil)

func (sl *stringList) Get() any { return []string(*sl) }

func (sl *stringList) String() string {
	return strings.Join(*sl, ", ")
}

func (sl *stringList) Set(s string) error {
	*sl = append(*sl, s)
	return nil
}

// toolSwitch is a flag that accepts both "-x" and "-x=path".
// If a path is specified, it overrides the executable to run.
type toolSwitch string

var _ flag.Getter = (*toolSwitch)(nil)

// Get returns the path stored in the switch
// or '-' if no value was specified.
func (ts *toolSwitch) Get() any { return string(*ts) }

// String returns the path stored in the switch
// or '-' if no value was specified.
func (ts *toolSwitch) String() string {
	return string(*ts)
}

// IsBoolFlag marks this as a flag
// that doesn't require a value.
func (*toolSwitch) IsBoolFlag() bool {
	return true
}

// Set receives the value for this flag.
func (ts *toolSwitch) Set(v string) error {
	if v == "true" {
		v = "-"
	}
	*ts = toolSwitch(v)
	return nil
}

// Bool reports whether this flag was set with any value.
func (ts *toolSwitch) Bool() bool {
	return len(*ts) > 0
}

// Path returns the explicit executable path,
// or an empty string for a $PATH lookup.
func (ts *toolSwitch) Path() string {
	if *ts == "-" {
		return ""
	}
	return string(*ts)
}

type pathTemplate struct {
	Path     string
	Template *template.Template

	rawTmpl string
}

var _ flag.Getter = (*pathTemplate)(nil)

func (pt *pathTemplate) Get() any { return pt }

func (pt *pathTemplate) String() string {
	return fmt.Sprintf("%s=%s", pt.Path, pt.rawTmpl)
}

func (pt *pathTemplate) Set(s string) error {
	idx := strings.IndexRune(s, '=')
	if idx < 0 {
		return fmt.Errorf("expected form 'path=template'")
	}

	tmpl, err := template.New(s[:idx]).Parse(s[idx+1:])
	if err != nil {
		return fmt.Errorf("bad template: %w", err)
	}

	pt.Path = s[:idx]
	pt.rawTmpl = s[idx+1:]
	pt.Template = tmpl
	return nil
}
