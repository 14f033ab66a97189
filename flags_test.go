package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yard2md/yard2md/internal/iotest"
)

func TestCLIParser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		give []string
		want params
	}{
		{
			desc: "minimal",
			give: []string{"lib"},
			want: params{
				OutputDir: "doc",
				Roots:     []string{"lib"},
			},
		},
		{
			desc: "many arguments",
			give: []string{
				"-out", "build/docs",
				"-sig-dir", "sig",
				"-title", "My Gem",
				"-desc", "Does things.",
				"-namespace", "MyGem::",
				"-changed", "lib/a.rb",
				"-changed=lib/b.rb",
				"-exclude", "vendor",
				"-check",
				"-embed-highlight",
				"-spec-index", "specs.yml",
				"-debug=log.txt",
				"lib",
				"app",
			},
			want: params{
				OutputDir:      "build/docs",
				SigDir:         "sig",
				Title:          "My Gem",
				Description:    "Does things.",
				Namespace:      "MyGem::",
				Changed:        stringList{"lib/a.rb", "lib/b.rb"},
				Exclude:        stringList{"vendor"},
				Check:          true,
				EmbedHighlight: true,
				SpecIndex:      "specs.yml",
				Debug:          "log.txt",
				Roots:          []string{"lib", "app"},
			},
		},
		{
			desc: "rbs-gen switch",
			give: []string{"-rbs-gen", "lib"},
			want: params{
				OutputDir: "doc",
				RBSGen:    "-",
				Roots:     []string{"lib"},
			},
		},
		{
			desc: "rbs-gen with path",
			give: []string{"-rbs-gen=/opt/rbs/bin/rbs-inline", "lib"},
			want: params{
				OutputDir: "doc",
				RBSGen:    "/opt/rbs/bin/rbs-inline",
				Roots:     []string{"lib"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			got, err := (&cliParser{
				Stdout: iotest.Writer(t),
				Stderr: iotest.Writer(t),
			}).Parse(tt.give)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}

	t.Run("link templates", func(t *testing.T) {
		t.Parallel()

		got, err := (&cliParser{
			Stdout: iotest.Writer(t),
			Stderr: iotest.Writer(t),
		}).Parse([]string{
			"-link", "Rails=https://api.rubyonrails.org/classes/{{.Path}}.html",
			"-link=Sidekiq=https://www.rubydoc.info/gems/sidekiq/{{.Path}}",
			"lib",
		})
		require.NoError(t, err)

		tmpls := got.Links
		require.Len(t, tmpls, 2)

		assert.Equal(t, "Rails", tmpls[0].Path)
		assert.Equal(t, "https://api.rubyonrails.org/classes/{{.Path}}.html", tmpls[0].rawTmpl)

		assert.Equal(t, "Sidekiq", tmpls[1].Path)
		assert.Equal(t, "https://www.rubydoc.info/gems/sidekiq/{{.Path}}", tmpls[1].rawTmpl)
	})
}

func TestCLIParser_configFile(t *testing.T) {
	t.Parallel()

	cfg := filepath.Join(t.TempDir(), "yard2md.conf")
	require.NoError(t, os.WriteFile(cfg, []byte("out build/docs\nnamespace MyGem::\n"), 0o644))

	got, err := (&cliParser{
		Stdout: iotest.Writer(t),
		Stderr: iotest.Writer(t),
	}).Parse([]string{"-config", cfg, "lib"})
	require.NoError(t, err)

	assert.Equal(t, "build/docs", got.OutputDir)
	assert.Equal(t, "MyGem::", got.Namespace)
	assert.Equal(t, []string{"lib"}, got.Roots)
}

func TestCLIParser_configFileMissing(t *testing.T) {
	t.Parallel()

	got, err := (&cliParser{
		Stdout: iotest.Writer(t),
		Stderr: iotest.Writer(t),
	}).Parse([]string{"-config", "does-not-exist.conf", "lib"})
	require.NoError(t, err, "a missing config file is not an error")
	assert.Equal(t, []string{"lib"}, got.Roots)
}

func TestCLIParser_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		give []string
		want string // expected messages
	}{
		{
			desc: "no roots",
			want: "Please provide at least one source root",
		},
		{
			desc: "unrecognized",
			give: []string{"-foo=bar", "lib"},
			want: "flag provided but not defined: -foo",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			var stderr bytes.Buffer
			_, err := (&cliParser{Stdout: &stderr, Stderr: &stderr}).Parse(tt.give)
			require.Error(t, err)
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestToolSwitch(t *testing.T) {
	t.Parallel()

	t.Run("unset", func(t *testing.T) {
		t.Parallel()

		var ts toolSwitch
		assert.False(t, ts.Bool())
		assert.Empty(t, ts.Path())
	})

	t.Run("bare", func(t *testing.T) {
		t.Parallel()

		fset := flag.NewFlagSet(t.Name(), flag.ContinueOnError)
		fset.SetOutput(iotest.Writer(t))

		var ts toolSwitch
		fset.Var(&ts, "x", "")
		require.NoError(t, fset.Parse([]string{"-x"}))

		assert.True(t, ts.Bool())
		assert.Empty(t, ts.Path(), "bare switch means $PATH lookup")
	})

	t.Run("with path", func(t *testing.T) {
		t.Parallel()

		fset := flag.NewFlagSet(t.Name(), flag.ContinueOnError)
		fset.SetOutput(iotest.Writer(t))

		var ts toolSwitch
		fset.Var(&ts, "x", "")
		require.NoError(t, fset.Parse([]string{"-x=bin/tool"}))

		assert.True(t, ts.Bool())
		assert.Equal(t, "bin/tool", ts.Path())
	})
}

func TestPathTemplate(t *testing.T) {
	t.Parallel()

	fset := flag.NewFlagSet(t.Name(), flag.ContinueOnError)
	fset.SetOutput(iotest.Writer(t))

	var pt pathTemplate
	fset.Var(&pt, "x", "")
	require.NoError(t, fset.Parse([]string{
		"-x", "foo=bar",
	}))

	assert.Equal(t, "foo", pt.Path)
	assert.Equal(t, "bar", pt.rawTmpl)
	assert.NotNil(t, pt.Template)

	assert.NotNil(t, pt.Get(), "Get")
	assert.Equal(t, "foo=bar", pt.String())
}

func TestPathTemplate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		give string
		want string // expected error
	}{
		{
			desc: "no '='",
			give: "foo",
			want: "expected form 'path=template'",
		},
		{
			desc: "invalid template",
			give: "foo=bar{{.baz",
			want: "bad template",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			fset := flag.NewFlagSet(t.Name(), flag.ContinueOnError)
			fset.SetOutput(iotest.Writer(t))

			fset.Var(new(pathTemplate), "x", "")
			err := fset.Parse([]string{"-x", tt.give})
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
