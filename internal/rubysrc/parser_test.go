package rubysrc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, src string) *Project {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sample.rb")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	proj, err := (&Parser{}).ParseFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, proj.Files, 1)
	return proj
}

const _sampleSource = `# frozen_string_literal: true

module App
  # Store of users.
  #
  # @example Lookup
  #   repo.find("ada")
  class UserRepo < Base::Repo
    include Enumerable
    extend Forwardable

    VERSION = "1.2.0"

    # Display name.
    attr_reader :name, :label
    attr_accessor :capacity

    # Finds a user by name.
    #
    # @param name [String] the name
    # @return [User, nil]
    def find(name, limit = 10, *rest, stats: false, **opts, &blk)
      @users[name]
    end

    # Default repo.
    def self.default
      new
    end

    private

    def prune
    end

    def sweep
    end

    public :sweep
  end
end
`

func TestParserNamespaces(t *testing.T) {
	t.Parallel()

	proj := parseSource(t, _sampleSource)
	file := proj.Files[0]

	require.Len(t, file.Namespaces, 1)
	app := file.Namespaces[0]
	assert.Equal(t, "App", app.Name)
	assert.Equal(t, "App", app.Path)
	assert.Equal(t, KindModule, app.Kind)
	assert.Empty(t, app.Doc.Text)

	require.Len(t, app.Children, 1)
	repo := app.Children[0]
	assert.Equal(t, "UserRepo", repo.Name)
	assert.Equal(t, "App::UserRepo", repo.Path)
	assert.Equal(t, KindClass, repo.Kind)
	assert.Equal(t, "Base::Repo", repo.Superclass)
	assert.False(t, repo.Synthetic)

	assert.Equal(t, "Store of users.", repo.Doc.Text)
	ex, ok := repo.Doc.Tag("example")
	require.True(t, ok)
	assert.Equal(t, "Lookup", ex.Arg)

	assert.Equal(t, []string{"Enumerable"}, repo.Includes)
	assert.Equal(t, []string{"Forwardable"}, repo.Extends)
}

func TestParserConstants(t *testing.T) {
	t.Parallel()

	proj := parseSource(t, _sampleSource)
	repo := proj.Files[0].Namespaces[0].Children[0]

	require.Len(t, repo.Constants, 1)
	assert.Equal(t, "VERSION", repo.Constants[0].Name)
	assert.Equal(t, `"1.2.0"`, repo.Constants[0].Value)
}

func TestParserAttrs(t *testing.T) {
	t.Parallel()

	proj := parseSource(t, _sampleSource)
	repo := proj.Files[0].Namespaces[0].Children[0]

	require.Len(t, repo.Attrs, 2)
	assert.Equal(t, "reader", repo.Attrs[0].Kind)
	assert.Equal(t, []string{"name", "label"}, repo.Attrs[0].Names)
	assert.Equal(t, "Display name.", repo.Attrs[0].Doc.Text)

	assert.Equal(t, "accessor", repo.Attrs[1].Kind)
	assert.Equal(t, []string{"capacity"}, repo.Attrs[1].Names)
}

func TestParserMethods(t *testing.T) {
	t.Parallel()

	proj := parseSource(t, _sampleSource)
	repo := proj.Files[0].Namespaces[0].Children[0]

	byName := make(map[string]*Method)
	for _, m := range repo.Methods {
		byName[m.Name] = m
	}
	require.Len(t, byName, 4)

	find := byName["find"]
	require.NotNil(t, find)
	assert.Equal(t, ScopeInstance, find.Scope)
	assert.Equal(t, "public", find.Visibility)
	assert.Equal(t, "Finds a user by name.", find.Doc.Text)
	assert.Len(t, find.Doc.Tags, 2)
	assert.Equal(t,
		"find(name, limit = 10, *rest, stats: false, **opts, &blk)",
		find.Signature)
	assert.Equal(t, []Param{
		{Name: "name"},
		{Name: "limit", Default: "10"},
		{Name: "rest", Prefix: "*"},
		{Name: "stats", Default: "false"},
		{Name: "opts", Prefix: "**"},
		{Name: "blk", Prefix: "&"},
	}, find.Params)
	assert.Contains(t, find.Source, "@users[name]")

	def := byName["default"]
	require.NotNil(t, def)
	assert.Equal(t, ScopeClass, def.Scope)
	assert.Equal(t, "Default repo.", def.Doc.Text)

	// declared after a bare private, then sweep made public again
	assert.Equal(t, "private", byName["prune"].Visibility)
	assert.Equal(t, "public", byName["sweep"].Visibility)
}

func TestParserInlineVisibility(t *testing.T) {
	t.Parallel()

	proj := parseSource(t, `
class Box
  # Internal helper.
  private def renumber
  end

  def open
  end
end
`)
	box := proj.Files[0].Namespaces[0]

	byName := make(map[string]*Method)
	for _, m := range box.Methods {
		byName[m.Name] = m
	}
	require.Len(t, byName, 2)

	assert.Equal(t, "private", byName["renumber"].Visibility)
	assert.Equal(t, "Internal helper.", byName["renumber"].Doc.Text)
	assert.Equal(t, "public", byName["open"].Visibility)
}

func TestParserValueObjects(t *testing.T) {
	t.Parallel()

	proj := parseSource(t, `
module Geo
  # A 2D point.
  Point = Data.define(:x, :y)

  Size = Struct.new(:w, :h) do
    def area
      w * h
    end
  end
end
`)
	geo := proj.Files[0].Namespaces[0]
	require.Len(t, geo.Children, 2)

	point := geo.Children[0]
	assert.Equal(t, "Geo::Point", point.Path)
	assert.True(t, point.Synthetic)
	assert.Equal(t, "Data", point.Superclass)
	assert.Equal(t, "A 2D point.", point.Doc.Text)
	require.Len(t, point.Attrs, 1)
	assert.Equal(t, []string{"x", "y"}, point.Attrs[0].Names)

	size := geo.Children[1]
	assert.True(t, size.Synthetic)
	assert.Equal(t, "Struct", size.Superclass)
	require.Len(t, size.Attrs, 1)
	assert.Equal(t, []string{"w", "h"}, size.Attrs[0].Names)
	require.Len(t, size.Methods, 1)
	assert.Equal(t, "area", size.Methods[0].Name)
}

func TestParserCompactPath(t *testing.T) {
	t.Parallel()

	proj := parseSource(t, `
class App::Models::User
  def save
  end
end
`)
	user := proj.Files[0].Namespaces[0]
	assert.Equal(t, "App::Models::User", user.Name)
	assert.Equal(t, "App::Models::User", user.Path)
	require.Len(t, user.Methods, 1)
}

func TestParserDetachedComment(t *testing.T) {
	t.Parallel()

	proj := parseSource(t, `
class Box
  # Stray note, not documentation.

  def open
  end
end
`)
	box := proj.Files[0].Namespaces[0]
	require.Len(t, box.Methods, 1)
	assert.Empty(t, box.Methods[0].Doc.Text,
		"comment separated by a blank line does not attach")
}

func TestParserAllNamespaces(t *testing.T) {
	t.Parallel()

	proj := parseSource(t, _sampleSource)
	var paths []string
	for _, ns := range proj.AllNamespaces() {
		paths = append(paths, ns.Path)
	}
	assert.Equal(t, []string{"App", "App::UserRepo"}, paths)
}

func TestParserSkipsUnreadable(t *testing.T) {
	t.Parallel()

	proj, err := (&Parser{}).ParseFiles(context.Background(),
		[]string{filepath.Join(t.TempDir(), "missing.rb")})
	require.NoError(t, err)
	assert.Empty(t, proj.Files)
}
