package rbs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		give string
		want Signature
	}{
		{
			desc: "positional params",
			give: "(String name, Integer age) -> User",
			want: Signature{
				Params: map[string]TypeInfo{
					"name": {Type: "String"},
					"age":  {Type: "Integer"},
				},
				Returns: &TypeInfo{Type: "User"},
			},
		},
		{
			desc: "optional positional",
			give: "(?Integer age) -> void",
			want: Signature{
				Params:  map[string]TypeInfo{"age": {Type: "Integer"}},
				Returns: &TypeInfo{Type: "void"},
			},
		},
		{
			desc: "keyword params",
			give: "(name: String, ?size: Integer) -> bool",
			want: Signature{
				Params: map[string]TypeInfo{
					"name": {Type: "String"},
					"size": {Type: "Integer"},
				},
				Returns: &TypeInfo{Type: "bool"},
			},
		},
		{
			desc: "no params",
			give: "() -> Array[String]",
			want: Signature{
				Returns: &TypeInfo{Type: "Array[String]"},
			},
		},
		{
			desc: "generic param list stripped",
			give: "[T] (T item) -> T",
			want: Signature{
				Params:  map[string]TypeInfo{"item": {Type: "T"}},
				Returns: &TypeInfo{Type: "T"},
			},
		},
		{
			desc: "nested generics survive the comma split",
			give: "(Hash[Symbol, String] opts, Array[Integer] ids) -> void",
			want: Signature{
				Params: map[string]TypeInfo{
					"opts": {Type: "Hash[Symbol, String]"},
					"ids":  {Type: "Array[Integer]"},
				},
				Returns: &TypeInfo{Type: "void"},
			},
		},
		{
			desc: "namespaced positional type",
			give: "(Shop::Order order, Shop::Billing::Invoice invoice) -> void",
			want: Signature{
				Params: map[string]TypeInfo{
					"order":   {Type: "Shop::Order"},
					"invoice": {Type: "Shop::Billing::Invoice"},
				},
				Returns: &TypeInfo{Type: "void"},
			},
		},
		{
			desc: "keyword with namespaced type",
			give: "(order: Shop::Order) -> void",
			want: Signature{
				Params: map[string]TypeInfo{
					"order": {Type: "Shop::Order"},
				},
				Returns: &TypeInfo{Type: "void"},
			},
		},
		{
			desc: "record type param",
			give: "({ file: String?, path: String? } entry) -> void",
			want: Signature{
				Params: map[string]TypeInfo{
					"entry": {Type: "{ file: String?, path: String? }"},
				},
				Returns: &TypeInfo{Type: "void"},
			},
		},
		{
			desc: "caret block param",
			give: "(Array[User] users, ^(User) -> bool) -> Array[User]",
			want: Signature{
				Params: map[string]TypeInfo{
					"users":    {Type: "Array[User]"},
					BlockParam: {Type: "^(User) -> bool"},
				},
				Returns: &TypeInfo{Type: "Array[User]"},
			},
		},
		{
			desc: "optional braced block param",
			give: "(?{ (User) -> bool }) -> void",
			want: Signature{
				Params: map[string]TypeInfo{
					BlockParam: {Type: "{ (User) -> bool }"},
				},
				Returns: &TypeInfo{Type: "void"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			got := ParseSignature(tt.give)
			assert.Equal(t, tt.want.Params, got.Params)
			assert.Equal(t, tt.want.Returns, got.Returns)
		})
	}
}

func TestParseSignature_malformed(t *testing.T) {
	t.Parallel()

	// Malformed annotations degrade to empty results.
	for _, give := range []string{
		"",
		"not a signature",
		"(String name",
		"(String name) => User",
		"String -> Integer",
	} {
		give := give
		t.Run(give, func(t *testing.T) {
			t.Parallel()

			got := ParseSignature(give)
			assert.Empty(t, got.Params)
			assert.Nil(t, got.Returns)
		})
	}
}

func TestSplitTopLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		give string
		want []string
	}{
		{
			desc: "comma inside brackets is not a separator",
			give: "file: String, data: Hash[Symbol, String]",
			want: []string{"file: String", "data: Hash[Symbol, String]"},
		},
		{
			desc: "nested record braces",
			give: "a: { x: Integer, y: Integer }, b: String",
			want: []string{"a: { x: Integer, y: Integer }", "b: String"},
		},
		{
			desc: "parens",
			give: "^(User, Integer) -> bool, rest: String",
			want: []string{"^(User, Integer) -> bool", "rest: String"},
		},
		{
			desc: "empty",
			give: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, SplitTopLevel(tt.give))
		})
	}
}

func TestParseRecordType(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		got := ParseRecordType("{ file: String?, path: String? }")
		assert.Equal(t, map[string]string{
			"file": "String?",
			"path": "String?",
		}, got)
	})

	t.Run("optional keys", func(t *testing.T) {
		t.Parallel()

		got := ParseRecordType("{ file?: String, ?path: String }")
		assert.Equal(t, map[string]string{
			"file": "String",
			"path": "String",
		}, got)
	})

	t.Run("nested generic value", func(t *testing.T) {
		t.Parallel()

		got := ParseRecordType("{ data: Hash[Symbol, String] }")
		assert.Equal(t, map[string]string{"data": "Hash[Symbol, String]"}, got)
	})

	t.Run("not a record", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, ParseRecordType("Hash[Symbol, String]"))
	})
}

func TestParseBlockType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		give string
		want BlockType
	}{
		{
			desc: "caret form",
			give: "^(User, Integer) -> bool",
			want: BlockType{
				ParamTypes: []string{"User", "Integer"},
				ReturnType: "bool",
			},
		},
		{
			desc: "braced form",
			give: "{ (User) -> void }",
			want: BlockType{
				ParamTypes: []string{"User"},
				ReturnType: "void",
			},
		},
		{
			desc: "optional block",
			give: "?{ (String, ^(Integer) -> void) -> bot }",
			want: BlockType{
				ParamTypes: []string{"String", "^(Integer) -> void"},
				ReturnType: "bot",
			},
		},
		{
			desc: "no params",
			give: "^() -> void",
			want: BlockType{ReturnType: "void"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseBlockType(tt.give)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		_, ok := ParseBlockType("User")
		assert.False(t, ok)
	})
}
