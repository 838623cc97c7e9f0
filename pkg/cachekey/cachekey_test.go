package cachekey

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		spec     Spec
		sep      string
		expected []string
	}{
		{
			name:     "flat scalar",
			spec:     Scalar("foo"),
			sep:      ".",
			expected: []string{"foo"},
		},
		{
			name:     "deep scalar",
			spec:     Scalar("foo.bar"),
			sep:      ".",
			expected: []string{"foo", "bar"},
		},
		{
			name:     "multiple parts",
			spec:     Strings("foo", "bar"),
			sep:      ".",
			expected: []string{"foo", "bar"},
		},
		{
			name:     "flat and deep parts together",
			spec:     Strings("foo", "bar.baz"),
			sep:      ".",
			expected: []string{"foo", "bar", "baz"},
		},
		{
			name:     "extra separators are ignored",
			spec:     Strings("..foo...", "..bar...baz.."),
			sep:      ".",
			expected: []string{"foo", "bar", "baz"},
		},
		{
			name:     "different separator",
			spec:     Strings("foo-bar", "-baz"),
			sep:      "-",
			expected: []string{"foo", "bar", "baz"},
		},
		{
			name:     "non string parts use their string form",
			spec:     Sequence("users.v2", 42, true),
			sep:      ".",
			expected: []string{"users", "v2", "42", "true"},
		},
		{
			name:     "integer scalar",
			spec:     Scalar(1337),
			sep:      ".",
			expected: []string{"1337"},
		},
		{
			name:     "multi character separator trims stray halves",
			spec:     Strings(":foo::bar:", "baz"),
			sep:      "::",
			expected: []string{"foo", "bar", "baz"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			segments, err := Normalize(tc.spec, tc.sep)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, segments)
		})
	}
}

func TestNormalizeEmptyKey(t *testing.T) {
	testCases := []struct {
		name string
		spec Spec
	}{
		{name: "empty string", spec: Scalar("")},
		{name: "empty sequence", spec: Sequence()},
		{name: "zero spec", spec: Spec{}},
		{name: "only separator", spec: Scalar(".")},
		{name: "semantically empty sequence", spec: Strings(".", "..")},
		{name: "nil scalar", spec: Scalar(nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.spec, DefaultSeparator)
			assert.ErrorIs(t, err, ErrEmptyKey)

			_, err = Join(tc.spec, DefaultSeparator)
			assert.ErrorIs(t, err, ErrEmptyKey)
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	t.Run("empty separator", func(t *testing.T) {
		_, err := Normalize(Scalar("foo"), "")
		assert.ErrorIs(t, err, ErrEmptySeparator)
	})

	t.Run("part without string form", func(t *testing.T) {
		_, err := Normalize(Sequence("foo", struct{ ID int }{ID: 1}), ".")
		assert.ErrorIs(t, err, ErrInvalidScalar)
	})
}

func TestJoin(t *testing.T) {
	testCases := []struct {
		name     string
		spec     Spec
		sep      string
		expected string
	}{
		{name: "flat key", spec: Strings("foo"), sep: ".", expected: "foo"},
		{name: "deep key", spec: Strings("foo.bar"), sep: ".", expected: "foo.bar"},
		{name: "multiple keys", spec: Strings("foo", "bar"), sep: ".", expected: "foo.bar"},
		{name: "extra separators", spec: Strings("..foo...", "..bar...baz.."), sep: ".", expected: "foo.bar.baz"},
		{name: "different separator", spec: Strings("foo-bar", "-baz"), sep: "-", expected: "foo-bar-baz"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			joined, err := Join(tc.spec, tc.sep)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, joined)
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	faker := gofakeit.New(42)

	for _, sep := range []string{".", "-", ":", "::"} {
		for i := 0; i < 50; i++ {
			parts := []string{
				sep + faker.Word() + sep,
				faker.Word() + sep + sep + faker.Username(),
				strings.Repeat(sep, faker.Number(0, 3)) + faker.Noun(),
			}

			first, err := Normalize(Strings(parts...), sep)
			require.NoError(t, err)

			joined, err := Join(Strings(parts...), sep)
			require.NoError(t, err)

			second, err := Normalize(Scalar(joined), sep)
			require.NoError(t, err)
			assert.Equal(t, first, second, "separator %q parts %q", sep, parts)
		}
	}
}

func TestSpecString(t *testing.T) {
	assert.Equal(t, "foo.bar", Scalar("foo.bar").String())
	assert.Equal(t, "[foo 1]", Sequence("foo", 1).String())
	assert.True(t, Scalar("foo").IsScalar())
	assert.False(t, Strings("foo").IsScalar())
}

func TestSequenceCopiesParts(t *testing.T) {
	parts := []any{"foo", "bar"}
	spec := Sequence(parts...)
	parts[0] = "changed"

	segments, err := Normalize(spec, DefaultSeparator)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "bar"}, segments)
}
