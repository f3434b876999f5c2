package rewrite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_module.py")
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	require.NoError(t, os.Chmod(path, mode))
	return path
}

func TestRemoveSuperclass_Shapes(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		superclass string
		want       string
		remaining  []string
	}{
		{
			name:       "trailing comma",
			header:     "class Foo(Helper, BaseTestCase):",
			superclass: "Helper",
			want:       "class Foo(BaseTestCase):",
			remaining:  []string{"BaseTestCase"},
		},
		{
			name:       "leading comma",
			header:     "class Foo(BaseTestCase, Helper):",
			superclass: "Helper",
			want:       "class Foo(BaseTestCase):",
			remaining:  []string{"BaseTestCase"},
		},
		{
			name:       "sole element",
			header:     "class Foo(Helper):",
			superclass: "Helper",
			want:       "class Foo():",
			remaining:  nil,
		},
		{
			name:       "space before parenthesis",
			header:     "class Foo (Base, Helper):",
			superclass: "Helper",
			want:       "class Foo (Base):",
			remaining:  []string{"Base"},
		},
		{
			name:       "middle keeps order",
			header:     "class Foo(A, Helper, B, C):",
			superclass: "Helper",
			want:       "class Foo(A, B, C):",
			remaining:  []string{"A", "B", "C"},
		},
		{
			name:       "prefix-named sibling untouched",
			header:     "class Foo(HelperMixin, Helper):",
			superclass: "Helper",
			want:       "class Foo(HelperMixin):",
			remaining:  []string{"HelperMixin"},
		},
		{
			name:       "dotted sibling untouched",
			header:     "class Foo(pkg.Helper, Helper):",
			superclass: "Helper",
			want:       "class Foo(pkg.Helper):",
			remaining:  []string{"pkg.Helper"},
		},
		{
			name:       "dotted target",
			header:     "class Foo(BaseTestCase, mixins.Extra):",
			superclass: "mixins.Extra",
			want:       "class Foo(BaseTestCase):",
			remaining:  []string{"BaseTestCase"},
		},
		{
			name:       "no spaces",
			header:     "class Foo(A,Helper,B):",
			superclass: "Helper",
			want:       "class Foo(A,B):",
			remaining:  []string{"A", "B"},
		},
		{
			name:       "multiline header",
			header:     "class Foo(\n    BaseTestCase,\n    Helper,\n):",
			superclass: "Helper",
			want:       "class Foo(\n    BaseTestCase,\n    ):",
			remaining:  []string{"BaseTestCase"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := "import unittest\n\n\n" + tt.header + "\n    def test_a(self):\n        pass\n"
			path := writeModule(t, source, 0644)

			res := New().RemoveSuperclass(path, "Foo", tt.superclass)
			require.NoError(t, res.Err())
			assert.True(t, res.Changed)
			assert.Equal(t, tt.header, res.Before)
			assert.Equal(t, tt.want, res.After)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "import unittest\n\n\n"+tt.want+"\n    def test_a(self):\n        pass\n", string(got))

			re := headerPattern("Foo")
			m := re.FindStringSubmatch(string(got))
			require.NotNil(t, m)
			supers := ParseSuperclasses(m[re.SubexpIndex("super")])
			assert.Equal(t, tt.remaining, supers)
			assert.NotContains(t, supers, tt.superclass)
		})
	}
}

func TestRemoveSuperclass_OnlyTargetClassChanges(t *testing.T) {
	source := `class Helper(object):
    pass


class Foo(BaseTestCase, Helper):
    def test_a(self):
        pass


class FooBar(BaseTestCase, Helper):
    def test_b(self):
        pass
`
	path := writeModule(t, source, 0644)

	res := New().RemoveSuperclass(path, "Foo", "Helper")
	require.NoError(t, res.Err())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), "class Foo(BaseTestCase):\n")
	assert.Contains(t, string(got), "class FooBar(BaseTestCase, Helper):\n")
	assert.Contains(t, string(got), "class Helper(object):\n")
}

func TestRemoveSuperclass_Refusals(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		class      string
		superclass string
		reason     Reason
	}{
		{
			name:       "class missing",
			source:     "class Other(Base):\n    pass\n",
			class:      "Foo",
			superclass: "Base",
			reason:     ReasonClassNotFound,
		},
		{
			name:       "nested class is not a module-level header",
			source:     "class Outer(object):\n    class Foo(Base):\n        pass\n",
			class:      "Foo",
			superclass: "Base",
			reason:     ReasonClassNotFound,
		},
		{
			name:       "superclass missing",
			source:     "class Foo(BaseTestCase, Helper):\n    pass\n",
			class:      "Foo",
			superclass: "Mixin",
			reason:     ReasonSuperclassNotFound,
		},
		{
			name:       "substring is not a member",
			source:     "class Foo(BaseTestCase, HelperMixin):\n    pass\n",
			class:      "Foo",
			superclass: "Helper",
			reason:     ReasonSuperclassNotFound,
		},
		{
			name:       "duplicate headers",
			source:     "class Foo(Base, Helper):\n    pass\n\n\nclass Foo(Base, Helper):\n    pass\n",
			class:      "Foo",
			superclass: "Helper",
			reason:     ReasonAmbiguousHeader,
		},
		{
			name:       "keyword arguments are not matched",
			source:     "class Foo(Base, metaclass=Meta):\n    pass\n",
			class:      "Foo",
			superclass: "Base",
			reason:     ReasonClassNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeModule(t, tt.source, 0644)

			res := New().RemoveSuperclass(path, tt.class, tt.superclass)
			assert.False(t, res.Changed)
			assert.Equal(t, tt.reason, res.Reason)

			err := res.Err()
			require.Error(t, err)
			var rerr *Error
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, tt.reason, rerr.Reason)

			got, readErr := os.ReadFile(path)
			require.NoError(t, readErr)
			assert.Equal(t, tt.source, string(got), "refused rewrites must not touch the file")
		})
	}
}

func TestRemoveSuperclass_MissingFile(t *testing.T) {
	res := New().RemoveSuperclass(filepath.Join(t.TempDir(), "missing.py"), "Foo", "Helper")
	assert.Equal(t, ReasonIO, res.Reason)
	assert.True(t, errors.Is(res.Err(), os.ErrNotExist))
}

func TestRemoveSuperclass_PreservesModeAndLeavesNoTempFiles(t *testing.T) {
	path := writeModule(t, "class Foo(Base, Helper):\n    pass\n", 0640)

	res := New().RemoveSuperclass(path, "Foo", "Helper")
	require.NoError(t, res.Err())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "test_module.py", entries[0].Name())
}

func TestRemoveFromSource_DoesNotTouchOtherText(t *testing.T) {
	source := "# class Foo(Base, Helper): in a comment\nclass Foo(Base, Helper):\n    x = 'Helper, Base'\n"

	got, res := RemoveFromSource(source, "Foo", "Helper")
	require.NoError(t, res.Err())
	assert.Equal(t, "# class Foo(Base, Helper): in a comment\nclass Foo(Base):\n    x = 'Helper, Base'\n", got)
}

func TestRemoveFromSource_SpacedHeaderDoesNotMatchLongerName(t *testing.T) {
	source := "class FooBar (Base, Helper):\n    pass\n\n\nclass Foo (Base, Helper):\n    pass\n"

	got, res := RemoveFromSource(source, "Foo", "Helper")
	require.NoError(t, res.Err())
	assert.Equal(t, "class Foo (Base, Helper):", res.Before)
	assert.Equal(t, "class FooBar (Base, Helper):\n    pass\n\n\nclass Foo (Base):\n    pass\n", got)
}

func TestParseSuperclasses(t *testing.T) {
	assert.Equal(t, []string{"A", "b.C", "D"}, ParseSuperclasses(" A ,\n  b.C,D, "))
	assert.Nil(t, ParseSuperclasses(""))
	assert.Nil(t, ParseSuperclasses("  \n "))
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Result{Changed: true}.Err())
	err := Result{Reason: ReasonClassNotFound}.Err()
	assert.EqualError(t, err, "class_not_found")
}
