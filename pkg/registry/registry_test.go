package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGet(t *testing.T) {
	r := New("")
	require.NoError(t, r.Add(ClassDescriptor{Name: "Foo", File: "/p/test_a.py", Superclasses: []string{"Base"}}))

	d, ok := r.Get("Foo")
	require.True(t, ok)
	assert.Equal(t, "/p/test_a.py", d.File)
	assert.Equal(t, []string{"Base"}, d.Superclasses)

	_, ok = r.Get("Missing")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestGetDottedFallsBackToLastSegment(t *testing.T) {
	r := New(KeepLast)
	require.NoError(t, r.Add(ClassDescriptor{Name: "Mixin", File: "/p/test_m.py"}))

	d, ok := r.Get("tests.mixins.Mixin")
	require.True(t, ok)
	assert.Equal(t, "Mixin", d.Name)

	_, ok = r.Get("unittest.TestCase")
	assert.False(t, ok)
}

func TestCollisionPolicies(t *testing.T) {
	first := ClassDescriptor{Name: "Dup", File: "/p/test_a.py"}
	second := ClassDescriptor{Name: "Dup", File: "/p/test_b.py"}

	t.Run("last wins", func(t *testing.T) {
		r := New(KeepLast)
		require.NoError(t, r.Add(first))
		require.NoError(t, r.Add(second))
		d, _ := r.Get("Dup")
		assert.Equal(t, "/p/test_b.py", d.File)
		require.Len(t, r.Collisions(), 1)
		assert.Equal(t, Collision{Name: "Dup", Kept: "/p/test_b.py", Dropped: "/p/test_a.py"}, r.Collisions()[0])
	})

	t.Run("first wins", func(t *testing.T) {
		r := New(KeepFirst)
		require.NoError(t, r.Add(first))
		require.NoError(t, r.Add(second))
		d, _ := r.Get("Dup")
		assert.Equal(t, "/p/test_a.py", d.File)
		require.Len(t, r.Collisions(), 1)
		assert.Equal(t, "/p/test_b.py", r.Collisions()[0].Dropped)
	})

	t.Run("error", func(t *testing.T) {
		r := New(Reject)
		require.NoError(t, r.Add(first))
		err := r.Add(second)
		var collErr *CollisionError
		require.True(t, errors.As(err, &collErr))
		assert.Equal(t, "Dup", collErr.Name)
		assert.Contains(t, err.Error(), "test_b.py")
	})

	t.Run("same file is not a collision", func(t *testing.T) {
		r := New(Reject)
		require.NoError(t, r.Add(first))
		require.NoError(t, r.Add(ClassDescriptor{Name: "Dup", File: "/p/test_a.py", Methods: []string{"test_x"}}))
		d, _ := r.Get("Dup")
		assert.Equal(t, []string{"test_x"}, d.Methods)
		assert.Empty(t, r.Collisions())
	})
}

func TestReplaceFile(t *testing.T) {
	r := New(KeepLast)
	require.NoError(t, r.Add(ClassDescriptor{Name: "Foo", File: "/p/test_a.py", Superclasses: []string{"Base", "Helper"}}))
	require.NoError(t, r.Add(ClassDescriptor{Name: "Gone", File: "/p/test_a.py"}))
	require.NoError(t, r.Add(ClassDescriptor{Name: "Other", File: "/p/test_b.py"}))

	err := r.ReplaceFile("/p/test_a.py", []ClassDescriptor{
		{Name: "Foo", File: "/p/test_a.py", Superclasses: []string{"Base"}},
	})
	require.NoError(t, err)

	d, ok := r.Get("Foo")
	require.True(t, ok)
	assert.Equal(t, []string{"Base"}, d.Superclasses)
	_, ok = r.Get("Gone")
	assert.False(t, ok)
	assert.Equal(t, []string{"Foo", "Other"}, r.Names())
}

func TestAddCopiesDescriptor(t *testing.T) {
	r := New(KeepLast)
	desc := ClassDescriptor{Name: "Foo", File: "/p/test_a.py"}
	require.NoError(t, r.Add(desc))
	desc.File = "/elsewhere.py"

	d, _ := r.Get("Foo")
	assert.Equal(t, "/p/test_a.py", d.File)
}
