package depot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `
name: level
count: 3
ratio: 0.5
enabled: true
tags: [a, b, c]
nested:
  inner: {x: 1}
empty: null
`

func TestDocumentKinds(t *testing.T) {
	doc, err := NewDocument([]byte(sampleDocument))
	require.NoError(t, err)
	require.True(t, doc.IsObject())
	assert.Equal(t, 7, doc.Size())

	tests := []struct {
		key     string
		object  bool
		array   bool
		str     bool
		number  bool
		boolean bool
		null    bool
	}{
		{key: "name", str: true},
		{key: "count", number: true},
		{key: "ratio", number: true},
		{key: "enabled", boolean: true},
		{key: "tags", array: true},
		{key: "nested", object: true},
		{key: "empty", null: true},
		{key: "missing", null: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			defer doc.Enter(tt.key)()
			assert.Equal(t, tt.object, doc.IsObject())
			assert.Equal(t, tt.array, doc.IsArray())
			assert.Equal(t, tt.str, doc.IsString())
			assert.Equal(t, tt.number, doc.IsNumber())
			assert.Equal(t, tt.boolean, doc.IsBool())
			assert.Equal(t, tt.null, doc.IsNull())
		})
	}
	assert.True(t, doc.IsObject(), "Enter's exit restores the position")
}

func TestDocumentReads(t *testing.T) {
	doc, err := NewDocument([]byte(sampleDocument))
	require.NoError(t, err)

	read := func(key string, fn func()) {
		defer doc.Enter(key)()
		fn()
	}
	read("name", func() { assert.Equal(t, "level", doc.ReadString("x")) })
	read("count", func() { assert.Equal(t, int64(3), doc.ReadInt(-1)) })
	read("ratio", func() { assert.Equal(t, 0.5, doc.ReadFloat(-1)) })
	read("enabled", func() { assert.True(t, doc.ReadBool(false)) })

	// mismatched kinds fall back
	read("name", func() { assert.Equal(t, int64(-1), doc.ReadInt(-1)) })
	read("count", func() { assert.Equal(t, "x", doc.ReadString("x")) })
	read("missing", func() { assert.True(t, doc.ReadBool(true)) })

	read("nested", func() {
		defer doc.Enter("inner")()
		defer doc.Enter("x")()
		assert.Equal(t, 1.0, doc.ReadFloat(0))
	})
}

func TestDocumentIteration(t *testing.T) {
	doc, err := NewDocument([]byte(sampleDocument))
	require.NoError(t, err)

	var keys []string
	stopped := doc.ForEachInObject(func(key string) bool {
		keys = append(keys, key)
		return key == "enabled"
	})
	assert.True(t, stopped)
	assert.Equal(t, []string{"name", "count", "ratio", "enabled"}, keys)

	defer doc.Enter("tags")()
	var values []string
	stopped = doc.ForEachInArray(func(index int) bool {
		values = append(values, doc.ReadString(""))
		return false
	})
	assert.False(t, stopped)
	assert.Equal(t, []string{"a", "b", "c"}, values)

	func() {
		defer doc.EnterIndex(1)()
		assert.Equal(t, "b", doc.ReadString(""))
	}()
	func() {
		defer doc.EnterIndex(9)()
		assert.True(t, doc.IsNull())
	}()
	assert.False(t, doc.ForEachInObject(func(string) bool { return true }), "arrays have no keys")
}

func TestDocumentDecode(t *testing.T) {
	doc, err := NewDocument([]byte(`{"position": {"x": 4}, "none": null}`))
	require.NoError(t, err)

	pos := Position{X: 1, Y: 2}
	func() {
		defer doc.Enter("position")()
		require.NoError(t, doc.Decode(&pos))
	}()
	assert.Equal(t, Position{X: 4, Y: 2}, pos)

	func() {
		defer doc.Enter("none")()
		require.NoError(t, doc.Decode(&pos))
	}()
	assert.Equal(t, Position{X: 4, Y: 2}, pos, "null leaves the value untouched")
}

func TestDocumentEmptyAndInvalid(t *testing.T) {
	doc, err := NewDocument(nil)
	require.NoError(t, err)
	assert.True(t, doc.IsNull())
	assert.Equal(t, 0, doc.Size())

	_, err = NewDocument([]byte("a: [unterminated"))
	assert.Error(t, err)
}
