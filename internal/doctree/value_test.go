package doctree

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_MarshalKeepsKeyOrder(t *testing.T) {
	v := Mapping(
		Field{Key: "zeta", Value: Number("1.50")},
		Field{Key: "alpha", Value: Sequence(Bool(true), Null(), String("x\"y"))},
	)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1.5,"alpha":[true,null,"x\"y"]}`, string(out))
}

func TestValue_SetReplacesInPlace(t *testing.T) {
	v := Mapping(
		Field{Key: "a", Value: Number("1")},
		Field{Key: "b", Value: Number("2")},
		Field{Key: "a", Value: Number("3")},
	)

	require.Len(t, v.Fields, 2)
	assert.Equal(t, "a", v.Fields[0].Key)
	got, ok := v.Get("a")
	require.True(t, ok)
	assert.Equal(t, "3", got.Scalar)

	_, ok = v.Get("missing")
	assert.False(t, ok)
}

func TestValue_EmptyContainers(t *testing.T) {
	out, err := json.Marshal(Sequence(Mapping(), Sequence()))
	require.NoError(t, err)
	assert.Equal(t, `[{},[]]`, string(out))
}

func TestDocTree_Text(t *testing.T) {
	tree := &DocTree{Children: []*DocNode{
		{Title: "Page 1", Text: "one", Children: []*DocNode{{Text: "nested"}}},
		{Title: "Page 2"},
		{Text: "two"},
	}}
	assert.Equal(t, "one\nnested\ntwo", tree.Text())

	var empty *DocTree
	assert.Equal(t, "", empty.Text())
}

func TestCanonicalNumber(t *testing.T) {
	cases := map[string]string{
		"42":                   "42",
		"-0":                   "0",
		"1.50":                 "1.5",
		"1e2":                  "100",
		"1E+2":                 "100",
		"-2.50e-1":             "-0.25",
		"0.0":                  "0",
		"1e-7":                 "1e-07",
		"1e21":                 "1e+21",
		"12345678901234567890": "12345678901234567890",
		"1e999":                "1e999",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalNumber(in), "literal %s", in)
	}
}

func TestMappingBuilder_ManyKeysKeepOrder(t *testing.T) {
	b := NewMappingBuilder()
	for i := 0; i < 100000; i++ {
		b.Set(strconv.Itoa(i), Null())
	}
	b.Set("7", Bool(true))

	v := b.Value()
	require.Len(t, v.Fields, 100000)
	assert.Equal(t, "0", v.Fields[0].Key)
	assert.Equal(t, "99999", v.Fields[99999].Key)
	assert.Equal(t, "true", v.Fields[7].Value.Scalar)
}
