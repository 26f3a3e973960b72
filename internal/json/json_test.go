package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string            `json:"name"`
	Count  int               `json:"count"`
	Labels map[string]string `json:"labels,omitempty"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := sample{Name: "root", Count: 3, Labels: map[string]string{"b": "2", "a": "1"}}
	data, err := Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"root","count":3,"labels":{"a":"1","b":"2"}}`, string(data))
	assert.True(t, Valid(data))

	var out sample
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalIndent(t *testing.T) {
	data, err := MarshalIndent(sample{Name: "x"}, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"name\": \"x\"")
}

func TestInvalid(t *testing.T) {
	assert.False(t, Valid([]byte(`{"name":`)))
	var out sample
	assert.Error(t, Unmarshal([]byte(`{"name":`), &out))
}
