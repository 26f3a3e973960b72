package visitor

import (
	"bytes"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/danmu-visitor/internal/json"
)

func textTree(t *testing.T) *Visitor {
	v := New()
	require.NoError(t, writeTextTree(v))
	return v
}

func writeTextTree(v *Visitor) error {
	return v.InRegion("Obj", func() error {
		x := uint32(5)
		flag := true
		if err := VisitValue(v, "X", &x); err != nil {
			return err
		}
		if err := VisitValue(v, "Flag", &flag); err != nil {
			return err
		}
		return v.InRegion("Inner", func() error {
			pos := math32.Vector2{X: 1.5, Y: -2}
			return VisitValue(v, "Pos", &pos)
		})
	})
}

func TestSaveText(t *testing.T) {
	expected := "__ROOT__[Fields=0, Children=1]: \n" +
		"\tObj[Fields=2, Children=1]: X<u32 = 5>, Flag<bool = true>, \n" +
		"\t\tInner[Fields=1, Children=0]: Pos<vec2 = 1.5; -2>, \n"

	v := textTree(t)
	assert.Equal(t, expected, v.SaveText())

	var buf bytes.Buffer
	require.NoError(t, v.SaveTextTo(&buf))
	assert.Equal(t, expected, buf.String())

	r := roundTrip(t, writeTextTree)
	assert.Equal(t, expected, r.SaveText())
}

func TestSaveJSON(t *testing.T) {
	data, err := textTree(t).SaveJSON(false)
	require.NoError(t, err)

	var tree struct {
		Name     string `json:"name"`
		Children []struct {
			Name   string `json:"name"`
			Fields []struct {
				Name  string `json:"name"`
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal(data, &tree))
	assert.Equal(t, RootName, tree.Name)
	require.Len(t, tree.Children, 1)
	obj := tree.Children[0]
	assert.Equal(t, "Obj", obj.Name)
	require.Len(t, obj.Fields, 2)
	assert.Equal(t, "X", obj.Fields[0].Name)
	assert.Equal(t, "u32", obj.Fields[0].Type)
	assert.Equal(t, "5", obj.Fields[0].Value)

	indented, err := textTree(t).SaveJSON(true)
	require.NoError(t, err)
	assert.Contains(t, string(indented), "\n  \"name\"")
}
