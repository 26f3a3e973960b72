package visitor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// roundTrip 在写模式下执行 write，保存为二进制后再加载为读模式的 Visitor。
func roundTrip(t *testing.T, write func(v *Visitor) error) *Visitor {
	t.Helper()
	w := New()
	require.NoError(t, write(w))
	data, err := w.SaveBinaryToBytes()
	require.NoError(t, err)
	r, err := LoadFromBytes(data)
	require.NoError(t, err)
	require.True(t, r.IsReading())
	return r
}

type flatNode struct {
	Path   string
	Fields []Field
}

// flatten 按先序展开整棵树，便于比较两棵树是否一致。
func flatten(v *Visitor) []flatNode {
	var out []flatNode
	var walk func(node *Node, path string)
	walk = func(node *Node, path string) {
		out = append(out, flatNode{Path: path, Fields: node.Fields})
		for _, child := range node.Children {
			c := v.nodes.Borrow(child)
			walk(c, path+"/"+c.Name)
		}
	}
	walk(v.Root(), RootName)
	return out
}
