package visitor

import (
	"io"
	"strconv"
	"strings"

	"cogentcore.org/core/base/indent"

	"github.com/lk2023060901/danmu-visitor/internal/json"
	"github.com/lk2023060901/danmu-visitor/pkg/pool"
	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

// SaveText 返回整棵树的可读文本形式，仅用于诊断，不能被加载回来。
//
// 每个节点一行：缩进 + "name[Fields=N, Children=M]: " + 各字段 "name<tag = value>, "。
func (v *Visitor) SaveText() string {
	var sb strings.Builder
	v.printNode(&sb, v.root, 0)
	return sb.String()
}

// SaveTextTo 将文本形式写入 w。
func (v *Visitor) SaveTextTo(w io.Writer) error {
	if _, err := io.WriteString(w, v.SaveText()); err != nil {
		return merr.WrapErrIo("write text", err)
	}
	return nil
}

func (v *Visitor) printNode(sb *strings.Builder, handle pool.Handle[Node], depth int) {
	node := v.nodes.Borrow(handle)
	sb.WriteString(indent.Tabs(depth))
	sb.WriteString(node.Name)
	sb.WriteString("[Fields=")
	sb.WriteString(strconv.Itoa(len(node.Fields)))
	sb.WriteString(", Children=")
	sb.WriteString(strconv.Itoa(len(node.Children)))
	sb.WriteString("]: ")
	for _, f := range node.Fields {
		sb.WriteString(f.String())
		sb.WriteString(", ")
	}
	sb.WriteByte('\n')
	for _, child := range node.Children {
		v.printNode(sb, child, depth+1)
	}
}

type jsonField struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

type jsonNode struct {
	Name     string      `json:"name"`
	Fields   []jsonField `json:"fields,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

func (v *Visitor) jsonTree(handle pool.Handle[Node]) *jsonNode {
	node := v.nodes.Borrow(handle)
	out := &jsonNode{Name: node.Name}
	for _, f := range node.Fields {
		out.Fields = append(out.Fields, jsonField{
			Name:  f.Name,
			Type:  f.Kind.Tag().String(),
			Value: f.Kind.format(),
		})
	}
	for _, child := range node.Children {
		out.Children = append(out.Children, v.jsonTree(child))
	}
	return out
}

// SaveJSON 以 JSON 形式导出整棵树，与 SaveText 一样只用于诊断和外部工具查看。
func (v *Visitor) SaveJSON(indented bool) ([]byte, error) {
	tree := v.jsonTree(v.root)
	var (
		data []byte
		err  error
	)
	if indented {
		data, err = json.MarshalIndent(tree, "", "  ")
	} else {
		data, err = json.Marshal(tree)
	}
	if err != nil {
		return nil, merr.WrapErrIo("marshal json", err)
	}
	return data, nil
}
