package visitor

import (
	"github.com/lk2023060901/danmu-visitor/pkg/pool"
)

// RootName 是根节点的固定名称。
const RootName = "__ROOT__"

// Node 对应一个 region，保存有序字段与有序子节点。
// 节点只能通过 EnterRegion 创建，由 Visitor 的节点池持有。
type Node struct {
	Name     string
	Fields   []Field
	Parent   pool.Handle[Node]
	Children []pool.Handle[Node]
}

// FindField 在节点字段中按名称线性查找。
func (n *Node) FindField(name string) (*Field, bool) {
	for i := range n.Fields {
		if n.Fields[i].Name == name {
			return &n.Fields[i], true
		}
	}
	return nil, false
}
