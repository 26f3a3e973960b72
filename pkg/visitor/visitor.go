package visitor

import (
	"go.uber.org/zap"

	"github.com/lk2023060901/danmu-visitor/pkg/log"
	"github.com/lk2023060901/danmu-visitor/pkg/pool"
	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

// Flags 影响 Visit 实现的行为。
type Flags uint32

const (
	FlagNone Flags = 0
	// FlagSerializeEverything 要求可选字段即使为零值也写出。
	FlagSerializeEverything Flags = 1 << 1
)

func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// Visitor 是一次保存或加载过程的会话对象。
//
// 写模式下由 New 创建，Visit 调用按顺序构建节点树，最后通过 SaveBinary 等方法输出；
// 读模式下由 LoadBinary 等方法一次性解码出整棵树，再由同样顺序的 Visit 调用读回数据。
// 读写模式在会话生命周期内固定不变。Visitor 不是并发安全的。
type Visitor struct {
	log.Binder

	nodes   *pool.Pool[Node]
	rcMap   *identityMap
	arcMap  *identityMap
	reading bool
	current pool.Handle[Node]
	root    pool.Handle[Node]

	blackboard *Blackboard
	flags      Flags
}

// New 创建一个写模式的 Visitor，游标位于根节点。
func New() *Visitor {
	v := newVisitor(false)
	v.root = v.nodes.Spawn(Node{Name: RootName})
	v.current = v.root
	return v
}

func newVisitor(reading bool) *Visitor {
	return &Visitor{
		nodes:      pool.New[Node](),
		rcMap:      newIdentityMap(),
		arcMap:     newIdentityMap(),
		reading:    reading,
		blackboard: NewBlackboard(),
	}
}

// IsReading 返回当前会话是否为读模式。
func (v *Visitor) IsReading() bool {
	return v.reading
}

func (v *Visitor) Flags() Flags {
	return v.flags
}

func (v *Visitor) SetFlags(flags Flags) {
	v.flags = flags
}

// Blackboard 返回会话级的类型化上下文。
func (v *Visitor) Blackboard() *Blackboard {
	return v.blackboard
}

// NodeCount 返回会话中节点总数，包括根节点。
func (v *Visitor) NodeCount() int {
	return v.nodes.AliveCount()
}

// Root 返回根节点。
func (v *Visitor) Root() *Node {
	return v.nodes.Borrow(v.root)
}

func (v *Visitor) currentNode() (*Node, error) {
	node, ok := v.nodes.TryBorrow(v.current)
	if !ok {
		return nil, merr.WrapErrInvalidCurrentNode(v.current)
	}
	return node, nil
}

// CurrentNode 返回游标所在节点。
func (v *Visitor) CurrentNode() (*Node, error) {
	return v.currentNode()
}

// CurrentRegion 返回游标所在 region 的名称。
func (v *Visitor) CurrentRegion() (string, bool) {
	node, ok := v.nodes.TryBorrow(v.current)
	if !ok {
		return "", false
	}
	return node.Name, true
}

// FindNode 在当前节点的直接子节点中按名称查找。
func (v *Visitor) FindNode(name string) (*Node, bool) {
	handle, ok := v.findChild(name)
	if !ok {
		return nil, false
	}
	return v.nodes.Borrow(handle), true
}

// FindField 在当前节点上按名称查找字段。
func (v *Visitor) FindField(name string) (*Field, bool) {
	node, ok := v.nodes.TryBorrow(v.current)
	if !ok {
		return nil, false
	}
	return node.FindField(name)
}

func (v *Visitor) findChild(name string) (pool.Handle[Node], bool) {
	node, ok := v.nodes.TryBorrow(v.current)
	if !ok {
		return pool.None[Node](), false
	}
	for _, child := range node.Children {
		if v.nodes.Borrow(child).Name == name {
			return child, true
		}
	}
	return pool.None[Node](), false
}

// EnterRegion 进入当前节点下名为 name 的子 region。
//
// 写模式下同名子节点已存在时返回 ErrRegionAlreadyExists，否则创建并进入；
// 读模式下找不到同名子节点时返回 ErrRegionDoesNotExist。出错时游标不移动。
func (v *Visitor) EnterRegion(name string) error {
	node, err := v.currentNode()
	if err != nil {
		return err
	}

	child, exists := v.findChild(name)
	if v.reading {
		if !exists {
			v.Logger().Debug("region does not exist", log.FieldRegion(name), zap.String("parent", node.Name))
			return merr.WrapErrRegionDoesNotExist(name)
		}
		v.current = child
		return nil
	}

	if exists {
		v.Logger().Debug("region already exists", log.FieldRegion(name), zap.String("parent", node.Name))
		return merr.WrapErrRegionAlreadyExists(name)
	}
	child = v.nodes.Spawn(Node{Name: name, Parent: v.current})
	node.Children = append(node.Children, child)
	v.current = child
	return nil
}

// LeaveRegion 返回父节点，游标已在根节点时返回 ErrNoActiveNode 且不移动。
func (v *Visitor) LeaveRegion() error {
	node, err := v.currentNode()
	if err != nil {
		return err
	}
	if node.Parent.IsNone() {
		return merr.WrapErrNoActiveNode("leave region " + node.Name)
	}
	v.current = node.Parent
	return nil
}

// InRegion 进入 region 执行 fn，无论 fn 是否出错都会离开该 region。
func (v *Visitor) InRegion(name string, fn func() error) error {
	if err := v.EnterRegion(name); err != nil {
		return err
	}
	err := fn()
	if leaveErr := v.LeaveRegion(); err == nil {
		err = leaveErr
	}
	return err
}

// Visit 以 name 访问一个实现了 Visit 的对象。
func (v *Visitor) Visit(name string, value Visit) error {
	return value.Visit(name, v)
}

// Rewind 将游标移回根节点，读模式下可据此重复读取。
func (v *Visitor) Rewind() {
	v.current = v.root
}
