package visitor

import (
	"fmt"
	"weak"

	"go.uber.org/zap"

	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

// Rc 是可被多处共享持有的强引用，保存时同一对象只写出一次，加载后所有引用指向同一份对象。
type Rc[T any] struct {
	ptr *T
}

// NewRc 将 value 放入新的共享对象中，即使 T 是零大小类型，每次调用得到的对象也互不相同。
func NewRc[T any](value T) Rc[T] {
	return Rc[T]{ptr: allocShared(value)}
}

// RcFrom 用已有指针构造 Rc，指针相同的 Rc 视为同一对象。
// 零大小类型的不同变量可能共享同一地址，这类对象应使用 NewRc 创建。
func RcFrom[T any](ptr *T) Rc[T] {
	return Rc[T]{ptr: ptr}
}

func (r Rc[T]) Get() *T {
	return r.ptr
}

func (r Rc[T]) IsNil() bool {
	return r.ptr == nil
}

// Same 判断两个 Rc 是否指向同一对象。
func (r Rc[T]) Same(other Rc[T]) bool {
	return r.ptr == other.ptr
}

func (r Rc[T]) Downgrade() Weak[T] {
	return Weak[T]{ptr: makeWeak(r.ptr)}
}

// Weak 是不阻止对象被回收的弱引用，零值不指向任何对象。
type Weak[T any] struct {
	ptr weak.Pointer[T]
}

// Upgrade 尝试取得强引用，对象已回收或弱引用为空时返回 false。
func (w Weak[T]) Upgrade() (Rc[T], bool) {
	ptr := w.ptr.Value()
	return Rc[T]{ptr: ptr}, ptr != nil
}

// Arc 与 Rc 语义相同，但使用独立的标识表，与 Rc 的编号互不干扰。
type Arc[T any] struct {
	ptr *T
}

func NewArc[T any](value T) Arc[T] {
	return Arc[T]{ptr: allocShared(value)}
}

func ArcFrom[T any](ptr *T) Arc[T] {
	return Arc[T]{ptr: ptr}
}

func (a Arc[T]) Get() *T {
	return a.ptr
}

func (a Arc[T]) IsNil() bool {
	return a.ptr == nil
}

func (a Arc[T]) Same(other Arc[T]) bool {
	return a.ptr == other.ptr
}

func (a Arc[T]) Downgrade() WeakArc[T] {
	return WeakArc[T]{ptr: makeWeak(a.ptr)}
}

// WeakArc 是 Arc 对应的弱引用。
type WeakArc[T any] struct {
	ptr weak.Pointer[T]
}

func (w WeakArc[T]) Upgrade() (Arc[T], bool) {
	ptr := w.ptr.Value()
	return Arc[T]{ptr: ptr}, ptr != nil
}

// allocShared 为共享对象分配独立的存储。
// 零大小的值在 Go 中可能共用同一地址，附加的填充字节保证每个对象的地址唯一。
func allocShared[T any](value T) *T {
	box := &struct {
		value T
		_     byte
	}{value: value}
	return &box.value
}

func makeWeak[T any](ptr *T) weak.Pointer[T] {
	if ptr == nil {
		return weak.Pointer[T]{}
	}
	return weak.Make(ptr)
}

// identityMap 记录一次会话内共享对象与编号的对应关系。
// 写模式下以对象指针为键分配从 1 开始的单调编号；读模式下以编号为键保存重建出的对象。
type identityMap struct {
	ids     map[any]uint64
	objects map[uint64]any
	next    uint64
}

func newIdentityMap() *identityMap {
	return &identityMap{
		ids:     make(map[any]uint64),
		objects: make(map[uint64]any),
	}
}

// idFor 返回 ptr 的编号，fresh 表示该对象本次会话中第一次出现。
func (m *identityMap) idFor(ptr any) (id uint64, fresh bool) {
	if id, ok := m.ids[ptr]; ok {
		return id, false
	}
	m.next++
	m.ids[ptr] = m.next
	return m.next, true
}

func (m *identityMap) len() int {
	return max(len(m.ids), len(m.objects))
}

// visitShared 读写共享对象 region{Id u64, <dataName>}。
// 读模式下新对象会先登记到标识表再递归读取，循环引用因此能在已登记的对象上终止。
func visitShared[T any](v *Visitor, ids *identityMap, name, dataName string, ptr **T, nullable bool, fn VisitFunc[T]) error {
	return v.InRegion(name, func() error {
		if !v.reading {
			var (
				id    uint64
				fresh bool
			)
			if *ptr != nil {
				id, fresh = ids.idFor(*ptr)
			} else if !nullable {
				return merr.WrapErrUnexpectedRcNullIndex(name, "cannot save nil strong reference")
			}
			if err := VisitValue(v, "Id", &id); err != nil {
				return err
			}
			if !fresh {
				return nil
			}
			return fn(v, dataName, *ptr)
		}

		var id uint64
		if err := VisitValue(v, "Id", &id); err != nil {
			return err
		}
		if id == 0 {
			if !nullable {
				return merr.WrapErrUnexpectedRcNullIndex(name)
			}
			*ptr = nil
			return nil
		}

		if obj, ok := ids.objects[id]; ok {
			typed, ok := obj.(*T)
			if !ok {
				return merr.WrapErrTypeMismatch(id, fmt.Sprintf("%T", *ptr), fmt.Sprintf("%T", obj))
			}
			v.Logger().Debug("shared object resolved", zap.Uint64("id", id), zap.String("name", name))
			*ptr = typed
			return nil
		}

		var zero T
		fresh := allocShared(zero)
		ids.objects[id] = fresh
		*ptr = fresh
		return fn(v, dataName, fresh)
	})
}

// VisitRc 访问 Rc[T]，T 的指针需实现 Visit。
func VisitRc[T any, PT interface {
	*T
	Visit
}](v *Visitor, name string, rc *Rc[T]) error {
	return VisitRcWith(v, name, rc, VisitObject[T, PT])
}

// VisitRcWith 使用 fn 访问 Rc 指向的对象。
func VisitRcWith[T any](v *Visitor, name string, rc *Rc[T], fn VisitFunc[T]) error {
	return visitShared(v, v.rcMap, name, "RcData", &rc.ptr, false, fn)
}

// VisitWeak 访问 Weak[T]。空弱引用写为 Id 0，读到 Id 0 时保持为空。
func VisitWeak[T any, PT interface {
	*T
	Visit
}](v *Visitor, name string, w *Weak[T]) error {
	return VisitWeakWith(v, name, w, VisitObject[T, PT])
}

func VisitWeakWith[T any](v *Visitor, name string, w *Weak[T], fn VisitFunc[T]) error {
	ptr := w.ptr.Value()
	if err := visitShared(v, v.rcMap, name, "RcData", &ptr, true, fn); err != nil {
		return err
	}
	if v.reading {
		w.ptr = makeWeak(ptr)
	}
	return nil
}

// VisitArc 访问 Arc[T]，T 的指针需实现 Visit。
func VisitArc[T any, PT interface {
	*T
	Visit
}](v *Visitor, name string, arc *Arc[T]) error {
	return VisitArcWith(v, name, arc, VisitObject[T, PT])
}

func VisitArcWith[T any](v *Visitor, name string, arc *Arc[T], fn VisitFunc[T]) error {
	return visitShared(v, v.arcMap, name, "ArcData", &arc.ptr, false, fn)
}

func VisitWeakArc[T any, PT interface {
	*T
	Visit
}](v *Visitor, name string, w *WeakArc[T]) error {
	return VisitWeakArcWith(v, name, w, VisitObject[T, PT])
}

func VisitWeakArcWith[T any](v *Visitor, name string, w *WeakArc[T], fn VisitFunc[T]) error {
	ptr := w.ptr.Value()
	if err := visitShared(v, v.arcMap, name, "ArcData", &ptr, true, fn); err != nil {
		return err
	}
	if v.reading {
		w.ptr = makeWeak(ptr)
	}
	return nil
}

// SharedCount 返回本次会话中 Rc 与 Arc 标识表登记的对象数量。
func (v *Visitor) SharedCount() (rc, arc int) {
	return v.rcMap.len(), v.arcMap.len()
}
