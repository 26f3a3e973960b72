package visitor

import (
	"reflect"
)

// Blackboard 是按类型索引的会话上下文，
// 供 Visit 实现获取外部服务（例如资源管理器），而不依赖全局状态。
type Blackboard struct {
	items map[reflect.Type]any
}

func NewBlackboard() *Blackboard {
	return &Blackboard{items: make(map[reflect.Type]any)}
}

// Register 以 value 的动态类型登记，同类型重复登记时覆盖。
func (b *Blackboard) Register(value any) {
	b.items[reflect.TypeOf(value)] = value
}

// Len 返回已登记的条目数。
func (b *Blackboard) Len() int {
	return len(b.items)
}

// RegisterAs 以类型参数 T 登记，T 可以是接口类型。
func RegisterAs[T any](b *Blackboard, value T) {
	b.items[reflect.TypeFor[T]()] = value
}

// BlackboardGet 取出以类型 T 登记的值。
func BlackboardGet[T any](v *Visitor) (T, bool) {
	value, ok := v.blackboard.items[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := value.(T)
	return typed, ok
}
