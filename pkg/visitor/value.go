package visitor

import (
	"bytes"
	"fmt"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"

	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

// Visit 是参与保存与加载的类型需要实现的唯一方法。
//
// 同一个实现同时服务于读写两个方向：写模式下把自身写入 v，读模式下从 v 读回自身。
// 实现必须在两个方向上以完全相同的顺序调用 EnterRegion、字段访问与 LeaveRegion。
type Visit interface {
	Visit(name string, v *Visitor) error
}

// VisitFunc 访问 *T 的函数，容器类访问通过它访问元素。
type VisitFunc[T any] func(v *Visitor, name string, value *T) error

// Leaf 是可以直接存为字段的叶子类型。
type Leaf interface {
	bool | uint8 | int8 | uint16 | int16 | uint32 | int32 | uint64 | int64 |
		float32 | float64 |
		math32.Vector2 | math32.Vector3 | math32.Vector4 | math32.Quat |
		math32.Matrix3 | math32.Matrix4 |
		[]byte | uuid.UUID
}

// VisitValue 读写一个叶子字段。
//
// 写模式下向当前节点追加字段，同名字段已存在时返回 ErrFieldAlreadyExists；
// 读模式下按名称查找字段并校验类型标记后覆盖 *value。
func VisitValue[T Leaf](v *Visitor, name string, value *T) error {
	node, err := v.currentNode()
	if err != nil {
		return err
	}

	field, exists := node.FindField(name)
	if v.reading {
		if !exists {
			return merr.WrapErrFieldDoesNotExist(name)
		}
		if !assignKind(field.Kind, value) {
			return merr.WrapErrFieldTypeDoesNotMatch(name, kindOf(value).Tag(), field.Kind.Tag())
		}
		return nil
	}

	if exists {
		return merr.WrapErrFieldAlreadyExists(name)
	}
	node.Fields = append(node.Fields, Field{Name: name, Kind: kindOf(value)})
	return nil
}

// VisitObject 访问指针实现了 Visit 的对象，可作为容器的元素访问函数，
// 例如 VisitSlice(v, "Objects", &objs, VisitObject[Foo])。
func VisitObject[T any, PT interface {
	*T
	Visit
}](v *Visitor, name string, value *T) error {
	return PT(value).Visit(name, v)
}

// VisitAny 根据 value 的动态类型分派到对应的访问函数。
// value 必须是叶子类型的指针或 Visit 的实现。
func VisitAny(v *Visitor, name string, value any) error {
	switch x := value.(type) {
	case Visit:
		return x.Visit(name, v)
	case *bool:
		return VisitValue(v, name, x)
	case *uint8:
		return VisitValue(v, name, x)
	case *int8:
		return VisitValue(v, name, x)
	case *uint16:
		return VisitValue(v, name, x)
	case *int16:
		return VisitValue(v, name, x)
	case *uint32:
		return VisitValue(v, name, x)
	case *int32:
		return VisitValue(v, name, x)
	case *uint64:
		return VisitValue(v, name, x)
	case *int64:
		return VisitValue(v, name, x)
	case *float32:
		return VisitValue(v, name, x)
	case *float64:
		return VisitValue(v, name, x)
	case *math32.Vector2:
		return VisitValue(v, name, x)
	case *math32.Vector3:
		return VisitValue(v, name, x)
	case *math32.Vector4:
		return VisitValue(v, name, x)
	case *math32.Quat:
		return VisitValue(v, name, x)
	case *math32.Matrix3:
		return VisitValue(v, name, x)
	case *math32.Matrix4:
		return VisitValue(v, name, x)
	case *[]byte:
		return VisitValue(v, name, x)
	case *uuid.UUID:
		return VisitValue(v, name, x)
	case *string:
		return VisitString(v, name, x)
	default:
		return merr.WrapErrUser(fmt.Sprintf("type %T does not support visiting", value))
	}
}

func kindOf(value any) FieldKind {
	switch x := value.(type) {
	case *bool:
		return KindBool(*x)
	case *uint8:
		return KindU8(*x)
	case *int8:
		return KindI8(*x)
	case *uint16:
		return KindU16(*x)
	case *int16:
		return KindI16(*x)
	case *uint32:
		return KindU32(*x)
	case *int32:
		return KindI32(*x)
	case *uint64:
		return KindU64(*x)
	case *int64:
		return KindI64(*x)
	case *float32:
		return KindF32(*x)
	case *float64:
		return KindF64(*x)
	case *math32.Vector2:
		return KindVector2(*x)
	case *math32.Vector3:
		return KindVector3(*x)
	case *math32.Vector4:
		return KindVector4(*x)
	case *math32.Quat:
		return KindUnitQuaternion(*x)
	case *math32.Matrix3:
		return KindMatrix3(*x)
	case *math32.Matrix4:
		return KindMatrix4(*x)
	case *[]byte:
		return KindData(bytes.Clone(*x))
	case *uuid.UUID:
		return KindUuid(*x)
	}
	panic(fmt.Sprintf("visitor: %T is not a leaf type", value))
}

// assignKind 在类型标记匹配时把字段值写入 dst。
func assignKind(kind FieldKind, dst any) bool {
	switch d := dst.(type) {
	case *bool:
		k, ok := kind.(KindBool)
		if ok {
			*d = bool(k)
		}
		return ok
	case *uint8:
		k, ok := kind.(KindU8)
		if ok {
			*d = uint8(k)
		}
		return ok
	case *int8:
		k, ok := kind.(KindI8)
		if ok {
			*d = int8(k)
		}
		return ok
	case *uint16:
		k, ok := kind.(KindU16)
		if ok {
			*d = uint16(k)
		}
		return ok
	case *int16:
		k, ok := kind.(KindI16)
		if ok {
			*d = int16(k)
		}
		return ok
	case *uint32:
		k, ok := kind.(KindU32)
		if ok {
			*d = uint32(k)
		}
		return ok
	case *int32:
		k, ok := kind.(KindI32)
		if ok {
			*d = int32(k)
		}
		return ok
	case *uint64:
		k, ok := kind.(KindU64)
		if ok {
			*d = uint64(k)
		}
		return ok
	case *int64:
		k, ok := kind.(KindI64)
		if ok {
			*d = int64(k)
		}
		return ok
	case *float32:
		k, ok := kind.(KindF32)
		if ok {
			*d = float32(k)
		}
		return ok
	case *float64:
		k, ok := kind.(KindF64)
		if ok {
			*d = float64(k)
		}
		return ok
	case *math32.Vector2:
		k, ok := kind.(KindVector2)
		if ok {
			*d = math32.Vector2(k)
		}
		return ok
	case *math32.Vector3:
		k, ok := kind.(KindVector3)
		if ok {
			*d = math32.Vector3(k)
		}
		return ok
	case *math32.Vector4:
		k, ok := kind.(KindVector4)
		if ok {
			*d = math32.Vector4(k)
		}
		return ok
	case *math32.Quat:
		k, ok := kind.(KindUnitQuaternion)
		if ok {
			*d = math32.Quat(k)
		}
		return ok
	case *math32.Matrix3:
		k, ok := kind.(KindMatrix3)
		if ok {
			*d = math32.Matrix3(k)
		}
		return ok
	case *math32.Matrix4:
		k, ok := kind.(KindMatrix4)
		if ok {
			*d = math32.Matrix4(k)
		}
		return ok
	case *[]byte:
		k, ok := kind.(KindData)
		if ok {
			*d = bytes.Clone(k)
		}
		return ok
	case *uuid.UUID:
		k, ok := kind.(KindUuid)
		if ok {
			*d = uuid.UUID(k)
		}
		return ok
	}
	return false
}
