package visitor

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"
)

// FieldTag 是字段值在二进制格式中的类型标记。
// 数值即为线上格式的一部分，不允许调整顺序或复用。
type FieldTag uint8

const (
	TagU8             FieldTag = 1
	TagI8             FieldTag = 2
	TagU16            FieldTag = 3
	TagI16            FieldTag = 4
	TagU32            FieldTag = 5
	TagI32            FieldTag = 6
	TagU64            FieldTag = 7
	TagI64            FieldTag = 8
	TagF32            FieldTag = 9
	TagF64            FieldTag = 10
	TagVector3        FieldTag = 11
	TagUnitQuaternion FieldTag = 12
	TagMatrix4        FieldTag = 13
	TagData           FieldTag = 14
	TagBool           FieldTag = 15
	TagMatrix3        FieldTag = 16
	TagVector2        FieldTag = 17
	TagVector4        FieldTag = 18
	TagUuid           FieldTag = 19
)

var tagNames = map[FieldTag]string{
	TagU8:             "u8",
	TagI8:             "i8",
	TagU16:            "u16",
	TagI16:            "i16",
	TagU32:            "u32",
	TagI32:            "i32",
	TagU64:            "u64",
	TagI64:            "i64",
	TagF32:            "f32",
	TagF64:            "f64",
	TagVector3:        "vec3",
	TagUnitQuaternion: "quat",
	TagMatrix4:        "mat4",
	TagData:           "data",
	TagBool:           "bool",
	TagMatrix3:        "mat3",
	TagVector2:        "vec2",
	TagVector4:        "vec4",
	TagUuid:           "uuid",
}

func (t FieldTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Known 判断标记是否属于已知的字段类型。
func (t FieldTag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

// FieldKind 是字段值的封闭联合类型，只能由本包内的 Kind* 类型实现。
type FieldKind interface {
	Tag() FieldTag
	// format 返回文本导出时的值部分，不含类型前缀。
	format() string
}

type (
	KindBool           bool
	KindU8             uint8
	KindI8             int8
	KindU16            uint16
	KindI16            int16
	KindU32            uint32
	KindI32            int32
	KindU64            uint64
	KindI64            int64
	KindF32            float32
	KindF64            float64
	KindVector2        math32.Vector2
	KindVector3        math32.Vector3
	KindVector4        math32.Vector4
	KindUnitQuaternion math32.Quat
	KindMatrix3        math32.Matrix3
	KindMatrix4        math32.Matrix4
	KindData           []byte
	KindUuid           uuid.UUID
)

func (KindBool) Tag() FieldTag           { return TagBool }
func (KindU8) Tag() FieldTag             { return TagU8 }
func (KindI8) Tag() FieldTag             { return TagI8 }
func (KindU16) Tag() FieldTag            { return TagU16 }
func (KindI16) Tag() FieldTag            { return TagI16 }
func (KindU32) Tag() FieldTag            { return TagU32 }
func (KindI32) Tag() FieldTag            { return TagI32 }
func (KindU64) Tag() FieldTag            { return TagU64 }
func (KindI64) Tag() FieldTag            { return TagI64 }
func (KindF32) Tag() FieldTag            { return TagF32 }
func (KindF64) Tag() FieldTag            { return TagF64 }
func (KindVector2) Tag() FieldTag        { return TagVector2 }
func (KindVector3) Tag() FieldTag        { return TagVector3 }
func (KindVector4) Tag() FieldTag        { return TagVector4 }
func (KindUnitQuaternion) Tag() FieldTag { return TagUnitQuaternion }
func (KindMatrix3) Tag() FieldTag        { return TagMatrix3 }
func (KindMatrix4) Tag() FieldTag        { return TagMatrix4 }
func (KindData) Tag() FieldTag           { return TagData }
func (KindUuid) Tag() FieldTag           { return TagUuid }

func (k KindBool) format() string { return fmt.Sprint(bool(k)) }
func (k KindU8) format() string   { return fmt.Sprint(uint8(k)) }
func (k KindI8) format() string   { return fmt.Sprint(int8(k)) }
func (k KindU16) format() string  { return fmt.Sprint(uint16(k)) }
func (k KindI16) format() string  { return fmt.Sprint(int16(k)) }
func (k KindU32) format() string  { return fmt.Sprint(uint32(k)) }
func (k KindI32) format() string  { return fmt.Sprint(int32(k)) }
func (k KindU64) format() string  { return fmt.Sprint(uint64(k)) }
func (k KindI64) format() string  { return fmt.Sprint(int64(k)) }
func (k KindF32) format() string  { return fmt.Sprint(float32(k)) }
func (k KindF64) format() string  { return fmt.Sprint(float64(k)) }

func (k KindVector2) format() string { return joinFloats(k.X, k.Y) }
func (k KindVector3) format() string { return joinFloats(k.X, k.Y, k.Z) }
func (k KindVector4) format() string { return joinFloats(k.X, k.Y, k.Z, k.W) }

func (k KindUnitQuaternion) format() string { return joinFloats(k.X, k.Y, k.Z, k.W) }

func (k KindMatrix3) format() string { return joinFloats(k[:]...) }
func (k KindMatrix4) format() string { return joinFloats(k[:]...) }
func (k KindUuid) format() string    { return uuid.UUID(k).String() }

// 合法 UTF-8 原样输出，否则输出 base64，仅用于诊断。
func (k KindData) format() string {
	if utf8.Valid(k) {
		return string(k)
	}
	return base64.StdEncoding.EncodeToString(k)
}

func joinFloats(values ...float32) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = fmt.Sprint(value)
	}
	return strings.Join(parts, "; ")
}

// FormatKind 返回字段值的文本形式，例如 "<u32 = 5>"。
func FormatKind(kind FieldKind) string {
	return fmt.Sprintf("<%s = %s>", kind.Tag(), kind.format())
}

// Field 是节点上的一个具名叶子值。
type Field struct {
	Name string
	Kind FieldKind
}

func (f Field) String() string {
	return f.Name + FormatKind(f.Kind)
}
