package visitor

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

// 单次预分配上限，超过后按实际读取量增长，避免损坏的长度字段触发巨额分配。
const maxPrealloc = 64 * 1024

var le = binary.LittleEndian

func appendString(dst []byte, s string) []byte {
	dst = le.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

func appendFloats(dst []byte, values ...float32) []byte {
	for _, value := range values {
		dst = le.AppendUint32(dst, math.Float32bits(value))
	}
	return dst
}

// appendKind 写入 [u8 tag][payload]。
func appendKind(dst []byte, kind FieldKind) []byte {
	dst = append(dst, byte(kind.Tag()))
	switch k := kind.(type) {
	case KindU8:
		dst = append(dst, byte(k))
	case KindI8:
		dst = append(dst, byte(k))
	case KindU16:
		dst = le.AppendUint16(dst, uint16(k))
	case KindI16:
		dst = le.AppendUint16(dst, uint16(k))
	case KindU32:
		dst = le.AppendUint32(dst, uint32(k))
	case KindI32:
		dst = le.AppendUint32(dst, uint32(k))
	case KindU64:
		dst = le.AppendUint64(dst, uint64(k))
	case KindI64:
		dst = le.AppendUint64(dst, uint64(k))
	case KindF32:
		dst = le.AppendUint32(dst, math.Float32bits(float32(k)))
	case KindF64:
		dst = le.AppendUint64(dst, math.Float64bits(float64(k)))
	case KindBool:
		if k {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case KindVector2:
		dst = appendFloats(dst, k.X, k.Y)
	case KindVector3:
		dst = appendFloats(dst, k.X, k.Y, k.Z)
	case KindVector4:
		dst = appendFloats(dst, k.X, k.Y, k.Z, k.W)
	case KindUnitQuaternion:
		// i, j, k, w
		dst = appendFloats(dst, k.X, k.Y, k.Z, k.W)
	case KindMatrix3:
		dst = appendFloats(dst, k[:]...)
	case KindMatrix4:
		dst = appendFloats(dst, k[:]...)
	case KindData:
		dst = le.AppendUint32(dst, uint32(len(k)))
		dst = append(dst, k...)
	case KindUuid:
		dst = append(dst, k[:]...)
	}
	return dst
}

// appendField 写入 [u32 name_len][name][u8 tag][payload]。
func appendField(dst []byte, f Field) []byte {
	dst = appendString(dst, f.Name)
	return appendKind(dst, f.Kind)
}

// decoder 从流中按小端序读取基础类型，所有读取错误统一包装为 ErrIo。
type decoder struct {
	r   *bufio.Reader
	buf [64]byte
}

func newDecoder(r io.Reader) *decoder {
	if br, ok := r.(*bufio.Reader); ok {
		return &decoder{r: br}
	}
	return &decoder{r: bufio.NewReader(r)}
}

func (d *decoder) fill(op string, n int) ([]byte, error) {
	b := d.buf[:n]
	if _, err := io.ReadFull(d.r, b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, merr.WrapErrIo(op, err)
	}
	return b, nil
}

func (d *decoder) u8(op string) (uint8, error) {
	b, err := d.fill(op, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16(op string) (uint16, error) {
	b, err := d.fill(op, 2)
	if err != nil {
		return 0, err
	}
	return le.Uint16(b), nil
}

func (d *decoder) u32(op string) (uint32, error) {
	b, err := d.fill(op, 4)
	if err != nil {
		return 0, err
	}
	return le.Uint32(b), nil
}

func (d *decoder) u64(op string) (uint64, error) {
	b, err := d.fill(op, 8)
	if err != nil {
		return 0, err
	}
	return le.Uint64(b), nil
}

func (d *decoder) floats(op string, dst []float32) error {
	b, err := d.fill(op, 4*len(dst))
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(le.Uint32(b[4*i:]))
	}
	return nil
}

func (d *decoder) bytes(op string, n uint32) ([]byte, error) {
	if n <= maxPrealloc {
		out := make([]byte, n)
		if _, err := io.ReadFull(d.r, out); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, merr.WrapErrIo(op, err)
		}
		return out, nil
	}
	out, err := io.ReadAll(io.LimitReader(d.r, int64(n)))
	if err != nil {
		return nil, merr.WrapErrIo(op, err)
	}
	if uint32(len(out)) != n {
		return nil, merr.WrapErrIo(op, io.ErrUnexpectedEOF)
	}
	return out, nil
}

func (d *decoder) string(op string) (string, error) {
	n, err := d.u32(op)
	if err != nil {
		return "", err
	}
	b, err := d.bytes(op, n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) kind() (FieldKind, error) {
	raw, err := d.u8("read field tag")
	if err != nil {
		return nil, err
	}
	const op = "read field payload"
	switch tag := FieldTag(raw); tag {
	case TagU8:
		v, err := d.u8(op)
		return KindU8(v), err
	case TagI8:
		v, err := d.u8(op)
		return KindI8(int8(v)), err
	case TagU16:
		v, err := d.u16(op)
		return KindU16(v), err
	case TagI16:
		v, err := d.u16(op)
		return KindI16(int16(v)), err
	case TagU32:
		v, err := d.u32(op)
		return KindU32(v), err
	case TagI32:
		v, err := d.u32(op)
		return KindI32(int32(v)), err
	case TagU64:
		v, err := d.u64(op)
		return KindU64(v), err
	case TagI64:
		v, err := d.u64(op)
		return KindI64(int64(v)), err
	case TagF32:
		v, err := d.u32(op)
		return KindF32(math.Float32frombits(v)), err
	case TagF64:
		v, err := d.u64(op)
		return KindF64(math.Float64frombits(v)), err
	case TagBool:
		v, err := d.u8(op)
		return KindBool(v != 0), err
	case TagVector2:
		var f [2]float32
		err := d.floats(op, f[:])
		return KindVector2{X: f[0], Y: f[1]}, err
	case TagVector3:
		var f [3]float32
		err := d.floats(op, f[:])
		return KindVector3{X: f[0], Y: f[1], Z: f[2]}, err
	case TagVector4:
		var f [4]float32
		err := d.floats(op, f[:])
		return KindVector4{X: f[0], Y: f[1], Z: f[2], W: f[3]}, err
	case TagUnitQuaternion:
		var f [4]float32
		err := d.floats(op, f[:])
		return KindUnitQuaternion{X: f[0], Y: f[1], Z: f[2], W: f[3]}, err
	case TagMatrix3:
		var m KindMatrix3
		err := d.floats(op, m[:])
		return m, err
	case TagMatrix4:
		var m KindMatrix4
		err := d.floats(op, m[:])
		return m, err
	case TagData:
		n, err := d.u32(op)
		if err != nil {
			return nil, err
		}
		b, err := d.bytes(op, n)
		return KindData(b), err
	case TagUuid:
		b, err := d.fill(op, 16)
		if err != nil {
			return nil, err
		}
		id, _ := uuid.FromBytes(b)
		return KindUuid(id), nil
	default:
		return nil, merr.WrapErrUnknownFieldType(raw)
	}
}

func (d *decoder) field() (Field, error) {
	name, err := d.string("read field name")
	if err != nil {
		return Field{}, err
	}
	if !utf8.ValidString(name) {
		return Field{}, merr.WrapErrInvalidName(name, "field name is not valid utf-8")
	}
	kind, err := d.kind()
	if err != nil {
		return Field{}, err
	}
	return Field{Name: name, Kind: kind}, nil
}

// EncodeField 将单个字段编码为字节，主要用于格式校验与测试。
func EncodeField(f Field) []byte {
	return appendField(nil, f)
}

// DecodeField 从 r 中解码单个字段。
func DecodeField(r io.Reader) (Field, error) {
	return newDecoder(r).field()
}
