package visitor

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

func itemName(i int) string {
	return "Item" + strconv.Itoa(i)
}

// VisitSlice 以 region{Length, Item0..ItemN{ItemData}} 的形式读写切片。
// 读模式下会清空原切片，再按顺序逐个构造零值元素并读入。
func VisitSlice[T any](v *Visitor, name string, value *[]T, fn VisitFunc[T]) error {
	return v.InRegion(name, func() error {
		length := uint32(len(*value))
		if err := VisitValue(v, "Length", &length); err != nil {
			return err
		}

		if v.reading {
			*value = (*value)[:0]
			for i := 0; i < int(length); i++ {
				var item T
				err := v.InRegion(itemName(i), func() error {
					return fn(v, "ItemData", &item)
				})
				if err != nil {
					return err
				}
				*value = append(*value, item)
			}
			return nil
		}

		for i := range *value {
			err := v.InRegion(itemName(i), func() error {
				return fn(v, "ItemData", &(*value)[i])
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// VisitArray 读写定长数组，读到的元素个数超过 len(value) 时返回 ErrUser。
func VisitArray[T any](v *Visitor, name string, value []T, fn VisitFunc[T]) error {
	return v.InRegion(name, func() error {
		length := uint32(len(value))
		if err := VisitValue(v, "Length", &length); err != nil {
			return err
		}
		if int(length) > len(value) {
			return merr.WrapErrUser(fmt.Sprintf(
				"not enough space in static array, got %d elements, but array can hold only %d",
				length, len(value)))
		}
		for i := 0; i < int(length); i++ {
			err := v.InRegion(itemName(i), func() error {
				return fn(v, "ItemData", &value[i])
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// VisitOption 读写可空值，nil 表示不存在。
// 布局为 region{IsSome u8, Data}，读模式下 IsSome 为 0 时 *value 置为 nil，
// 否则 *value 总是替换为新构造的零值再读入。
func VisitOption[T any](v *Visitor, name string, value **T, fn VisitFunc[T]) error {
	return v.InRegion(name, func() error {
		var isSome uint8
		if *value != nil {
			isSome = 1
		}
		if err := VisitValue(v, "IsSome", &isSome); err != nil {
			return err
		}

		if isSome == 0 {
			if v.reading {
				*value = nil
			}
			return nil
		}
		if v.reading {
			// 总是读入新的零值，目标中已有的内容不参与加载。
			*value = new(T)
		}
		return fn(v, "Data", *value)
	})
}

// VisitBox 透传访问独占指针，不产生额外 region。
func VisitBox[T any](v *Visitor, name string, value **T, fn VisitFunc[T]) error {
	if *value == nil {
		if !v.reading {
			return merr.WrapErrUser("cannot save nil box " + name)
		}
		*value = new(T)
	}
	return fn(v, name, *value)
}

// VisitString 以 region{Length u32, Data} 读写字符串，读到非法 UTF-8 时返回 ErrInvalidName。
func VisitString(v *Visitor, name string, value *string) error {
	return visitText(v, name, value, false)
}

// VisitPath 与 VisitString 相同，但写出前会把 '\' 统一替换为 '/'。
func VisitPath(v *Visitor, name string, value *string) error {
	return visitText(v, name, value, true)
}

func visitText(v *Visitor, name string, value *string, portable bool) error {
	return v.InRegion(name, func() error {
		text := *value
		if portable && !v.reading {
			text = strings.ReplaceAll(text, `\`, "/")
		}

		length := uint32(len(text))
		if err := VisitValue(v, "Length", &length); err != nil {
			return err
		}

		var data []byte
		if !v.reading {
			data = []byte(text)
		}
		if err := VisitValue(v, "Data", &data); err != nil {
			return err
		}

		if v.reading {
			if !utf8.Valid(data) {
				return merr.WrapErrInvalidName(name, "data is not valid utf-8")
			}
			*value = string(data)
		}
		return nil
	})
}

// VisitMap 以 region{Count, Item0..ItemN{Key, Value}} 读写 map。
// 写出顺序即 map 的迭代顺序，内容可以完整往返，但 Item 编号在多次保存之间并不稳定。
func VisitMap[K comparable, V any](v *Visitor, name string, value *map[K]V, kfn VisitFunc[K], vfn VisitFunc[V]) error {
	return v.InRegion(name, func() error {
		count := uint32(len(*value))
		if err := VisitValue(v, "Count", &count); err != nil {
			return err
		}

		if v.reading {
			if *value == nil {
				*value = make(map[K]V, min(int(count), maxPrealloc))
			} else {
				clear(*value)
			}
			for i := 0; i < int(count); i++ {
				var (
					key  K
					item V
				)
				err := v.InRegion(itemName(i), func() error {
					if err := kfn(v, "Key", &key); err != nil {
						return err
					}
					return vfn(v, "Value", &item)
				})
				if err != nil {
					return err
				}
				(*value)[key] = item
			}
			return nil
		}

		i := 0
		for key, item := range *value {
			err := v.InRegion(itemName(i), func() error {
				if err := kfn(v, "Key", &key); err != nil {
					return err
				}
				return vfn(v, "Value", &item)
			})
			if err != nil {
				return err
			}
			i++
		}
		return nil
	})
}

// VisitOptional 访问可选字段，用于在不破坏旧数据的前提下追加新字段。
//
// 读模式下当前节点既没有同名字段也没有同名子 region 时保留 *value 不变；
// 写模式下 *value 为零值时跳过，除非设置了 FlagSerializeEverything。
func VisitOptional[T comparable](v *Visitor, name string, value *T, fn VisitFunc[T]) error {
	if v.reading {
		_, hasField := v.FindField(name)
		_, hasRegion := v.findChild(name)
		if !hasField && !hasRegion {
			return nil
		}
		return fn(v, name, value)
	}

	var zero T
	if *value == zero && !v.flags.Has(FlagSerializeEverything) {
		return nil
	}
	return fn(v, name, value)
}

// Pod 是可以按内存布局整体存储的数值类型。
type Pod interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

// VisitPodSlice 把数值切片按小端序整体存成一个 Data 字段，适合大块顶点或索引数据。
func VisitPodSlice[T Pod](v *Visitor, name string, value *[]T) error {
	var data []byte
	if !v.reading {
		var err error
		data, err = binary.Append(nil, binary.LittleEndian, *value)
		if err != nil {
			return merr.WrapErrUser(err.Error())
		}
	}
	if err := VisitValue(v, name, &data); err != nil {
		return err
	}
	if !v.reading {
		return nil
	}

	var zero T
	size := binary.Size(zero)
	if len(data)%size != 0 {
		return merr.WrapErrFieldTypeDoesNotMatch(name, fmt.Sprintf("[]%T", zero),
			fmt.Sprintf("%d bytes", len(data)), "pod data length is not a multiple of element size")
	}
	out := make([]T, len(data)/size)
	if _, err := binary.Decode(data, binary.LittleEndian, out); err != nil {
		return merr.WrapErrUser(err.Error())
	}
	*value = out
	return nil
}
