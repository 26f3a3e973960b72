package visitor

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"github.com/valyala/bytebufferpool"

	"github.com/lk2023060901/danmu-visitor/pkg/pool"
	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

// Magic 是二进制格式的文件头。
const Magic = "RG3D"

var bufferPool bytebufferpool.Pool

// appendTree 按先序写出整棵树：[name][field_count][fields][child_count]，子节点紧随其后。
// 使用显式栈而非递归，子节点逆序入栈以保证写出顺序与创建顺序一致。
func (v *Visitor) appendTree(dst []byte) []byte {
	dst = append(dst, Magic...)
	stack := []pool.Handle[Node]{v.root}
	for len(stack) > 0 {
		handle := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := v.nodes.Borrow(handle)
		dst = appendString(dst, node.Name)
		dst = le.AppendUint32(dst, uint32(len(node.Fields)))
		for _, f := range node.Fields {
			dst = appendField(dst, f)
		}
		dst = le.AppendUint32(dst, uint32(len(node.Children)))
		for i := len(node.Children) - 1; i >= 0; i-- {
			stack = append(stack, node.Children[i])
		}
	}
	return dst
}

// SaveBinaryTo 将整棵树以二进制格式写入 w。
func (v *Visitor) SaveBinaryTo(w io.Writer) error {
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	buf.B = v.appendTree(buf.B[:0])
	if _, err := w.Write(buf.B); err != nil {
		return merr.WrapErrIo("write binary", err)
	}
	return nil
}

// SaveBinaryToBytes 返回整棵树的二进制编码。
func (v *Visitor) SaveBinaryToBytes() ([]byte, error) {
	buf := bufferPool.Get()
	defer bufferPool.Put(buf)

	buf.B = v.appendTree(buf.B[:0])
	return bytes.Clone(buf.B), nil
}

// SaveBinary 将整棵树写入 path 指定的文件。
func (v *Visitor) SaveBinary(path string) error {
	data, err := v.SaveBinaryToBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return merr.WrapErrIo("write file", err)
	}
	return nil
}

// IsSupported 检查 r 是否以 Magic 开头，只读取文件头的 4 个字节。
func IsSupported(r io.Reader) bool {
	var magic [len(Magic)]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return false
	}
	return string(magic[:]) == Magic
}

// LoadBinaryFrom 从 r 解码出一棵完整的树，返回读模式的 Visitor，游标位于根节点。
func LoadBinaryFrom(r io.Reader) (*Visitor, error) {
	dec := newDecoder(r)
	magic, err := dec.fill("read magic", len(Magic))
	if err != nil {
		return nil, err
	}
	if string(magic) != Magic {
		return nil, merr.WrapErrNotSupportedFormat(string(magic))
	}

	v := newVisitor(true)
	root, err := v.loadNode(dec, pool.None[Node]())
	if err != nil {
		return nil, err
	}
	v.root = root
	v.current = root
	return v, nil
}

// LoadFromBytes 从内存中的二进制数据构造 Visitor。
func LoadFromBytes(data []byte) (*Visitor, error) {
	return LoadBinaryFrom(bytes.NewReader(data))
}

// LoadBinary 从文件构造 Visitor。
func LoadBinary(path string) (*Visitor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, merr.WrapErrIo("open file", err)
	}
	defer file.Close()
	return LoadBinaryFrom(bufio.NewReader(file))
}

// loadNode 递归解码节点，每个子节点解码完成后挂到父节点上。
func (v *Visitor) loadNode(dec *decoder, parent pool.Handle[Node]) (pool.Handle[Node], error) {
	none := pool.None[Node]()

	name, err := dec.string("read node name")
	if err != nil {
		return none, err
	}
	if !utf8.ValidString(name) {
		return none, merr.WrapErrInvalidName(name, "node name is not valid utf-8")
	}

	fieldCount, err := dec.u32("read field count")
	if err != nil {
		return none, err
	}
	fields := make([]Field, 0, min(int(fieldCount), 1024))
	for i := uint32(0); i < fieldCount; i++ {
		f, err := dec.field()
		if err != nil {
			return none, err
		}
		fields = append(fields, f)
	}

	handle := v.nodes.Spawn(Node{Name: name, Fields: fields, Parent: parent})

	childCount, err := dec.u32("read child count")
	if err != nil {
		return none, err
	}
	children := make([]pool.Handle[Node], 0, min(int(childCount), 1024))
	for i := uint32(0); i < childCount; i++ {
		child, err := v.loadNode(dec, handle)
		if err != nil {
			return none, err
		}
		children = append(children, child)
	}
	v.nodes.Borrow(handle).Children = children
	return handle, nil
}
