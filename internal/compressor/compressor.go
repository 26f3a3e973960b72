package compressor

import (
	"bytes"
	"strings"

	"github.com/cockroachdb/errors"
)

// Compressor 抽象了整块数据的压缩与解压，存储层用它包装二进制快照。
type Compressor interface {
	// Compress 将 src 压缩后追加到 dst[:0]，返回完整的压缩结果。
	Compress(dst, src []byte) (packet []byte, err error)

	// Decompress 与 Compress 对称：src 必须是 Compress 的输出。
	Decompress(dst, src []byte) (plain []byte, err error)

	// Name 返回配置中使用的算法名。
	Name() string
}

const (
	NameNone = "none"
	NameZstd = "zstd"
)

// zstdMagic 是 zstd 帧头，用于在加载时识别压缩过的文件。
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// IsZstd 判断 data 是否以 zstd 帧头开始。
func IsZstd(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// NopCompressor 不做任何处理，直接返回输入内容，未开启压缩时作为默认值。
type NopCompressor struct{}

var _ Compressor = NopCompressor{}

func (NopCompressor) Compress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Decompress(_ []byte, src []byte) ([]byte, error) {
	return src, nil
}

func (NopCompressor) Name() string {
	return NameNone
}

// New 按名称创建压缩器，名称不区分大小写，空字符串等同于 none。
func New(name string, concurrency int) (Compressor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameNone:
		return NopCompressor{}, nil
	case NameZstd:
		return NewZstdCompressorWithConcurrency(concurrency)
	default:
		return nil, errors.Newf("unknown compressor %q", name)
	}
}
