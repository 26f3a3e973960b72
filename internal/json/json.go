// Package json 是项目内统一的 JSON 入口，底层使用 bytedance/sonic。
package json

import (
	"github.com/bytedance/sonic"
)

// api 与标准库行为保持一致：转义 HTML、map 键排序、校验 UTF-8。
var api = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Valid 判断 data 是否为合法 JSON。
func Valid(data []byte) bool {
	return api.Valid(data)
}
