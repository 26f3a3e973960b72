package storage

import (
	"github.com/lk2023060901/danmu-visitor/internal/compressor"
	"github.com/lk2023060901/danmu-visitor/pkg/util/viper"
)

// ConfigKey 是存储配置在配置文件中的位置。
const ConfigKey = "visitor.storage"

// Config 控制快照文件的落盘方式。
type Config struct {
	// Compression 为 none 或 zstd。
	Compression string `mapstructure:"compression" json:"compression"`
	// MinCompressSize 小于该字节数的快照不压缩。
	MinCompressSize int `mapstructure:"minCompressSize" json:"minCompressSize"`
	// Concurrency 为批量读写的并发度以及 zstd 的并发度，0 表示主机逻辑 CPU 数。
	Concurrency int `mapstructure:"concurrency" json:"concurrency"`
	// TextDump 为 true 时在每个快照旁写出同名的 .txt 文本导出。
	TextDump bool `mapstructure:"textDump" json:"textDump"`
}

func DefaultConfig() Config {
	return Config{
		Compression: compressor.NameNone,
	}
}

// LoadConfig 从配置文件中读取存储配置，缺省项保留 DefaultConfig 的取值。
func LoadConfig(cfg *viper.Config) (Config, error) {
	c := DefaultConfig()
	if cfg == nil {
		return c, nil
	}
	if err := cfg.UnmarshalKey(ConfigKey, &c); err != nil {
		return c, err
	}
	return c, nil
}
