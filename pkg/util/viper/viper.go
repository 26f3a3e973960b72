package viper

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	spfviper "github.com/spf13/viper"
)

// EnvPrefix 是覆盖配置项的环境变量前缀，例如 VISITOR_VISITOR_STORAGE_COMPRESSION。
const EnvPrefix = "VISITOR"

// Config 封装 spf13/viper 实例，提供 YAML/JSON 配置加载与环境变量覆盖。
type Config struct {
	v *spfviper.Viper
}

// New 创建一个空的 Config，未加载文件时所有查询都返回零值。
func New() *Config {
	v := spfviper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Config{v: v}
}

// LoadFile 加载 YAML 或 JSON 配置文件，类型通过扩展名推断。
func (c *Config) LoadFile(path string) error {
	c.v.SetConfigFile(path)

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		c.v.SetConfigType("yaml")
	case ".json":
		c.v.SetConfigType("json")
	default:
		return errors.Newf("unsupported config file type %q", ext)
	}

	if err := c.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	return nil
}

// ConfigFile 返回已加载的配置文件路径。
func (c *Config) ConfigFile() string {
	return c.v.ConfigFileUsed()
}

func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// Unmarshal 将完整配置反序列化到 dst，dst 应为结构体或 map 的指针。
func (c *Config) Unmarshal(dst any) error {
	return c.v.Unmarshal(dst)
}

// UnmarshalKey 将 key 对应的子配置反序列化到 dst。key 不存在时 dst 保持不变。
func (c *Config) UnmarshalKey(key string, dst any) error {
	if !c.v.IsSet(key) {
		return nil
	}
	return c.v.UnmarshalKey(key, dst)
}
