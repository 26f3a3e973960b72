package application

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	zlog "github.com/lk2023060901/danmu-visitor/pkg/log"
	"github.com/lk2023060901/danmu-visitor/pkg/metrics"
	zviper "github.com/lk2023060901/danmu-visitor/pkg/util/viper"
	"github.com/lk2023060901/danmu-visitor/pkg/visitor/storage"
)

const (
	// DefaultConfigPath 是未指定配置文件时尝试加载的路径，文件不存在时使用默认配置。
	DefaultConfigPath = "./config.yaml"
	// ConfigPathEnv 指定配置文件路径的环境变量。
	ConfigPathEnv = "VISITOR_CONFIG_FILE_PATH"
	// DotEnvFile 启动时若存在则先加载到环境变量中。
	DotEnvFile = ".env"
)

// Application 是进程级的运行时容器，持有配置、日志与存储。
type Application struct {
	args       []string
	registerer prometheus.Registerer

	cfg     *zviper.Config
	loggers map[string]*zlog.MLogger
	store   *storage.Store
}

type Option func(*Application)

// WithArgs 覆盖命令行参数，默认使用 os.Args[1:]。
func WithArgs(args []string) Option {
	return func(a *Application) {
		a.args = args
	}
}

// WithRegisterer 指定指标注册到的 Registerer，默认为 prometheus.DefaultRegisterer。
func WithRegisterer(r prometheus.Registerer) Option {
	return func(a *Application) {
		a.registerer = r
	}
}

func New(opts ...Option) *Application {
	a := &Application{
		args:       os.Args[1:],
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run 依次加载 .env、配置文件、日志、指标与存储。
//
// 配置文件路径优先级从低到高：
//  1. 默认值 ./config.yaml（不存在时使用默认配置）
//  2. 环境变量 VISITOR_CONFIG_FILE_PATH
//  3. 命令行 --config <path> 或 --config=<path>
func (a *Application) Run() error {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}
	metrics.Register(a.registerer)

	storageCfg, err := storage.LoadConfig(a.cfg)
	if err != nil {
		return errors.Wrap(err, "load storage config")
	}
	store, err := storage.NewStore(storageCfg)
	if err != nil {
		return err
	}
	a.store = store

	zlog.Info("application started", zlog.FieldPath(a.cfg.ConfigFile()))
	return nil
}

// Close 释放存储并刷新日志。
func (a *Application) Close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
	_ = zlog.Sync()
}

// Config 返回已加载的配置。
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// Store 返回按配置创建的 Store，Run 之前为 nil。
func (a *Application) Store() *storage.Store {
	return a.store
}

// Logger 返回配置文件 logging.<name> 定义的具名 Logger，未定义时退回全局 Logger。
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return zlog.With(zlog.FieldModule(name))
}

func (a *Application) configPath() (path string, explicit bool, err error) {
	path = DefaultConfigPath
	if envPath := strings.TrimSpace(os.Getenv(ConfigPathEnv)); envPath != "" {
		path, explicit = envPath, true
	}

	for i := 0; i < len(a.args); i++ {
		arg := a.args[i]
		if arg == "--config" {
			if i+1 >= len(a.args) {
				return "", false, errors.New("missing value after --config")
			}
			path, explicit = a.args[i+1], true
			i++
			continue
		}
		if val, ok := strings.CutPrefix(arg, "--config="); ok && val != "" {
			path, explicit = val, true
		}
	}
	return path, explicit, nil
}

func (a *Application) loadConfig() (*zviper.Config, error) {
	path, explicit, err := a.configPath()
	if err != nil {
		return nil, err
	}

	cfg := zviper.New()
	if _, err := os.Stat(path); err != nil && !explicit && os.IsNotExist(err) {
		return cfg, nil
	}
	if err := cfg.LoadFile(path); err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", path)
	}
	return cfg, nil
}

// initLogging 先按 log.* 初始化全局 Logger，再按 logging.<name> 创建具名 Logger。
//
// 示例：
//
//	log:
//	  level: info
//	  format: json
//	logging:
//	  storage:
//	    level: debug
//	    file:
//	      rootPath: ./logs
//	      filename: storage.log
func (a *Application) initLogging() error {
	logCfg := zlog.DefaultConfig()
	if err := a.cfg.UnmarshalKey("log", logCfg); err != nil {
		return errors.Wrap(err, "parse log config")
	}
	logger, props, err := zlog.InitLogger(logCfg)
	if err != nil {
		return errors.Wrap(err, "init global logger")
	}
	zlog.ReplaceGlobals(logger, props)

	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey("logging", &raw); err != nil {
		return errors.Wrap(err, "parse logging config")
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		logger, _, err := zlog.InitLogger(&lc)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = (&zlog.MLogger{Logger: logger}).With(zlog.FieldModule(name))
	}
	return nil
}

// loadDotEnv 把 path 中的变量加载到环境变量，不覆盖已有值，文件不存在时忽略。
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	return nil
}
