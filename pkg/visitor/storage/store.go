package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/danmu-visitor/internal/compressor"
	"github.com/lk2023060901/danmu-visitor/pkg/log"
	"github.com/lk2023060901/danmu-visitor/pkg/metrics"
	"github.com/lk2023060901/danmu-visitor/pkg/util/conc"
	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
	"github.com/lk2023060901/danmu-visitor/pkg/util/retry"
	"github.com/lk2023060901/danmu-visitor/pkg/util/typeutil"
	"github.com/lk2023060901/danmu-visitor/pkg/visitor"
)

// TextDumpSuffix 是文本导出文件相对快照文件追加的后缀。
const TextDumpSuffix = ".txt"

// Store 负责把 Visitor 会话保存为文件以及从文件加载，
// 文件内容是 RG3D 二进制快照，可选地再包一层 zstd。
// Store 可被多个 goroutine 并发使用，但同一路径同时只允许一个保存操作。
type Store struct {
	log.Binder

	cfg        Config
	compressor compressor.Compressor
	// zstd 始终存在，用于加载压缩过的快照，与当前的压缩配置无关。
	zstd *compressor.ZstdCompressor

	loadPool *conc.Pool[*visitor.Visitor]
	savePool *conc.Pool[struct{}]
	saving   *typeutil.ConcurrentSet[string]
}

// NewStore 按配置创建 Store，使用完毕后需要调用 Close。
func NewStore(cfg Config) (*Store, error) {
	zstd, err := compressor.NewZstdCompressorWithConcurrency(cfg.Concurrency)
	if err != nil {
		return nil, merr.WrapErrCompression("create zstd compressor", err)
	}
	zstd.SetMinCompressSize(cfg.MinCompressSize)

	var c compressor.Compressor = compressor.NopCompressor{}
	switch cfg.Compression {
	case "", compressor.NameNone:
	case compressor.NameZstd:
		c = zstd
	default:
		zstd.Close()
		return nil, merr.WrapErrUser("unknown compression " + cfg.Compression)
	}

	s := &Store{
		cfg:        cfg,
		compressor: c,
		zstd:       zstd,
		loadPool:   conc.NewPool[*visitor.Visitor](cfg.Concurrency, conc.WithConcealPanic(true)),
		savePool:   conc.NewPool[struct{}](cfg.Concurrency, conc.WithConcealPanic(true)),
		saving:     typeutil.NewConcurrentSet[string](),
	}
	s.SetLogger(log.With(log.FieldModule("storage")))
	return s, nil
}

func (s *Store) Config() Config {
	return s.cfg
}

// Close 释放协程池与压缩器。
func (s *Store) Close() {
	s.loadPool.Release()
	s.savePool.Release()
	s.zstd.Close()
}

// Save 将 v 的整棵树写入 path。
// 文件先写入同目录下的临时文件再重命名，失败时不会留下半写的快照。
func (s *Store) Save(ctx context.Context, path string, v *visitor.Visitor) (err error) {
	start := time.Now()
	var written int
	defer func() {
		nodes := 0
		if v != nil {
			nodes = v.NodeCount()
		}
		s.observe(metrics.ModeSave, start, written, nodes, err)
		if err != nil {
			s.Logger().Warn("failed to save visitor", log.FieldPath(path), zap.Error(err))
			return
		}
		s.Logger().Info("visitor saved",
			log.FieldPath(path),
			zap.Int("bytes", written),
			zap.Int("nodes", nodes),
			zap.Duration("elapsed", time.Since(start)))
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if v == nil {
		return merr.WrapErrUser("cannot save a nil visitor")
	}
	if v.IsReading() {
		return merr.WrapErrUser("cannot save a visitor in reading mode")
	}
	if !s.saving.Insert(path) {
		return merr.WrapErrUser("path is being saved by another session " + path)
	}
	defer s.saving.TryRemove(path)

	data, err := v.SaveBinaryToBytes()
	if err != nil {
		return err
	}
	packet, err := s.compressor.Compress(nil, data)
	if err != nil {
		return merr.WrapErrCompression("compress", err)
	}
	if err := writeFileAtomic(ctx, path, packet); err != nil {
		return err
	}
	written = len(packet)

	if s.cfg.TextDump {
		if err := os.WriteFile(path+TextDumpSuffix, []byte(v.SaveText()), 0o644); err != nil {
			return merr.WrapErrIo("write text dump", err)
		}
	}
	return nil
}

// Load 读取 path 并解码为读模式的 Visitor。
// zstd 压缩的快照会被自动识别并解压，未压缩的快照总能被加载。
func (s *Store) Load(ctx context.Context, path string) (v *visitor.Visitor, err error) {
	start := time.Now()
	var read int
	defer func() {
		nodes := 0
		if v != nil {
			nodes = v.NodeCount()
		}
		s.observe(metrics.ModeLoad, start, read, nodes, err)
		if err != nil {
			s.Logger().Warn("failed to load visitor", log.FieldPath(path), zap.Error(err))
			return
		}
		s.Logger().Info("visitor loaded",
			log.FieldPath(path),
			zap.Int("bytes", read),
			zap.Int("nodes", nodes),
			zap.Duration("elapsed", time.Since(start)))
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, merr.WrapErrIo("read file", err)
	}
	read = len(data)

	if compressor.IsZstd(data) {
		data, err = s.zstd.Decompress(nil, data)
		if err != nil {
			return nil, merr.WrapErrCompression("decompress", err)
		}
	}

	v, err = visitor.LoadFromBytes(data)
	if err != nil {
		return nil, err
	}
	v.SetLogger(s.Logger().With(log.FieldPath(path), log.FieldMode(metrics.ModeLoad)))
	return v, nil
}

// Convert 加载 src 并按当前压缩配置重新写入 dst，可用于压缩或解压已有快照。
func (s *Store) Convert(ctx context.Context, src, dst string) error {
	v, err := s.Load(ctx, src)
	if err != nil {
		return err
	}
	data, err := v.SaveBinaryToBytes()
	if err != nil {
		return err
	}
	packet, err := s.compressor.Compress(nil, data)
	if err != nil {
		return merr.WrapErrCompression("compress", err)
	}
	if err := writeFileAtomic(ctx, dst, packet); err != nil {
		return err
	}
	s.Logger().Info("visitor converted",
		log.FieldPath(dst),
		zap.String("source", src),
		zap.String("compression", s.compressor.Name()))
	return nil
}

// SaveJob 描述批量保存中的一项。
type SaveJob struct {
	Path    string
	Visitor *visitor.Visitor
}

// SaveAll 并发保存多个相互独立的会话，所有失败合并为一个错误返回。
func (s *Store) SaveAll(ctx context.Context, jobs []SaveJob) error {
	futures := make([]*conc.Future[struct{}], 0, len(jobs))
	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		futures = append(futures, s.savePool.Submit(func() (struct{}, error) {
			return struct{}{}, s.Save(ctx, job.Path, job.Visitor)
		}))
	}
	for i, f := range futures {
		if err := f.Err(); err != nil {
			errs = append(errs, errors.Wrapf(err, "save %s", jobs[i].Path))
		}
	}
	return merr.Combine(errs...)
}

// LoadAll 并发加载多个文件，重复路径只加载一次。
// 返回成功加载的会话，失败的路径不出现在结果中，错误合并后一并返回。
func (s *Store) LoadAll(ctx context.Context, paths []string) (map[string]*visitor.Visitor, error) {
	seen := typeutil.NewSet[string]()
	unique := make([]string, 0, len(paths))
	for _, path := range paths {
		if seen.Contain(path) {
			continue
		}
		seen.Insert(path)
		unique = append(unique, path)
	}

	futures := make([]*conc.Future[*visitor.Visitor], 0, len(unique))
	var errs []error
	for _, path := range unique {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		futures = append(futures, s.loadPool.Submit(func() (*visitor.Visitor, error) {
			return s.Load(ctx, path)
		}))
	}

	result := make(map[string]*visitor.Visitor, len(futures))
	for i, f := range futures {
		v, err := f.Await()
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "load %s", unique[i]))
			continue
		}
		result[unique[i]] = v
	}
	return result, merr.Combine(errs...)
}

func (s *Store) observe(mode string, start time.Time, bytes, nodes int, err error) {
	metrics.SessionsTotal.WithLabelValues(mode, metrics.Status(err)).Inc()
	if err != nil {
		return
	}
	metrics.BytesTotal.WithLabelValues(mode).Add(float64(bytes))
	metrics.Nodes.WithLabelValues(mode).Observe(float64(nodes))
	metrics.SessionDuration.WithLabelValues(mode).Observe(float64(time.Since(start).Milliseconds()))
}

// writeFileAtomic 先写临时文件并 fsync，再重命名到目标路径。
// 重命名在部分平台上可能因目标文件被占用而短暂失败，因此带有重试。
func writeFileAtomic(ctx context.Context, path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return merr.WrapErrIo("create temp file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return merr.WrapErrIo("write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return merr.WrapErrIo("sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return merr.WrapErrIo("close temp file", err)
	}

	err = retry.Do(ctx, func() error {
		return merr.WrapErrIo("rename", os.Rename(tmpName, path))
	}, retry.Attempts(3), retry.Sleep(10*time.Millisecond))
	if err != nil {
		cleanup()
		return err
	}
	return nil
}
