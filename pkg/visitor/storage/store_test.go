package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/danmu-visitor/internal/compressor"
	"github.com/lk2023060901/danmu-visitor/pkg/log"
	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
	"github.com/lk2023060901/danmu-visitor/pkg/util/viper"
	"github.com/lk2023060901/danmu-visitor/pkg/visitor"
)

type scene struct {
	Name    string
	Frames  []uint32
	Visible bool
}

func (sc *scene) Visit(name string, v *visitor.Visitor) error {
	return v.InRegion(name, func() error {
		if err := visitor.VisitString(v, "Name", &sc.Name); err != nil {
			return err
		}
		if err := visitor.VisitSlice(v, "Frames", &sc.Frames, visitor.VisitValue[uint32]); err != nil {
			return err
		}
		return visitor.VisitValue(v, "Visible", &sc.Visible)
	})
}

func newScene(name string, frames int) *visitor.Visitor {
	sc := scene{Name: name, Visible: true}
	for i := 0; i < frames; i++ {
		sc.Frames = append(sc.Frames, uint32(i))
	}
	v := visitor.New()
	if err := v.Visit("Scene", &sc); err != nil {
		panic(err)
	}
	return v
}

func readScene(v *visitor.Visitor) (scene, error) {
	var sc scene
	err := v.Visit("Scene", &sc)
	return sc, err
}

type StoreSuite struct {
	suite.Suite
	dir string
}

func (s *StoreSuite) SetupSuite() {
	logger, props, err := log.InitTestLogger(s.T(), log.DefaultConfig())
	s.Require().NoError(err)
	log.ReplaceGlobals(logger, props)
}

func (s *StoreSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *StoreSuite) newStore(cfg Config) *Store {
	store, err := NewStore(cfg)
	s.Require().NoError(err)
	s.T().Cleanup(store.Close)
	return store
}

func (s *StoreSuite) TestSaveLoadRaw() {
	store := s.newStore(DefaultConfig())
	path := filepath.Join(s.dir, "scene.bin")
	s.Require().NoError(store.Save(context.Background(), path, newScene("raw", 4)))

	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Equal(visitor.Magic, string(data[:4]))

	v, err := store.Load(context.Background(), path)
	s.Require().NoError(err)
	sc, err := readScene(v)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(scene{Name: "raw", Frames: []uint32{0, 1, 2, 3}, Visible: true}, sc))

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *StoreSuite) TestSaveLoadZstd() {
	cfg := DefaultConfig()
	cfg.Compression = compressor.NameZstd
	cfg.Concurrency = 2
	store := s.newStore(cfg)

	path := filepath.Join(s.dir, "scene.bin.zst")
	s.Require().NoError(store.Save(context.Background(), path, newScene("zstd", 512)))

	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.True(compressor.IsZstd(data))

	raw := s.newStore(DefaultConfig())
	v, err := raw.Load(context.Background(), path)
	s.Require().NoError(err)
	sc, err := readScene(v)
	s.Require().NoError(err)
	s.Equal("zstd", sc.Name)
	s.Len(sc.Frames, 512)
}

func (s *StoreSuite) TestTextDump() {
	cfg := DefaultConfig()
	cfg.TextDump = true
	store := s.newStore(cfg)

	path := filepath.Join(s.dir, "scene.bin")
	v := newScene("dump", 1)
	s.Require().NoError(store.Save(context.Background(), path, v))

	text, err := os.ReadFile(path + TextDumpSuffix)
	s.Require().NoError(err)
	s.Equal(v.SaveText(), string(text))
}

func (s *StoreSuite) TestLoadErrors() {
	store := s.newStore(DefaultConfig())

	_, err := store.Load(context.Background(), filepath.Join(s.dir, "missing.bin"))
	s.True(merr.IsIoErr(err))

	bad := filepath.Join(s.dir, "bad.bin")
	s.Require().NoError(os.WriteFile(bad, []byte("NOPE...."), 0o644))
	_, err = store.Load(context.Background(), bad)
	s.ErrorIs(err, merr.ErrNotSupportedFormat)

	corrupt := filepath.Join(s.dir, "corrupt.zst")
	s.Require().NoError(os.WriteFile(corrupt, []byte{0x28, 0xB5, 0x2F, 0xFD, 1, 2, 3}, 0o644))
	_, err = store.Load(context.Background(), corrupt)
	s.ErrorIs(err, merr.ErrCompression)
}

func (s *StoreSuite) TestSaveRejectsReadingVisitor() {
	store := s.newStore(DefaultConfig())
	path := filepath.Join(s.dir, "scene.bin")
	s.Require().NoError(store.Save(context.Background(), path, newScene("a", 1)))
	v, err := store.Load(context.Background(), path)
	s.Require().NoError(err)
	s.ErrorIs(store.Save(context.Background(), path, v), merr.ErrUser)
	s.ErrorIs(store.Save(context.Background(), path, nil), merr.ErrUser)
}

func (s *StoreSuite) TestSaveSamePathInProgress() {
	store := s.newStore(DefaultConfig())
	path := filepath.Join(s.dir, "scene.bin")

	// 模拟另一个会话正在保存同一路径。
	s.Require().True(store.saving.Insert(path))
	err := store.Save(context.Background(), path, newScene("a", 1))
	s.ErrorIs(err, merr.ErrUser)
	_, statErr := os.Stat(path)
	s.True(os.IsNotExist(statErr))
	s.True(store.saving.Contain(path))

	store.saving.TryRemove(path)
	s.Require().NoError(store.Save(context.Background(), path, newScene("a", 1)))
	s.False(store.saving.Contain(path))
}

func (s *StoreSuite) TestCanceledContext() {
	store := s.newStore(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(s.dir, "scene.bin")
	s.ErrorIs(store.Save(ctx, path, newScene("a", 1)), context.Canceled)
	_, err := os.Stat(path)
	s.True(os.IsNotExist(err))

	_, err = store.LoadAll(ctx, []string{path})
	s.ErrorIs(err, context.Canceled)
}

func (s *StoreSuite) TestSaveAllLoadAll() {
	store := s.newStore(Config{Compression: compressor.NameZstd, Concurrency: 4})

	var jobs []SaveJob
	var paths []string
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		path := filepath.Join(s.dir, name+".bin")
		jobs = append(jobs, SaveJob{Path: path, Visitor: newScene(name, 8)})
		paths = append(paths, path)
	}
	s.Require().NoError(store.SaveAll(context.Background(), jobs))

	missing := filepath.Join(s.dir, "missing.bin")
	loaded, err := store.LoadAll(context.Background(), append(paths, paths[0], missing))
	s.Error(err)
	s.True(merr.IsIoErr(err))
	s.Len(loaded, len(paths))
	for i, path := range paths {
		sc, err := readScene(loaded[path])
		s.Require().NoError(err)
		s.Equal(jobs[i].Path, path)
		s.Equal(filepath.Base(path), sc.Name+".bin")
	}
}

func (s *StoreSuite) TestConvert() {
	raw := s.newStore(DefaultConfig())
	src := filepath.Join(s.dir, "scene.bin")
	s.Require().NoError(raw.Save(context.Background(), src, newScene("convert", 64)))

	zstd := s.newStore(Config{Compression: compressor.NameZstd})
	dst := filepath.Join(s.dir, "scene.bin.zst")
	s.Require().NoError(zstd.Convert(context.Background(), src, dst))

	data, err := os.ReadFile(dst)
	s.Require().NoError(err)
	s.True(compressor.IsZstd(data))

	v, err := raw.Load(context.Background(), dst)
	s.Require().NoError(err)
	sc, err := readScene(v)
	s.Require().NoError(err)
	s.Equal("convert", sc.Name)
	s.Len(sc.Frames, 64)

	s.True(merr.IsIoErr(zstd.Convert(context.Background(), filepath.Join(s.dir, "missing"), dst)))
}

func (s *StoreSuite) TestUnknownCompression() {
	_, err := NewStore(Config{Compression: "lz4"})
	s.ErrorIs(err, merr.ErrUser)
}

func (s *StoreSuite) TestLoadConfig() {
	cfg, err := LoadConfig(nil)
	s.Require().NoError(err)
	s.Equal(DefaultConfig(), cfg)

	path := filepath.Join(s.dir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(`
visitor:
  storage:
    compression: zstd
    minCompressSize: 256
    textDump: true
`), 0o644))
	vc := viper.New()
	s.Require().NoError(vc.LoadFile(path))
	cfg, err = LoadConfig(vc)
	s.Require().NoError(err)
	s.Equal(Config{Compression: "zstd", MinCompressSize: 256, TextDump: true}, cfg)
}

func TestStore(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
