package visitor

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

type BinarySuite struct {
	suite.Suite
}

func (s *BinarySuite) buildTree() *Visitor {
	v := New()
	pos := math32.Vector3{X: 1, Y: 2, Z: 3}
	name := "node"
	s.Require().NoError(v.InRegion("Scene", func() error {
		if err := VisitValue(v, "Position", &pos); err != nil {
			return err
		}
		if err := VisitString(v, "Name", &name); err != nil {
			return err
		}
		for _, child := range []string{"B", "A", "C"} {
			if err := v.InRegion(child, func() error {
				flag := child == "A"
				return VisitValue(v, "Flag", &flag)
			}); err != nil {
				return err
			}
		}
		return nil
	}))
	return v
}

func (s *BinarySuite) TestRoundTripPreservesTree() {
	w := s.buildTree()
	data, err := w.SaveBinaryToBytes()
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(data, []byte(Magic)))

	r, err := LoadFromBytes(data)
	s.Require().NoError(err)
	s.Equal(w.NodeCount(), r.NodeCount())
	s.Empty(cmp.Diff(flatten(w), flatten(r), cmpopts.EquateEmpty()))

	again, err := r.SaveBinaryToBytes()
	s.Require().NoError(err)
	s.Equal(data, again)
}

func (s *BinarySuite) TestChildrenKeepCreationOrder() {
	data, err := s.buildTree().SaveBinaryToBytes()
	s.Require().NoError(err)

	b := bytes.Index(data, []byte("\x01\x00\x00\x00B"))
	a := bytes.Index(data, []byte("\x01\x00\x00\x00A"))
	c := bytes.Index(data, []byte("\x01\x00\x00\x00C"))
	s.Positive(b)
	s.Less(b, a)
	s.Less(a, c)

	r, err := LoadFromBytes(data)
	s.Require().NoError(err)
	scene, ok := r.FindNode("Scene")
	s.Require().True(ok)
	var names []string
	for _, child := range scene.Children {
		names = append(names, r.nodes.Borrow(child).Name)
	}
	s.Equal([]string{"Name", "B", "A", "C"}, names)
}

func (s *BinarySuite) TestLoadedParentLinks() {
	r, err := LoadFromBytes(s.mustSave(s.buildTree()))
	s.Require().NoError(err)
	s.True(r.Root().Parent.IsNone())
	s.Require().NoError(r.EnterRegion("Scene"))
	s.Require().NoError(r.EnterRegion("A"))
	s.Require().NoError(r.LeaveRegion())
	name, _ := r.CurrentRegion()
	s.Equal("Scene", name)
}

func (s *BinarySuite) TestBadMagic() {
	_, err := LoadFromBytes([]byte("RG4D\x00\x00\x00\x00"))
	s.ErrorIs(err, merr.ErrNotSupportedFormat)
	s.False(IsSupported(bytes.NewReader([]byte("RG4D"))))
	s.False(IsSupported(bytes.NewReader([]byte("RG"))))
	s.True(IsSupported(bytes.NewReader(s.mustSave(New()))))
}

func (s *BinarySuite) TestTruncated() {
	data := s.mustSave(s.buildTree())
	for _, n := range []int{2, 6, len(data) / 2, len(data) - 1} {
		_, err := LoadFromBytes(data[:n])
		s.True(merr.IsIoErr(err), "prefix length %d: %v", n, err)
	}
}

func (s *BinarySuite) TestInvalidNodeName() {
	data := []byte(Magic)
	data = append(data, 2, 0, 0, 0, 0xC3, 0x28)
	data = append(data, 0, 0, 0, 0, 0, 0, 0, 0)
	_, err := LoadFromBytes(data)
	s.ErrorIs(err, merr.ErrInvalidName)
}

func (s *BinarySuite) TestFileRoundTrip() {
	path := filepath.Join(s.T().TempDir(), "scene.bin")
	w := s.buildTree()
	s.Require().NoError(w.SaveBinary(path))

	r, err := LoadBinary(path)
	s.Require().NoError(err)
	s.Empty(cmp.Diff(flatten(w), flatten(r), cmpopts.EquateEmpty()))

	_, err = LoadBinary(filepath.Join(s.T().TempDir(), "missing.bin"))
	s.True(merr.IsIoErr(err))
	s.ErrorIs(err, os.ErrNotExist)
}

func (s *BinarySuite) TestSaveBinaryTo() {
	var buf bytes.Buffer
	w := s.buildTree()
	s.Require().NoError(w.SaveBinaryTo(&buf))
	s.Equal(s.mustSave(w), buf.Bytes())
}

func (s *BinarySuite) mustSave(v *Visitor) []byte {
	data, err := v.SaveBinaryToBytes()
	s.Require().NoError(err)
	return data
}

func TestBinary(t *testing.T) {
	suite.Run(t, new(BinarySuite))
}
