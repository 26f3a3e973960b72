package visitor

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

type VisitorSuite struct {
	suite.Suite
}

func (s *VisitorSuite) TestNewStartsAtRoot() {
	v := New()
	s.False(v.IsReading())
	s.Equal(1, v.NodeCount())
	name, ok := v.CurrentRegion()
	s.True(ok)
	s.Equal(RootName, name)
}

func (s *VisitorSuite) TestEnterLeaveRegion() {
	v := New()
	s.Require().NoError(v.EnterRegion("A"))
	s.Require().NoError(v.EnterRegion("B"))
	name, _ := v.CurrentRegion()
	s.Equal("B", name)

	s.Require().NoError(v.LeaveRegion())
	name, _ = v.CurrentRegion()
	s.Equal("A", name)
	s.Require().NoError(v.LeaveRegion())
	name, _ = v.CurrentRegion()
	s.Equal(RootName, name)
	s.Equal(3, v.NodeCount())
}

func (s *VisitorSuite) TestDuplicateRegion() {
	v := New()
	s.Require().NoError(v.EnterRegion("A"))
	x := uint32(7)
	s.Require().NoError(VisitValue(v, "X", &x))
	s.Require().NoError(v.LeaveRegion())

	err := v.EnterRegion("A")
	s.ErrorIs(err, merr.ErrRegionAlreadyExists)
	s.True(merr.IsStructural(err))
	name, _ := v.CurrentRegion()
	s.Equal(RootName, name)
	s.Equal(2, v.NodeCount())

	node, ok := v.FindNode("A")
	s.Require().True(ok)
	s.Require().Len(node.Fields, 1)
	s.Equal(Field{Name: "X", Kind: KindU32(7)}, node.Fields[0])
	s.Empty(node.Children)
}

func (s *VisitorSuite) TestMissingRegionKeepsCursor() {
	r := roundTrip(s.T(), func(v *Visitor) error {
		return v.InRegion("A", func() error { return nil })
	})

	s.Require().NoError(r.EnterRegion("A"))
	err := r.EnterRegion("Missing")
	s.ErrorIs(err, merr.ErrRegionDoesNotExist)
	name, _ := r.CurrentRegion()
	s.Equal("A", name)
}

func (s *VisitorSuite) TestLeaveRootRegion() {
	v := New()
	err := v.LeaveRegion()
	s.ErrorIs(err, merr.ErrNoActiveNode)
	name, _ := v.CurrentRegion()
	s.Equal(RootName, name)
}

func (s *VisitorSuite) TestInRegionLeavesOnError() {
	v := New()
	err := v.InRegion("A", func() error {
		return merr.WrapErrUser("boom")
	})
	s.ErrorIs(err, merr.ErrUser)
	name, _ := v.CurrentRegion()
	s.Equal(RootName, name)
	s.NotNil(v.Root())
	_, ok := v.FindNode("A")
	s.True(ok)
}

func (s *VisitorSuite) TestFieldErrors() {
	v := New()
	x := uint32(5)
	s.Require().NoError(VisitValue(v, "X", &x))
	s.ErrorIs(VisitValue(v, "X", &x), merr.ErrFieldAlreadyExists)

	r := roundTrip(s.T(), func(v *Visitor) error {
		return VisitValue(v, "X", &x)
	})
	var missing uint32
	s.ErrorIs(VisitValue(r, "Y", &missing), merr.ErrFieldDoesNotExist)

	var wrong int64 = 77
	s.ErrorIs(VisitValue(r, "X", &wrong), merr.ErrFieldTypeDoesNotMatch)
	s.Equal(int64(77), wrong)

	var got uint32
	s.Require().NoError(VisitValue(r, "X", &got))
	s.Equal(uint32(5), got)
}

func (s *VisitorSuite) TestLeafRoundTrip() {
	type leaves struct {
		B    bool
		U8   uint8
		I8   int8
		U16  uint16
		I16  int16
		U32  uint32
		I32  int32
		U64  uint64
		I64  int64
		F32  float32
		F64  float64
		V2   math32.Vector2
		V3   math32.Vector3
		V4   math32.Vector4
		Q    math32.Quat
		M3   math32.Matrix3
		M4   math32.Matrix4
		Data []byte
		ID   uuid.UUID
		Text string
	}
	visitAll := func(v *Visitor, l *leaves) error {
		pairs := []struct {
			name  string
			value any
		}{
			{"B", &l.B}, {"U8", &l.U8}, {"I8", &l.I8}, {"U16", &l.U16}, {"I16", &l.I16},
			{"U32", &l.U32}, {"I32", &l.I32}, {"U64", &l.U64}, {"I64", &l.I64},
			{"F32", &l.F32}, {"F64", &l.F64}, {"V2", &l.V2}, {"V3", &l.V3}, {"V4", &l.V4},
			{"Q", &l.Q}, {"M3", &l.M3}, {"M4", &l.M4}, {"Data", &l.Data}, {"ID", &l.ID},
			{"Text", &l.Text},
		}
		for _, p := range pairs {
			if err := VisitAny(v, p.name, p.value); err != nil {
				return err
			}
		}
		return nil
	}

	in := leaves{
		B: true, U8: 200, I8: -100, U16: 60000, I16: -30000,
		U32: 4000000000, I32: -2000000000, U64: 1 << 60, I64: -(1 << 60),
		F32: 3.25, F64: -1e300,
		V2: math32.Vector2{X: 1, Y: 2}, V3: math32.Vector3{X: 1, Y: 2, Z: 3},
		V4: math32.Vector4{X: 1, Y: 2, Z: 3, W: 4}, Q: math32.Quat{X: 0, Y: 0, Z: 0, W: 1},
		M3: math32.Matrix3{1, 0, 0, 0, 1, 0, 0, 0, 1}, M4: math32.Matrix4{0: 1, 5: 1, 10: 1, 15: 1},
		Data: []byte{0, 1, 2, 255}, ID: uuid.New(), Text: "héllo",
	}
	r := roundTrip(s.T(), func(v *Visitor) error { return visitAll(v, &in) })

	var out leaves
	s.Require().NoError(visitAll(r, &out))
	s.Empty(cmp.Diff(in, out))
}

func (s *VisitorSuite) TestVisitAnyUnsupported() {
	v := New()
	var c complex64
	s.ErrorIs(VisitAny(v, "C", &c), merr.ErrUser)
}

func (s *VisitorSuite) TestRewind() {
	r := roundTrip(s.T(), func(v *Visitor) error {
		return v.InRegion("A", func() error {
			x := uint8(1)
			return VisitValue(v, "X", &x)
		})
	})
	s.Require().NoError(r.EnterRegion("A"))
	r.Rewind()
	name, _ := r.CurrentRegion()
	s.Equal(RootName, name)
	s.Require().NoError(r.EnterRegion("A"))
	field, ok := r.FindField("X")
	s.Require().True(ok)
	s.Equal(KindU8(1), field.Kind)
}

func (s *VisitorSuite) TestFlags() {
	v := New()
	s.Equal(FlagNone, v.Flags())
	v.SetFlags(FlagSerializeEverything)
	s.True(v.Flags().Has(FlagSerializeEverything))
	s.False(FlagNone.Has(FlagSerializeEverything))
}

func (s *VisitorSuite) TestBlackboard() {
	type resourceManager struct{ name string }
	type locator interface{ Locate() string }

	v := New()
	v.Blackboard().Register(&resourceManager{name: "rm"})
	RegisterAs[locator](v.Blackboard(), staticLocator("here"))
	s.Equal(2, v.Blackboard().Len())

	rm, ok := BlackboardGet[*resourceManager](v)
	s.Require().True(ok)
	s.Equal("rm", rm.name)

	loc, ok := BlackboardGet[locator](v)
	s.Require().True(ok)
	s.Equal("here", loc.Locate())

	_, ok = BlackboardGet[staticLocator](v)
	s.False(ok)
}

type staticLocator string

func (l staticLocator) Locate() string { return string(l) }

func TestVisitor(t *testing.T) {
	suite.Run(t, new(VisitorSuite))
}
