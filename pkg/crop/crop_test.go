package crop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/chazu/cropper/pkg/anchor"
	"github.com/chazu/cropper/pkg/classify"
	"github.com/chazu/cropper/pkg/drawing"
	"github.com/chazu/cropper/pkg/entity"
	"github.com/chazu/cropper/pkg/geom"
	"github.com/chazu/cropper/pkg/kernel"
	"github.com/chazu/cropper/pkg/kernel/kerneltest"
	"github.com/chazu/cropper/pkg/kernel/sdfx"
	"github.com/chazu/cropper/pkg/kernel/winding"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTx records delete requests and fails for handles in fail.
type recordingTx struct {
	deleted []entity.Handle
	fail    map[entity.Handle]error
}

func (tx *recordingTx) RequestDelete(h entity.Handle) error {
	if err := tx.fail[h]; err != nil {
		return err
	}
	tx.deleted = append(tx.deleted, h)
	return nil
}

// line is an entity kind with no anchor strategy.
type line struct{ entity.Base }

func (*line) Kind() entity.Kind { return "line" }

func textAt(h entity.Handle, p geom.Point) *entity.Text {
	return &entity.Text{Base: entity.Base{ID: h}, Value: string(h), Position: p}
}

func kernels() []kernel.Kernel {
	return []kernel.Kernel{sdfx.New(), winding.New()}
}

// courtyard is the standard scene: a 10x10 square with a 2x2 hole.
func courtyard() []entity.Entity {
	return []entity.Entity{
		textAt("A", geom.Pt(5, 5)),  // in the hole
		textAt("B", geom.Pt(2, 2)),  // strictly inside
		textAt("C", geom.Pt(20, 5)), // strictly outside
		textAt("D", geom.Pt(10, 5)), // on the outer edge
		textAt("E", geom.Pt(4, 5)),  // on the hole edge
	}
}

func TestCropAllCourtyard(t *testing.T) {
	tests := []struct {
		side        Side
		wantDeleted []entity.Handle
	}{
		{KeepInside, []entity.Handle{"A", "C"}},
		{KeepOutside, []entity.Handle{"B", "D", "E"}},
	}
	wantCont := map[entity.Handle]classify.Containment{
		"A": classify.Outside,
		"B": classify.Inside,
		"C": classify.Outside,
		"D": classify.OnBoundary,
		"E": classify.OnBoundary,
	}

	for _, k := range kernels() {
		for _, tt := range tests {
			t.Run(k.Name()+"/"+tt.side.String(), func(t *testing.T) {
				tx := &recordingTx{}
				report, err := New(k).CropAll(context.Background(), kerneltest.SquareWithHole(), tt.side, tx, courtyard())
				require.NoError(t, err)

				if diff := cmp.Diff(tt.wantDeleted, tx.deleted); diff != "" {
					t.Errorf("deleted mismatch (-want +got):\n%s", diff)
				}
				if diff := cmp.Diff(tt.wantDeleted, report.Handles(ActionDiscard)); diff != "" {
					t.Errorf("report discards mismatch (-want +got):\n%s", diff)
				}

				got := make(map[entity.Handle]classify.Containment)
				for _, o := range report.Outcomes {
					got[o.Handle] = o.Containment
					assert.True(t, o.State.Terminal(), "%s ended in %s", o.Handle, o.State)
					if o.Action == ActionDiscard {
						assert.Equal(t, StateApplied, o.State)
					} else {
						assert.Equal(t, StateSkipped, o.State)
					}
				}
				if diff := cmp.Diff(wantCont, got); diff != "" {
					t.Errorf("containment mismatch (-want +got):\n%s", diff)
				}

				assert.Equal(t, k.Name(), report.Kernel)
				assert.Equal(t, len(tt.wantDeleted), report.Discarded())
				assert.Equal(t, 5-len(tt.wantDeleted), report.Kept())
				assert.Zero(t, report.Failed())
				assert.False(t, report.DryRun)
			})
		}
	}
}

func TestCropSingle(t *testing.T) {
	c := New(winding.New())
	tx := &recordingTx{}

	out, err := c.Crop(context.Background(), Request{
		Entity:   textAt("A", geom.Pt(5, 5)),
		Boundary: kerneltest.SquareWithHole(),
		Side:     KeepInside,
		Tx:       tx,
	})
	require.NoError(t, err)
	assert.Equal(t, StateApplied, out.State)
	assert.Equal(t, ActionDiscard, out.Action)
	require.NotNil(t, out.Anchor)
	assert.Equal(t, geom.Pt(5, 5), *out.Anchor)
	assert.Equal(t, []entity.Handle{"A"}, tx.deleted)

	out, err = c.Crop(context.Background(), Request{
		Entity:   &entity.MText{Base: entity.Base{ID: "M"}, Location: geom.Pt(2, 2)},
		Boundary: kerneltest.SquareWithHole(),
		Side:     KeepInside,
		Tx:       tx,
	})
	require.NoError(t, err)
	assert.Equal(t, StateSkipped, out.State)
	assert.Equal(t, classify.Inside, out.Containment)
	assert.False(t, out.Failed())
	assert.Len(t, tx.deleted, 1)
}

func TestFaceUsesSecondVertex(t *testing.T) {
	// Only vertex 1 lies inside the square.
	face, err := entity.NewFace(geom.Pt(-5, -5), geom.Pt(3, 3), geom.Pt(-5, 20), geom.Pt(20, 20))
	require.NoError(t, err)
	face.SetHandle("F")

	for _, k := range kernels() {
		tx := &recordingTx{}
		report, err := New(k).CropAll(context.Background(), kerneltest.SquareWithHole(), KeepInside, tx, []entity.Entity{face})
		require.NoError(t, err)
		assert.Empty(t, tx.deleted, k.Name())
		require.NotNil(t, report.Outcomes[0].Anchor)
		assert.Equal(t, geom.Pt(3, 3), *report.Outcomes[0].Anchor)
	}
}

func TestOpenBoundaryTouchesNothing(t *testing.T) {
	open := geom.Polyline(geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(10, 10), geom.Pt(0, 10))
	open.Closed = false

	for _, k := range kernels() {
		tx := &recordingTx{}
		report, err := New(k).CropAll(context.Background(), geom.NewCurve(open), KeepInside, tx, courtyard())
		assert.True(t, errors.Is(err, geom.ErrNotClosedCurve), "%s: got %v", k.Name(), err)
		require.NotNil(t, report)
		assert.Empty(t, report.Outcomes)
		assert.Empty(t, tx.deleted)

		out, err := New(k).Crop(context.Background(), Request{
			Entity: textAt("A", geom.Pt(20, 5)), Boundary: geom.NewCurve(open), Side: KeepInside, Tx: tx,
		})
		assert.True(t, errors.Is(err, geom.ErrNotClosedCurve))
		assert.Equal(t, StateSkipped, out.State)
		assert.Equal(t, ActionKeep, out.Action)
		assert.Empty(t, tx.deleted)
	}
}

func TestDegenerateBoundaryTouchesNothing(t *testing.T) {
	flat := geom.NewCurve(geom.Polyline(geom.Pt(0, 0), geom.Pt(5, 0), geom.Pt(10, 0)))
	tx := &recordingTx{}
	_, err := New(sdfx.New()).CropAll(context.Background(), flat, KeepOutside, tx, courtyard())
	assert.True(t, errors.Is(err, geom.ErrDegenerateGeometry), "got %v", err)
	assert.Empty(t, tx.deleted)
}

func TestUnsupportedKindIsSkipped(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	entities := []entity.Entity{
		&line{Base: entity.Base{ID: "L"}},
		textAt("C", geom.Pt(20, 5)),
	}
	tx := &recordingTx{}
	report, err := New(winding.New(), WithLogger(logger)).
		CropAll(context.Background(), kerneltest.SquareWithHole(), KeepInside, tx, entities)
	require.NoError(t, err)

	l := report.Outcomes[0]
	assert.True(t, l.Failed())
	assert.True(t, errors.Is(l.Err, anchor.ErrUnsupportedEntityKind))
	assert.Equal(t, StateSkipped, l.State)
	assert.Equal(t, ActionKeep, l.Action)
	assert.NotEmpty(t, l.Error)
	assert.Nil(t, l.Anchor)
	assert.Equal(t, classify.Unknown, l.Containment)

	// The batch goes on past the failure.
	assert.Equal(t, []entity.Handle{"C"}, tx.deleted)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, report.Discarded())
	assert.NotContains(t, report.Decisions(), entity.Handle("L"))

	assert.Contains(t, logs.String(), "entity left untouched")
	assert.Contains(t, logs.String(), "handle=L")
	assert.Contains(t, logs.String(), "crop complete")
}

func TestPlaneMismatchNeverDeletes(t *testing.T) {
	entities := []entity.Entity{
		textAt("up", geom.Point{X: 20, Y: 5, Z: 3}),
		textAt("flat", geom.Pt(20, 5)),
	}
	tx := &recordingTx{}
	report, err := New(sdfx.New()).CropAll(context.Background(), kerneltest.SquareWithHole(), KeepInside, tx, entities)
	require.NoError(t, err)

	up := report.Outcomes[0]
	assert.True(t, errors.Is(up.Err, classify.ErrPlaneMismatch))
	assert.Equal(t, classify.Unknown, up.Containment)
	require.NotNil(t, up.Anchor)
	assert.Equal(t, 3.0, up.Anchor.Z)
	assert.Equal(t, []entity.Handle{"flat"}, tx.deleted)

	// With the check off the raised text is projected and removed.
	tx = &recordingTx{}
	_, err = New(sdfx.New(), WithClassifier(classify.New(classify.WithPlaneCheck(false)))).
		CropAll(context.Background(), kerneltest.SquareWithHole(), KeepInside, tx, entities)
	require.NoError(t, err)
	assert.Equal(t, []entity.Handle{"up", "flat"}, tx.deleted)
}

func TestDeleteFailureLeavesEntity(t *testing.T) {
	boom := errors.New("locked layer")
	tx := &recordingTx{fail: map[entity.Handle]error{"A": boom}}

	report, err := New(winding.New()).CropAll(context.Background(), kerneltest.SquareWithHole(), KeepInside, tx, courtyard())
	require.NoError(t, err)

	a := report.Outcomes[0]
	assert.True(t, errors.Is(a.Err, boom))
	assert.Equal(t, StateSkipped, a.State)
	assert.Equal(t, ActionKeep, a.Action)
	assert.Equal(t, []entity.Handle{"C"}, tx.deleted)
}

func TestPlanIsDryRunAndIdempotent(t *testing.T) {
	c := New(sdfx.New())
	first, err := c.Plan(context.Background(), kerneltest.SquareWithHole(), KeepInside, courtyard())
	require.NoError(t, err)
	assert.True(t, first.DryRun)
	for _, o := range first.Outcomes {
		assert.Equal(t, StateDecided, o.State, string(o.Handle))
	}

	for i := 0; i < 3; i++ {
		again, err := c.Plan(context.Background(), kerneltest.SquareWithHole(), KeepInside, courtyard())
		require.NoError(t, err)
		if diff := cmp.Diff(first.Decisions(), again.Decisions()); diff != "" {
			t.Fatalf("run %d decisions differ (-first +again):\n%s", i, diff)
		}
	}

	want := map[entity.Handle]Action{
		"A": ActionDiscard, "B": ActionKeep, "C": ActionDiscard, "D": ActionKeep, "E": ActionKeep,
	}
	if diff := cmp.Diff(want, first.Decisions()); diff != "" {
		t.Errorf("decisions mismatch (-want +got):\n%s", diff)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tx := &recordingTx{}
	c := New(winding.New())
	report, err := c.CropAll(ctx, kerneltest.SquareWithHole(), KeepInside, tx, courtyard())
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, report)
	assert.Empty(t, report.Outcomes)
	assert.Empty(t, tx.deleted)

	out, err := c.Crop(ctx, Request{
		Entity: textAt("C", geom.Pt(20, 5)), Boundary: kerneltest.SquareWithHole(), Side: KeepInside, Tx: tx,
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateSkipped, out.State)
	assert.Empty(t, tx.deleted)
}

// cancelTx cancels the batch after its first delete request.
type cancelTx struct {
	recordingTx
	cancel context.CancelFunc
}

func (tx *cancelTx) RequestDelete(h entity.Handle) error {
	defer tx.cancel()
	return tx.recordingTx.RequestDelete(h)
}

func TestCancelMidBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tx := &cancelTx{cancel: cancel}

	report, err := New(winding.New()).CropAll(ctx, kerneltest.SquareWithHole(), KeepInside, tx, courtyard())
	assert.True(t, errors.Is(err, context.Canceled))
	// A is discarded, then the batch stops before B.
	assert.Len(t, report.Outcomes, 1)
	assert.Equal(t, []entity.Handle{"A"}, tx.deleted)
}

func TestInvalidRequests(t *testing.T) {
	c := New(winding.New())
	ctx := context.Background()
	tx := &recordingTx{}
	b := kerneltest.SquareWithHole()

	_, err := c.CropAll(ctx, b, KeepInside, nil, courtyard())
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	report, err := c.CropAll(ctx, nil, KeepInside, tx, courtyard())
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Nil(t, report)

	_, err = c.Plan(ctx, b, Side(5), courtyard())
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	for _, req := range []Request{
		{Boundary: b, Tx: tx},
		{Entity: textAt("A", geom.Pt(0, 0)), Boundary: b},
		{Entity: textAt("A", geom.Pt(0, 0)), Tx: tx},
	} {
		out, err := c.Crop(ctx, req)
		assert.True(t, errors.Is(err, ErrInvalidRequest))
		assert.Equal(t, StateSkipped, out.State)
	}
	assert.Empty(t, tx.deleted)
}

func TestConcaveBoundary(t *testing.T) {
	// An L shape: the notch at the top right is outside.
	l := geom.NewCurve(geom.Polyline(
		geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(10, 5),
		geom.Pt(5, 5), geom.Pt(5, 10), geom.Pt(0, 10),
	))
	entities := []entity.Entity{
		textAt("notch", geom.Pt(8, 8)),
		textAt("foot", geom.Pt(8, 2)),
		textAt("leg", geom.Pt(2, 8)),
		textAt("corner", geom.Pt(5, 5)),
	}
	for _, k := range kernels() {
		report, err := New(k).Plan(context.Background(), l, KeepInside, entities)
		require.NoError(t, err)
		want := map[entity.Handle]Action{
			"notch": ActionDiscard, "foot": ActionKeep, "leg": ActionKeep, "corner": ActionKeep,
		}
		if diff := cmp.Diff(want, report.Decisions()); diff != "" {
			t.Errorf("%s decisions mismatch (-want +got):\n%s", k.Name(), diff)
		}
	}
}

func TestCropDrawing(t *testing.T) {
	d := drawing.New()
	for _, e := range courtyard() {
		d.MustAdd(e)
	}
	tx, err := d.Begin()
	require.NoError(t, err)

	_, err = New(sdfx.New()).CropAll(context.Background(), kerneltest.SquareWithHole(), KeepOutside, tx, d.Entities())
	require.NoError(t, err)
	assert.Equal(t, 5, d.Len(), "nothing is removed before commit")

	n, err := tx.Commit()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var left []entity.Handle
	for _, e := range d.Entities() {
		left = append(left, e.Handle())
	}
	assert.Equal(t, []entity.Handle{"A", "C"}, left)
}

func TestNilPointerEntityIsSkipped(t *testing.T) {
	entities := []entity.Entity{(*entity.Text)(nil), textAt("C", geom.Pt(20, 5))}
	for _, k := range kernels() {
		tx := &recordingTx{}
		var report *Report
		var err error
		require.NotPanics(t, func() {
			report, err = New(k).CropAll(context.Background(), kerneltest.SquareWithHole(), KeepInside, tx, entities)
		}, k.Name())
		require.NoError(t, err)

		first := report.Outcomes[0]
		assert.True(t, errors.Is(first.Err, anchor.ErrUnsupportedEntityKind), "got %v", first.Err)
		assert.Equal(t, StateSkipped, first.State)
		assert.Empty(t, first.Handle)
		assert.Equal(t, []entity.Handle{"C"}, tx.deleted)

		_, err = New(k).Crop(context.Background(), Request{
			Entity: (*entity.MText)(nil), Boundary: kerneltest.SquareWithHole(), Side: KeepInside, Tx: tx,
		})
		assert.True(t, errors.Is(err, ErrInvalidRequest), "got %v", err)
	}
}

// A failed outcome must not read as a classification at the origin.
func TestFailedOutcomeJSON(t *testing.T) {
	entities := []entity.Entity{
		&line{Base: entity.Base{ID: "L"}},
		textAt("up", geom.Point{X: 2, Y: 2, Z: 3}),
		textAt("B", geom.Pt(2, 2)),
	}
	report, err := New(winding.New()).Plan(context.Background(), kerneltest.SquareWithHole(), KeepOutside, entities)
	require.NoError(t, err)

	data, err := json.Marshal(report.Outcomes)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 3)

	assert.NotContains(t, got[0], "anchor")
	assert.Equal(t, "unknown", got[0]["containment"])
	assert.Equal(t, "keep", got[0]["action"])
	assert.NotEmpty(t, got[0]["error"])

	assert.Contains(t, got[1], "anchor")
	assert.Equal(t, "unknown", got[1]["containment"])
	assert.Equal(t, "keep", got[1]["action"])

	assert.Equal(t, "inside", got[2]["containment"])
	assert.Equal(t, "discard", got[2]["action"])
	assert.NotContains(t, got[2], "error")
}
