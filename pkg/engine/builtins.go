package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/cropper/pkg/crop"
	"github.com/chazu/cropper/pkg/entity"
	"github.com/chazu/cropper/pkg/geom"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpPoint wraps a geom.Point.
type sexpPoint struct {
	pt geom.Point
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(pt %g %g %g)", p.pt.X, p.pt.Y, p.pt.Z)
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// sexpLoop wraps a geom.Loop so it can be handed to `boundary`.
type sexpLoop struct {
	loop geom.Loop
}

func (l *sexpLoop) SexpString(ps *zygo.PrintState) string {
	state := "closed"
	if !l.loop.Closed {
		state = "open"
	}
	return fmt.Sprintf("(loop %d vertices %s)", l.loop.Len(), state)
}
func (l *sexpLoop) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by rewriteSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toPoint extracts a geom.Point from a sexpPoint.
func toPoint(s zygo.Sexp) (geom.Point, error) {
	if p, ok := s.(*sexpPoint); ok {
		return p.pt, nil
	}
	return geom.Point{}, fmt.Errorf("expected point, got %T (%s)", s, s.SexpString(nil))
}

// toLoop extracts a geom.Loop from a sexpLoop.
func toLoop(s zygo.Sexp) (geom.Loop, error) {
	if l, ok := s.(*sexpLoop); ok {
		return l.loop, nil
	}
	return geom.Loop{}, fmt.Errorf("expected loop, got %T (%s)", s, s.SexpString(nil))
}

// toPoints converts every positional argument to a point.
func toPoints(args []zygo.Sexp) ([]geom.Point, error) {
	pts := make([]geom.Point, 0, len(args))
	for i, a := range args {
		p, err := toPoint(a)
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %w", i, err)
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the crop script builtins into a zygomys
// environment. The builtins populate scene during evaluation.
//
// Source must pass through rewriteSource before evaluation so that
// :keyword tokens arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, scene *Scene) {

	// -----------------------------------------------------------------------
	// (pt 1 2) / (pt 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("pt", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 && len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("pt requires 2 or 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("pt: %c: %w", "xyz"[i], err)
			}
			xyz[i] = f
		}
		return &sexpPoint{pt: geom.Point{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (loop p1 p2 p3 ... :bulges (list 0 1 0))   closed
	// (open-loop p1 p2 p3 ...)                    open
	// -----------------------------------------------------------------------
	makeLoop := func(closed bool) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			pts, err := toPoints(pa.positional)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			l := geom.Polyline(pts...)
			l.Closed = closed

			if v, ok := pa.kw["bulges"]; ok {
				items, err := sexpListToSlice(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: bulges: %w", name, err)
				}
				if len(items) > len(pts) {
					return zygo.SexpNull, fmt.Errorf("%s: %d bulges for %d vertices", name, len(items), len(pts))
				}
				for i, item := range items {
					b, err := toFloat64(item)
					if err != nil {
						return zygo.SexpNull, fmt.Errorf("%s: bulge %d: %w", name, i, err)
					}
					l.Vertices[i].Bulge = b
				}
			}
			return &sexpLoop{loop: l}, nil
		}
	}
	env.AddFunction("loop", makeLoop(true))
	env.AddFunction("open_loop", makeLoop(false))

	// -----------------------------------------------------------------------
	// (rect :min (pt 0 0) :max (pt 10 10))
	// -----------------------------------------------------------------------
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var corners [2]geom.Point
		for i, key := range []string{"min", "max"} {
			v, ok := pa.kw[key]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("rect requires :%s", key)
			}
			p, err := toPoint(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rect: %s: %w", key, err)
			}
			corners[i] = p
		}
		return &sexpLoop{loop: geom.Rect(corners[0], corners[1])}, nil
	})

	// -----------------------------------------------------------------------
	// (circle :center (pt 5 5) :radius 2)
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, ok := pa.kw["center"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("circle requires :center")
		}
		center, err := toPoint(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: center: %w", err)
		}
		v, ok = pa.kw["radius"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("circle requires :radius")
		}
		r, err := toFloat64(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: radius: %w", err)
		}
		if r <= 0 {
			return zygo.SexpNull, fmt.Errorf("circle: radius must be positive, got %g", r)
		}
		return &sexpLoop{loop: geom.Circle(center, r)}, nil
	})

	// -----------------------------------------------------------------------
	// (boundary outer-loop :holes (list hole-loop ...))
	// -----------------------------------------------------------------------
	env.AddFunction("boundary", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if scene.Boundary != nil {
			return zygo.SexpNull, fmt.Errorf("boundary already defined")
		}
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("boundary requires exactly one outer loop, got %d", len(pa.positional))
		}
		outer, err := toLoop(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("boundary: outer: %w", err)
		}

		var holes []geom.Loop
		if v, ok := pa.kw["holes"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("boundary: holes: %w", err)
			}
			for i, item := range items {
				h, err := toLoop(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("boundary: hole %d: %w", i, err)
				}
				holes = append(holes, h)
			}
		}

		scene.Boundary = geom.NewCurve(outer, holes...)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (keep :inside) / (keep :outside)
	// -----------------------------------------------------------------------
	env.AddFunction("keep", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("keep requires one argument, :inside or :outside")
		}
		s, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("keep: %w", err)
		}
		side, err := crop.ParseSide(s)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("keep: %w", err)
		}
		scene.Side = side
		scene.SideSet = true
		return zygo.SexpNull, nil
	})

	// add inserts e into the drawing and returns its handle to the script.
	add := func(fn string, e entity.Entity, pa kwArgs) (zygo.Sexp, error) {
		if v, ok := pa.kw["handle"]; ok {
			h, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: handle: %w", fn, err)
			}
			if hs, ok := e.(interface{ SetHandle(entity.Handle) }); ok {
				hs.SetHandle(entity.Handle(h))
			}
		}
		h, err := scene.Drawing.Add(e)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		return &zygo.SexpStr{S: string(h)}, nil
	}

	// atPoint reads the required :at keyword.
	atPoint := func(fn string, pa kwArgs) (geom.Point, error) {
		v, ok := pa.kw["at"]
		if !ok {
			return geom.Point{}, fmt.Errorf("%s requires :at", fn)
		}
		p, err := toPoint(v)
		if err != nil {
			return geom.Point{}, fmt.Errorf("%s: at: %w", fn, err)
		}
		return p, nil
	}

	// -----------------------------------------------------------------------
	// (text "label" :at (pt 5 5) :height 2.5 :handle "2A")
	// -----------------------------------------------------------------------
	env.AddFunction("text", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		t := &entity.Text{}
		if len(pa.positional) > 0 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("text: value: %w", err)
			}
			t.Value = s
		}
		p, err := atPoint("text", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		t.Position = p
		if v, ok := pa.kw["height"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("text: height: %w", err)
			}
			t.Height = f
		}
		return add("text", t, pa)
	})

	// -----------------------------------------------------------------------
	// (mtext "line one\nline two" :at (pt 5 5) :width 40)
	// -----------------------------------------------------------------------
	env.AddFunction("mtext", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		m := &entity.MText{}
		if len(pa.positional) > 0 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mtext: contents: %w", err)
			}
			m.Contents = s
		}
		p, err := atPoint("mtext", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		m.Location = p
		if v, ok := pa.kw["width"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("mtext: width: %w", err)
			}
			m.Width = f
		}
		return add("mtext", m, pa)
	})

	// -----------------------------------------------------------------------
	// (face (pt 0 0) (pt 1 0) (pt 1 1) (pt 0 1))
	// -----------------------------------------------------------------------
	env.AddFunction("face", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		pts, err := toPoints(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: %w", err)
		}
		f, err := entity.NewFace(pts...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("face: %w", err)
		}
		return add("face", f, pa)
	})
}
