// Package crop decides, for each drawing entity, whether it survives a
// crop to a boundary curve. Every entity is reduced to one anchor point,
// classified against the boundary region, and kept or discarded by the
// caller's side policy. Discards are requested through a caller-owned
// transaction; the cropper never commits, rolls back or edits geometry.
package crop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/chazu/cropper/pkg/anchor"
	"github.com/chazu/cropper/pkg/classify"
	"github.com/chazu/cropper/pkg/entity"
	"github.com/chazu/cropper/pkg/geom"
	"github.com/chazu/cropper/pkg/kernel"
)

// ErrInvalidRequest is returned for requests missing a boundary,
// transaction or entity, or carrying an unknown side.
var ErrInvalidRequest = errors.New("invalid crop request")

// Transaction is the caller's open edit scope. Deletions take effect only
// when the owner commits.
type Transaction interface {
	RequestDelete(h entity.Handle) error
}

// Request parameterizes one cropping decision.
type Request struct {
	Entity   entity.Entity
	Boundary *geom.Curve
	Side     Side
	Tx       Transaction
}

// Validate checks that the request is complete.
func (r Request) Validate() error {
	if entity.IsNil(r.Entity) {
		return fmt.Errorf("%w: no entity", ErrInvalidRequest)
	}
	if r.Tx == nil {
		return fmt.Errorf("%w: no transaction", ErrInvalidRequest)
	}
	return validateBatch(r.Boundary, r.Side)
}

func validateBatch(boundary *geom.Curve, side Side) error {
	if boundary == nil {
		return fmt.Errorf("%w: no boundary", ErrInvalidRequest)
	}
	if side != KeepInside && side != KeepOutside {
		return fmt.Errorf("%w: unknown side %d", ErrInvalidRequest, int(side))
	}
	return nil
}

// Cropper is the generic cropping engine.
type Cropper struct {
	kernel     kernel.Kernel
	classifier *classify.Classifier
	anchors    *anchor.Registry
	logger     *slog.Logger
}

// Option configures a Cropper.
type Option func(*Cropper)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cropper) { c.logger = logger }
}

// WithAnchors replaces the default anchor registry.
func WithAnchors(r *anchor.Registry) Option {
	return func(c *Cropper) { c.anchors = r }
}

// WithClassifier replaces the default classifier.
func WithClassifier(cl *classify.Classifier) Option {
	return func(c *Cropper) { c.classifier = cl }
}

// New returns a Cropper that builds regions with k.
func New(k kernel.Kernel, opts ...Option) *Cropper {
	c := &Cropper{
		kernel:     k,
		classifier: classify.New(),
		anchors:    anchor.Default(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Crop runs a single request: build the region, classify the entity's
// anchor, decide, and request deletion when the entity is discarded. On
// any error the entity is left untouched and the outcome is skipped with
// the error attached.
func (c *Cropper) Crop(ctx context.Context, req Request) (Outcome, error) {
	out := newOutcome(req.Entity)
	if err := req.Validate(); err != nil {
		out.fail(err)
		return out, err
	}
	if err := ctx.Err(); err != nil {
		out.fail(err)
		return out, err
	}

	err := kernel.WithRegion(c.kernel, req.Boundary, func(r kernel.Region) error {
		out = c.cropOne(r, req.Entity, req.Side, req.Tx)
		return out.Err
	})
	if err != nil {
		if out.Err == nil {
			out.fail(err)
		}
		return out, err
	}
	return out, nil
}

// CropAll crops every entity against one region built from boundary.
// Boundary errors abort before any entity is touched. Per-entity
// failures are recorded on that entity's outcome and the batch goes on.
// Cancelling ctx stops the batch between entities; the partial report is
// returned with ctx's error.
func (c *Cropper) CropAll(ctx context.Context, boundary *geom.Curve, side Side, tx Transaction, entities []entity.Entity) (*Report, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: no transaction", ErrInvalidRequest)
	}
	return c.run(ctx, boundary, side, tx, entities)
}

// Plan computes the decisions CropAll would make without issuing any
// deletion. Outcomes end in StateDecided.
func (c *Cropper) Plan(ctx context.Context, boundary *geom.Curve, side Side, entities []entity.Entity) (*Report, error) {
	return c.run(ctx, boundary, side, nil, entities)
}

func (c *Cropper) run(ctx context.Context, boundary *geom.Curve, side Side, tx Transaction, entities []entity.Entity) (*Report, error) {
	if err := validateBatch(boundary, side); err != nil {
		return nil, err
	}

	report := &Report{Side: side, Kernel: c.kernel.Name(), DryRun: tx == nil}
	err := kernel.WithRegion(c.kernel, boundary, func(r kernel.Region) error {
		for _, e := range entities {
			if err := ctx.Err(); err != nil {
				return err
			}
			report.Outcomes = append(report.Outcomes, c.cropOne(r, e, side, tx))
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("crop aborted",
			"kernel", report.Kernel,
			"side", side.String(),
			"processed", len(report.Outcomes),
			"total", len(entities),
			"error", err)
		return report, err
	}

	c.logger.Info("crop complete",
		"kernel", report.Kernel,
		"side", side.String(),
		"dry_run", report.DryRun,
		"kept", report.Kept(),
		"discarded", report.Discarded(),
		"failed", report.Failed())
	return report, nil
}

// cropOne walks one entity through the state machine against a built
// region. A nil tx stops at StateDecided.
func (c *Cropper) cropOne(r kernel.Region, e entity.Entity, side Side, tx Transaction) Outcome {
	out := newOutcome(e)

	pt, err := c.anchors.AnchorOf(e)
	if err != nil {
		out.fail(err)
		c.logFailure(out)
		return out
	}
	out.Anchor = &pt

	cont, err := c.classifier.Classify(r, pt)
	if err != nil {
		out.fail(err)
		c.logFailure(out)
		return out
	}
	out.Containment = cont
	out.State = StateClassified

	out.Action = Decide(cont, side)
	out.State = StateDecided

	switch {
	case tx == nil:
	case out.Action == ActionDiscard:
		if err := tx.RequestDelete(out.Handle); err != nil {
			out.fail(fmt.Errorf("request delete %s: %w", out.Handle, err))
			c.logFailure(out)
			return out
		}
		out.State = StateApplied
	default:
		out.State = StateSkipped
	}

	c.logger.Debug("entity cropped",
		"handle", string(out.Handle),
		"kind", string(out.Kind),
		"anchor", pt.String(),
		"containment", cont.String(),
		"action", out.Action.String(),
		"state", out.State.String())
	return out
}

func (c *Cropper) logFailure(out Outcome) {
	c.logger.Warn("entity left untouched",
		"handle", string(out.Handle),
		"kind", string(out.Kind),
		"error", out.Err)
}
