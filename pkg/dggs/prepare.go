package dggs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/beetlebugorg/vector2dggs/internal/feature"
	"github.com/beetlebugorg/vector2dggs/internal/geometry"
	"github.com/beetlebugorg/vector2dggs/internal/katana"
	"github.com/beetlebugorg/vector2dggs/internal/metrics"
	"github.com/beetlebugorg/vector2dggs/internal/partition"
	"github.com/beetlebugorg/vector2dggs/internal/projection"
	"github.com/beetlebugorg/vector2dggs/internal/store"
)

// dropWarnFraction is the share of dropped pieces above which the drop is
// logged as a warning.
const dropWarnFraction = 0.01

// Drop reasons.
const (
	dropEmpty       = "empty"
	dropUnsupported = "unsupported"
	dropInvalid     = "invalid"
)

// prepared is the output of the bisect and explode stage.
type prepared struct {
	features []feature.Feature
	layout   partition.Layout
	read     int
	pieces   int
	dropped  map[string]int
}

func (p *prepared) droppedTotal() int {
	n := 0
	for _, v := range p.dropped {
		n += v
	}
	return n
}

// layout decides the id column and the retained attribute columns.
func (p *plan) layout(c *feature.Collection, o Options) (partition.Layout, error) {
	l := partition.Layout{Method: p.method}

	if o.IDField == "" {
		l.ID = store.Column{Name: "fid", Type: store.Int64}
	} else {
		l.ID = store.Column{Name: o.IDField, Type: store.String}
		typed := false
		for i, f := range c.Features {
			v, ok := f.Properties[o.IDField]
			if !ok || v == nil {
				return l, fmt.Errorf("feature %d has no value for id field %q", i, o.IDField)
			}
			t, _ := store.InferType(v)
			if !typed {
				l.ID.Type, typed = t, true
			} else {
				l.ID.Type = store.Merge(l.ID.Type, t)
			}
		}
	}

	if !o.KeepAttributes {
		return l, nil
	}
	reserved := map[string]bool{
		l.ID.Name:                true,
		partition.GeometryColumn: true,
		p.cellColumn():           true,
		p.parentColumn():         true,
	}
	if col := p.method.Column(); col != "" {
		reserved[col] = true
	}
	for _, name := range c.AttributeColumns() {
		if reserved[name] {
			if name != l.ID.Name {
				p.log.Warn("attribute shadows an output column and is not kept", "attribute", name)
			}
			continue
		}
		col := store.Column{Name: name, Type: store.String}
		typed := false
		for _, f := range c.Features {
			t, ok := store.InferType(f.Properties[name])
			if !ok {
				continue
			}
			if !typed {
				col.Type, typed = t, true
			} else {
				col.Type = store.Merge(col.Type, t)
			}
		}
		l.Attributes = append(l.Attributes, col)
	}
	return l, nil
}

// cutThreshold resolves the bisection limit in units of crs.
func (p *plan) cutThreshold(crs int) katana.Threshold {
	switch {
	case p.threshold == 0:
		return katana.Threshold{}
	case p.threshold > 0:
		return katana.AreaThreshold(p.threshold)
	}
	area := p.ix.MaxCellArea(p.parentRes)
	if !projection.Metric(crs) {
		area /= projection.MetresPerDegree * projection.MetresPerDegree
	}
	return katana.AreaThreshold(area)
}

// prepare assigns identifiers, bisects every geometry in the cutting CRS,
// returns the pieces to EPSG:4326 and explodes them into single parts.
// Pieces that are empty, unsupported or invalid are dropped and counted.
func (p *plan) prepare(ctx context.Context, c *feature.Collection, o Options, rec *metrics.Recorder, log *slog.Logger) (*prepared, error) {
	inCRS := c.CRS()
	if !projection.Supported(inCRS) {
		return nil, &projection.ErrUnsupportedCRS{EPSG: inCRS}
	}
	cutCRS := o.CutCRS
	if cutCRS == 0 {
		cutCRS = inCRS
	}

	l, err := p.layout(c, o)
	if err != nil {
		return nil, err
	}
	threshold := p.cutThreshold(cutCRS)
	log.Debug("cutting large geometries", "stage", "bisect", "crs", cutCRS, "area_threshold", threshold.Area)

	type bisected struct {
		parts   []feature.Feature
		pieces  int
		dropped map[string]int
	}
	results := make([]bisected, len(c.Features))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range c.Features {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f := c.Features[i]
			res := bisected{dropped: map[string]int{}}
			defer func() { results[i] = res }()

			var id any = int64(i)
			if o.IDField != "" {
				id = f.Properties[o.IDField]
			}
			props := make(map[string]any, len(l.Attributes))
			for _, col := range l.Attributes {
				props[col.Name] = f.Properties[col.Name]
			}

			if f.Geometry == nil || geometry.IsEmpty(f.Geometry) {
				res.pieces = 1
				res.dropped[dropEmpty]++
				return nil
			}
			cutGeom, err := projection.Transform(f.Geometry, inCRS, cutCRS)
			if err != nil {
				return err
			}
			pieces := katana.Bisect(cutGeom, threshold)
			if len(pieces) == 0 {
				res.pieces = 1
				res.dropped[dropInvalid]++
				return nil
			}
			for _, piece := range pieces {
				geo, err := projection.Transform(piece, cutCRS, projection.WGS84)
				if err != nil {
					return err
				}
				for _, part := range geometry.Explode(geo) {
					res.pieces++
					switch {
					case geometry.IsEmpty(part):
						res.dropped[dropEmpty]++
					case !geometry.Supported(part):
						res.dropped[dropUnsupported]++
					case geometry.ValidateGeographic(part) != nil:
						res.dropped[dropInvalid]++
					default:
						res.parts = append(res.parts, feature.Feature{ID: id, Geometry: part, Properties: props})
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("bisect: %w", err)
	}

	out := &prepared{layout: l, read: len(c.Features), dropped: map[string]int{}}
	for _, r := range results {
		out.features = append(out.features, r.parts...)
		out.pieces += r.pieces
		for reason, n := range r.dropped {
			out.dropped[reason] += n
		}
	}

	rec.FeaturesRead.Add(float64(out.read))
	rec.Pieces.Add(float64(len(out.features)))
	reasons := make([]string, 0, len(out.dropped))
	for reason := range out.dropped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		n := out.dropped[reason]
		rec.FeaturesDropped.WithLabelValues(reason).Add(float64(n))
		log.Debug("considering dropped geometries", "stage", "explode", "reason", reason, "count", n)
	}

	if n := out.droppedTotal(); n > 0 {
		frac := float64(n) / float64(out.pieces)
		level := slog.LevelInfo
		if frac >= dropWarnFraction {
			level = slog.LevelWarn
		}
		log.Log(ctx, level, "dropped rows", "count", n, "percent", fmt.Sprintf("%.2f", frac*100))
	}
	return out, nil
}
