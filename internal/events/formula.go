package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/veritaschain/veritaschain/internal/model"
)

// LeafConfidence supplies the numeric confidence of a single leaf event.
// Implemented by the confidence engine; accepted here as an interface so
// formula rendering and the confidence engine's own aggregation walk can
// share this package's resolution/depth logic without an import cycle.
type LeafConfidence interface {
	Confidence(ctx context.Context, ev model.Event) (float64, error)
}

// Formula renders a side-effect-free textual form of ev's aggregation tree.
// Leaves render as their numeric confidence to three decimals; composites
// render as min(...), max(...), sequence(... → ...), or custom(...)
// according to their aggregation logic. Weak components are omitted.
func (r *Resolver) Formula(ctx context.Context, ev model.Event, lc LeafConfidence) (string, error) {
	if !ev.IsComposite() {
		c, err := lc.Confidence(ctx, ev)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%.3f", c), nil
	}

	parts := make([]string, 0, len(ev.Components))
	for _, ref := range ev.Components {
		if ref.Weak {
			continue
		}
		child, err := r.Resolve(ctx, ref)
		if err != nil {
			return "", err
		}
		sub, err := r.Formula(ctx, child, lc)
		if err != nil {
			return "", err
		}
		parts = append(parts, sub)
	}

	switch ev.EffectiveAggregation() {
	case model.AggregationANY:
		return fmt.Sprintf("max(%s)", strings.Join(parts, ", ")), nil
	case model.AggregationORDERED:
		return fmt.Sprintf("sequence(%s)", strings.Join(parts, " → ")), nil
	case model.AggregationCUSTOM:
		return fmt.Sprintf("custom(%s)", strings.Join(parts, ", ")), nil
	default: // ALL
		return fmt.Sprintf("min(%s)", strings.Join(parts, ", ")), nil
	}
}
