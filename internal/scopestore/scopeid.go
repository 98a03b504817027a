package scopestore

import (
	"fmt"
	"math"

	"github.com/sambitmohanty1/transit-dispatch/internal/errs"
	"github.com/sambitmohanty1/transit-dispatch/internal/models"
)

// webMercatorLatLimit is the Web-Mercator latitude clamp used before any
// tiling math, per spec §4.6 step 1.
const webMercatorLatLimit = 85.05112878

// quantizePrecision is the grid spacing (~11m) coordinates are rounded to
// before deriving a scope id, per spec §4.6 step 2.
const quantizePrecision = 1e-4

// NormalizeBBox clamps to Web-Mercator bounds and quantizes each edge to
// the fixed grid. It does not validate south<=north/west<=east — that is
// DeriveScopeID's job, after quantization, per spec.
func NormalizeBBox(b models.BBox) models.BBox {
	return models.BBox{
		South: quantize(clamp(b.South, -webMercatorLatLimit, webMercatorLatLimit)),
		West:  quantize(clamp(b.West, -180, 180)),
		North: quantize(clamp(b.North, -webMercatorLatLimit, webMercatorLatLimit)),
		East:  quantize(clamp(b.East, -180, 180)),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func quantize(v float64) float64 {
	return math.Round(v/quantizePrecision) * quantizePrecision
}

// formatQuantized renders a quantized coordinate with exactly four
// fractional digits, per spec §4.6 step 2.
func formatQuantized(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// DeriveScopeID normalizes bbox and computes the deterministic scope id
// "v1|<cityId>|<south>|<west>|<north>|<east>", unless externalScopeKey is
// supplied, in which case it overrides the computed id verbatim. Returns
// the normalized bbox alongside the id so callers can store/report it.
func DeriveScopeID(cityID string, bbox models.BBox, externalScopeKey string) (string, models.BBox, error) {
	normalized := NormalizeBBox(bbox)
	normalized.Zoom = bbox.Zoom

	if normalized.North < normalized.South {
		return "", models.BBox{}, errs.Validation("north must be >= south")
	}
	if normalized.East < normalized.West {
		return "", models.BBox{}, errs.Validation("east must be >= west")
	}

	if externalScopeKey != "" {
		return externalScopeKey, normalized, nil
	}

	id := fmt.Sprintf("v1|%s|%s|%s|%s|%s",
		cityID,
		formatQuantized(normalized.South),
		formatQuantized(normalized.West),
		formatQuantized(normalized.North),
		formatQuantized(normalized.East),
	)
	return id, normalized, nil
}
