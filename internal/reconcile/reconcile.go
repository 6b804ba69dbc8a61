// Package reconcile classifies decoded asset codes against the catalog and
// matches verified scans against open missing-asset entries.
package reconcile

import (
	"fmt"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/catalog"
)

// Placeholders used for codes absent from the catalog.
const (
	UnknownType     = "Unknown"
	UnknownLocation = "Unknown Location"
)

// UnknownName is the display name synthesized for an unexpected code.
func UnknownName(code string) string {
	return fmt.Sprintf("Unknown Asset (%s)", code)
}

// Engine classifies scans. The result of a classification is fixed at scan
// time: later catalog changes never rewrite recorded scans.
type Engine struct {
	catalog catalog.Catalog
	ids     audit.IDGenerator
	clock   audit.Clock
}

// New creates an Engine. ids and clock default to UUIDv7 and the system clock.
func New(c catalog.Catalog, ids audit.IDGenerator, clock audit.Clock) *Engine {
	if ids == nil {
		ids = audit.UUIDv7Generator{}
	}
	if clock == nil {
		clock = audit.SystemClock{}
	}
	return &Engine{catalog: c, ids: ids, clock: clock}
}

// Catalog returns the catalog the engine classifies against.
func (e *Engine) Catalog() catalog.Catalog {
	return e.catalog
}

// Classify turns a decoded code into a ScannedAsset. A catalog hit is
// verified and copies name, type and location from the entry; a miss is
// unexpected and carries the raw code in its name. QRCode is always the
// code as decoded; only the catalog lookup uses the normalized form.
func (e *Engine) Classify(code string) audit.ScannedAsset {
	scanned := audit.ScannedAsset{
		ID:        e.ids.Generate(),
		QRCode:    code,
		ScannedAt: e.clock.Now(),
	}
	if entry, ok := e.catalog.Lookup(catalog.NormalizeCode(code)); ok {
		scanned.Name = entry.Name
		scanned.Type = entry.Type
		scanned.Location = entry.Location
		scanned.Status = audit.ScanVerified
		return scanned
	}
	scanned.Name = UnknownName(code)
	scanned.Type = UnknownType
	scanned.Location = UnknownLocation
	scanned.Status = audit.ScanUnexpected
	return scanned
}

// PruneMissing removes missing-asset entries accounted for by a verified
// scan, matching on catalog code. Unexpected and damaged scans, and entries
// without an AssetCode, never match. Order of the kept entries is preserved.
func PruneMissing(missing []audit.MissingAsset, scanned audit.ScannedAsset) (kept, removed []audit.MissingAsset) {
	kept = make([]audit.MissingAsset, 0, len(missing))
	if scanned.Status != audit.ScanVerified {
		return append(kept, missing...), nil
	}
	code := catalog.NormalizeCode(scanned.QRCode)
	for _, m := range missing {
		if m.AssetCode != "" && catalog.NormalizeCode(m.AssetCode) == code {
			removed = append(removed, m)
			continue
		}
		kept = append(kept, m)
	}
	return kept, removed
}
