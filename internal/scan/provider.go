package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/catalog"
)

// ProgressFunc receives bulk scan progress as a percentage in 0..100.
type ProgressFunc func(percent int)

// Provider runs one bulk scan pass over the expected asset codes.
// Implementations must stop promptly and return ctx.Err() on cancellation.
type Provider interface {
	RunBulkScan(ctx context.Context, expected []string, progress ProgressFunc) (audit.ScanResult, []audit.MissingAsset, error)
}

// Defaults for the simulated bulk scan cadence.
const (
	DefaultTick = 100 * time.Millisecond
	DefaultStep = 2
)

// SimulatedProvider stands in for a real inventory sweep: it advances a
// progress counter by Step percent every Tick and, on reaching 100%, reports
// a fixed summary with three fixed missing assets. The expected list is
// ignored.
type SimulatedProvider struct {
	Tick  time.Duration
	Step  int
	IDs   audit.IDGenerator
	Clock audit.Clock
}

// NewSimulatedProvider creates a provider with the default 100ms / 2% cadence.
func NewSimulatedProvider() *SimulatedProvider {
	return &SimulatedProvider{Tick: DefaultTick, Step: DefaultStep}
}

func (p *SimulatedProvider) RunBulkScan(ctx context.Context, _ []string, progress ProgressFunc) (audit.ScanResult, []audit.MissingAsset, error) {
	tick, step := p.Tick, p.Step
	if tick <= 0 {
		tick = DefaultTick
	}
	if step <= 0 || step > 100 {
		step = DefaultStep
	}
	ids := p.IDs
	if ids == nil {
		ids = audit.UUIDv7Generator{}
	}
	clock := p.Clock
	if clock == nil {
		clock = audit.SystemClock{}
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	report(progress, 0)
	for pct := 0; pct < 100; {
		select {
		case <-ctx.Done():
			return audit.ScanResult{}, nil, ctx.Err()
		case <-ticker.C:
			pct += step
			if pct > 100 {
				pct = 100
			}
			report(progress, pct)
		}
	}

	missing := []audit.MissingAsset{
		{
			ID:               ids.Generate(),
			AssetCode:        "ASSET-006",
			Name:             "Network Switch - HP ProCurve 2920",
			Type:             "Network Equipment",
			ExpectedLocation: "Server Room B - Rack 3",
			LastSeen:         "2024-01-20",
			Criticality:      audit.PriorityHigh,
		},
		{
			ID:               ids.Generate(),
			AssetCode:        "ASSET-004",
			Name:             "Microsoft Office License - Volume",
			Type:             "Software License",
			ExpectedLocation: "IT Department License Pool",
			Criticality:      audit.PriorityMedium,
		},
		{
			ID:               ids.Generate(),
			AssetCode:        "ASSET-005",
			Name:             "Security Camera - Axis P3225-LV",
			Type:             "Security Equipment",
			ExpectedLocation: "Building Entry - North Wing",
			LastSeen:         "2024-01-18",
			Criticality:      audit.PriorityCritical,
		},
	}
	result := audit.ScanResult{
		ID:           ids.Generate(),
		Timestamp:    clock.Now(),
		TotalAssets:  185,
		ScannedCount: 182,
		MissingCount: len(missing),
		Status:       audit.ResultCompleted,
		Duration:     1800,
	}
	return result, missing, nil
}

// SweepFunc returns the codes a physical sweep (RFID gate, batch camera
// pass) actually observed.
type SweepFunc func(ctx context.Context) ([]string, error)

// CatalogProvider reports every expected code the sweep did not observe as
// missing, described from the catalog.
type CatalogProvider struct {
	Catalog catalog.Catalog
	Sweep   SweepFunc
	IDs     audit.IDGenerator
	Clock   audit.Clock
}

func (p *CatalogProvider) RunBulkScan(ctx context.Context, expected []string, progress ProgressFunc) (audit.ScanResult, []audit.MissingAsset, error) {
	ids := p.IDs
	if ids == nil {
		ids = audit.UUIDv7Generator{}
	}
	clock := p.Clock
	if clock == nil {
		clock = audit.SystemClock{}
	}
	if len(expected) == 0 {
		expected = p.Catalog.Codes()
	}

	started := clock.Now()
	report(progress, 0)

	observed, err := p.Sweep(ctx)
	if err != nil {
		return audit.ScanResult{}, nil, fmt.Errorf("bulk scan sweep: %w", err)
	}
	seen := make(map[string]bool, len(observed))
	for _, code := range observed {
		seen[catalog.NormalizeCode(code)] = true
	}

	var missing []audit.MissingAsset
	found := 0
	for i, code := range expected {
		if err := ctx.Err(); err != nil {
			return audit.ScanResult{}, nil, err
		}
		code = catalog.NormalizeCode(code)
		if seen[code] {
			found++
		} else {
			missing = append(missing, p.describeMissing(ids.Generate(), code))
		}
		report(progress, (i+1)*100/len(expected))
	}
	if len(expected) == 0 {
		report(progress, 100)
	}

	finished := clock.Now()
	result := audit.ScanResult{
		ID:           ids.Generate(),
		Timestamp:    finished,
		TotalAssets:  len(expected),
		ScannedCount: found,
		MissingCount: len(missing),
		Status:       audit.ResultCompleted,
		Duration:     int(finished.Sub(started) / time.Second),
	}
	return result, missing, nil
}

func (p *CatalogProvider) describeMissing(id, code string) audit.MissingAsset {
	m := audit.MissingAsset{
		ID:          id,
		AssetCode:   code,
		Name:        code,
		Type:        "Unknown",
		Criticality: audit.PriorityMedium,
	}
	if e, ok := p.Catalog.Lookup(code); ok {
		m.Name = e.Name
		m.Type = e.Type
		m.ExpectedLocation = e.Location
		if e.Criticality != "" {
			m.Criticality = audit.Priority(e.Criticality)
		}
	}
	return m
}

func report(progress ProgressFunc, pct int) {
	if progress != nil {
		progress(pct)
	}
}
