package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Entry describes an expected asset.
type Entry struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Location    string `json:"location" yaml:"location"`
	Criticality string `json:"criticality,omitempty" yaml:"criticality,omitempty"`
}

// Catalog is the read-only lookup from asset code to expected asset.
type Catalog interface {
	Lookup(code string) (Entry, bool)

	// Codes returns every known code in sorted order.
	Codes() []string
}

// NormalizeCode trims whitespace and NFC-normalizes a decoded code so that
// visually identical codes from different decoders compare equal.
func NormalizeCode(code string) string {
	return norm.NFC.String(strings.TrimSpace(code))
}

// Static is an in-memory Catalog. Keys are normalized on construction.
type Static map[string]Entry

// NewStatic copies entries into a Static catalog with normalized keys.
func NewStatic(entries map[string]Entry) Static {
	s := make(Static, len(entries))
	for code, e := range entries {
		s[NormalizeCode(code)] = e
	}
	return s
}

func (s Static) Lookup(code string) (Entry, bool) {
	e, ok := s[NormalizeCode(code)]
	return e, ok
}

func (s Static) Codes() []string {
	codes := make([]string, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Default returns the demonstration catalog used when no catalog file is
// configured.
func Default() Static {
	return NewStatic(map[string]Entry{
		"ASSET-001": {Name: "Dell Laptop XPS 13", Type: "Hardware", Location: "IT Department - Room 205", Criticality: "High"},
		"ASSET-002": {Name: "HP Printer LaserJet Pro", Type: "Hardware", Location: "Office Floor 2", Criticality: "Low"},
		"ASSET-003": {Name: "Cisco Router ISR4331", Type: "Network Equipment", Location: "Server Room A", Criticality: "Critical"},
		"ASSET-004": {Name: "Microsoft Office License", Type: "Software", Location: "License Pool", Criticality: "Medium"},
		"ASSET-005": {Name: "Security Camera Axis P3225", Type: "Security Equipment", Location: "Building Entry", Criticality: "Critical"},
		"ASSET-006": {Name: "Network Switch HP ProCurve", Type: "Network Equipment", Location: "Server Room B", Criticality: "High"},
		"ASSET-007": {Name: "iPad Pro 12.9\"", Type: "Mobile Device", Location: "Marketing Department", Criticality: "Medium"},
		"ASSET-008": {Name: "Projector Epson PowerLite", Type: "Presentation Equipment", Location: "Conference Room A", Criticality: "Low"},
	})
}
