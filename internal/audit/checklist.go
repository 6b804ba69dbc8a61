package audit

import "strconv"

type templateItem struct {
	description string
	required    bool
}

var checklistTemplates = map[TaskType][]templateItem{
	TypeCompliance: {
		{"Review regulatory compliance documents", true},
		{"Verify certification status", true},
		{"Check policy adherence", true},
		{"Validate training records", false},
	},
	TypeSecurity: {
		{"Scan for vulnerabilities", true},
		{"Review access controls", true},
		{"Check firewall configurations", true},
		{"Validate encryption standards", false},
	},
	TypeITAssets: {
		{"Inventory hardware components", true},
		{"Verify software licenses", true},
		{"Check maintenance schedules", false},
		{"Update asset database", true},
	},
	TypeFinancial: {
		{"Review financial statements", true},
		{"Verify transaction records", true},
		{"Check budget compliance", true},
		{"Validate expense reports", false},
	},
	TypeInventory: {
		{"Physical count verification", true},
		{"Check storage conditions", true},
		{"Update inventory system", false},
		{"Verify supplier information", false},
	},
}

// ChecklistTemplate returns a fresh, all-open checklist for the audit type.
// Unknown types get an empty checklist.
func ChecklistTemplate(t TaskType) []ChecklistItem {
	tmpl := checklistTemplates[t]
	items := make([]ChecklistItem, len(tmpl))
	for i, ti := range tmpl {
		items[i] = ChecklistItem{
			ID:          strconv.Itoa(i + 1),
			Description: ti.description,
			Required:    ti.required,
		}
	}
	return items
}

// NextChecklistID picks the smallest numeric id above every existing one.
func NextChecklistID(items []ChecklistItem) string {
	max := 0
	for _, item := range items {
		if n, err := strconv.Atoi(item.ID); err == nil && n > max {
			max = n
		}
	}
	return strconv.Itoa(max + 1)
}
