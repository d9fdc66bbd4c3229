package domain

import "context"

// Field is one exported name/value pair.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ExportItem is one exported record attributed to a display group.
type ExportItem struct {
	GroupLabel string  `json:"group_label"`
	Fields     []Field `json:"fields"`
}

// ExportPage is a single exporter page result. Done marks the exporter as
// drained; the item list on the final page may be non-empty.
type ExportPage struct {
	Items []ExportItem
	Done  bool
}

// ErasurePage is a single eraser page result.
type ErasurePage struct {
	ItemsRemoved  int
	ItemsRetained int
	Messages      []string
	Done          bool
}

// Exporter produces page-chunked personal data for one email address.
// Page indexes are 1-based and repeated calls with the same index must return
// the same content; the job runner performs no retries of its own.
type Exporter struct {
	Name         string
	FriendlyName string
	Export       func(ctx context.Context, email string, page int) (ExportPage, error)
}

// Eraser performs page-chunked deletion for one email address and reports
// removal counts per page.
type Eraser struct {
	Name         string
	FriendlyName string
	Erase        func(ctx context.Context, email string, page int) (ErasurePage, error)
}

// ExportGroup is the merged view of all items sharing a group label, in
// insertion order. Duplicate items within a group are allowed.
type ExportGroup struct {
	Label string       `json:"label"`
	Items []ExportItem `json:"items"`
}

// GroupItems folds a flat accumulated item list into groups keyed by label,
// preserving first-seen group order.
func GroupItems(items []ExportItem) []ExportGroup {
	indexByLabel := make(map[string]int, len(items))
	groups := make([]ExportGroup, 0, len(items))
	for _, item := range items {
		idx, ok := indexByLabel[item.GroupLabel]
		if !ok {
			idx = len(groups)
			indexByLabel[item.GroupLabel] = idx
			groups = append(groups, ExportGroup{Label: item.GroupLabel})
		}
		groups[idx].Items = append(groups[idx].Items, item)
	}
	return groups
}

// ErasureReport is the aggregate of all eraser pages for one request.
type ErasureReport struct {
	ItemsRemoved  int      `json:"items_removed"`
	ItemsRetained int      `json:"items_retained"`
	Messages      []string `json:"messages"`
}
