package domain

import (
	"errors"
	"testing"
)

func TestGroupItemsPreservesFirstSeenOrder(t *testing.T) {
	items := []ExportItem{
		{GroupLabel: "Comments", Fields: []Field{{Name: "Text", Value: "first"}}},
		{GroupLabel: "Profile", Fields: []Field{{Name: "Email", Value: "a@example.com"}}},
		{GroupLabel: "Comments", Fields: []Field{{Name: "Text", Value: "second"}}},
	}

	groups := GroupItems(items)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Label != "Comments" || groups[1].Label != "Profile" {
		t.Fatalf("unexpected group order: %q, %q", groups[0].Label, groups[1].Label)
	}
	if len(groups[0].Items) != 2 {
		t.Fatalf("expected 2 comment items, got %d", len(groups[0].Items))
	}
	if groups[0].Items[0].Fields[0].Value != "first" || groups[0].Items[1].Fields[0].Value != "second" {
		t.Fatalf("items reordered within group: %+v", groups[0].Items)
	}
}

func TestGroupItemsEmpty(t *testing.T) {
	if groups := GroupItems(nil); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}

func TestSourceErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &SourceError{Source: "comments", Page: 3, Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("expected SourceError to unwrap to cause")
	}
	want := `source "comments" failed on page 3: connection refused`
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
