package repository

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCategoryIndexesIgnoreDeleted(t *testing.T) {
	idx := categoryIndexes()
	if len(idx) != 2 {
		t.Fatalf("expected 2 indexes, got %d", len(idx))
	}
	for _, m := range idx {
		opts := m.Options
		if opts == nil || opts.Unique == nil || !*opts.Unique {
			t.Fatalf("%v: expected unique index", m.Keys)
		}
		filter, ok := opts.PartialFilterExpression.(bson.M)
		if !ok || filter["isDeleted"] != false {
			t.Fatalf("%v: expected partial filter on live categories, got %v", m.Keys, opts.PartialFilterExpression)
		}
	}
}
