package core

import (
	"context"
	"testing"
)

func TestMemoryLogNewestFirstWithFilter(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()
	_ = log.Record(ctx, Entry{Actor: "clerk", Action: ActionDelete, Entity: "youth", RecordIDs: []int64{1, 2}})
	_ = log.Record(ctx, Entry{Actor: "clerk", Action: ActionExport, Entity: "youth"})
	_ = log.Record(ctx, Entry{Actor: "sec", Action: ActionEdit, Entity: "expense", Outcome: OutcomeFailed})

	all, _ := log.List(ctx, Filter{})
	if len(all) != 3 || all[0].Entity != "expense" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	for _, e := range all {
		if e.ID == "" || e.OccurredAt.IsZero() || e.Outcome == "" {
			t.Fatalf("entry not normalized: %+v", e)
		}
	}
	youth, _ := log.List(ctx, Filter{Entity: "youth", Limit: 1})
	if len(youth) != 1 || youth[0].Action != ActionExport {
		t.Fatalf("unexpected filtered list %+v", youth)
	}
	deletes, _ := log.List(ctx, Filter{Action: ActionDelete})
	if len(deletes) != 1 || len(deletes[0].RecordIDs) != 2 {
		t.Fatalf("unexpected deletes %+v", deletes)
	}
	deletes[0].RecordIDs[0] = 99
	again, _ := log.List(ctx, Filter{Action: ActionDelete})
	if again[0].RecordIDs[0] != 1 {
		t.Fatalf("list must return copies")
	}
}
