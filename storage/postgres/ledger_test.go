package pgstore

import (
	"context"
	"testing"

	"github.com/PaulFidika/duekit/deadlines"
)

func TestLedger_NoPool(t *testing.T) {
	l := NewLedger(nil, " ")
	if l.table() != "duekit.deadline_notifications" {
		t.Fatalf("unexpected default table %q", l.table())
	}
	if _, err := l.Claim(context.Background(), deadlines.Key{EntityID: "t", DaysRemaining: 1}); err == nil {
		t.Fatalf("expected error without a pool")
	}
	if _, err := l.Contains(context.Background(), deadlines.Key{EntityID: "t", DaysRemaining: 1}); err == nil {
		t.Fatalf("expected error without a pool")
	}
}
