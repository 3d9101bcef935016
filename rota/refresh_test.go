package rota

import (
	"context"
	"testing"
)

func TestRefreshGuard_SupersedesPriorRefresh(t *testing.T) {
	g := NewRefreshGuard()

	// GIVEN: an in-flight refresh for a key
	ctx1, done1 := g.Begin(context.Background(), "staff-1")
	defer done1()

	// WHEN: a second refresh begins for the same key
	ctx2, done2 := g.Begin(context.Background(), "staff-1")
	defer done2()

	// THEN: the first context is cancelled, the second is live
	select {
	case <-ctx1.Done():
	default:
		t.Error("first refresh not cancelled by the second")
	}
	if ctx2.Err() != nil {
		t.Errorf("second refresh already cancelled: %v", ctx2.Err())
	}
}

func TestRefreshGuard_KeysAreIndependent(t *testing.T) {
	g := NewRefreshGuard()

	ctx1, done1 := g.Begin(context.Background(), "staff-1")
	defer done1()
	_, done2 := g.Begin(context.Background(), "staff-2")
	defer done2()

	if ctx1.Err() != nil {
		t.Error("refresh for staff-1 cancelled by an unrelated key")
	}
}

func TestRefreshGuard_StaleCleanupKeepsNewerEntry(t *testing.T) {
	g := NewRefreshGuard()

	// GIVEN: a refresh superseded by a newer one
	_, done1 := g.Begin(context.Background(), "staff-1")
	ctx2, done2 := g.Begin(context.Background(), "staff-1")
	defer done2()

	// WHEN: the stale refresh cleans up after the takeover
	done1()

	// THEN: the newer refresh is untouched and a third Begin supersedes it
	if ctx2.Err() != nil {
		t.Fatalf("newer refresh cancelled by stale cleanup: %v", ctx2.Err())
	}
	ctx3, done3 := g.Begin(context.Background(), "staff-1")
	defer done3()
	select {
	case <-ctx2.Done():
	default:
		t.Error("second refresh not cancelled by the third")
	}
	if ctx3.Err() != nil {
		t.Errorf("third refresh already cancelled: %v", ctx3.Err())
	}
}
