package store

import (
	"errors"
	"testing"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/wellness"
)

func TestNudgeCreatePendingDedupes(t *testing.T) {
	db := openTestDB(t)
	ns := NewNudgeStore(db)
	sarah := createMember(t, db, "Sarah")
	emma := createMember(t, db, "Emma")

	n := model.Nudge{
		Type:           wellness.NudgeCheckIn,
		Priority:       wellness.PriorityHigh,
		Title:          "Check on Emma",
		OwnerMemberID:  sarah.ID,
		TargetMemberID: &emma.ID,
		Suggestions:    []string{"Hey Emma"},
		Confidence:     85,
	}
	first, added, err := ns.CreatePending(n)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !added {
		t.Error("expected first nudge to be added")
	}
	if first.Status != wellness.NudgeStatusPending {
		t.Errorf("status = %q, want pending", first.Status)
	}
	if len(first.Suggestions) != 1 || first.Suggestions[0] != "Hey Emma" {
		t.Errorf("suggestions = %v", first.Suggestions)
	}

	again, added, err := ns.CreatePending(n)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if added {
		t.Error("expected duplicate pending nudge to be skipped")
	}
	if again.ID != first.ID {
		t.Errorf("id = %d, want existing %d", again.ID, first.ID)
	}

	family := model.Nudge{Type: wellness.NudgeFamilyActivity, Priority: wellness.PriorityMedium, Title: "Game night", OwnerMemberID: sarah.ID, Confidence: 70}
	ns.CreatePending(family)
	_, added, _ = ns.CreatePending(family)
	if added {
		t.Error("expected duplicate family nudge to be skipped")
	}
}

func TestNudgeMarkSentOnce(t *testing.T) {
	db := openTestDB(t)
	ns := NewNudgeStore(db)
	sarah := createMember(t, db, "Sarah")
	jake := createMember(t, db, "Jake")

	n, _, _ := ns.CreatePending(model.Nudge{
		Type: wellness.NudgeAppreciation, Priority: wellness.PriorityLow, Title: "Appreciate Jake",
		OwnerMemberID: sarah.ID, TargetMemberID: &jake.ID, Confidence: 95,
	})

	sent, err := ns.MarkSent(n.ID, "Proud of you!")
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if sent.Status != wellness.NudgeStatusSent || sent.SentAt == nil || sent.SentMessage != "Proud of you!" {
		t.Errorf("got %+v", sent)
	}

	again, err := ns.MarkSent(n.ID, "other message")
	if !errors.Is(err, wellness.ErrAlreadyInState) {
		t.Errorf("err = %v, want ErrAlreadyInState", err)
	}
	if again.SentMessage != "Proud of you!" {
		t.Errorf("message overwritten: %q", again.SentMessage)
	}

	// Once sent, a new pending nudge of the same kind may be created.
	_, added, _ := ns.CreatePending(model.Nudge{
		Type: wellness.NudgeAppreciation, Priority: wellness.PriorityLow, Title: "Appreciate Jake",
		OwnerMemberID: sarah.ID, TargetMemberID: &jake.ID, Confidence: 95,
	})
	if !added {
		t.Error("expected a new pending nudge after the old one was sent")
	}

	missing, err := ns.MarkSent(999, "x")
	if err != nil || missing != nil {
		t.Errorf("missing = %+v, err = %v", missing, err)
	}
}

func TestNudgeListByOwnerOrder(t *testing.T) {
	db := openTestDB(t)
	ns := NewNudgeStore(db)
	sarah := createMember(t, db, "Sarah")
	emma := createMember(t, db, "Emma")

	low, _, _ := ns.CreatePending(model.Nudge{Type: wellness.NudgeAppreciation, Priority: wellness.PriorityLow, Title: "low", OwnerMemberID: sarah.ID, TargetMemberID: &emma.ID, Confidence: 90})
	ns.CreatePending(model.Nudge{Type: wellness.NudgeCheckIn, Priority: wellness.PriorityHigh, Title: "high", OwnerMemberID: sarah.ID, TargetMemberID: &emma.ID, Confidence: 80})
	ns.MarkSent(low.ID, "thanks")

	all, err := ns.ListByOwner(sarah.ID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Title != "high" {
		t.Errorf("order = %+v", all)
	}

	pending, _ := ns.ListByOwner(sarah.ID, wellness.NudgeStatusPending)
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}
}
