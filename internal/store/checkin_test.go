package store

import (
	"testing"
	"time"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/wellness"
)

func TestCheckInApply(t *testing.T) {
	db := openTestDB(t)
	cs := NewCheckInStore(db)
	m := createMember(t, db, "Emma")

	if _, err := cs.SaveDraft(m.ID, "Anxious", "big test tomorrow"); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	mood, _ := wellness.LookupMood("Anxious")
	res, err := cs.Apply(m.ID, mood, "big test tomorrow", true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Member.Mood != "Anxious" {
		t.Errorf("mood = %q, want Anxious", res.Member.Mood)
	}
	// Blend(50, 35) = 43
	if res.Member.MoodScore != 43 {
		t.Errorf("mood_score = %d, want 43", res.Member.MoodScore)
	}
	if res.Member.LastActiveAt == nil {
		t.Error("expected last_active_at to be set")
	}
	if res.Member.Points != 10 {
		t.Errorf("points = %d, want 10", res.Member.Points)
	}
	if res.Activity == nil || res.Activity.Kind != model.ActivityCheckIn {
		t.Fatalf("activity = %+v, want a checkin activity", res.Activity)
	}

	draft, err := cs.GetDraft(m.ID)
	if err != nil {
		t.Fatalf("get draft: %v", err)
	}
	if draft.Mood != "" || draft.Note != "" {
		t.Errorf("draft not cleared: %+v", draft)
	}
}

func TestCheckInApplyPrivateSkipsFeed(t *testing.T) {
	db := openTestDB(t)
	cs := NewCheckInStore(db)
	m := createMember(t, db, "David")

	mood, _ := wellness.LookupMood("Tired")
	res, err := cs.Apply(m.ID, mood, "", false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Activity != nil {
		t.Error("private check-in should not add a feed entry")
	}
	feed, _ := NewActivityStore(db).ListRecent(wellness.FeedSize)
	if len(feed) != 0 {
		t.Errorf("feed length = %d, want 0", len(feed))
	}
}

func TestCheckInFeedNewestFirst(t *testing.T) {
	db := openTestDB(t)
	cs := NewCheckInStore(db)
	m := createMember(t, db, "Sarah")
	happy, _ := wellness.LookupMood("Happy")

	for i := 0; i < 7; i++ {
		if _, err := cs.Apply(m.ID, happy, "", true); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}
	last, _ := cs.Apply(m.ID, happy, "", true)

	feed, err := NewActivityStore(db).ListRecent(wellness.FeedSize)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(feed) != wellness.FeedSize {
		t.Fatalf("feed length = %d, want %d", len(feed), wellness.FeedSize)
	}
	if feed[0].ID != last.Activity.ID {
		t.Errorf("head = %d, want %d", feed[0].ID, last.Activity.ID)
	}
}

func TestCheckInApplyMissingMember(t *testing.T) {
	cs := NewCheckInStore(openTestDB(t))
	mood, _ := wellness.LookupMood("Happy")
	res, err := cs.Apply(42, mood, "", true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
}

func TestCheckInHasCheckedInSince(t *testing.T) {
	db := openTestDB(t)
	cs := NewCheckInStore(db)
	m := createMember(t, db, "Jake")

	since := time.Now().Add(-time.Hour)
	ok, err := cs.HasCheckedInSince(m.ID, since)
	if err != nil {
		t.Fatalf("has checked in: %v", err)
	}
	if ok {
		t.Error("expected no check-in yet")
	}

	mood, _ := wellness.LookupMood("Excited")
	cs.Apply(m.ID, mood, "", true)

	ok, _ = cs.HasCheckedInSince(m.ID, since)
	if !ok {
		t.Error("expected a check-in")
	}
	times, _ := cs.Times(m.ID, since)
	if len(times) != 1 {
		t.Errorf("times = %d, want 1", len(times))
	}
}

func TestCheckInSinceIncludesBoundarySecond(t *testing.T) {
	db := openTestDB(t)
	cs := NewCheckInStore(db)
	m := createMember(t, db, "Emma")

	mood, _ := wellness.LookupMood("Calm")
	res, err := cs.Apply(m.ID, mood, "", false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	at := res.CheckIn.CreatedAt

	ok, err := cs.HasCheckedInSince(m.ID, at)
	if err != nil {
		t.Fatalf("has checked in: %v", err)
	}
	if !ok {
		t.Errorf("check-in at %v not counted as since %v", at, at)
	}
	times, err := cs.Times(m.ID, at)
	if err != nil {
		t.Fatalf("times: %v", err)
	}
	if len(times) != 1 {
		t.Errorf("times = %d, want 1", len(times))
	}

	if ok, _ := cs.HasCheckedInSince(m.ID, at.Add(time.Second)); ok {
		t.Error("check-in counted after its own second")
	}
}
