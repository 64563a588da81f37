package model

import (
	"errors"
	"testing"
)

func TestRequired(t *testing.T) {
	if err := Required("title", "hello"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := Required("title", "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "title" {
		t.Errorf("Field = %q, want %q", ve.Field, "title")
	}
	if err.Error() != "title is required" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestInRange(t *testing.T) {
	if err := InRange("strength", 0, 0, 100); err != nil {
		t.Errorf("0 should be in range: %v", err)
	}
	if err := InRange("strength", 100, 0, 100); err != nil {
		t.Errorf("100 should be in range: %v", err)
	}
	if err := InRange("strength", 101, 0, 100); err == nil {
		t.Error("101 should be out of range")
	}
	if err := InRange("strength", -1, 0, 100); err == nil {
		t.Error("-1 should be out of range")
	}
}

func TestMoodVisibleTo(t *testing.T) {
	s := DefaultSettings()
	s.MoodVisibility[4] = false

	if !s.MoodVisibleTo(1) {
		t.Error("unlisted member should default to visible")
	}
	if s.MoodVisibleTo(4) {
		t.Error("member 4 should be hidden")
	}
}
