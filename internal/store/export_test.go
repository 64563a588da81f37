package store

import (
	"errors"
	"testing"

	"github.com/dukerupert/famwell/internal/model"
)

func TestExportLifecycle(t *testing.T) {
	db := openTestDB(t)
	es := NewExportStore(db)
	u, _ := NewUserStore(db).Create(NewUser{Email: "alice@example.com", Name: "Alice"})

	e, err := es.Create(u.ID, "exports/1/a.json.enc")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Status != model.ExportStatusPending {
		t.Errorf("status = %q, want pending", e.Status)
	}

	if _, err := es.Create(u.ID, "exports/1/a.json.enc"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}

	if err := es.UpdateCompleted(e.ID, 2048); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, _ := es.GetByID(e.ID)
	if got.Status != model.ExportStatusCompleted || got.SizeBytes != 2048 || got.CompletedAt == nil {
		t.Errorf("got %+v", got)
	}

	failed, _ := es.Create(u.ID, "exports/1/b.json.enc")
	es.UpdateStatus(failed.ID, model.ExportStatusFailed, "bucket missing")

	list, err := es.ListByUser(u.ID, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ErrorMessage != "bucket missing" {
		t.Errorf("list = %+v", list)
	}
}
