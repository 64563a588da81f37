package store

import "testing"

func TestPushSubscriptionLifecycle(t *testing.T) {
	db := openTestDB(t)
	ps := NewPushStore(db)
	us := NewUserStore(db)
	alice, _ := us.Create(NewUser{Email: "alice@example.com", Name: "Alice"})
	bob, _ := us.Create(NewUser{Email: "bob@example.com", Name: "Bob"})

	sub, err := ps.CreateSubscription(alice.ID, "https://push.example.com/1", "p256", "auth", "Phone")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.UserID != alice.ID || sub.DeviceName != "Phone" {
		t.Errorf("got %+v", sub)
	}

	again, err := ps.CreateSubscription(alice.ID, "https://push.example.com/1", "p256-new", "auth-new", "Phone")
	if err != nil {
		t.Fatalf("re-subscribe: %v", err)
	}
	if again.ID != sub.ID || again.P256dhKey != "p256-new" {
		t.Errorf("re-subscribe = %+v", again)
	}

	ok, _ := ps.DeleteSubscription(sub.ID, bob.ID)
	if ok {
		t.Error("bob should not delete alice's subscription")
	}
	ok, _ = ps.DeleteSubscription(sub.ID, alice.ID)
	if !ok {
		t.Error("expected alice to delete her subscription")
	}
	subs, _ := ps.ListByUser(alice.ID)
	if len(subs) != 0 {
		t.Errorf("subs = %d, want 0", len(subs))
	}
}

func TestReminderMarkSentOncePerDay(t *testing.T) {
	db := openTestDB(t)
	rs := NewReminderStore(db)
	u, _ := NewUserStore(db).Create(NewUser{Email: "alice@example.com", Name: "Alice"})

	first, err := rs.MarkSent(u.ID, "2025-03-10")
	if err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	second, _ := rs.MarkSent(u.ID, "2025-03-10")
	if !first || second {
		t.Errorf("first=%v second=%v, want true false", first, second)
	}

	rs.Cleanup("2025-03-11")
	third, _ := rs.MarkSent(u.ID, "2025-03-10")
	if !third {
		t.Error("expected record to be cleaned up")
	}
}
