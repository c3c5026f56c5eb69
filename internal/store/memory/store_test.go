package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func TestMeetingStoreUpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewMeetingStore()
	m, _ := domain.NewMeeting("owner", 10, time.Now())
	if err := s.Create(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, m.ID, func(d *domain.Meeting) error {
				d.UpdatedAt = time.Now()
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 51 {
		t.Fatalf("version=%d, want 51", got.Version)
	}
}

func TestMeetingStoreUnchangedSkipsWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMeetingStore()
	m, _ := domain.NewMeeting("owner", 10, time.Now())
	_ = s.Create(ctx, m)

	got, err := s.Update(ctx, m.ID, func(*domain.Meeting) error { return core.ErrUnchanged })
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Version != 1 {
		t.Fatalf("version=%d, want 1", got.Version)
	}
	if _, err := s.Update(ctx, "missing", func(*domain.Meeting) error { return nil }); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("err=%v, want not_found", err)
	}
}

func TestChatStoreOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewChatStore()
	base := time.Now()
	for i := 0; i < 5; i++ {
		msg := domain.NewSystemMessage("m1", "hello")
		msg.Timestamp = base.Add(time.Duration(i) * time.Second)
		_ = s.Append(ctx, msg)
	}
	got, _ := s.ListByMeeting(ctx, "m1", 3)
	if len(got) != 3 {
		t.Fatalf("len=%d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatalf("history out of order")
		}
	}
	if n, _ := s.CountByMeeting(ctx, "m1"); n != 5 {
		t.Fatalf("count=%d", n)
	}
	_ = s.DeleteByMeeting(ctx, "m1")
	if n, _ := s.CountByMeeting(ctx, "m1"); n != 0 {
		t.Fatalf("count after delete=%d", n)
	}
}
