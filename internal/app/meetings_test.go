package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/store/memory"
)

func newMeetings(t *testing.T) (*MeetingService, *memory.MeetingStore) {
	t.Helper()
	st := memory.NewMeetingStore()
	return NewMeetingService(st), st
}

func TestCreateValidatesCapacity(t *testing.T) {
	svc, _ := newMeetings(t)
	ctx := context.Background()

	v, err := svc.Create(ctx, "creator", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.MaxParticipants != domain.DefaultParticipants || v.Status != domain.MeetingActive || !v.CanJoin {
		t.Fatalf("unexpected view %+v", v)
	}
	for _, bad := range []int{1, 11, -3} {
		if _, err := svc.Create(ctx, "creator", bad); domain.KindOf(err) != domain.KindInvalidArgument {
			t.Fatalf("max=%d: want invalid argument, got %v", bad, err)
		}
	}
}

func TestJoinLeaveRejoinKeepsOneRecord(t *testing.T) {
	svc, st := newMeetings(t)
	ctx := context.Background()
	v, _ := svc.Create(ctx, "creator", 3)

	if _, _, err := svc.Join(ctx, v.ID, "u1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := svc.Leave(ctx, v.ID, "u1"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	got, changed, err := svc.Join(ctx, v.ID, "u1")
	if err != nil || !changed {
		t.Fatalf("rejoin: changed=%v err=%v", changed, err)
	}
	if len(got.Participants) != 1 || !got.Participants[0].Active || got.ParticipantCount != 1 {
		t.Fatalf("want one active record, got %+v", got.Participants)
	}

	m, _ := st.Get(ctx, v.ID)
	before := m.Version
	if _, changed, err := svc.Join(ctx, v.ID, "u1"); err != nil || changed {
		t.Fatalf("repeated join: changed=%v err=%v", changed, err)
	}
	m, _ = st.Get(ctx, v.ID)
	if m.Version != before {
		t.Fatalf("repeated join wrote: version %d -> %d", before, m.Version)
	}
}

func TestLeaveUnknownUserIsNoop(t *testing.T) {
	svc, st := newMeetings(t)
	ctx := context.Background()
	v, _ := svc.Create(ctx, "creator", 2)
	m, _ := st.Get(ctx, v.ID)

	got, err := svc.Leave(ctx, v.ID, "stranger")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if len(got.Participants) != 0 {
		t.Fatalf("participants changed: %+v", got.Participants)
	}
	after, _ := st.Get(ctx, v.ID)
	if after.Version != m.Version {
		t.Fatalf("no-op leave wrote a new version")
	}
}

func TestJoinUnknownMeeting(t *testing.T) {
	svc, _ := newMeetings(t)
	if _, _, err := svc.Join(context.Background(), "nope", "u1"); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestEndBlocksJoinsButKeepsParticipants(t *testing.T) {
	svc, _ := newMeetings(t)
	ctx := context.Background()
	v, _ := svc.Create(ctx, "creator", 4)
	_, _, _ = svc.Join(ctx, v.ID, "u1")

	if _, err := svc.End(ctx, v.ID, "u1"); domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("non-creator end: %v", err)
	}
	got, err := svc.End(ctx, v.ID, "creator")
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if got.CanJoin || got.Status != domain.MeetingEnded || got.ParticipantCount != 1 {
		t.Fatalf("unexpected view after end %+v", got)
	}
	if _, _, err := svc.Join(ctx, v.ID, "u2"); domain.KindOf(err) != domain.KindMeetingEnded {
		t.Fatalf("join after end: %v", err)
	}
	if _, err := svc.End(ctx, v.ID, "creator"); err != nil {
		t.Fatalf("second end: %v", err)
	}
}

func TestSimultaneousJoinsForLastSlot(t *testing.T) {
	svc, _ := newMeetings(t)
	ctx := context.Background()
	v, _ := svc.Create(ctx, "creator", 2)
	if _, _, err := svc.Join(ctx, v.ID, "u0"); err != nil {
		t.Fatalf("first join: %v", err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Join(ctx, v.ID, domain.UserID(fmt.Sprintf("u%d", i+1)))
		}(i)
	}
	wg.Wait()

	ok, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.KindOf(err) == domain.KindMeetingFull:
			full++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || full != 1 {
		t.Fatalf("want one success and one full, got ok=%d full=%d", ok, full)
	}
}

func TestCapacityHoldsUnderRandomJoinLeave(t *testing.T) {
	ctx := context.Background()
	for capacity := domain.MinParticipants; capacity <= domain.MaxParticipants; capacity++ {
		t.Run(fmt.Sprintf("max=%d", capacity), func(t *testing.T) {
			svc, st := newMeetings(t)
			v, err := svc.Create(ctx, "creator", capacity)
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			const workers = 16
			var wg sync.WaitGroup
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func(seed int64) {
					defer wg.Done()
					rng := rand.New(rand.NewSource(seed))
					for i := 0; i < 40; i++ {
						uid := domain.UserID(fmt.Sprintf("u%d", rng.Intn(capacity*2)))
						if rng.Intn(3) == 0 {
							_, _ = svc.Leave(ctx, v.ID, uid)
						} else {
							_, _, _ = svc.Join(ctx, v.ID, uid)
						}
						m, err := st.Get(ctx, v.ID)
						if err != nil {
							t.Errorf("get: %v", err)
							return
						}
						if n := m.ActiveCount(); n > m.MaxParticipants {
							t.Errorf("active=%d exceeds max=%d", n, m.MaxParticipants)
							return
						}
					}
				}(int64(w) + int64(capacity)*100)
			}
			wg.Wait()

			m, _ := st.Get(ctx, v.ID)
			seen := map[domain.UserID]bool{}
			for _, p := range m.Participants {
				if seen[p.UserID] {
					t.Fatalf("duplicate participant %s", p.UserID)
				}
				seen[p.UserID] = true
			}
		})
	}
}

func TestIsCreator(t *testing.T) {
	svc, _ := newMeetings(t)
	ctx := context.Background()
	v, _ := svc.Create(ctx, "creator", 2)
	if err := svc.IsCreator(ctx, v.ID, "creator"); err != nil {
		t.Fatalf("creator: %v", err)
	}
	if err := svc.IsCreator(ctx, v.ID, "u1"); domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("other: %v", err)
	}
}
