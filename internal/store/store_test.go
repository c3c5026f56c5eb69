package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
)

func TestOpenBackends(t *testing.T) {
	for _, cfg := range []config.Store{
		{Driver: "memory"},
		{Driver: "sqlite3", DSN: filepath.Join(t.TempDir(), "meet.db")},
	} {
		t.Run(cfg.Driver, func(t *testing.T) {
			s, err := Open(cfg, false)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer s.Close()

			m, _ := domain.NewMeeting("u1", 2, time.Now().UTC())
			if err := s.Meetings.Create(context.Background(), m); err != nil {
				t.Fatalf("create: %v", err)
			}
			if _, err := s.Meetings.Get(context.Background(), m.ID); err != nil {
				t.Fatalf("get: %v", err)
			}
		})
	}
	if _, err := Open(config.Store{Driver: "mongo"}, false); err == nil {
		t.Fatalf("unknown driver accepted")
	}
}
