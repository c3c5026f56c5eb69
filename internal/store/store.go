// Package store picks the Meeting Store and Chat Store backends.
package store

import (
	"fmt"
	"io"

	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/store/memory"
	"github.com/dkeye/Meet/internal/store/sqlstore"
	"github.com/rs/zerolog/log"
)

type Stores struct {
	Meetings core.MeetingStore
	Chat     core.ChatStore
	io.Closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func Open(cfg config.Store, debug bool) (*Stores, error) {
	switch cfg.Driver {
	case "", "memory":
		log.Warn().Str("module", "store").Msg("using in-memory store, data is lost on restart")
		return &Stores{Meetings: memory.NewMeetingStore(), Chat: memory.NewChatStore(), Closer: nopCloser{}}, nil
	case "sqlite3", "postgres":
		s, err := sqlstore.Open(cfg.Driver, cfg.DSN, debug)
		if err != nil {
			return nil, err
		}
		log.Info().Str("module", "store").Str("driver", cfg.Driver).Msg("store opened")
		return &Stores{Meetings: s.Meetings(), Chat: s.Chat(), Closer: s}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
