// Package sqlstore keeps meetings and chat in a SQL database through gorm.
// SQLite is the default; Postgres works through the same models.
package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/domain"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Store struct {
	db       *gorm.DB
	meetings *MeetingStore
	chat     *ChatStore
}

// gormLogger routes gorm's SQL log into zerolog.
type gormLogger struct{}

func (gormLogger) Print(v ...interface{}) {
	log.Debug().Str("module", "store.sql").Msg(strings.TrimSpace(fmt.Sprintln(v...)))
}

func Open(driverName, dsn string, debug bool) (*Store, error) {
	switch driverName {
	case DriverSQLite:
		if !strings.Contains(dsn, "_busy_timeout") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "_busy_timeout=5000"
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driverName)
	}

	db, err := gorm.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if driverName == DriverSQLite {
		// One writer at a time; transactions queue on the pool instead of
		// failing with SQLITE_BUSY.
		db.DB().SetMaxOpenConns(1)
	}
	db.SetLogger(gormLogger{})
	db.LogMode(debug)

	if err := db.AutoMigrate(&meetingRow{}, &chatRow{}).Error; err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("module", "store.sql").Str("driver", driverName).Msg("store opened")

	s := &Store{db: db}
	s.meetings = &MeetingStore{s: s}
	s.chat = &ChatStore{s: s}
	return s, nil
}

func (s *Store) Meetings() *MeetingStore { return s.meetings }
func (s *Store) Chat() *ChatStore         { return s.chat }

func (s *Store) Close() error { return s.db.Close() }

// inTx binds every statement to ctx, so a deadline rolls the work back
// instead of leaving it half applied.
func (s *Store) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return mapErr(err)
	}
	tx := s.db.BeginTx(ctx, nil)
	if tx.Error != nil {
		return mapErr(tx.Error)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return mapErr(err)
	}
	if err := tx.Commit().Error; err != nil {
		return mapErr(err)
	}
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.Wrap(domain.KindUnavailable, err, "store timeout")
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrTxDone) {
		return domain.Wrap(domain.KindUnavailable, err, "store unavailable")
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return domain.Wrap(domain.KindUnavailable, err, "store busy")
		case sqlite3.ErrConstraint:
			return domain.Wrap(domain.KindConflict, err, "duplicate record")
		}
	}
	return domain.Wrap(domain.KindInternal, err, "store")
}
