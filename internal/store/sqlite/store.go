// Package sqlite persists rooms, participants and sound metadata in a
// SQLite database through a pool of zombiezen connections.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/rs/zerolog/log"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	is_public  INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS participants (
	id        TEXT PRIMARY KEY,
	room_id   TEXT NOT NULL,
	name      TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 0,
	joined_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS participants_room ON participants(room_id);
CREATE TABLE IF NOT EXISTS sounds (
	id          TEXT PRIMARY KEY,
	room_id     TEXT NOT NULL,
	name        TEXT NOT NULL,
	url         TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS sounds_room ON sounds(room_id);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}

type Config struct {
	// Path of the database file. Its directory must exist.
	Path     string
	PoolSize int
}

type Store struct {
	pool *sqlitex.Pool
	path string
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite store: path is required")
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = 4
	}
	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    size,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", cfg.Path, err)
	}
	s := &Store{pool: pool, path: cfg.Path}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Str("module", "store.sqlite").Str("path", cfg.Path).Int("pool_size", size).Msg("sqlite store opened")
	return s, nil
}

func prepareConn(conn *sqlite.Conn) error {
	for _, p := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, p, nil); err != nil {
			return fmt.Errorf("sqlite store: %s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlite store: schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		log.Error().Err(err).Str("module", "store.sqlite").Str("path", s.path).Msg("close failed")
		return fmt.Errorf("sqlite store: close: %w", err)
	}
	log.Info().Str("module", "store.sqlite").Str("path", s.path).Msg("sqlite store closed")
	return nil
}

// with borrows a pooled connection for fn.
func (s *Store) with(ctx context.Context, fn func(conn *sqlite.Conn) error) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)
	return fn(conn)
}

func (s *Store) CreateRoom(ctx context.Context, r *domain.Room) error {
	return s.with(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO rooms (id, code, name, is_public, created_at) VALUES (?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{string(r.ID), r.Code, r.Name, boolInt(r.IsPublic), r.CreatedAt.UnixMilli()}})
		if err != nil {
			return fmt.Errorf("sqlite store: create room: %w", err)
		}
		return nil
	})
}

const roomColumns = `id, code, name, is_public, created_at`

func (s *Store) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	return s.getRoom(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, string(id))
}

func (s *Store) GetRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	return s.getRoom(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = ?`, code)
}

func (s *Store) getRoom(ctx context.Context, query string, arg string) (*domain.Room, error) {
	var room *domain.Room
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{arg},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				r := scanRoom(stmt)
				room = &r
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get room: %w", err)
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (s *Store) ListPublicRooms(ctx context.Context) ([]domain.Room, error) {
	rooms := []domain.Room{}
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT `+roomColumns+` FROM rooms WHERE is_public = 1 ORDER BY created_at DESC`,
			&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
				rooms = append(rooms, scanRoom(stmt))
				return nil
			}})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list rooms: %w", err)
	}
	return rooms, nil
}

// DeleteRoom removes the room, its participants and its sounds in one
// transaction.
func (s *Store) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	return s.with(ctx, func(conn *sqlite.Conn) (err error) {
		endFn, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return fmt.Errorf("sqlite store: begin: %w", err)
		}
		defer endFn(&err)

		args := &sqlitex.ExecOptions{Args: []any{string(id)}}
		if err = sqlitex.Execute(conn, `DELETE FROM rooms WHERE id = ?`, args); err != nil {
			return fmt.Errorf("sqlite store: delete room: %w", err)
		}
		if conn.Changes() == 0 {
			return domain.ErrRoomNotFound
		}
		if err = sqlitex.Execute(conn, `DELETE FROM participants WHERE room_id = ?`, args); err != nil {
			return fmt.Errorf("sqlite store: delete participants: %w", err)
		}
		if err = sqlitex.Execute(conn, `DELETE FROM sounds WHERE room_id = ?`, args); err != nil {
			return fmt.Errorf("sqlite store: delete sounds: %w", err)
		}
		return nil
	})
}

func (s *Store) CreateParticipant(ctx context.Context, p *domain.Participant) error {
	return s.with(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO participants (id, room_id, name, is_active, joined_at)
			 SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM rooms WHERE id = ?)`,
			&sqlitex.ExecOptions{Args: []any{
				string(p.ID), string(p.RoomID), p.Name, boolInt(p.IsActive), p.JoinedAt.UnixMilli(), string(p.RoomID),
			}})
		if err != nil {
			return fmt.Errorf("sqlite store: create participant: %w", err)
		}
		if conn.Changes() == 0 {
			return domain.ErrRoomNotFound
		}
		return nil
	})
}

const participantColumns = `id, room_id, name, is_active, joined_at`

func (s *Store) GetParticipant(ctx context.Context, id domain.ParticipantID) (*domain.Participant, error) {
	var found *domain.Participant
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT `+participantColumns+` FROM participants WHERE id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{string(id)},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					p := scanParticipant(stmt)
					found = &p
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: get participant: %w", err)
	}
	if found == nil {
		return nil, domain.ErrParticipantNotFound
	}
	return found, nil
}

func (s *Store) ListParticipants(ctx context.Context, roomID domain.RoomID) ([]domain.Participant, error) {
	ps := []domain.Participant{}
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT `+participantColumns+` FROM participants WHERE room_id = ? ORDER BY joined_at`,
			&sqlitex.ExecOptions{
				Args: []any{string(roomID)},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					ps = append(ps, scanParticipant(stmt))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list participants: %w", err)
	}
	return ps, nil
}

func (s *Store) SetParticipantActive(ctx context.Context, id domain.ParticipantID, active bool) error {
	return s.with(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `UPDATE participants SET is_active = ? WHERE id = ?`,
			&sqlitex.ExecOptions{Args: []any{boolInt(active), string(id)}})
		if err != nil {
			return fmt.Errorf("sqlite store: set active: %w", err)
		}
		if conn.Changes() == 0 {
			return domain.ErrParticipantNotFound
		}
		return nil
	})
}

func (s *Store) CreateSound(ctx context.Context, snd *domain.Sound) error {
	return s.with(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`INSERT INTO sounds (id, room_id, name, url, duration_ms, created_at)
			 SELECT ?, ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM rooms WHERE id = ?)`,
			&sqlitex.ExecOptions{Args: []any{
				string(snd.ID), string(snd.RoomID), snd.Name, snd.URL, snd.DurationMs, snd.CreatedAt.UnixMilli(), string(snd.RoomID),
			}})
		if err != nil {
			return fmt.Errorf("sqlite store: create sound: %w", err)
		}
		if conn.Changes() == 0 {
			return domain.ErrRoomNotFound
		}
		return nil
	})
}

func (s *Store) ListSounds(ctx context.Context, roomID domain.RoomID) ([]domain.Sound, error) {
	sounds := []domain.Sound{}
	err := s.with(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT id, room_id, name, url, duration_ms, created_at FROM sounds WHERE room_id = ? ORDER BY created_at`,
			&sqlitex.ExecOptions{
				Args: []any{string(roomID)},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					sounds = append(sounds, domain.Sound{
						ID:         domain.SoundID(stmt.ColumnText(0)),
						RoomID:     domain.RoomID(stmt.ColumnText(1)),
						Name:       stmt.ColumnText(2),
						URL:        stmt.ColumnText(3),
						DurationMs: stmt.ColumnInt64(4),
						CreatedAt:  time.UnixMilli(stmt.ColumnInt64(5)).UTC(),
					})
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: list sounds: %w", err)
	}
	return sounds, nil
}

func scanRoom(stmt *sqlite.Stmt) domain.Room {
	return domain.Room{
		ID:        domain.RoomID(stmt.ColumnText(0)),
		Code:      stmt.ColumnText(1),
		Name:      stmt.ColumnText(2),
		IsPublic:  stmt.ColumnInt64(3) != 0,
		CreatedAt: time.UnixMilli(stmt.ColumnInt64(4)).UTC(),
	}
}

func scanParticipant(stmt *sqlite.Stmt) domain.Participant {
	return domain.Participant{
		ID:       domain.ParticipantID(stmt.ColumnText(0)),
		RoomID:   domain.RoomID(stmt.ColumnText(1)),
		Name:     stmt.ColumnText(2),
		IsActive: stmt.ColumnInt64(3) != 0,
		JoinedAt: time.UnixMilli(stmt.ColumnInt64(4)).UTC(),
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
