// Package recorder persists hand sessions and contact transitions to a
// SQLite database so runs can be inspected after the fact.
package recorder

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/handcontact/internal/hands"
	"github.com/banshee-data/handcontact/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrClosed is returned by every operation on a closed Recorder.
var ErrClosed = errors.New("recorder closed")

// Recorder is a hands.EventSink backed by SQLite.
type Recorder struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// Session is one row of hand_sessions.
type Session struct {
	ID        uuid.UUID
	Hand      string
	Started   time.Time
	Ended     time.Time // zero while the session is live
	EndReason string
}

// Live reports whether the session has not been closed by a hand_lost.
func (s Session) Live() bool { return s.Ended.IsZero() }

// EventRow is one row of hand_events. Distance is NaN when the event
// carried no finite distance.
type EventRow struct {
	ID       int64
	Session  uuid.UUID
	Kind     hands.EventKind
	Hand     string
	Step     uint64
	Time     time.Time
	Body     string
	Distance float64
}

// Open opens (creating if necessary) the database file at path and brings
// its schema up to date.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open recorder db %s: %w", path, err)
	}
	r := &Recorder{db: db, path: path}
	if err := r.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Path returns the path the recorder was opened with.
func (r *Recorder) Path() string { return r.path }

// DB exposes the underlying handle for ad-hoc queries.
func (r *Recorder) DB() *sql.DB { return r.db }

// Close releases the database. Further calls return ErrClosed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	return r.db.Close()
}

// Backup writes a consistent copy of the database to path, which must
// not exist yet.
func (r *Recorder) Backup(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, err := r.db.Exec("VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("backup to %s: %w", path, err)
	}
	return nil
}

// HandEvent implements hands.EventSink. Write failures are logged and
// dropped; the simulation step must not stall on disk I/O errors.
func (r *Recorder) HandEvent(e hands.Event) {
	if err := r.Record(e); err != nil && !errors.Is(err, ErrClosed) {
		monitoring.Logf("recorder: dropping %s event for %s hand: %v", e.Kind, e.Hand, err)
	}
}

// Record writes e, creating its session row on first sight.
func (r *Recorder) Record(e hands.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ts := e.Time.UnixNano()
	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO hand_sessions (session_id, hand, started_unix_nanos)
		VALUES (?, ?, ?)`,
		e.Session.String(), e.Hand.String(), ts,
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO hand_events (session_id, kind, hand, step, ts_unix_nanos, body, distance)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Session.String(), string(e.Kind), e.Hand.String(), int64(e.Step), ts, e.Body, nullableDistance(e.Distance),
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if e.Kind == hands.EventHandLost {
		if _, err := tx.Exec(`
			UPDATE hand_sessions SET ended_unix_nanos = ?, end_reason = ?
			WHERE session_id = ? AND ended_unix_nanos IS NULL`,
			ts, string(e.Kind), e.Session.String(),
		); err != nil {
			return fmt.Errorf("close session: %w", err)
		}
	}

	return tx.Commit()
}

func nullableDistance(d float64) sql.NullFloat64 {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: d, Valid: true}
}

// Sessions lists every recorded session, oldest first.
func (r *Recorder) Sessions() ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	rows, err := r.db.Query(`
		SELECT session_id, hand, started_unix_nanos, ended_unix_nanos, end_reason
		FROM hand_sessions
		ORDER BY started_unix_nanos, session_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			id      string
			s       Session
			started int64
			ended   sql.NullInt64
			reason  sql.NullString
		)
		if err := rows.Scan(&id, &s.Hand, &started, &ended, &reason); err != nil {
			return nil, err
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("session %q: %w", id, err)
		}
		s.Started = time.Unix(0, started)
		if ended.Valid {
			s.Ended = time.Unix(0, ended.Int64)
		}
		s.EndReason = reason.String
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Events returns the events of one session in insertion order.
func (r *Recorder) Events(session uuid.UUID) ([]EventRow, error) {
	return r.queryEvents(`
		SELECT event_id, session_id, kind, hand, step, ts_unix_nanos, body, distance
		FROM hand_events
		WHERE session_id = ?
		ORDER BY event_id`, session.String())
}

// BodyEvents returns every event naming body, across sessions.
func (r *Recorder) BodyEvents(body string) ([]EventRow, error) {
	return r.queryEvents(`
		SELECT event_id, session_id, kind, hand, step, ts_unix_nanos, body, distance
		FROM hand_events
		WHERE body = ?
		ORDER BY event_id`, body)
}

// CountByKind tallies recorded events per kind.
func (r *Recorder) CountByKind() (map[hands.EventKind]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	rows, err := r.db.Query(`SELECT kind, COUNT(*) FROM hand_events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[hands.EventKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[hands.EventKind(kind)] = n
	}
	return counts, rows.Err()
}

func (r *Recorder) queryEvents(query string, arg any) ([]EventRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}

	rows, err := r.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var (
			ev       EventRow
			session  string
			kind     string
			step     int64
			ts       int64
			distance sql.NullFloat64
		)
		if err := rows.Scan(&ev.ID, &session, &kind, &ev.Hand, &step, &ts, &ev.Body, &distance); err != nil {
			return nil, err
		}
		if ev.Session, err = uuid.Parse(session); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}
		ev.Kind = hands.EventKind(kind)
		ev.Step = uint64(step)
		ev.Time = time.Unix(0, ts)
		ev.Distance = math.NaN()
		if distance.Valid {
			ev.Distance = distance.Float64
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
