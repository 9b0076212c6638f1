package recorder

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/handcontact/internal/monitoring"
)

// AttachAdminRoutes mounts the recorder's debug pages under /debug/ on mux:
// live SQL via tailsql, JSON session and event listings, and a database
// backup download.
func (r *Recorder) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(r.path), r.db, &tailsql.DBOptions{
		Label: "Hand contact events",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("hand-sessions", "Recorded hand sessions (JSON)", http.HandlerFunc(r.handleSessions))
	debug.Handle("hand-events", "Events of one session (JSON, ?session=<uuid>)", http.HandlerFunc(r.handleEvents))
	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(r.handleBackup))
	return nil
}

type sessionJSON struct {
	ID        string `json:"id"`
	Hand      string `json:"hand"`
	Started   string `json:"started"`
	Ended     string `json:"ended,omitempty"`
	EndReason string `json:"end_reason,omitempty"`
}

type eventJSON struct {
	ID       int64    `json:"id"`
	Kind     string   `json:"kind"`
	Hand     string   `json:"hand"`
	Step     uint64   `json:"step"`
	Time     string   `json:"time"`
	Body     string   `json:"body,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
}

func (r *Recorder) handleSessions(w http.ResponseWriter, req *http.Request) {
	sessions, err := r.Sessions()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list sessions: %v", err), http.StatusInternalServerError)
		return
	}
	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		js := sessionJSON{
			ID:        s.ID.String(),
			Hand:      s.Hand,
			Started:   s.Started.UTC().Format(time.RFC3339Nano),
			EndReason: s.EndReason,
		}
		if !s.Live() {
			js.Ended = s.Ended.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, js)
	}
	writeJSON(w, out)
}

func (r *Recorder) handleEvents(w http.ResponseWriter, req *http.Request) {
	id, err := uuid.Parse(req.URL.Query().Get("session"))
	if err != nil {
		http.Error(w, "Missing or invalid session parameter", http.StatusBadRequest)
		return
	}
	events, err := r.Events(id)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list events: %v", err), http.StatusInternalServerError)
		return
	}
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		js := eventJSON{
			ID:   e.ID,
			Kind: string(e.Kind),
			Hand: e.Hand,
			Step: e.Step,
			Time: e.Time.UTC().Format(time.RFC3339Nano),
			Body: e.Body,
		}
		if d := e.Distance; !math.IsNaN(d) {
			js.Distance = &d
		}
		out = append(out, js)
	}
	writeJSON(w, out)
}

func (r *Recorder) handleBackup(w http.ResponseWriter, req *http.Request) {
	backupPath := filepath.Join(os.TempDir(), fmt.Sprintf("handcontact-backup-%d.db", time.Now().UnixNano()))
	if err := r.Backup(backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(backupPath); err != nil {
			monitoring.Logf("Failed to remove backup file: %v", err)
		}
	}()

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer backupFile.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", filepath.Base(backupPath)))
	w.Header().Set("Content-Type", "application/gzip")

	gzipWriter := gzip.NewWriter(w)
	defer gzipWriter.Close()
	if _, err := io.Copy(gzipWriter, backupFile); err != nil {
		monitoring.Logf("Failed to stream backup: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("Failed to encode response: %v", err)
	}
}
