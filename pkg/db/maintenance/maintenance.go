// Package maintenance prunes and exports the tracker journal.
package maintenance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"focustrack/pkg/db"
	"focustrack/pkg/model"
	"focustrack/pkg/store"
)

const lastPruneStateKey = "journal_last_prune"

// DefaultRetention is how long journal events are kept.
const DefaultRetention = 30 * 24 * time.Hour

// pruneInterval keeps restarts in quick succession from pruning every time.
const pruneInterval = 6 * time.Hour

// Run executes all maintenance tasks. It blocks until completion. Failures are
// logged; startup continues regardless.
func Run(ctx context.Context, s store.StateStore, d *db.DB, retention time.Duration) error {
	slog.Info("Starting database maintenance...")

	if retention <= 0 {
		retention = DefaultRetention
	}

	if last, found := s.GetState(ctx, lastPruneStateKey); found {
		if t, err := time.Parse(time.RFC3339, last); err == nil && time.Since(t) < pruneInterval {
			slog.Debug("Journal pruned recently, skipping", "last", last)
			return nil
		}
	}

	n, err := d.PruneEvents(retention)
	if err != nil {
		slog.Error("Journal pruning failed", "error", err)
		return nil
	}
	slog.Info("Journal pruning completed", "deleted", n, "retention", retention)

	if err := s.SetState(ctx, lastPruneStateKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"id", "session", "timestamp", "type", "surface_id", "alignment",
	"hit_x", "hit_y", "hit_z", "camera_x", "camera_y", "camera_z", "quality",
}

// exportPage is how many events are read per query.
const exportPage = 500

// ExportCSV writes every journaled event of a session as CSV, oldest first.
// It returns the number of rows written.
func ExportCSV(ctx context.Context, s store.EventStore, session uuid.UUID, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}

	count := 0
	var after int64
	for {
		events, err := s.ListEvents(ctx, store.EventQuery{Session: session, AfterID: after, Limit: exportPage})
		if err != nil {
			return count, fmt.Errorf("failed to list events: %w", err)
		}
		for i := range events {
			if err := cw.Write(eventRow(&events[i])); err != nil {
				return count, fmt.Errorf("csv write error: %w", err)
			}
			count++
			after = events[i].ID
		}
		if len(events) < exportPage {
			break
		}
	}

	cw.Flush()
	return count, cw.Error()
}

func eventRow(e *model.TrackerEvent) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

	surface := ""
	if e.SurfaceID != uuid.Nil {
		surface = e.SurfaceID.String()
	}
	row := []string{
		strconv.FormatInt(e.ID, 10),
		e.Session.String(),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		string(e.Type),
		surface,
		string(e.Alignment),
		f(e.Hit.X), f(e.Hit.Y), f(e.Hit.Z),
	}
	if e.Camera != nil {
		row = append(row, f(e.Camera.Position.X), f(e.Camera.Position.Y), f(e.Camera.Position.Z), string(e.Camera.Quality))
	} else {
		row = append(row, "", "", "", "")
	}
	return row
}
