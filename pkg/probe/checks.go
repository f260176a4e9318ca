package probe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"

	"focustrack/pkg/sensor/mocksensor"
)

// Database checks that the journal answers and has the given tables.
func Database(d *sql.DB, tables ...string) Probe {
	return Probe{
		Name:     "Journal Database",
		Critical: true,
		Check: func(ctx context.Context) error {
			if err := d.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			for _, t := range tables {
				var name string
				err := d.QueryRowContext(ctx,
					"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", t).Scan(&name)
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("missing table %q", t)
				}
				if err != nil {
					return fmt.Errorf("lookup table %q: %w", t, err)
				}
			}
			return nil
		},
	}
}

// Scenario checks that a sensor script parses into at least one frame.
func Scenario(path string) Probe {
	return Probe{
		Name:     "Sensor Scenario",
		Critical: true,
		Check: func(context.Context) error {
			sc, err := mocksensor.Load(path)
			if err != nil {
				return err
			}
			_, err = sc.Build()
			return err
		},
	}
}

// ListenAddress checks that the HTTP address can be bound. The listener is
// closed again right away.
func ListenAddress(addr string) Probe {
	return Probe{
		Name:     "Listen Address",
		Critical: true,
		Check: func(ctx context.Context) error {
			var lc net.ListenConfig
			l, err := lc.Listen(ctx, "tcp", addr)
			if err != nil {
				return err
			}
			return l.Close()
		},
	}
}

// WritableDir checks that files can be created in dir, creating it if needed.
func WritableDir(name, dir string) Probe {
	return Probe{
		Name: name,
		Check: func(context.Context) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			f, err := os.CreateTemp(dir, ".probe-*")
			if err != nil {
				return err
			}
			f.Close()
			return os.Remove(f.Name())
		},
	}
}
