// Package planstore archives scheduled plans so that later runs and the
// reconciliation of execution logs can refer back to them.
package planstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/lsp/core/lsp"
	"github.com/kilianp07/lsp/core/scheduler"
	"github.com/kilianp07/lsp/pkg/export"
)

// Record is a snapshot of one scheduled plan.
type Record struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	LSP       string           `json:"lsp"`
	Plan      string           `json:"plan"`
	Score     float64          `json:"score"`
	Shipments int              `json:"shipments"`
	Tours     []scheduler.Tour `json:"tours"`
	Elements  []export.Row     `json:"elements"`
}

// NewRecord snapshots the selected plan of l after a scheduling run.
func NewRecord(l *lsp.LSP, rep scheduler.Report) Record {
	p := l.Selected()
	ships := l.Shipments()
	return Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		LSP:       l.ID,
		Plan:      p.ID,
		Score:     p.Score,
		Shipments: len(ships),
		Tours:     rep.Tours,
		Elements:  export.Rows(ships),
	}
}

// Query filters records. Zero values match everything.
type Query struct {
	Start    time.Time
	End      time.Time
	LSP      string
	Plan     string
	Resource string
}

func (q Query) matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.LSP != "" && r.LSP != q.LSP {
		return false
	}
	if q.Plan != "" && r.Plan != q.Plan {
		return false
	}
	if q.Resource == "" {
		return true
	}
	for _, el := range r.Elements {
		if string(el.Resource) == q.Resource {
			return true
		}
	}
	return false
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	Type       string `json:"type" yaml:"type" koanf:"type"`
	Path       string `json:"path" yaml:"path" koanf:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" koanf:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" koanf:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" koanf:"max_age_days"`
}

// Enabled reports whether a store is configured.
func (c Config) Enabled() bool { return c.Type != "" && c.Type != "none" }

// Validate checks the store type and path.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	switch c.Type {
	case "jsonl", "jsonl_rotating", "sqlite":
	default:
		return fmt.Errorf("unknown plan store type %q", c.Type)
	}
	if c.Path == "" {
		return fmt.Errorf("plan store %s: path is required", c.Type)
	}
	return nil
}

// Open creates the configured store.
func Open(c Config) (Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Type {
	case "jsonl":
		return NewJSONLStore(c.Path)
	case "jsonl_rotating":
		size := c.MaxSizeMB
		if size <= 0 {
			size = 10
		}
		return NewRotatingJSONLStore(c.Path, size, c.MaxBackups, c.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(c.Path)
	default:
		return nil, fmt.Errorf("plan store disabled")
	}
}
