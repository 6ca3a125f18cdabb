// Package dashboard owns the loaded dataset snapshot and answers slider
// requests against it.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/casemap/internal/apperr"
	"github.com/starford/casemap/internal/dataset"
	"github.com/starford/casemap/internal/figure"
	"github.com/starford/casemap/internal/source"
)

// DateLayout is the wire format for dates.
const DateLayout = "2006-01-02"

// Snapshot is one immutable load of the source.
type Snapshot struct {
	Dataset  *dataset.Dataset
	Index    *dataset.DateIndex
	Checksum string
	Source   string
	LoadedAt time.Time
}

// Summary describes a snapshot for operators.
type Summary struct {
	dataset.Summary
	Source   string    `json:"source"`
	Checksum string    `json:"checksum"`
	LoadedAt time.Time `json:"loaded_at"`
	Dates    int       `json:"dates"`
	First    string    `json:"first,omitempty"`
	Last     string    `json:"last,omitempty"`
}

// Summary returns counts and date bounds for the snapshot.
func (sn *Snapshot) Summary() Summary {
	s := Summary{
		Summary:  sn.Dataset.Summary(),
		Source:   sn.Source,
		Checksum: sn.Checksum,
		LoadedAt: sn.LoadedAt,
		Dates:    sn.Index.Len(),
	}
	if sn.Index.Len() > 0 {
		s.First = sn.Index.First().Format(DateLayout)
		s.Last = sn.Index.Last().Format(DateLayout)
	}
	return s
}

// Service holds the current snapshot. Readers never block: a reload builds a
// new snapshot and swaps the pointer.
type Service struct {
	src    source.Source
	cols   dataset.Columns
	logger *slog.Logger

	cur    atomic.Pointer[Snapshot]
	loadMu sync.Mutex
	onLoad func(*Snapshot)
}

// NewService creates a service reading from src.
func NewService(src source.Source, cols dataset.Columns, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{src: src, cols: cols, logger: logger}
}

// OnLoad registers fn to run after each new snapshot is published.
// It must be called before the first Load.
func (s *Service) OnLoad(fn func(*Snapshot)) {
	s.onLoad = fn
}

// Load reads the source and publishes a new snapshot. When the content
// checksum matches the current snapshot nothing changes and changed is false.
// On error the current snapshot, if any, stays in place.
func (s *Service) Load(ctx context.Context) (snap *Snapshot, changed bool, err error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	start := time.Now()
	table, sum, err := s.src.Read(ctx)
	if err != nil {
		return s.cur.Load(), false, err
	}
	if cur := s.cur.Load(); cur != nil && cur.Checksum == sum {
		s.logger.Debug("dataset unchanged", slog.String("source", s.src.String()))
		return cur, false, nil
	}

	ds, idx, err := dataset.Prepare(table, s.cols)
	if err != nil {
		return s.cur.Load(), false, err
	}

	snap = &Snapshot{
		Dataset:  ds,
		Index:    idx,
		Checksum: sum,
		Source:   s.src.String(),
		LoadedAt: time.Now().UTC(),
	}
	s.cur.Store(snap)

	s.logger.Info("dataset loaded",
		slog.String("source", snap.Source),
		slog.Int("records", ds.Len()),
		slog.Int("dates", idx.Len()),
		slog.String("checksum", sum),
		slog.Duration("took", time.Since(start)))

	if s.onLoad != nil {
		s.onLoad(snap)
	}
	return snap, true, nil
}

// Current returns the published snapshot, or apperr.ErrNotReady.
func (s *Service) Current() (*Snapshot, error) {
	snap := s.cur.Load()
	if snap == nil {
		return nil, apperr.ErrNotReady
	}
	return snap, nil
}

// Resolve resolves a zero-based slider position against the current snapshot.
func (s *Service) Resolve(ctx context.Context, position int) (*figure.Selection, *Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	snap, err := s.Current()
	if err != nil {
		return nil, nil, err
	}
	sel, err := figure.Resolve(position, snap.Dataset, snap.Index)
	if err != nil {
		return nil, snap, err
	}
	return sel, snap, nil
}

// ResolveDate resolves a calendar date (YYYY-MM-DD or any layout accepted by
// dataset.ParseDate) against the current snapshot.
func (s *Service) ResolveDate(ctx context.Context, date string) (*figure.Selection, *Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	snap, err := s.Current()
	if err != nil {
		return nil, nil, err
	}
	d, err := dataset.ParseDate(date)
	if err != nil {
		return nil, snap, err
	}
	sel, err := figure.ResolveDate(d, snap.Dataset, snap.Index)
	if err != nil {
		return nil, snap, err
	}
	return sel, snap, nil
}

// Dates returns the indexed dates formatted with DateLayout.
func (sn *Snapshot) Dates() []string {
	dates := sn.Index.Dates()
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(DateLayout)
	}
	return out
}
