package memory

import (
	"context"
	"sort"
	"sync"

	"compras/internal/core"
)

// Store keeps mirrored periods in memory. Used when no spreadsheet is configured.
type Store struct {
	mu      sync.Mutex
	periods map[core.Period][][]string
	writes  int
}

func New() *Store {
	return &Store{periods: make(map[core.Period][][]string)}
}

func (s *Store) WritePeriod(_ context.Context, period core.Period, rows [][]string) error {
	if err := period.Validate(); err != nil {
		return err
	}
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string(nil), r...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods[period] = cp
	s.writes++
	return nil
}

// Rows returns a copy of the mirrored rows for period
func (s *Store) Rows(period core.Period) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.periods[period]
	if !ok {
		return nil, false
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out, true
}

// Periods lists mirrored periods in ascending order
func (s *Store) Periods() []core.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Period, 0, len(s.periods))
	for p := range s.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
