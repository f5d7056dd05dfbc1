// Package servicetest provides in-memory collaborators for service and
// handler tests.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stemsi/gradcafe-backend/internal/model"
	"github.com/stemsi/gradcafe-backend/internal/scraper"
)

// MemoryStore is an ApplicantStore backed by a slice. It deduplicates by url
// like the Postgres repository.
type MemoryStore struct {
	mu      sync.Mutex
	rows    []model.AdmissionResult
	schema  bool
	Inserts int

	// InsertErr, when set, is returned for every insert of a matching url.
	InsertErr func(url string) error
	// SchemaErr is returned by EnsureSchema when set.
	SchemaErr error
	// Values answers report queries. The default returns the row count.
	Values func(query string, args []any) ([]*float64, error)
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) EnsureSchema(context.Context) error {
	if m.SchemaErr != nil {
		return m.SchemaErr
	}
	m.mu.Lock()
	m.schema = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) LatestDateAdded(context.Context) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *time.Time
	for _, r := range m.rows {
		if r.DateAdded == nil {
			continue
		}
		if latest == nil || r.DateAdded.Time.After(*latest) {
			t := r.DateAdded.Time
			latest = &t
		}
	}
	return latest, nil
}

func (m *MemoryStore) InsertIfNew(_ context.Context, rec model.AdmissionResult) (bool, error) {
	url := model.Deref(rec.URL)
	if m.InsertErr != nil {
		if err := m.InsertErr(url); err != nil {
			return false, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inserts++
	for _, r := range m.rows {
		if model.Deref(r.URL) == url {
			return false, nil
		}
	}
	m.rows = append(m.rows, rec)
	return true, nil
}

func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

func (m *MemoryStore) Distribution(_ context.Context, column string) ([]model.Distribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, r := range m.rows {
		var v string
		switch column {
		case "status":
			if r.Status != nil {
				v = string(*r.Status)
			}
		case "degree":
			if r.Degree != nil {
				v = string(*r.Degree)
			}
		}
		if v != "" {
			counts[v]++
		}
	}
	out := make([]model.Distribution, 0, len(counts))
	for v, n := range counts {
		out = append(out, model.Distribution{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out, nil
}

func (m *MemoryStore) QueryValues(_ context.Context, query string, args ...any) ([]*float64, error) {
	if m.Values != nil {
		return m.Values(query, args)
	}
	m.mu.Lock()
	n := float64(len(m.rows))
	m.mu.Unlock()
	return []*float64{&n}, nil
}

// Rows returns a copy of the stored rows.
func (m *MemoryStore) Rows() []model.AdmissionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AdmissionResult(nil), m.rows...)
}

// FakeScraper returns fixed records on every call. When Block is set the
// call waits for it to be closed first.
type FakeScraper struct {
	Records []model.RawRecord
	Err     error
	Block   chan struct{}

	mu         sync.Mutex
	Watermarks []*time.Time
}

func (f *FakeScraper) FetchNew(ctx context.Context, watermark *time.Time) (scraper.Result, error) {
	f.mu.Lock()
	f.Watermarks = append(f.Watermarks, watermark)
	f.mu.Unlock()

	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return scraper.Result{}, ctx.Err()
		}
	}
	if f.Err != nil {
		return scraper.Result{}, f.Err
	}
	return scraper.Result{
		Records:    f.Records,
		Pages:      1,
		StopReason: scraper.StopWatermark,
	}, nil
}

// Calls returns how many times FetchNew ran.
func (f *FakeScraper) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Watermarks)
}

// RawRecords builds n distinct listing rows dated after 2025-01-01.
func RawRecords(n int) []model.RawRecord {
	out := make([]model.RawRecord, n)
	for i := range out {
		day := time.Date(2025, time.March, 1+i, 0, 0, 0, 0, time.UTC)
		out[i] = model.RawRecord{
			School:        "Johns Hopkins University",
			Major:         "Computer Science",
			Program:       "Computer Science, Johns Hopkins University",
			Degree:        model.StrPtr("Masters"),
			Semester:      model.StrPtr("Fall 2025"),
			Status:        model.StrPtr("Accepted"),
			DateAdded:     model.StrPtr(day.Format("January 2, 2006")),
			URL:           model.StrPtr("https://www.thegradcafe.com/result/" + day.Format("20060102")),
			ApplicantType: model.StrPtr("International"),
			GPA:           model.StrPtr("3.80"),
		}
	}
	return out
}
