package cron

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/relaybridge/wayfarer/internal/store"
)

func sampleJobs() []*store.CronJob {
	return []*store.CronJob{
		{
			ID:       "job-1",
			Name:     "daily digest",
			Payload:  store.CronPayload{Message: "summarize today"},
			Schedule: store.CronSchedule{Kind: store.CronKindEvery, EveryMs: 86400000},
			State:    store.CronJobState{NextFireMs: 1000},
		},
		{
			ID:       "job-2",
			Name:     "one-shot reminder",
			Payload:  store.CronPayload{Message: "stand up"},
			Schedule: store.CronSchedule{Kind: store.CronKindAt, AtMs: 2000},
			State:    store.CronJobState{NextFireMs: 2000},
		},
	}
}

func TestJSONFilePersister_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	p := &jsonFilePersister{path: path}

	if err := p.save(sampleJobs()); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := p.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 || loaded[0].ID != "job-1" || loaded[1].ID != "job-2" {
		t.Fatalf("unexpected jobs after round trip: %+v", loaded)
	}
}

func TestJSONFilePersister_MissingFileReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	p := &jsonFilePersister{path: path}
	if _, err := p.load(); err == nil {
		t.Fatal("expected an error for a missing file, Service.load() treats any error as empty store")
	}
}

func TestSQLitePersister_RoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cron", "jobs.db")
	p, err := newSQLitePersister(dbPath)
	if err != nil {
		t.Fatalf("newSQLitePersister: %v", err)
	}

	if err := p.save(sampleJobs()); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := p.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("want 2 jobs, got %d", len(loaded))
	}
	if loaded[0].ID != "job-1" || loaded[0].Payload.Message != "summarize today" {
		t.Errorf("job-1 round-tripped wrong: %+v", loaded[0])
	}
	if loaded[1].ID != "job-2" || loaded[1].Schedule.AtMs != 2000 {
		t.Errorf("job-2 round-tripped wrong: %+v", loaded[1])
	}
}

func TestSQLitePersister_SaveReplacesFullTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "jobs.db")
	p, err := newSQLitePersister(dbPath)
	if err != nil {
		t.Fatalf("newSQLitePersister: %v", err)
	}

	if err := p.save(sampleJobs()); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A second save with only one job should drop job-2 entirely, not merge.
	if err := p.save(sampleJobs()[:1]); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := p.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "job-1" {
		t.Fatalf("expected save to replace the table, got %+v", loaded)
	}
}

func TestNewSQLiteService_LoadsPersistedJobs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "jobs.db")

	svc, err := NewSQLiteService(dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteService: %v", err)
	}
	if err := svc.persist.save(sampleJobs()); err != nil {
		t.Fatalf("save via service persister: %v", err)
	}

	// Re-open to confirm the data survives a fresh Service over the same file.
	reopened, err := NewSQLiteService(dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteService (reopen): %v", err)
	}
	jobs, err := reopened.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("want 2 jobs after reopen, got %d", len(jobs))
	}
}
