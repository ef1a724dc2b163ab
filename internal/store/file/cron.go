package file

import (
	"context"

	"github.com/relaybridge/wayfarer/internal/cron"
	"github.com/relaybridge/wayfarer/internal/store"
)

// FileCronStore wraps cron.Service to implement store.CronStore.
type FileCronStore struct {
	svc *cron.Service
}

func NewFileCronStore(svc *cron.Service) *FileCronStore {
	return &FileCronStore{svc: svc}
}

func (f *FileCronStore) Add(ctx context.Context, job *store.CronJob) error { return f.svc.Add(ctx, job) }
func (f *FileCronStore) Get(ctx context.Context, id string) (*store.CronJob, error) {
	return f.svc.Get(ctx, id)
}
func (f *FileCronStore) List(ctx context.Context) ([]*store.CronJob, error) { return f.svc.List(ctx) }
func (f *FileCronStore) Remove(ctx context.Context, id string) error        { return f.svc.Remove(ctx, id) }
func (f *FileCronStore) SetOnJob(handler store.CronJobHandler)              { f.svc.SetOnJob(handler) }
func (f *FileCronStore) Start() error                                      { return f.svc.Start() }
func (f *FileCronStore) Stop()                                             { f.svc.Stop() }

// SetRetryConfig forwards to the underlying service, satisfying the
// interface{ SetRetryConfig(cron.RetryConfig) } assertion in cmd/gateway.go.
func (f *FileCronStore) SetRetryConfig(rc cron.RetryConfig) { f.svc.SetRetryConfig(rc) }
