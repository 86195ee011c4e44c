package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	stdsync "sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/menusync/backend/internal/domain/channel"
	syncdomain "github.com/menusync/backend/internal/domain/sync"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, tenantID uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if tenantID != uuid.Nil {
		req.Header.Set("X-Tenant-ID", tenantID.String())
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// ---------------------------------------------------------------------------
// Assignment repository fake
// ---------------------------------------------------------------------------

type memAssignments struct {
	mu    stdsync.Mutex
	items map[uuid.UUID]*channel.Assignment
}

func newMemAssignments() *memAssignments {
	return &memAssignments{items: make(map[uuid.UUID]*channel.Assignment)}
}

func (r *memAssignments) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*channel.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.TenantID != tenantID {
		return nil, channel.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAssignments) FindByChannel(ctx context.Context, tenantID uuid.UUID, code channel.Code) (*channel.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.TenantID == tenantID && a.ChannelCode == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, channel.ErrAssignmentNotFound
}

func (r *memAssignments) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*channel.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*channel.Assignment
	for _, a := range r.items {
		if a.TenantID == tenantID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memAssignments) Save(ctx context.Context, assignment *channel.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *assignment
	r.items[assignment.ID] = &cp
	return nil
}

func (r *memAssignments) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.TenantID != tenantID {
		return channel.ErrAssignmentNotFound
	}
	delete(r.items, id)
	return nil
}

// ---------------------------------------------------------------------------
// Adapter and registry fakes
// ---------------------------------------------------------------------------

type stubAdapter struct {
	code         channel.Code
	testErr      error
	webhookOrder *channel.ChannelOrder
	webhookErr   error
	health       channel.HealthStatus
}

func (a *stubAdapter) Code() channel.Code { return a.code }
func (a *stubAdapter) Features() channel.FeatureSet {
	return channel.NewFeatureSet(channel.FeatureMenuPush, channel.FeatureWebhooks)
}
func (a *stubAdapter) Initialize(ctx context.Context) error { return nil }
func (a *stubAdapter) TestConnection(ctx context.Context) error { return a.testErr }
func (a *stubAdapter) PushMenu(ctx context.Context, menu *channel.MenuPush) (*channel.PushResult, error) {
	return &channel.PushResult{CompletedAt: time.Now()}, nil
}
func (a *stubAdapter) UpdateMenuItems(ctx context.Context, updates []channel.MenuItemUpdate) (*channel.PushResult, error) {
	return &channel.PushResult{CompletedAt: time.Now()}, nil
}
func (a *stubAdapter) SyncAvailability(ctx context.Context, updates []channel.AvailabilityUpdate) (*channel.PushResult, error) {
	return &channel.PushResult{CompletedAt: time.Now()}, nil
}
func (a *stubAdapter) FetchOrders(ctx context.Context, req *channel.OrderFetchRequest) ([]channel.ChannelOrder, error) {
	return nil, nil
}
func (a *stubAdapter) UpdateOrderStatus(ctx context.Context, update *channel.OrderStatusUpdate) error {
	return nil
}
func (a *stubAdapter) HandleWebhook(ctx context.Context, event *channel.WebhookEvent) (*channel.ChannelOrder, error) {
	return a.webhookOrder, a.webhookErr
}
func (a *stubAdapter) HealthStatus() channel.HealthStatus { return a.health }
func (a *stubAdapter) Close() error { return nil }

type stubRegistry struct {
	mu        stdsync.Mutex
	adapter   *stubAdapter
	createErr error
	destroyed []channel.Code
	snapshot  map[channel.Code]channel.HealthStatus
}

func (r *stubRegistry) GetOrCreate(ctx context.Context, assignment *channel.Assignment) (channel.Adapter, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if r.adapter == nil {
		r.adapter = &stubAdapter{code: assignment.ChannelCode}
	}
	return r.adapter, nil
}

func (r *stubRegistry) Destroy(ctx context.Context, tenantID uuid.UUID, code channel.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = append(r.destroyed, code)
	return nil
}

func (r *stubRegistry) DestroyTenant(ctx context.Context, tenantID uuid.UUID) error { return nil }

func (r *stubRegistry) CleanupUnhealthy(ctx context.Context) int { return 0 }

func (r *stubRegistry) Snapshot(tenantID uuid.UUID, code *channel.Code) map[channel.Code]channel.HealthStatus {
	if code == nil {
		return r.snapshot
	}
	out := make(map[channel.Code]channel.HealthStatus)
	if h, ok := r.snapshot[*code]; ok {
		out[*code] = h
	}
	return out
}

func (r *stubRegistry) All() map[uuid.UUID]map[channel.Code]channel.Adapter { return nil }

// ---------------------------------------------------------------------------
// Job and log repository fakes
// ---------------------------------------------------------------------------

type memJobs struct {
	mu    stdsync.Mutex
	items map[uuid.UUID]*syncdomain.Job
}

func newMemJobs() *memJobs {
	return &memJobs{items: make(map[uuid.UUID]*syncdomain.Job)}
}

func (r *memJobs) Save(ctx context.Context, job *syncdomain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.items[job.ID] = &cp
	return nil
}

func (r *memJobs) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.items[id]
	if !ok {
		return nil, syncdomain.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *memJobs) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter syncdomain.JobFilter) ([]*syncdomain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*syncdomain.Job
	for _, j := range r.items {
		if j.TenantID != tenantID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if j.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if filter.ChannelCode != "" && j.ChannelCode != filter.ChannelCode {
			continue
		}
		if filter.SyncType != "" && j.SyncType != filter.SyncType {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memJobs) FindResumable(ctx context.Context) ([]*syncdomain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*syncdomain.Job
	for _, j := range r.items {
		if !j.Status.IsTerminal() {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memJobs) FindDueScheduled(ctx context.Context, now time.Time) ([]*syncdomain.Job, error) {
	return nil, nil
}

func (r *memJobs) CountByStatus(ctx context.Context, tenantID uuid.UUID, since time.Time) (map[syncdomain.JobStatus]int64, error) {
	return map[syncdomain.JobStatus]int64{}, nil
}

func (r *memJobs) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type memLogs struct {
	mu      stdsync.Mutex
	entries []syncdomain.LogEntry
}

func (r *memLogs) Append(ctx context.Context, entry syncdomain.LogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memLogs) FindByJob(ctx context.Context, jobID uuid.UUID) ([]syncdomain.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []syncdomain.LogEntry
	for _, e := range r.entries {
		if e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}
