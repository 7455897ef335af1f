package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"nftmarket/internal/models"
	"nftmarket/internal/service"
)

type stubQueries struct {
	lastQuery   service.ListingQuery
	lastIDs     []int64
	lastAddress string
	err         error
}

func (s *stubQueries) FindByMarket(ctx context.Context, q service.ListingQuery) (service.ListingPage, error) {
	s.lastQuery = q
	return service.ListingPage{Items: []models.Listing{{ID: 1}}, TotalCount: 1, PageCount: 1}, s.err
}

func (s *stubQueries) FindAll(ctx context.Context, q service.ListingQuery) (service.ListingPage, error) {
	s.lastQuery = q
	return service.ListingPage{Items: []models.Listing{}, TotalCount: 9999, PageCount: 500}, s.err
}

func (s *stubQueries) GetByID(ctx context.Context, collection string, id int64) (*models.Listing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Listing{CollectionName: collection, ID: id, Viewed: 1}, nil
}

func (s *stubQueries) SearchByIDPrefix(ctx context.Context, collection, prefix string) ([]models.Listing, error) {
	return []models.Listing{}, s.err
}

func (s *stubQueries) ElementFloor(ctx context.Context, collection, element string) (service.FloorResult, error) {
	return service.FloorResult{FloorPrice: 1.5}, s.err
}

func (s *stubQueries) GetByIDs(ctx context.Context, collection string, ids []int64) ([]models.Listing, error) {
	s.lastIDs = ids
	return []models.Listing{}, s.err
}

func (s *stubQueries) GetByIdentifiers(ctx context.Context, collection string, identifiers []string) ([]models.Listing, error) {
	return []models.Listing{}, s.err
}

func (s *stubQueries) FindByOwner(ctx context.Context, address string, q service.ListingQuery) (service.ListingPage, error) {
	s.lastAddress = address
	s.lastQuery = q
	return service.ListingPage{Items: []models.Listing{}}, s.err
}

type stubJob struct {
	err     error
	running bool
	ticks   int
}

func (s *stubJob) Tick(ctx context.Context) (service.TickResult, error) {
	s.ticks++
	return service.TickResult{RunID: "run-1", Job: "collection"}, s.err
}

func (s *stubJob) Running() bool { return s.running }

type stubLocks struct {
	locked map[int64]bool
}

func (s *stubLocks) Lock(ctx context.Context, id int64) (bool, error) {
	if s.locked[id] {
		return false, nil
	}
	s.locked[id] = true
	return true, nil
}

func (s *stubLocks) Unlock(ctx context.Context, id int64) (bool, error) {
	was := s.locked[id]
	delete(s.locked, id)
	return was, nil
}

func (s *stubLocks) ForceUnlock(ctx context.Context, id int64) error {
	delete(s.locked, id)
	return nil
}

type memSettings struct {
	mu    sync.Mutex
	items map[string]models.SystemSetting
}

func (m *memSettings) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *memSettings) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.Key] = *item
	return nil
}

func (m *memSettings) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	return nil, nil
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func newListingsRouter(q *stubQueries) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	(&ListingsHandler{Service: q}).Register(r)
	return r
}

func TestListings_MarketParsesQuery(t *testing.T) {
	q := &stubQueries{}
	r := newListingsRouter(q)

	w := do(r, http.MethodGet, "/api/collections/GUARDIAN-3d6635/market?by=price&order=asc&page=2&count=30&type=buy&crown.name=Gold&owner=x&stone=Fire", "")
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, "GUARDIAN-3d6635", q.lastQuery.Collection)
	require.Equal(t, "price", q.lastQuery.By)
	require.Equal(t, "asc", q.lastQuery.Order)
	require.Equal(t, 2, q.lastQuery.Page)
	require.Equal(t, 30, q.lastQuery.Count)
	require.Equal(t, "buy", q.lastQuery.MarketType)
	require.Equal(t, "fire", q.lastQuery.Filter.Stone)
	require.Equal(t, map[string]string{"crown.name": "Gold"}, q.lastQuery.Filter.Traits)

	body := decode(t, w)
	require.Equal(t, float64(0), body["code"])
	data := body["data"].(map[string]any)
	require.Equal(t, float64(1), data["totalCount"])
	require.Len(t, data["nfts"], 1)
}

func TestListings_AllPassesClaimFilter(t *testing.T) {
	q := &stubQueries{}
	r := newListingsRouter(q)

	w := do(r, http.MethodGet, "/api/collections/GUARDIAN-3d6635/all?isClaimed=false&idFrom=10&idTo=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, q.lastQuery.Filter.IsClaimed)
	require.False(t, *q.lastQuery.Filter.IsClaimed)
	require.Equal(t, int64(10), *q.lastQuery.Filter.IDFrom)
	require.Equal(t, int64(20), *q.lastQuery.Filter.IDTo)
}

func TestListings_ByIDsValidates(t *testing.T) {
	q := &stubQueries{}
	r := newListingsRouter(q)

	w := do(r, http.MethodGet, "/api/collections/GUARDIAN-3d6635/ids/1,2,,2,3", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []int64{1, 2, 3}, q.lastIDs)

	w = do(r, http.MethodGet, "/api/collections/GUARDIAN-3d6635/ids/1,x", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/collections/GUARDIAN-3d6635/id/abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListings_MapsServiceErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrUnknownCollection, http.StatusNotFound},
		{service.ErrInvalidQuery, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusBadGateway},
	}
	for _, tc := range cases {
		r := newListingsRouter(&stubQueries{err: tc.err})
		w := do(r, http.MethodGet, "/api/collections/GUARDIAN-3d6635/id/7", "")
		require.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestListings_ByOwner(t *testing.T) {
	q := &stubQueries{}
	r := newListingsRouter(q)

	w := do(r, http.MethodGet, "/api/collections/ROTG-fc7c99/user/erd1abc?page=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "erd1abc", q.lastAddress)
	require.Equal(t, 3, q.lastQuery.Page)
}

func newAdminRouter(h *AdminHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.Register(r)
	return r
}

func TestAdmin_ScrapeConflictWhenRunning(t *testing.T) {
	job := &stubJob{err: service.ErrTickInProgress}
	r := newAdminRouter(&AdminHandler{Jobs: map[string]TickRunner{"collection": job}})

	w := do(r, http.MethodPost, "/api/admin/scrape/collection", "")
	require.Equal(t, http.StatusConflict, w.Code)

	job.err = nil
	w = do(r, http.MethodPost, "/api/admin/scrape/collection", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 2, job.ticks)

	w = do(r, http.MethodPost, "/api/admin/scrape/unknown", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

type ctxReconciler struct {
	calls int
}

func (r *ctxReconciler) ReconcileCollection(ctx context.Context, collection string, tick int64) (service.ReconcileResult, error) {
	r.calls++
	return service.ReconcileResult{Collection: collection, Tick: tick}, ctx.Err()
}

func TestAdmin_ScrapeSurvivesCancelledRequest(t *testing.T) {
	rec := &ctxReconciler{}
	job := &service.Scheduler{Name: "collection", Collections: []string{"ROTG-fc7c99"}, Reconciler: rec}
	r := newAdminRouter(&AdminHandler{Jobs: map[string]TickRunner{"collection": job}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/scrape/collection", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, rec.calls)
	data := decode(t, w)["data"].(map[string]any)
	require.Equal(t, "ROTG-fc7c99", data["collection"])
	require.False(t, job.Running())
}

func TestAdmin_SetEnabled(t *testing.T) {
	settings := &service.SystemSettingsService{Repo: &memSettings{items: map[string]models.SystemSetting{}}}
	job := &stubJob{running: true}
	r := newAdminRouter(&AdminHandler{Jobs: map[string]TickRunner{"nft": job}, Settings: settings})

	w := do(r, http.MethodPut, "/api/admin/jobs/nft/enabled", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, settings.IsEnabled(context.Background(), service.JobFeatureKey("nft"), true))

	w = do(r, http.MethodPut, "/api/admin/jobs/nft/enabled", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/admin/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)
	jobs := decode(t, w)["data"].([]any)
	require.Len(t, jobs, 1)
	first := jobs[0].(map[string]any)
	require.Equal(t, "nft", first["name"])
	require.Equal(t, false, first["enabled"])
	require.Equal(t, true, first["running"])
}

func TestAdmin_Locks(t *testing.T) {
	r := newAdminRouter(&AdminHandler{Locks: &stubLocks{locked: map[int64]bool{}}})

	w := do(r, http.MethodPost, "/api/admin/lock/5", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["data"].(map[string]any)["locked"])

	w = do(r, http.MethodPost, "/api/admin/lock/5", "")
	require.Equal(t, false, decode(t, w)["data"].(map[string]any)["locked"])

	w = do(r, http.MethodPost, "/api/admin/unlock/5", "")
	require.Equal(t, true, decode(t, w)["data"].(map[string]any)["unlocked"])

	w = do(r, http.MethodPost, "/api/admin/unlock-force/5", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/admin/lock/-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_AuthGuardsRoutes(t *testing.T) {
	deny := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized})
	}
	job := &stubJob{}
	r := newAdminRouter(&AdminHandler{Jobs: map[string]TickRunner{"collection": job}, Auth: deny})

	w := do(r, http.MethodPost, "/api/admin/scrape/collection", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, 0, job.ticks)
}

func TestHealth_ReportsRunningJobs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	(&HealthHandler{Jobs: map[string]TickRunner{"collection": &stubJob{running: true}}}).Register(r)

	w := do(r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, decode(t, w)["running"].(map[string]any)["collection"])

	w = do(r, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
