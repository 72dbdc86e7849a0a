package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agenda-backend/config"
	"agenda-backend/controllers"
	"agenda-backend/models"
	"agenda-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubRunner struct {
	err error
}

func (r stubRunner) Run(_ context.Context, p config.ReminderPolicy) (services.RunReport, error) {
	return services.RunReport{Kind: p.Kind, Eligible: 2, Sent: 1, AlreadySent: 1}, r.err
}

// gatedRunner blocks every run until release is closed.
type gatedRunner struct {
	entered chan struct{}
	release chan struct{}
}

func (r gatedRunner) Run(_ context.Context, p config.ReminderPolicy) (services.RunReport, error) {
	r.entered <- struct{}{}
	<-r.release
	return services.RunReport{Kind: p.Kind}, nil
}

func setupTestRouter(t *testing.T, calendarErr error) (*gin.Engine, *services.ReminderStore) {
	t.Helper()
	return setupRouterWithRunner(t, stubRunner{err: calendarErr})
}

func setupRouterWithRunner(t *testing.T, calendar services.Runner) (*gin.Engine, *services.ReminderStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.ReminderRecord{}, &models.ReminderLog{}))

	policies := config.DefaultPolicies("UTC")
	policies[2].Disabled = true // 24h

	store := services.NewReminderStore(db)
	jobs := services.NewJobs(policies, calendar, nil)
	scheduler := services.NewScheduler()
	require.NoError(t, jobs.Register(scheduler))

	return SetupRouter(&controllers.ReminderController{
		Jobs:      jobs,
		Store:     store,
		Scheduler: scheduler,
		DB:        db,
	}), store
}

func doRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := setupTestRouter(t, nil)

	w := doRequest(r, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
}

func TestListKinds(t *testing.T) {
	r, _ := setupTestRouter(t, nil)

	w := doRequest(r, http.MethodPost, "/api/reminders/30m/run")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/api/reminders/kinds")
	require.Equal(t, http.StatusOK, w.Code)

	var kinds []struct {
		Kind       string              `json:"kind"`
		Disabled   bool                `json:"disabled"`
		WindowMin  int                 `json:"windowMin"`
		LastReport *services.RunReport `json:"lastReport"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &kinds))
	require.Len(t, kinds, 5)

	byKind := map[string]int{}
	for i, k := range kinds {
		byKind[k.Kind] = i
	}
	thirty := kinds[byKind["30m"]]
	assert.Equal(t, 28, thirty.WindowMin)
	require.NotNil(t, thirty.LastReport)
	assert.Equal(t, 1, thirty.LastReport.Sent)
	assert.True(t, kinds[byKind["24h"]].Disabled)
	assert.Nil(t, kinds[byKind["1h"]].LastReport)
}

func TestRunKindStatuses(t *testing.T) {
	r, _ := setupTestRouter(t, nil)

	w := doRequest(r, http.MethodPost, "/api/reminders/1h/run")
	require.Equal(t, http.StatusOK, w.Code)
	var report services.RunReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "1h", report.Kind)
	assert.Equal(t, 1, report.AlreadySent)

	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodPost, "/api/reminders/2h/run").Code)
	assert.Equal(t, http.StatusConflict, doRequest(r, http.MethodPost, "/api/reminders/24h/run").Code)
	assert.Equal(t, http.StatusConflict, doRequest(r, http.MethodPost, "/api/reminders/motivational/run").Code)
}

func TestRunKindUpstreamFailure(t *testing.T) {
	r, _ := setupTestRouter(t, fmt.Errorf("calendar unreachable"))

	w := doRequest(r, http.MethodPost, "/api/reminders/30m/run")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "calendar unreachable")
}

func TestRunKindConflictsWhileSameKindRuns(t *testing.T) {
	runner := gatedRunner{entered: make(chan struct{}, 1), release: make(chan struct{})}
	r, _ := setupRouterWithRunner(t, runner)

	first := make(chan int, 1)
	go func() {
		first <- doRequest(r, http.MethodPost, "/api/reminders/1h/run").Code
	}()
	select {
	case <-runner.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not start")
	}

	w := doRequest(r, http.MethodPost, "/api/reminders/1h/run")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already running")

	close(runner.release)
	assert.Equal(t, http.StatusOK, <-first)
}

func TestLedgerAndLogs(t *testing.T) {
	r, store := setupTestRouter(t, nil)
	ctx := context.Background()
	require.NoError(t, store.MarkSent(ctx, models.ReminderKey{EventID: "evt-1", OccurrenceKey: "2025-09-23T22:00:00Z", Kind: "30m"}))
	require.NoError(t, store.MarkSent(ctx, models.ReminderKey{EventID: "evt-2", OccurrenceKey: "2025-09-23T23:00:00Z", Kind: "30m"}))
	require.NoError(t, store.LogAttempt(ctx, &models.ReminderLog{EventID: "evt-1", Kind: "30m", Status: models.LogStatusSent}))

	w := doRequest(r, http.MethodGet, "/api/reminders/ledger?event_id=evt-1")
	require.Equal(t, http.StatusOK, w.Code)
	var records []models.ReminderRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "evt-1", records[0].EventID)

	w = doRequest(r, http.MethodGet, "/api/reminders/ledger")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 2)

	w = doRequest(r, http.MethodGet, "/api/reminders/logs?event_id=evt-1")
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.ReminderLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, models.LogStatusSent, logs[0].Status)
}
