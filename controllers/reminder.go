// controllers/reminder.go
package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"agenda-backend/config"
	"agenda-backend/services"
	"agenda-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ReminderController struct {
	Jobs      *services.Jobs
	Store     *services.ReminderStore
	Scheduler *services.Scheduler
	DB        *gorm.DB
}

type kindView struct {
	Kind       string              `json:"kind"`
	Mode       string              `json:"mode"`
	Audience   string              `json:"audience"`
	Style      string              `json:"style"`
	Cron       string              `json:"cron"`
	Timezone   string              `json:"timezone"`
	WindowMin  int                 `json:"windowMin,omitempty"`
	WindowMax  int                 `json:"windowMax,omitempty"`
	Disabled   bool                `json:"disabled"`
	NextRun    *time.Time          `json:"nextRun,omitempty"`
	LastReport *services.RunReport `json:"lastReport,omitempty"`
}

// Health reports process and database liveness.
func (rc *ReminderController) Health(c *gin.Context) {
	status := gin.H{"status": "ok", "time": time.Now().UTC()}
	if rc.DB != nil {
		sqlDB, err := rc.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		status["database"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}

// ListKinds returns every configured reminder kind with its next trigger.
func (rc *ReminderController) ListKinds(c *gin.Context) {
	next := map[string]time.Time{}
	if rc.Scheduler != nil {
		for _, e := range rc.Scheduler.Entries() {
			next[e.Name] = e.Next
		}
	}

	policies := rc.Jobs.Policies()
	out := make([]kindView, 0, len(policies))
	for _, p := range policies {
		v := kindView{
			Kind:     p.Kind,
			Mode:     p.Mode,
			Audience: p.Audience,
			Style:    p.Style,
			Cron:     p.Cron,
			Timezone: p.Timezone,
			Disabled: p.Disabled,
		}
		if p.Mode == config.ModeWindow {
			v.WindowMin, v.WindowMax = p.WindowMin, p.WindowMax
		}
		if t, ok := next[p.Kind]; ok && !t.IsZero() {
			t := t
			v.NextRun = &t
		}
		if r, ok := rc.Jobs.LastReport(p.Kind); ok {
			r := r
			v.LastReport = &r
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, out)
}

// RunKind triggers one kind immediately. It answers 409 while a run of the
// same kind, scheduled or manual, is still in progress.
func (rc *ReminderController) RunKind(c *gin.Context) {
	kind := strings.TrimSpace(c.Param("kind"))

	report, err := rc.Jobs.Run(c.Request.Context(), kind)
	switch {
	case errors.Is(err, services.ErrUnknownKind):
		utils.RespondWithError(c, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, services.ErrKindDisabled), errors.Is(err, services.ErrKindUnavailable), errors.Is(err, services.ErrKindRunning):
		utils.RespondWithError(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Error().Err(err).Str("kind", kind).Msg("Manual reminder run failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetLedger lists dedup records, newest first.
func (rc *ReminderController) GetLedger(c *gin.Context) {
	records, err := rc.Store.Records(c.Request.Context(), c.Query("event_id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to read ledger")
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetLogs lists delivery attempts, newest first.
func (rc *ReminderController) GetLogs(c *gin.Context) {
	logs, err := rc.Store.Logs(c.Request.Context(), c.Query("event_id"))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to read reminder logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}
