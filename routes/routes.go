package routes

import (
	"agenda-backend/config"
	"agenda-backend/controllers"

	"github.com/gin-gonic/gin"
)

func SetupRouter(rc *controllers.ReminderController) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(config.PerformanceLogger())

	r.GET("/health", rc.Health)

	api := r.Group("/api")
	{
		reminders := api.Group("/reminders")
		{
			reminders.GET("/kinds", rc.ListKinds)
			reminders.POST("/:kind/run", rc.RunKind)
			reminders.GET("/ledger", rc.GetLedger)
			reminders.GET("/logs", rc.GetLogs)
		}
	}

	return r
}
