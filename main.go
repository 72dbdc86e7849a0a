package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"agenda-backend/config"
	"agenda-backend/controllers"
	"agenda-backend/models"
	"agenda-backend/routes"
	"agenda-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	config.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT") == "json")

	settings, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	config.SetupLogger(settings.LogLevel, settings.LogJSON)

	db, err := config.ConnectDB(settings.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := db.AutoMigrate(
		&models.ReminderRecord{},
		&models.ReminderLog{},
	); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gcal, err := services.NewGoogleCalendar(ctx, settings.Calendar.Email, settings.Calendar.PrivateKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create calendar client")
	}
	source := services.NewCalendarReader(gcal, settings.Calendar.ID)
	store := services.NewReminderStore(db)
	messenger := newMessenger(ctx, settings.Messaging)

	recipients := services.Recipients{StaffNumber: settings.StaffNumber, ProgramName: settings.ProgramName}
	reminders := services.NewReminderService(source, store, store, messenger, recipients)

	var motivational services.Runner
	if settings.AI.Enabled() {
		generator := services.NewOpenAIGenerator(settings.AI.APIKey, settings.AI.BaseURL, settings.AI.Model)
		motivational = services.NewMotivationalService(generator, store, store, messenger, settings.StaffNumber, settings.StaffName)
	} else {
		log.Warn().Msg("AI_API_KEY not set, generated messages disabled")
	}

	jobs := services.NewJobs(settings.Policies, reminders, motivational)
	scheduler := services.NewScheduler()
	if err := jobs.Register(scheduler); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule reminder jobs")
	}
	scheduler.Start()

	if settings.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := routes.SetupRouter(&controllers.ReminderController{
		Jobs:      jobs,
		Store:     store,
		Scheduler: scheduler,
		DB:        db,
	})
	printRoutes(r)

	srv := &http.Server{Addr: ":" + settings.Port, Handler: r}
	go func() {
		log.Info().Str("port", settings.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown")
	}
	scheduler.Stop()
}

func newMessenger(ctx context.Context, cfg config.MessagingSettings) services.Messenger {
	if cfg.Provider == "twilio" {
		return services.NewTwilioMessenger(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
	}
	evo := services.NewEvolutionMessenger(cfg.EvolutionURL, cfg.EvolutionAPIKey, cfg.Instance)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := evo.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Msg("Evolution API not reachable at startup")
	}
	return evo
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		log.Debug().Str("method", route.Method).Str("path", route.Path).Msg("route")
	}
}
