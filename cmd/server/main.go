package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pgvplaning/backend/config"
	"pgvplaning/backend/internal/api/handler"
	"pgvplaning/backend/internal/api/router"
	"pgvplaning/backend/internal/job"
	"pgvplaning/backend/internal/repository"
	"pgvplaning/backend/internal/service"
	"pgvplaning/backend/pkg/database"
	"pgvplaning/backend/pkg/jwt"
	applogger "pgvplaning/backend/pkg/logger"
	"pgvplaning/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "chemin du fichier de configuration (défaut: ./config/config.yaml)")
	flag.Parse()

	// 1. .env then configuration
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "lecture du fichier .env impossible: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chargement de la configuration échoué: %v\n", err)
		os.Exit(1)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialisation du logger échouée: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("démarrage de l'application",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Calendar.Timezone),
	)

	// 3. database + migrations
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("connexion à la base de données échouée", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("accès au sql.DB sous-jacent impossible", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("migration de la base de données échouée", zap.Error(err))
	}

	// 4. Redis (optional: without it the calendar cache and rate limiting
	// are off)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis indisponible, cache et limitation de débit désactivés", zap.Error(err))
		rdb = nil
	}
	var cache service.CalendarCache
	if rdb != nil {
		cache = rdb
	}

	// 5. repository → service → handler
	repo := repository.NewRepository(db)
	svc, err := service.NewService(cfg, repo, cache, logger)
	if err != nil {
		logger.Fatal("initialisation des services échouée", zap.Error(err))
	}
	h := handler.NewHandler(svc)

	jwtMgr := jwt.NewManager(&cfg.Auth)
	engine, err := router.Setup(cfg, h, jwtMgr, svc.User, rdb, logger)
	if err != nil {
		logger.Fatal("initialisation du routeur échouée", zap.Error(err))
	}

	// 6. background jobs
	scheduler, err := job.NewScheduler(&cfg.Jobs, svc.Team, logger.Named("job"))
	if err != nil {
		logger.Fatal("initialisation des tâches planifiées échouée", zap.Error(err))
	}
	scheduler.Start()

	// 7. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("serveur HTTP démarré", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("erreur du serveur HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("signal reçu, arrêt en cours", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("arrêt du serveur HTTP incomplet", zap.Error(err))
	}
	scheduler.Stop(ctx)

	if err := sqlDB.Close(); err != nil {
		logger.Warn("fermeture de la base de données", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("serveur arrêté")
}
