package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parksafe/parksafe/internal/config"
	"github.com/parksafe/parksafe/internal/handler"
	"github.com/parksafe/parksafe/internal/jobs"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/realtime"
	"github.com/parksafe/parksafe/internal/repository"
	"github.com/parksafe/parksafe/internal/service"
	"github.com/parksafe/parksafe/migrations"
	"github.com/parksafe/parksafe/pkg/auth"
	"github.com/parksafe/parksafe/pkg/mailer"
	"github.com/parksafe/parksafe/pkg/notification"
	"github.com/parksafe/parksafe/pkg/storage"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// @title           ParkSafe API
// @version         1.0
// @description     Messaging, emergency alerts and live locations for park visitors, with a websocket change feed.

// @contact.name   API Support
// @contact.email  support@parksafe.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting ParkSafe API Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		if err := db.AutoMigrate(
			&model.Profile{},
			&model.Group{},
			&model.GroupMember{},
			&model.Message{},
			&model.Alert{},
			&model.UserDevice{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	blacklist := auth.NewBlacklist(rdb)

	// Repositories
	profileRepo := repository.NewProfileRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Realtime change feed (Redis Pub/Sub for horizontal scaling)
	hub := realtime.NewHub(rdb)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Alert fan-out: email always, FCM when configured
	mailClient := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})
	log.Printf("📧 SMTP configured: %s:%s", cfg.SMTP.Host, cfg.SMTP.Port)

	notifiers := []service.AlertNotifier{mailer.NewAlertNotifier(mailClient, profileRepo)}
	if fcm := notification.NewNotificationService(cfg.Firebase.CredentialsFile, profileRepo); fcm != nil {
		notifiers = append(notifiers, fcm)
	}

	// Services
	authService := service.NewAuthService(profileRepo, jwtManager, blacklist)
	messageService := service.NewMessageService(msgRepo, groupRepo, profileRepo, hub, cfg.Feed.MessagePageSize, cfg.Feed.MessageMaxPage)
	alertService := service.NewAlertService(alertRepo, profileRepo, hub, cfg.Feed.AlertLimit, notifiers...)
	groupService := service.NewGroupService(groupRepo, profileRepo)
	profileService := service.NewProfileService(profileRepo, hub, cfg.Feed.ActiveWindow)

	// Housekeeping
	scheduler, err := jobs.NewScheduler(cfg.Jobs.AlertExpirySpec, alertService, cfg.Jobs.AlertTTL)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	scheduler.Start()

	// MinIO Storage (avatars)
	var avatars storage.Storage
	minioStorage, err := storage.NewMinIO(storage.Config{
		Endpoint:  cfg.MinIO.Endpoint,
		PublicURL: cfg.MinIO.PublicURL,
		AccessKey: cfg.MinIO.AccessKey,
		SecretKey: cfg.MinIO.SecretKey,
		Bucket:    cfg.MinIO.Bucket,
		UseSSL:    cfg.MinIO.UseSSL,
	})
	if err != nil {
		log.Printf("⚠️  MinIO not available: %v (avatar upload disabled)", err)
	} else {
		avatars = minioStorage
		log.Println("✅ Connected to MinIO")
	}

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(handler.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Message: handler.NewMessageHandler(messageService),
		Alert:   handler.NewAlertHandler(alertService),
		Group:   handler.NewGroupHandler(groupService),
		Profile: handler.NewProfileHandler(profileService, avatars),
		WS:      handler.NewWSHandler(hub, jwtManager, blacklist),
	}, handler.RouterConfig{
		CORS:        cfg.CORS,
		JWT:         jwtManager,
		Revoked:     blacklist,
		SwaggerJSON: "./docs/swagger.json",
	})

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 ParkSafe API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("📈 Metrics: http://0.0.0.0:%s/metrics", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws?token=<jwt>", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	scheduler.Stop()
	hubCancel()
	log.Println("✅ Server exited gracefully")
}
