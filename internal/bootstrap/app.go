package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"policyscan-backend/internal/auth"
	"policyscan-backend/internal/export"
	"policyscan-backend/internal/herald"
	"policyscan-backend/internal/sessions"
	"policyscan-backend/internal/shared/config"
	"policyscan-backend/internal/shared/server"
	"policyscan-backend/internal/shared/storage/db"
	"policyscan-backend/internal/shared/storage/object"
	localstore "policyscan-backend/internal/shared/storage/object/local"
	s3store "policyscan-backend/internal/shared/storage/object/s3"
	"policyscan-backend/internal/uploads"
	"policyscan-backend/internal/users"
)

// App holds the application's wired dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore

	UsersRepo    users.Repo
	SessionsRepo sessions.Repo
	UploadsRepo  uploads.Repo

	Herald          *herald.Client
	SessionsService *sessions.Service
	AuthService     *auth.Service
	UploadsService  *uploads.Service
	Mailer          *export.Mailer

	AuthHandler   *auth.Handler
	UploadHandler *uploads.Handler
	ExportHandler *export.Handler
}

// Build prepares all dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:        app.Config,
		Sessions:      app.AuthService,
		AuthHandler:   app.AuthHandler,
		UploadHandler: app.UploadHandler,
		ExportHandler: app.ExportHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) {
	var userRepo users.Repo
	var sessionRepo sessions.Repo
	var uploadRepo uploads.Repo

	if app.DB != nil {
		userRepo = &users.PGRepo{DB: app.DB}
		sessionRepo = &sessions.PGRepo{DB: app.DB}
		uploadRepo = &uploads.PGRepo{DB: app.DB}
	} else {
		userRepo = users.NewMemoryRepo()
		sessionRepo = sessions.NewMemoryRepo()
		uploadRepo = uploads.NewMemoryRepo()
	}

	sessionSvc := sessions.NewService(sessionRepo, app.Config.SessionTTL)
	authSvc := auth.NewService(userRepo, sessionSvc)
	heraldClient := herald.NewClient(app.Config.HeraldAPIKey, app.Config.HeraldBaseURL)
	uploadSvc := &uploads.Service{
		Repo:   uploadRepo,
		Herald: heraldClient,
		Store:  app.Store,
	}
	mailer := &export.Mailer{
		Host:     app.Config.EmailHost,
		Port:     app.Config.EmailPort,
		Username: app.Config.EmailUser,
		Password: app.Config.EmailPassword,
		From:     app.Config.EmailFrom,
		SSL:      app.Config.EmailSecure,
	}

	app.UsersRepo = userRepo
	app.SessionsRepo = sessionRepo
	app.UploadsRepo = uploadRepo
	app.Herald = heraldClient
	app.SessionsService = sessionSvc
	app.AuthService = authSvc
	app.UploadsService = uploadSvc
	app.Mailer = mailer
	app.AuthHandler = auth.NewHandler(authSvc, sessionSvc, app.Config.Env == "production")
	app.UploadHandler = uploads.NewHandler(uploadSvc)
	app.ExportHandler = &export.Handler{Mailer: mailer}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
