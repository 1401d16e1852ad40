package main

import (
	"context"
	"errors"
	"expvar"
	"io/fs"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pasal/internal/auth"
	"pasal/internal/db"
	"pasal/internal/domain/storage"
	"pasal/internal/events"
	"pasal/internal/payments"
	"pasal/internal/ratelimiter"
	"pasal/internal/secrets"
)

type config struct {
	Addr        string `envconfig:"ADDR" default:":8080"`
	Env         string `envconfig:"ENV" default:"development"`
	APIURL      string `envconfig:"EXTERNAL_URL" default:"http://localhost:8080"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`

	DBAddr         string `envconfig:"DB_ADDR" required:"true"`
	DBMaxOpenConns int32  `envconfig:"DB_MAX_OPEN_CONNS" default:"30"`
	DBMaxIdleTime  string `envconfig:"DB_MAX_IDLE_TIME" default:"15m"`
	DBAutoMigrate  bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	EncryptionKey  string `envconfig:"ENCRYPTION_KEY" required:"true"`
	EncryptionSalt string `envconfig:"ENCRYPTION_SALT"`
	ReferenceSalt  string `envconfig:"REFERENCE_SALT" default:"pasal-references"`

	AuthTokenSecret string `envconfig:"AUTH_TOKEN_SECRET" required:"true"`
	AuthTokenIss    string `envconfig:"AUTH_TOKEN_ISS" default:"pasal"`
	AuthBasicUser   string `envconfig:"AUTH_BASIC_USER" default:"admin"`
	AuthBasicPass   string `envconfig:"AUTH_BASIC_PASS"`

	EsewaFormURL     string        `envconfig:"ESEWA_FORM_URL"`
	EsewaStatusURL   string        `envconfig:"ESEWA_STATUS_URL"`
	KhaltiBaseURL    string        `envconfig:"KHALTI_BASE_URL"`
	KhaltiWebsiteURL string        `envconfig:"KHALTI_WEBSITE_URL"`
	GatewayTimeout   time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`

	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"10m"`
	ReconcileAfter    time.Duration `envconfig:"RECONCILE_AFTER" default:"15m"`
	ReconcileBatch    int           `envconfig:"RECONCILE_BATCH" default:"50"`

	NATSURL string `envconfig:"NATS_URL"`

	RateLimiterEnabled  bool          `envconfig:"RATELIMITER_ENABLED" default:"true"`
	RateLimiterRequests int           `envconfig:"RATELIMITER_REQUESTS_COUNT" default:"20"`
	RateLimiterWindow   time.Duration `envconfig:"RATELIMITER_WINDOW" default:"5s"`
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder // This adds color to log levels (INFO, WARN, ERROR)

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)
	logger := zap.New(core)

	return logger.Sugar(), nil
}

var version = "0.3.0"

//	@title			Pasal Payments API
//	@description	Multi-tenant payment gateway for Pasal shops: eSewa, Khalti, bank transfer and cash on delivery.

//	@contact.name	API Support

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := NewLogger()
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer logger.Sync()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(cfg.DBAddr); err != nil {
			logger.Fatalw("migrations failed", "err", err)
		}
		logger.Info("database migrations applied")
	}

	// Database
	pool, err := db.New(cfg.DBAddr, cfg.DBMaxOpenConns, cfg.DBMaxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	container := storage.NewContainer(pool, logger)

	encryptor, err := secrets.NewEncryptor(cfg.EncryptionKey, cfg.EncryptionSalt)
	if err != nil {
		logger.Fatalw("credential encryptor", "err", err)
	}
	configs := payments.NewConfigService(container, encryptor, logger)

	refs, err := payments.NewReferenceGenerator(cfg.ReferenceSalt, "PSL")
	if err != nil {
		logger.Fatal(err)
	}

	client := payments.NewHTTPClient(cfg.GatewayTimeout)
	base := strings.TrimSuffix(cfg.APIURL, "/")
	registry, err := payments.NewRegistry(
		payments.NewEsewaAdapter(payments.EsewaConfig{
			FormURL:    cfg.EsewaFormURL,
			StatusURL:  cfg.EsewaStatusURL,
			SuccessURL: base + "/v1/payments/esewa/success",
			FailureURL: base + "/v1/payments/esewa/failure",
		}, configs, client, logger),
		payments.NewKhaltiAdapter(payments.KhaltiConfig{
			BaseURL:    cfg.KhaltiBaseURL,
			WebsiteURL: cfg.KhaltiWebsiteURL,
		}, configs, client, logger),
		payments.NewBankTransferAdapter(configs, refs),
		payments.NewCODAdapter(configs, refs),
	)
	if err != nil {
		logger.Fatal(err)
	}

	checks := map[string]func(context.Context) error{
		"database": pool.Ping,
	}

	// Events
	var publisher payments.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(events.Config{URL: cfg.NATSURL}, logger)
		if err != nil {
			logger.Fatal(err)
		}
		defer nc.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = nc.EnsureStream(ctx, "PAYMENTS", []string{"payments.>"})
		cancel()
		if err != nil {
			logger.Fatal(err)
		}
		publisher = events.NewPublisher(nc, logger)
		checks["nats"] = func(context.Context) error { return nc.HealthCheck() }
	} else {
		logger.Warn("NATS_URL not set, payment events are not published")
	}

	svc := payments.NewService(container, registry, publisher, logger)
	reconciler := payments.NewReconciler(svc, payments.ReconcilerConfig{
		Interval: cfg.ReconcileInterval,
		After:    cfg.ReconcileAfter,
		Batch:    cfg.ReconcileBatch,
	}, logger)

	app := &application{
		config:        cfg,
		logger:        logger,
		payments:      svc,
		configs:       configs,
		reconciler:    reconciler,
		access:        container.AccessControl,
		authenticator: auth.NewJWTAuthenticator(cfg.AuthTokenSecret, cfg.AuthTokenIss),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(cfg.RateLimiterRequests, cfg.RateLimiterWindow),
		checks:        checks,
	}

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := pool.Stat()
		return map[string]any{
			"total_conns":    s.TotalConns(),
			"idle_conns":     s.IdleConns(),
			"acquired_conns": s.AcquiredConns(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
