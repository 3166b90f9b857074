package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cafepanel/internal/config"
	"cafepanel/internal/httpapi"
	"cafepanel/internal/models"
	"cafepanel/internal/store/postgres"
	"cafepanel/internal/telemetry"
	"cafepanel/internal/token"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var version = "dev"

// Usage:
//
//	panel-api                 serve the API
//	panel-api migrate         apply embedded migrations and exit
//	panel-api create-user -email a@b.c -password x -role admin [-tenant 1]
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatalf("migrate: %v", err)
			}
			return
		case "create-user":
			if err := createUser(ctx, postgres.NewStore(pool), os.Args[2:]); err != nil {
				log.Fatalf("create-user: %v", err)
			}
			return
		default:
			log.Fatalf("unknown command %q", os.Args[1])
		}
	}

	if err := cfg.ValidateServe(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "panel-api",
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	var denylist token.Denylist
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis connect: %v", err)
		}
		denylist = token.NewRedisDenylist(rdb)
	}

	store := postgres.NewStore(pool)
	handler := httpapi.NewHandler(store, issuer, httpapi.Options{Denylist: denylist})
	proxies, err := httpapi.ParseTrustedProxies(cfg.Limits.TrustedProxies)
	if err != nil {
		log.Fatalf("TRUSTED_PROXIES: %v", err)
	}
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:     cfg.Limits.IPPerMinute,
		IPBurst:         cfg.Limits.IPBurst,
		TenantPerMinute: cfg.Limits.TenantPerMinute,
		TenantBurst:     cfg.Limits.TenantBurst,
		LoginPerMinute:  cfg.Limits.LoginPerMinute,
		LoginBurst:      cfg.Limits.LoginBurst,
		TrustedProxies:  proxies,
	})
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				limiter.Sweep(10 * time.Minute)
			}
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(limiter.Middleware(handler.Routes()), "panel-api"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("panel-api listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func createUser(ctx context.Context, st *postgres.Store, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "login password")
	role := fs.String("role", models.RoleStaff, "admin, manager or staff")
	tenant := fs.Int64("tenant", 0, "cafe id the user belongs to")
	branch := fs.Int64("branch", 0, "branch id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}
	switch *role {
	case models.RoleAdmin, models.RoleManager, models.RoleStaff:
	default:
		return errors.New("unknown role " + *role)
	}
	if *role != models.RoleAdmin && *tenant <= 0 {
		return errors.New("-tenant is required for non-admin users")
	}
	user, err := st.CreateUser(ctx, models.User{TenantID: *tenant, BranchID: *branch, Email: *email, Role: *role}, *password)
	if err != nil {
		return err
	}
	log.Printf("user created id=%d email=%s role=%s tenant=%d", user.ID, user.Email, user.Role, user.TenantID)
	return nil
}
