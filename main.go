package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"notification-service/api"
	"notification-service/fanout"
	"notification-service/internal/consts"
	"notification-service/notifier"
	"notification-service/registry"
	"notification-service/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTable := os.Getenv("TASKS_TABLE")
	usersTable := os.Getenv("USERS_TABLE")
	if connStr == "" || tasksTable == "" || usersTable == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, tasksTable, usersTable)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	rc := redis.NewClient(redisOptions(redisConn))

	auth := newAuth()

	dueSoonWindow := notifier.DefaultDueSoonWindow
	if v := os.Getenv("DUE_SOON_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid DUE_SOON_WINDOW: %v", err)
		}
		dueSoonWindow = d
	}
	channel := os.Getenv("NOTIFICATIONS_CHANNEL")
	if channel == "" {
		channel = consts.DefaultNotificationsChannel
	}

	logger := log.New()
	reg := registry.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fanout.Subscribe(ctx, logger, rc, channel, reg)

	dispatcher := notifier.NewDispatcher(store, fanout.NewPublisher(rc, channel), logger)
	scanner := notifier.NewScanner(store, dispatcher, logger, dueSoonWindow)
	cronRunner, err := scanner.Start(ctx, os.Getenv("NOTIFICATIONS_JOB_SCHEDULE"))
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer cronRunner.Stop()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, reg, store, auth, dueSoonWindow, logger)

	listenAddr := ":9000"
	if val, ok := os.LookupEnv("NOTIFICATION_SERVICE_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// newAuth picks the credential verification mode: the shared secret access
// tokens are issued with, or an external IdP's JWKS.
func newAuth() *api.Auth {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return api.NewSharedSecretAuth([]byte(secret))
	}
	jwtAudience := os.Getenv("AUTH0_AUDIENCE")
	domain := os.Getenv("AUTH0_DOMAIN")
	if jwtAudience == "" || domain == "" {
		log.Fatal("missing auth config: set JWT_SECRET or AUTH0_DOMAIN and AUTH0_AUDIENCE")
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		log.Fatalf("jwks: %v", err)
	}
	return api.NewJWKSAuth(jwks, jwtAudience, "https://"+domain+"/")
}

// redisOptions accepts either a redis URL or the Azure-style
// "host:port,password=...,ssl=true" connection string form.
func redisOptions(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err == nil {
		return opts
	}
	parts := strings.Split(connStr, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
