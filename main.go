package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-client/internal/api"
	"chat-client/internal/app"
	"chat-client/internal/config"
	"chat-client/internal/db"
	"chat-client/internal/handlers"
	"chat-client/internal/loop"
	"chat-client/internal/messages"
	"chat-client/internal/notice"
	"chat-client/internal/observability"
	"chat-client/internal/rabbitmq"
	"chat-client/internal/repositories"
	"chat-client/internal/telemetry"
	"chat-client/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.ProfileDB)
	if err != nil {
		log.Fatalf("failed to open profile db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.ServiceName)
	defer publisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.Mode(publisher))
	audit := telemetry.NewAuditEmitter(publisher, cfg.ServiceName, cfg.ServiceName, cfg.Environment)

	eventLoop := loop.New(ctx)
	loopDone := make(chan error, 1)
	go func() { loopDone <- eventLoop.Run() }()

	client := app.New(app.Deps{
		Loop: eventLoop,
		API:  api.New(cfg.APIURL, cfg.HTTPTimeout),
		NewChannel: func() app.EventChannel {
			return ws.NewChannel(cfg.SocketURL)
		},
		Profiles: repositories.NewProfileRepo(database),
		Audit:    audit,
		Notices:  notice.NewBoard(cfg.NoticeDuration),
		Typing: messages.Options{
			TypingTimeout:       cfg.TypingTimeout,
			RemoteTypingTimeout: cfg.RemoteTypingTimeout,
		},
	})
	defer client.Close()

	if restored, err := client.Restore(ctx); err != nil {
		log.Printf("restore session failed: %v", err)
	} else if restored {
		user, _ := client.User()
		log.Printf("session restored user_id=%s", user.ID)
	}

	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(observability.MetricsHandler()))
	handlers.RegisterRoutes(router, client)
	handlers.RegisterDebugRoutes(router, client, cfg.DebugRoutes)

	srv := &http.Server{Addr: cfg.ControlAddr, Handler: router}
	go func() {
		log.Printf("control api listening addr=%s", cfg.ControlAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("event loop: %v", err)
	}
}
