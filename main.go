package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"cash-request-service/internal/chat"
	"cash-request-service/internal/config"
	"cash-request-service/internal/db"
	"cash-request-service/internal/handlers"
	"cash-request-service/internal/ledger"
	"cash-request-service/internal/logger"
	"cash-request-service/internal/memstore"
	"cash-request-service/internal/middleware"
	"cash-request-service/internal/notify"
	"cash-request-service/internal/observability"
	"cash-request-service/internal/rabbitmq"
	"cash-request-service/internal/repositories"
	"cash-request-service/internal/telemetry"
	"cash-request-service/internal/ws"
)

const serviceName = "cash-request-service"

// stores groups the persistence collaborators, whichever backend serves them.
type stores struct {
	users         repositories.UserRepository
	requests      repositories.RequestRepository
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	calls         repositories.CallRepository
	pinger        handlers.Pinger
	close         func() error
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (stores, error) {
	if cfg.Store == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		mem := memstore.New()
		return stores{
			users:         mem,
			requests:      mem,
			conversations: mem,
			messages:      mem,
			calls:         mem,
			pinger:        mem,
			close:         func() error { return nil },
		}, nil
	}

	database, err := db.Connect(ctx, cfg.DBDSN)
	if err != nil {
		return stores{}, err
	}
	return stores{
		users:         repositories.NewUserRepo(database),
		requests:      repositories.NewRequestRepo(database),
		conversations: repositories.NewConversationRepo(database),
		messages:      repositories.NewMessageRepo(database),
		calls:         repositories.NewCallRepo(database),
		pinger:        pingFunc(database.PingContext),
		close:         database.Close,
	}, nil
}

// relay is what the services emit realtime events through.
type relay interface {
	EmitToUser(userID, event string, payload any)
	EmitToConversation(conversationID, event string, payload any)
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if cfg.Environment == "development" {
		log, err = logger.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	logger.SetGlobal(log)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.TracingEnabled, cfg.TracingEndpoint, cfg.Environment)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
		shutdownTracer = func(context.Context) error { return nil }
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.String("store", cfg.Store), zap.Error(err))
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	observability.SetPublisher(publisher)
	lifecycleEvents := telemetry.NewLifecycleEmitter(publisher, serviceName, cfg.Environment, log)

	hub := ws.NewHub(log)
	var emitter relay = hub
	var bridge *ws.NATSBridge
	if cfg.NATSURL != "" {
		bridge, err = ws.NewNATSBridge(cfg.NATSURL, hub, log)
		if err != nil {
			log.Warn("nats relay disabled, emitting locally", zap.Error(err))
		} else {
			emitter = bridge
		}
	}

	var gateway notify.Gateway
	if cfg.FirebaseCredentialsJSON != "" {
		fcm, err := notify.NewFCMGateway(ctx, cfg.FirebaseCredentialsJSON)
		if err != nil {
			log.Warn("push notifications disabled", zap.Error(err))
		} else {
			gateway = fcm
		}
	} else {
		log.Info("push notifications disabled", zap.String("reason", "no firebase credentials"))
	}
	dispatcher := notify.NewDispatcher(gateway, st.users, cfg.PushTimeout, log)
	tasks := notify.NewTaskRunner(cfg.TaskTimeout, log)

	requestLedger := ledger.New(ledger.Dependencies{
		Users:           st.users,
		Requests:        st.requests,
		Conversations:   st.conversations,
		Notifier:        dispatcher,
		Relay:           emitter,
		Events:          lifecycleEvents,
		Tasks:           tasks,
		Logger:          log,
		TTL:             cfg.RequestTTL,
		DefaultRadiusKm: cfg.DefaultRadiusKm,
	})
	chatService := chat.New(chat.Dependencies{
		Conversations: st.conversations,
		Messages:      st.messages,
		Calls:         st.calls,
		Users:         st.users,
		Notifier:      dispatcher,
		Relay:         emitter,
		Tasks:         tasks,
		Logger:        log,
		CallTTL:       cfg.CallSessionTTL,
	})

	validator := middleware.NewJWTValidator(cfg.JWTSecret)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		middleware.RequestID(),
		middleware.Logging(log),
		observability.HTTPMetricsMiddleware(),
	)

	router.GET("/health", handlers.Health(st.pinger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	userHandler := handlers.NewUserHandler(st.users, validator, log)
	userHandler.RegisterPublic(router.Group("/api/users"))

	api := router.Group("/api", middleware.AuthMiddleware(validator))
	userHandler.Register(api.Group("/users"))
	handlers.NewRequestHandler(requestLedger).Register(api.Group("/requests"))
	handlers.NewChatHandler(chatService).Register(api.Group("/chats"))
	handlers.NewCallHandler(chatService).Register(api.Group("/calls"))

	router.GET("/ws/users", ws.NewUserWebSocketHandler(hub, validator).Handle)
	router.GET("/ws/chats/:chat_id", ws.NewConversationWebSocketHandler(hub, st.conversations, validator).Handle)

	handlers.RegisterDebugRoutes(router, lifecycleEvents, requestLedger, cfg.DebugRoutes)

	var handler http.Handler = router
	handler = middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)(handler)
	handler = middleware.CORS()(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", server.Addr), zap.String("store", cfg.Store))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		log.Warn("background tasks did not drain", zap.Error(err))
	}
	if bridge != nil {
		if err := bridge.Close(); err != nil {
			log.Warn("nats close", zap.Error(err))
		}
	}
	if err := publisher.Close(); err != nil {
		log.Warn("publisher close", zap.Error(err))
	}
	if err := st.close(); err != nil {
		log.Warn("store close", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn("tracer shutdown", zap.Error(err))
	}
}
