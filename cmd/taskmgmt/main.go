package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DanielCochavi/task-management-system/internal/config"
	infraEvents "github.com/DanielCochavi/task-management-system/internal/shared/infra/events"
	sharedBus "github.com/DanielCochavi/task-management-system/internal/shared/infra/platform/bus"
	sharedCache "github.com/DanielCochavi/task-management-system/internal/shared/infra/platform/cache"
	sharedUtils "github.com/DanielCochavi/task-management-system/internal/shared/infra/utils"
	taskApp "github.com/DanielCochavi/task-management-system/internal/task/application"
	taskDomain "github.com/DanielCochavi/task-management-system/internal/task/domain"
	taskEvents "github.com/DanielCochavi/task-management-system/internal/task/infra/inbound/events"
	taskHttp "github.com/DanielCochavi/task-management-system/internal/task/infra/inbound/http"
	taskAnalytics "github.com/DanielCochavi/task-management-system/internal/task/infra/outbound/analytics/clickhouse"
	taskMemRepo "github.com/DanielCochavi/task-management-system/internal/task/infra/outbound/db/inmemory"
	taskMongoRepo "github.com/DanielCochavi/task-management-system/internal/task/infra/outbound/db/mongodb"
	taskPgRepo "github.com/DanielCochavi/task-management-system/internal/task/infra/outbound/db/postgre"
	taskSQLiteRepo "github.com/DanielCochavi/task-management-system/internal/task/infra/outbound/db/sqlite"
	taskFileRepo "github.com/DanielCochavi/task-management-system/internal/task/infra/outbound/filesystem"
	"github.com/DanielCochavi/task-management-system/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ---------------- Main ----------------
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.LogLevel) // inicializa zap
	log := logger.Logger()    // obtiene logger estructurado
	defer logger.Sync()       // flush buffers al salir

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- DB ----------------
	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open task store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	// ---------------- Cache ----------------
	var cacheInstance sharedCache.Cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria", zap.Error(err))
		memCache := sharedCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		defer memCache.Stop()
		cacheInstance = memCache
	} else {
		cacheInstance = sharedCache.NewRedisCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ---------------- Analytics ----------------
	var analytics taskDomain.TaskAnalyticsRepository
	if cfg.ClickHouseAddr != "" {
		ch, err := taskAnalytics.NewTaskEventAnalytics(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, analítica deshabilitada", zap.Error(err))
		} else if err := ch.InitSchema(); err != nil {
			log.Warn("⚠️ No se pudo crear el esquema de ClickHouse", zap.Error(err))
			ch.Close()
		} else {
			defer ch.Close()
			analytics = ch
		}
	}

	// ---------------- Events ---------------
	var eventPublisher sharedBus.EventPublisher
	var consumerDone <-chan struct{}

	log.Info("Configurando bus de eventos", zap.String("bus", sharedUtils.Ternary(cfg.UseKafka, "kafka", "memory")))
	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		writer := &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.KafkaTopic,
			Balancer:     &kafka.Hash{}, // misma taskId, misma partición
			RequiredAcks: kafka.RequireOne,
		}
		defer writer.Close()
		eventPublisher = infraEvents.NewKafkaPublisher(writer, log)

		if analytics != nil {
			reader := kafka.NewReader(kafka.ReaderConfig{
				Brokers:  cfg.KafkaBrokers,
				Topic:    cfg.KafkaTopic,
				GroupID:  cfg.KafkaGroupID,
				MinBytes: 10e3, // 10KB
				MaxBytes: 10e6, // 10MB
			})
			defer reader.Close()

			adapter := infraEvents.NewConsumerAdapter(reader, taskEvents.NewTaskEventConsumer(analytics, log), log)
			adapter.Start(ctx)
			consumerDone = adapter.Done()
		}
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		bus := infraEvents.NewInMemoryEventBus(taskDomain.TaskTopic)
		eventPublisher = bus

		if analytics != nil {
			log.Info("🎧 Iniciando listener en memoria para eventos de tarea")
			consumerDone = taskEvents.BackgroundConsumerChan(ctx, bus.Subscribe(100), taskEvents.NewTaskEventConsumer(analytics, log))
		}
	}

	// --------------- Servicio --------------
	taskService := taskApp.NewTaskService(repo, eventPublisher, cacheInstance, log,
		taskApp.WithLocation(cfg.Location),
		taskApp.WithEventTimeout(cfg.EventTimeout),
	)

	// ---------------- HTTP ----------------
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))
	taskHttp.RegisterTaskRoutes(router, taskHttp.NewTaskHandler(taskService, log))
	taskHttp.RegisterHealthRoute(router)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// Vaciamos la cola de eventos antes de cerrar el bus.
	taskService.Close()
	if consumerDone != nil {
		select {
		case <-consumerDone:
		case <-shutdownCtx.Done():
			log.Warn("Event consumer did not stop in time")
		}
	}
}

// openStore abre el repositorio elegido por STORE_DRIVER y devuelve su función de cierre.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (taskDomain.TaskRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := taskPgRepo.InitPostgresTaskSchema(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("✅ Postgres conectado")
		return taskPgRepo.NewTaskRepoPostgres(db), func() { db.Close() }, nil

	case config.StoreMongoDB:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		repo, err := taskMongoRepo.NewTaskRepoMongoDB(ctx, client, cfg.MongoDB)
		if err != nil {
			client.Disconnect(context.Background())
			return nil, nil, err
		}
		log.Info("✅ MongoDB conectado")
		return repo, func() { client.Disconnect(context.Background()) }, nil

	case config.StoreFile:
		log.Info("✅ Usando fichero JSON como almacenamiento", zap.String("path", cfg.TasksFile))
		return taskFileRepo.NewJSONTaskStorage(cfg.TasksFile), func() {}, nil

	case config.StoreMemory:
		log.Warn("⚠️ Usando almacenamiento en memoria, los datos no persisten")
		return taskMemRepo.NewTaskRepoInMemory(), func() {}, nil

	default:
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		// SQLite serializa las escrituras; una conexión evita SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		if err := taskSQLiteRepo.InitSQLiteTaskSchema(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("✅ SQLite abierto", zap.String("path", cfg.SQLitePath))
		return taskSQLiteRepo.NewTaskRepoSQLite(db), func() { db.Close() }, nil
	}
}
