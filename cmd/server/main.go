package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/pharmastock/internal/adapter/channel"
	"github.com/rl1809/pharmastock/internal/adapter/handler"
	"github.com/rl1809/pharmastock/internal/adapter/memory"
	"github.com/rl1809/pharmastock/internal/adapter/storage"
	"github.com/rl1809/pharmastock/internal/config"
	"github.com/rl1809/pharmastock/internal/core/service"
	"github.com/rl1809/pharmastock/internal/logger"
	"github.com/rl1809/pharmastock/internal/metrics"
	"github.com/rl1809/pharmastock/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

// sinks holds the optional side outputs and how to release them.
type sinks struct {
	list    []port.StockSink
	closers []func() error
}

func (s *sinks) close(log *zap.Logger) {
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Warn("close sink", zap.Error(err))
		}
	}
}

func openSinks(ctx context.Context, cfg *config.Config, log *zap.Logger) (*sinks, error) {
	s := &sinks{}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			s.close(log)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.list = append(s.list, storage.NewRedisAdapter(rdb))
		s.closers = append(s.closers, rdb.Close)
		log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.MySQL.DSN != "" {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			s.close(log)
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			s.close(log)
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		journal := storage.NewMySQLAdapter(db)
		if err := journal.EnsureSchema(ctx); err != nil {
			db.Close()
			s.close(log)
			return nil, err
		}
		s.list = append(s.list, journal)
		s.closers = append(s.closers, db.Close)
		log.Info("connected to mysql")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := storage.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BatchTimeout)
		s.list = append(s.list, publisher)
		s.closers = append(s.closers, publisher.Close)
		log.Info("publishing stock events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}

	return s, nil
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)
	store := memory.NewStore()

	out, err := openSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer out.close(log)

	ledger := service.NewStockLedger(store, cfg.Workers.MovementQueue, log, m)
	users := service.NewUserService(store, log)
	matcher := service.NewNotificationMatcher(store)
	hub := channel.NewHub(log, m)

	dispatcher := service.NewNotificationDispatcher(matcher, store, hub, service.DispatcherConfig{
		Workers:     cfg.Workers.DispatchWorkers,
		QueueSize:   cfg.Workers.DispatchQueue,
		PushTimeout: cfg.Workers.PushTimeout,
	}, log, m)
	dispatcher.Start(ctx)

	processor := service.NewMovementProcessor(out.list, dispatcher, cfg.Workers.SinkTimeout, log, m)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers.MovementWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			processor.Run(id, ledger.GetMovementQueue())
		}(i)
	}
	log.Info("started movement workers",
		zap.Int("workers", cfg.Workers.MovementWorkers),
		zap.Int("sinks", len(out.list)))

	grpcServer := grpc.NewServer()
	handler.RegisterStockServiceServer(grpcServer, handler.NewGRPCHandler(ledger, matcher, log))

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.Server.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	handler.NewHTTPHandler(ledger, users, matcher, log).Register(r)
	r.Handle("/ws/notifications", handler.NewWSHandler(users, matcher, dispatcher, hub, cfg.Server.WriteTimeout, log, m))
	r.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:        cfg.Server.HTTPAddr,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	// hijacked websocket connections are not tracked by Shutdown
	hub.CloseAll()

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	ledger.Close()
	wg.Wait()
	log.Info("movement workers stopped")

	dispatcher.Stop()
	log.Info("dispatcher stopped")
	return nil
}
