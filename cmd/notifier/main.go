package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	mqcontracts "renomarket/contracts/mq"
	"renomarket/internal/config"
	"renomarket/internal/handler"
	"renomarket/internal/httpserver"
	"renomarket/internal/mqhandler"
	"renomarket/internal/repository"
	"renomarket/internal/service/notification"
	"renomarket/pkg/db"
	"renomarket/pkg/logger"
	"renomarket/pkg/mq"
	pkgredis "renomarket/pkg/redis"
	"renomarket/pkg/util"
)

const (
	projectPublishedQueue = "notifier.project.published.q"
	proposalAcceptedQueue = "notifier.proposal.accepted.q"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting notifier...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	rdb := pkgredis.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	deduper := util.NewDeduper(rdb, 10*time.Minute)

	notificationRepo := repository.NewNotificationRepository(dbConn, log)
	notificationSvc := notification.NewService(notificationRepo, log)

	publishedHandler := mqhandler.NewProjectPublishedHandler(notificationSvc, deduper, projectPublishedQueue, log)
	acceptedHandler := mqhandler.NewProposalAcceptedHandler(notificationSvc, deduper, proposalAcceptedQueue, log)

	publishedConsumer, err := mq.NewConsumer(cfg.MQ.URL, projectPublishedQueue, mqcontracts.RoutingKeyProjectPublished, log)
	if err != nil {
		log.Fatal("Failed to init project.published consumer", zap.Error(err))
	}
	defer publishedConsumer.Close()
	publishedConsumer.SetHandler(publishedHandler.Handle)

	go func() {
		if err := publishedConsumer.StartConsuming(); err != nil {
			log.Fatal("project.published consumer failed", zap.Error(err))
		}
	}()

	acceptedConsumer, err := mq.NewConsumer(cfg.MQ.URL, proposalAcceptedQueue, mqcontracts.RoutingKeyProposalAccepted, log)
	if err != nil {
		log.Fatal("Failed to init proposal.accepted consumer", zap.Error(err))
	}
	defer acceptedConsumer.Close()
	acceptedConsumer.SetHandler(acceptedHandler.Handle)

	go func() {
		if err := acceptedConsumer.StartConsuming(); err != nil {
			log.Fatal("proposal.accepted consumer failed", zap.Error(err))
		}
	}()

	notificationHandler := handler.NewNotificationHandler(notificationSvc, log)
	router := httpserver.NewNotifierRouter(
		notificationHandler,
		dbConn,
		[]*mq.Consumer{publishedConsumer, acceptedConsumer},
		cfg.JWT.Secret,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("notifier is fully initialized and running",
		zap.String("queue_published", projectPublishedQueue),
		zap.String("queue_accepted", proposalAcceptedQueue),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notifier gracefully...")

	publishedConsumer.Stop()
	acceptedConsumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	dbConn.Close()

	log.Info("notifier shutdown complete")
}
