package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"renomarket/internal/config"
	"renomarket/internal/handler"
	"renomarket/internal/httpserver"
	"renomarket/internal/repository"
	"renomarket/internal/service/matching"
	"renomarket/internal/service/milestone"
	"renomarket/internal/service/project"
	"renomarket/internal/service/proposal"
	"renomarket/internal/service/request"
	"renomarket/pkg/db"
	"renomarket/pkg/logger"
	"renomarket/pkg/mq"
	"renomarket/pkg/outbox"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting marketplace server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// MQ publisher + outbox dispatcher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)

	dispatchCtx, stopDispatcher := context.WithCancel(context.Background())
	go dispatcher.Start(dispatchCtx)

	// Repositories
	projectRepo := repository.NewProjectRepository(dbConn, outboxRepo, log)
	providerRepo := repository.NewProviderRepository(dbConn, log)
	invitationRepo := repository.NewInvitationRepository(dbConn, log)
	proposalRepo := repository.NewProposalRepository(dbConn, outboxRepo, log)
	milestoneRepo := repository.NewMilestoneRepository(dbConn, log)

	// Services
	matchingSvc := matching.NewService(providerRepo, invitationRepo, log)
	projectSvc := project.NewService(projectRepo, matchingSvc, log)
	proposalSvc := proposal.NewService(proposalRepo, projectRepo, log)
	milestoneSvc := milestone.NewService(milestoneRepo, projectRepo, log)
	requestSvc := request.NewService(invitationRepo, log)

	// HTTP
	handlers := httpserver.Handlers{
		Projects:   handler.NewProjectHandler(projectSvc, invitationRepo, log),
		Proposals:  handler.NewProposalHandler(proposalSvc, log),
		Milestones: handler.NewMilestoneHandler(milestoneSvc, log),
		Requests:   handler.NewRequestHandler(requestSvc, log),
	}
	router := httpserver.NewRouter(handlers, log, dbConn, publisher, cfg.JWT.Secret)

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

	log.Info("marketplace server is fully initialized and running",
		zap.String("http_port", cfg.Server.Port),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down marketplace server gracefully...")

	stopDispatcher()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	dbConn.Close()

	log.Info("marketplace server shutdown complete")
}
