package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Varun5711/tinyauth/internal/app"
	"github.com/Varun5711/tinyauth/internal/config"
	grpcsvc "github.com/Varun5711/tinyauth/internal/grpc"
	"github.com/Varun5711/tinyauth/internal/logger"
	"google.golang.org/grpc"
)

func main() {
	log := logger.New("user-service")
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: %v", err)
	}

	deps, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialise: %v", err)
	}
	defer deps.Close()

	lis, err := net.Listen("tcp", ":"+cfg.Services.UserServicePort)
	if err != nil {
		log.Fatal("Failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcsvc.LoggingInterceptor(log)))
	grpcsvc.Register(grpcServer, grpcsvc.NewAuthServer(deps.Service, log))

	log.Info("User service listening on port %s", cfg.Services.UserServicePort)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down user service...")
	grpcServer.GracefulStop()
	log.Info("User service stopped")
}
