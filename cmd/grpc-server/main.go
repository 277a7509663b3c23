package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"searchlib/internal/auth"
	"searchlib/internal/catalog"
	"searchlib/internal/grpcserver"
	"searchlib/internal/ingest"
	"searchlib/pkg/database"
	"searchlib/pkg/utils"
)

func main() {
	utils.LoadEnv()
	logCfg := utils.LoadLogConfig()
	utils.SetupLogging(logCfg.Level, logCfg.Format)

	cfg := database.DefaultConfig()
	db := database.MustOpen(cfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepo(db)
	ingestor, err := ingest.FromConfig(utils.LoadIngestConfig(), catalogRepo, nil, slog.Default())
	if err != nil {
		slog.Error("ingest config", "err", err)
		os.Exit(1)
	}

	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}

	grpcCfg := utils.LoadGrpcConfig()
	listener, err := net.Listen("tcp", grpcCfg.Addr)
	if err != nil {
		slog.Error("grpc listen failed", "addr", grpcCfg.Addr, "err", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.RequireRoleFor(
		tokenSvc, auth.NewRepo(db), []string{"RunBatch"},
		auth.RoleAdministrator, auth.RoleModerator,
	)))
	grpcserver.Register(grpcServer, grpcserver.NewServer(catalogRepo, ingestor))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutting down gRPC server")
		grpcServer.GracefulStop()
	}()

	slog.Info("gRPC server listening", "addr", grpcCfg.Addr, "service", grpcserver.ServiceName)
	if err := grpcServer.Serve(listener); err != nil {
		slog.Error("grpc server stopped", "err", err)
		os.Exit(1)
	}
}
