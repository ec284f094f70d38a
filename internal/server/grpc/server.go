// Package grpc runs the service's gRPC endpoint: the standard health service
// backed by a database ping, server reflection, the corund.Identity/Current
// lookup, and interceptors that log calls and require an access token on
// every non-public method.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/corund/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported by the health service.
const ServiceName = "corund.Identity"

const defaultHealthInterval = 5 * time.Second

// TokenVerifier resolves an access token to its user id.
type TokenVerifier interface {
	VerifyAccessToken(token string) (int64, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type GRPCServer struct {
	address        string
	logger         logging.Logger
	verifier       TokenVerifier
	users          UserResolver
	pinger         Pinger
	health         *health.Server
	healthInterval time.Duration
}

func NewGRPCServer(a string, l logging.Logger, v TokenVerifier, u UserResolver, p Pinger) *GRPCServer {
	return &GRPCServer{
		address:        a,
		logger:         l.With("module", "grpc_server"),
		verifier:       v,
		users:          u,
		pinger:         p,
		health:         health.NewServer(),
		healthInterval: defaultHealthInterval,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	srv.RegisterService(&identityServiceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)

	s.checkHealth(ctx)
	go s.watchHealth(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkHealth(ctx)
		}
	}
}

func (s *GRPCServer) checkHealth(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := s.pinger.PingContext(pingCtx); err != nil {
			s.logger.Warn(ctx, "database ping failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
