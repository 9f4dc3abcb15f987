package grpcapp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the health service name reported for the record API.
const ServiceName = "vodex.Records"

// Prober reports whether the backing store answers.
type Prober interface {
	Healthy(ctx context.Context) bool
}

type App struct {
	log        *slog.Logger
	grpcServer *grpc.Server
	health     *health.Server
	probe      Prober
	interval   time.Duration
	port       int
	done       chan struct{}
	stopOnce   sync.Once
}

func New(log *slog.Logger, probe Prober, port int, interval time.Duration) *App {
	loggingOpts := []logging.Option{
		logging.WithLogOnEvents(logging.FinishCall),
	}

	recoveryOpts := []recovery.Option{
		recovery.WithRecoveryHandler(func(p interface{}) (err error) {
			log.Error("Recovered from panic", slog.Any("panic", p))

			return status.Errorf(codes.Internal, "internal error")
		}),
	}

	gRPCServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		recovery.UnaryServerInterceptor(recoveryOpts...),
		logging.UnaryServerInterceptor(InterceptorLogger(log), loggingOpts...),
	))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gRPCServer, hs)
	reflection.Register(gRPCServer)

	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &App{
		log:        log,
		grpcServer: gRPCServer,
		health:     hs,
		probe:      probe,
		interval:   interval,
		port:       port,
		done:       make(chan struct{}),
	}
}

// MustRun runs gRPC server and panics if any error occurs.
func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

// Run starts the probe loop and serves until Stop.
func (a *App) Run() error {
	const op = "grpcapp.Run"

	l, err := net.Listen("tcp", fmt.Sprintf(":%d", a.port))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return a.Serve(l)
}

// Serve is Run on an existing listener.
func (a *App) Serve(l net.Listener) error {
	const op = "grpcapp.Serve"

	a.Refresh(context.Background())
	go a.watch()

	a.log.Info("grpc server started", slog.String("addr", l.Addr().String()))

	if err := a.grpcServer.Serve(l); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Refresh probes the store once and publishes the result.
func (a *App) Refresh(ctx context.Context) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if a.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if a.probe.Healthy(pctx) {
			st = healthpb.HealthCheckResponse_SERVING
		}
		cancel()
	}
	a.health.SetServingStatus("", st)
	a.health.SetServingStatus(ServiceName, st)
}

func (a *App) watch() {
	t := time.NewTicker(a.interval)
	defer t.Stop()
	for {
		select {
		case <-a.done:
			return
		case <-t.C:
			a.Refresh(context.Background())
		}
	}
}

func InterceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

func (a *App) Stop() {
	const op = "grpcapp.Stop"

	a.log.With(slog.String("op", op)).
		Info("stopping gRPC server", slog.Int("port", a.port))

	a.stopOnce.Do(func() { close(a.done) })
	a.health.Shutdown()
	a.grpcServer.GracefulStop()
}
