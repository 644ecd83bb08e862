package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/solarpoll/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
)

// Server answers HTTP requests by asking the master actor. Requests never
// start a cycle, they only read what the actors already know.
type Server struct {
	port           uint
	httpLog        bool
	requestTimeout time.Duration
	rootContext    *actor.RootContext
	masterActor    *actor.PID
	logger         *zap.Logger
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, logger *zap.Logger) *http.Server {
	srv := &Server{
		port:           cfg.Port,
		httpLog:        cfg.HttpLog,
		requestTimeout: 5 * time.Second,
		rootContext:    rootContext,
		masterActor:    masterActor,
		logger:         logger.With(zap.String("component", "http")),
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", srv.port),
		Handler:           srv.RegisterRoutes(),
		ErrorLog:          zap.NewStdLog(srv.logger),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// a health check may wait for every actor to answer
		WriteTimeout: srv.requestTimeout + 10*time.Second,
	}
}
