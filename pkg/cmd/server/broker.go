package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	nats "github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gestionclick24-cpu/captive/config"
	"github.com/gestionclick24-cpu/captive/pkg/api"
	"github.com/gestionclick24-cpu/captive/pkg/broker"
	"github.com/gestionclick24-cpu/captive/pkg/routeros"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
	"github.com/gestionclick24-cpu/captive/pkg/storage/memory"
	"github.com/gestionclick24-cpu/captive/pkg/storage/postgres"
)

type brokerServer struct {
	c *config.Config

	quitCh chan bool
	doneCh chan bool

	nc     *nats.Conn
	store  storage.Interface
	db     *sqlx.DB
	broker *broker.Broker
}

func init() {
	formatter := &logrus.TextFormatter{
		FullTimestamp: true,
	}
	logrus.SetFormatter(formatter)

	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	log.SetLevel(log.InfoLevel)
}

func newBrokerServer(c *config.Config) (*brokerServer, error) {
	s := &brokerServer{
		c:      c,
		quitCh: make(chan bool),
		doneCh: make(chan bool),
	}

	nc, err := nats.Connect(c.NATSServerURL,
		nats.DrainTimeout(10*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("nats error: ", err.Error())
		}))
	if err != nil {
		// The broker works without NATS, events are then only recorded
		// in the event store.
		log.Warnf("could not connect to NATS at %s, realtime events disabled: %s",
			c.NATSServerURL, err.Error())
	} else {
		s.nc = nc
	}

	s.store, s.db = openStore(c)

	s.broker = broker.New(broker.Options{
		Store:           s.store,
		Dialer:          routeros.NewAPIDialer(c.DeviceTimeout(), c.TLSInsecureSkipVerify),
		NATS:            s.nc,
		CommandTimeout:  c.DeviceTimeout(),
		OccupancyMaxAge: c.OccupancyMaxAge(),
		Profile:         c.HotspotProfile,
		Uptime:          c.AccessUptime,
	})

	return s, nil
}

// openStore connects the PostgreSQL storage and falls back to the
// memory store when the database is not reachable, so a development
// instance starts without infrastructure.
func openStore(c *config.Config) (storage.Interface, *sqlx.DB) {
	db, err := sqlx.Open("postgres", c.DatabaseURL)
	if err == nil {
		err = db.Ping()
	}
	if err != nil {
		log.Warnf("could not connect to database, using memory store: %s", err.Error())
		return memory.NewStore(), nil
	}

	log.Info("connected to PostgreSQL storage")
	return postgres.NewStore(db), db
}

func (s *brokerServer) Serve() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(logger())

	// Register API endpoints
	handler := api.NewHandler(s.nc, s.store, s.broker)
	handler.RegisterRoutes(e)

	go func() {
		log.WithFields(log.Fields{
			"host": s.c.BindHost,
			"port": s.c.BindPort,
		}).Info("Starting server")

		if err := e.Start(fmt.Sprintf("%s:%d", s.c.BindHost, s.c.BindPort)); err != nil {
			e.Logger.Info("Shutting down the server")
		}
	}()

	// Wait until receiving the quit signal
	<-s.quitCh
	log.Info("Shutdown signal received")

	// Create a 10 second timeout context
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the echo web server
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Error(err)
	}

	// We've done!
	s.doneCh <- true
}

// Logger returns a middleware that logs HTTP requests.
func logger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			var err error
			if err = next(c); err != nil {
				c.Error(err)
			}
			stop := time.Now()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = res.Header().Get(echo.HeaderXRequestID)
			}
			reqSizeStr := req.Header.Get(echo.HeaderContentLength)
			if reqSizeStr == "" {
				reqSizeStr = "0"
			}
			reqSize, err := strconv.ParseInt(reqSizeStr, 10, 0)
			if err != nil {
				reqSize = -1
			}
			errMsg := ""
			if err != nil {
				errMsg = err.Error()
			}

			log.WithFields(log.Fields{
				"timestamp":     stop.Format(time.RFC3339),
				"id":            id,
				"remote_ip":     c.RealIP(),
				"host":          req.Host,
				"method":        req.Method,
				"uri":           req.RequestURI,
				"protocol":      req.Proto,
				"user_agent":    req.UserAgent(),
				"status":        res.Status,
				"status_text":   http.StatusText(res.Status),
				"referer":       req.Referer(),
				"error":         errMsg,
				"bytes_in":      reqSize,
				"bytes_out":     res.Size,
				"latency":       stop.Sub(start).Nanoseconds(),
				"latency_human": stop.Sub(start).String(),
			}).Infof("%s %s %s %d %s", req.Method, req.RequestURI, req.Proto,
				res.Status, strconv.FormatInt(res.Size, 10))

			return err
		}
	}
}

func (s *brokerServer) Shutdown() {
	// Drain the pooled device connections first
	s.broker.Close()

	if s.nc != nil {
		s.nc.Drain()
	}

	if s.db != nil {
		s.db.Close()
	}

	// Send the quit signal to the server.Serve() routine
	s.quitCh <- true

	// Wait up to 10 seconds
	select {
	case <-s.doneCh:
		log.Info("Shutdown server successful")
	case <-time.After(10 * time.Second):
		log.Error("Shutdown server failed")
	}
}

func RunServeBroker(c *config.Config) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		s, err := newBrokerServer(c)
		if err != nil {
			log.Error("failed to create new server instance: ", err)
			os.Exit(1)
		}

		go s.Serve()

		// Wait for interrupt signal to gracefully shutdown the server
		quitCh := make(chan os.Signal, 1)
		signal.Notify(quitCh, os.Interrupt)
		<-quitCh

		// Shutdown the server
		s.Shutdown()
	}
}
