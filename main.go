package main

import (
	"database/sql"
	_ "expvar"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/go-logr/logr"
	zipkinsql "github.com/jcchavezs/zipkin-instrumentation-sql"
	_ "github.com/lib/pq"
	"github.com/openzipkin/zipkin-go"
	zipkinhttp "github.com/openzipkin/zipkin-go/middleware/http"
	"github.com/openzipkin/zipkin-go/reporter"
	zipkinreporter "github.com/openzipkin/zipkin-go/reporter/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rieske/account-aggregator-go/account"
	"github.com/rieske/account-aggregator-go/config"
	"github.com/rieske/account-aggregator-go/eventsourcing"
	"github.com/rieske/account-aggregator-go/eventstore"
	"github.com/rieske/account-aggregator-go/eventstore/postgres"
	"github.com/rieske/account-aggregator-go/logger"
	"github.com/rieske/account-aggregator-go/rest"
	"github.com/rieske/account-aggregator-go/serialization"
)

var (
	inUseConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_conn_in_use",
		Help: "Number of in-use database connections",
	})
	idleConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_conn_idle",
		Help: "Number of idle database connections",
	})
	openConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_conn_open",
		Help: "Number of open database connections",
	})
	maxOpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "db_conn_max",
		Help: "Number of max open database connections",
	})
)

type serializer interface {
	SerializeEvent(e account.Event) (eventstore.SerializedEvent, error)
	DeserializeEvent(se eventstore.SerializedEvent) (account.Event, error)
}

func noTracingHttpHandler(h http.Handler) http.Handler {
	return h
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error(err, "invalid configuration")
		os.Exit(1)
	}
	log := logger.New(
		logger.WithVerbosity(cfg.LogVerbosity),
		logger.WithService(cfg.ServiceName),
		logger.WithCaller(cfg.LogCaller),
	)
	logger.SetDefault(log)

	var tracer *zipkin.Tracer
	tracingHandler := noTracingHttpHandler
	if cfg.ZipkinURL != "" {
		rep := zipkinreporter.NewReporter(cfg.ZipkinURL)
		defer closeResource(log, rep)
		tracer = buildTracer(log, cfg.ServiceName, rep)
		tracingHandler = zipkinhttp.NewServerMiddleware(tracer, zipkinhttp.TagResponseSize(true))
	}

	var eventStore eventsourcing.EventStore
	if cfg.Postgres.Enabled() {
		db := openDatabase(log, cfg.Postgres, tracer)
		defer closeResource(log, db)

		sqlStore, err := postgres.NewEventStore(db)
		if err != nil {
			fatal(log, err, "could not prepare postgres event store")
		}
		defer closeResource(log, sqlStore)

		log.Info("using postgres event store", "serializer", cfg.Serializer)
		eventStore = eventstore.NewSerializingEventStore(sqlStore, payloadSerializer(cfg.Serializer))
	} else {
		log.Info("using in-memory event store")
		eventStore = eventstore.NewInMemoryStore()
	}

	shutdown := make(chan bool)
	metrics := http.NewServeMux()
	metrics.Handle("/prometheus", promhttp.Handler())
	go func() {
		log.Info("starting metrics server", "port", cfg.MetricsPort)
		log.Error(http.ListenAndServe(":"+cfg.MetricsPort, metrics), "metrics server stopped")
		shutdown <- true
	}()

	s := &http.Server{
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		IdleTimeout:  20 * time.Second,
		Addr:         ":" + cfg.HTTPPort,
		Handler:      tracingHandler(rest.NewRestServer(eventStore, log)),
	}
	go func() {
		log.Info("starting http server", "port", cfg.HTTPPort)
		log.Error(s.ListenAndServe(), "http server stopped")
		shutdown <- true
	}()

	if cfg.ProfilingAddr != "" {
		go func() {
			// pprof and expvar register on the default mux
			log.Error(http.ListenAndServe(cfg.ProfilingAddr, nil), "profiling server stopped")
		}()
	}

	<-shutdown
}

func payloadSerializer(name string) serializer {
	if name == "json" {
		return serialization.NewJsonEventSerializer()
	}
	return serialization.NewMsgpackEventSerializer()
}

func openDatabase(log logr.Logger, cfg config.Postgres, tracer *zipkin.Tracer) *sql.DB {
	driverName := "postgres"
	if tracer != nil {
		var err error
		driverName, err = zipkinsql.Register(driverName, tracer, zipkinsql.WithAllTraceOptions(), zipkinsql.WithAllowRootSpan(false))
		if err != nil {
			fatal(log, err, "unable to register zipkin driver")
		}
	}

	db, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		fatal(log, err, "could not open database")
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	waitForDBConnection(log, db)
	if err := postgres.MigrateSchema(db); err != nil {
		fatal(log, err, "could not migrate schema")
	}

	dbMetrics(db)
	return db
}

func buildTracer(log logr.Logger, serviceName string, reporter reporter.Reporter) *zipkin.Tracer {
	endpoint, err := zipkin.NewEndpoint(serviceName, ":0")
	if err != nil {
		fatal(log, err, "unable to create local endpoint")
	}

	tracer, err := zipkin.NewTracer(reporter, zipkin.WithLocalEndpoint(endpoint))
	if err != nil {
		fatal(log, err, "unable to create tracer")
	}
	return tracer
}

func dbMetrics(db *sql.DB) {
	go func() {
		for {
			s := db.Stats()
			inUseConnections.Set(float64(s.InUse))
			idleConnections.Set(float64(s.Idle))
			openConnections.Set(float64(s.OpenConnections))
			maxOpenConnections.Set(float64(s.MaxOpenConnections))
			time.Sleep(1 * time.Second)
		}
	}()
}

func waitForDBConnection(log logr.Logger, db *sql.DB) {
	var err error
	for i := 0; i < 30; i++ {
		err = db.Ping()
		if err == nil {
			return
		}
		log.V(1).Info("waiting for database", "attempt", i+1, "error", err.Error())
		time.Sleep(time.Second * 1)
	}
	fatal(log, err, "database unreachable")
}

func fatal(log logr.Logger, err error, msg string) {
	log.Error(err, msg)
	os.Exit(1)
}

func closeResource(log logr.Logger, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Error(err, "could not close resource")
	}
}
