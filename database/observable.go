package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hatlonely/rdbx/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObservableOptions struct {
	// Name 组件名称，作为指标名前缀、日志 component 字段以及 tracer 名称
	Name string `cfg:"name" def:"rdbx"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// SlowThreshold 超过该耗时的语句以 warn 级别记录，0 表示不区分
	SlowThreshold time.Duration `cfg:"slowThreshold" def:"200ms"`
}

// ObservableMetrics 封装 prometheus 指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
}

// NewObservableMetrics 创建并注册指标，同名指标已注册时复用已有的收集器
func NewObservableMetrics(name string, registerer prometheus.Registerer) (*ObservableMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	operationCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name + "_operations_total",
			Help: "Total number of sql operations",
		},
		[]string{"operation", "status"},
	)
	operationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name + "_operation_duration_seconds",
			Help:    "Duration of sql operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)
	activeOperations := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name + "_active_operations",
			Help: "Number of active sql operations",
		},
		[]string{"operation"},
	)

	var err error
	metrics := &ObservableMetrics{}
	if metrics.operationCounter, err = register(registerer, operationCounter); err != nil {
		return nil, err
	}
	if metrics.operationDuration, err = register(registerer, operationDuration); err != nil {
		return nil, err
	}
	if metrics.activeOperations, err = register(registerer, activeOperations); err != nil {
		return nil, err
	}

	return metrics, nil
}

func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metrics failed")
	}
	return c, nil
}

type ObservableOption func(*ObservableConn)

func WithLogger(logger log.Logger) ObservableOption {
	return func(obs *ObservableConn) {
		obs.logger = logger
	}
}

func WithRegisterer(registerer prometheus.Registerer) ObservableOption {
	return func(obs *ObservableConn) {
		obs.registerer = registerer
	}
}

// ObservableConn 装饰器，为 Conn 添加指标、日志和追踪
type ObservableConn struct {
	conn Conn

	logger        log.Logger
	registerer    prometheus.Registerer
	metrics       *ObservableMetrics
	tracer        trace.Tracer
	name          string
	slowThreshold time.Duration
	enableMetrics bool
	enableLogging bool
	enableTracing bool
}

func NewObservableConnWithOptions(conn Conn, options *ObservableOptions, opts ...ObservableOption) (*ObservableConn, error) {
	if conn == nil {
		return nil, errors.New("conn is nil")
	}
	if options == nil {
		return nil, errors.New("options is nil")
	}

	name := options.Name
	if name == "" {
		name = "rdbx"
	}

	obs := &ObservableConn{
		conn:          conn,
		name:          name,
		slowThreshold: options.SlowThreshold,
		enableMetrics: options.EnableMetrics,
		enableLogging: options.EnableLogging,
		enableTracing: options.EnableTracing,
	}
	for _, opt := range opts {
		opt(obs)
	}

	if obs.enableLogging {
		if obs.logger == nil {
			obs.logger = log.Default()
		}
		obs.logger = obs.logger.WithGroup("observableConn")
	}

	if obs.enableMetrics {
		metrics, err := NewObservableMetrics(name, obs.registerer)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create metrics")
		}
		obs.metrics = metrics
	}

	if obs.enableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("rdbx.%s", name))
	}

	return obs, nil
}

// observeOperation 统一的操作观测逻辑
func (obs *ObservableConn) observeOperation(ctx context.Context, operation string, query string, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.enableTracing && obs.tracer != nil {
		attrs := []attribute.KeyValue{
			attribute.String("component", obs.name),
			attribute.String("operation", operation),
			attribute.String("db.system", obs.conn.Driver()),
		}
		if query != "" {
			attrs = append(attrs, attribute.String("db.statement", query))
		}
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("sql.%s", operation), trace.WithAttributes(attrs...))
		defer span.End()
	}

	if obs.enableMetrics && obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.enableMetrics && obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.enableLogging && obs.logger != nil {
		args := []any{
			"component", obs.name,
			"operation", operation,
			"duration_ms", duration.Milliseconds(),
		}
		if query != "" {
			args = append(args, "sql", query)
		}
		switch {
		case err != nil:
			obs.logger.ErrorContext(ctx, "sql operation failed", append(args, "error", err.Error())...)
		case obs.slowThreshold > 0 && duration >= obs.slowThreshold:
			obs.logger.WarnContext(ctx, "slow sql operation", args...)
		default:
			obs.logger.DebugContext(ctx, "sql operation completed", args...)
		}
	}

	return err
}

func (obs *ObservableConn) Query(ctx context.Context, query string) (*sql.Rows, error) {
	var rows *sql.Rows
	err := obs.observeOperation(ctx, "query", query, func(ctx context.Context) error {
		var queryErr error
		rows, queryErr = obs.conn.Query(ctx, query)
		return queryErr
	})
	return rows, err
}

func (obs *ObservableConn) Exec(ctx context.Context, query string) (Result, error) {
	var result Result
	err := obs.observeOperation(ctx, "exec", query, func(ctx context.Context) error {
		var execErr error
		result, execErr = obs.conn.Exec(ctx, query)
		return execErr
	})
	return result, err
}

func (obs *ObservableConn) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return obs.observeOperation(ctx, "tx", "", func(ctx context.Context) error {
		return obs.conn.WithTx(ctx, fn)
	})
}

func (obs *ObservableConn) Driver() string {
	return obs.conn.Driver()
}

func (obs *ObservableConn) Close() error {
	return obs.conn.Close()
}
