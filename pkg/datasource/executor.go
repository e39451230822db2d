package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/logging"
	"github.com/sayandkrishna/querypilot/pkg/models"
)

// DefaultAcquireTimeout bounds the wait for a pooled connection when the
// configured value is missing.
const DefaultAcquireTimeout = 5 * time.Second

// Executor runs resolved statements against target databases under a row
// cap, a per-statement timeout and a bounded wait for a pooled connection.
type Executor struct {
	rowCap         int
	queryTimeout   time.Duration
	acquireTimeout time.Duration
	logger         *zap.Logger
}

// NewExecutor creates an executor with the given limits.
func NewExecutor(rowCap int, queryTimeout, acquireTimeout time.Duration, logger *zap.Logger) *Executor {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	return &Executor{
		rowCap:         rowCap,
		queryTimeout:   queryTimeout,
		acquireTimeout: acquireTimeout,
		logger:         logger.Named("executor"),
	}
}

// Execute runs one statement and collects its rows. Exceeding the row cap
// or the statement timeout fails the query with a distinct error kind; the
// resolved SQL itself has already been validated by the caller.
func (e *Executor) Execute(ctx context.Context, pool *pgxpool.Pool, sqlQuery string, args ...any) (*models.QueryResult, error) {
	conn, err := e.acquire(ctx, pool)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	start := time.Now()

	rows, err := conn.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, e.classify(err, sqlQuery)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	data := make([]map[string]any, 0)
	for rows.Next() {
		if len(data) >= e.rowCap {
			return nil, apperrors.Newf(apperrors.KindRowCapExceeded,
				"query returned more than the configured cap of %d rows; add a filter or limit", e.rowCap)
		}

		values, err := rows.Values()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindExecution, "failed to read row values", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		data = append(data, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, e.classify(err, sqlQuery)
	}

	elapsed := time.Since(start)
	e.logger.Debug("Query executed",
		zap.String("query", logging.SanitizeQuery(sqlQuery)),
		zap.Int("rows", len(data)),
		zap.Duration("duration", elapsed))

	return &models.QueryResult{
		SQLQuery:      sqlQuery,
		RowsReturned:  len(data),
		Data:          data,
		ExecutionTime: models.DurationMs(elapsed),
		Success:       true,
	}, nil
}

// acquire checks a connection out of the pool, waiting at most
// acquireTimeout. A saturated pool surfaces as resource exhaustion so
// callers can tell it apart from a slow statement.
func (e *Executor) acquire(ctx context.Context, pool *pgxpool.Pool) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, e.acquireTimeout)
	defer cancel()

	conn, err := pool.Acquire(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, apperrors.Newf(apperrors.KindResourceExhausted,
				"no database connection became available within %s", e.acquireTimeout)
		}
		return nil, apperrors.Wrap(apperrors.KindExecution, "failed to acquire database connection", err)
	}
	return conn, nil
}

func (e *Executor) classify(err error, sqlQuery string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Newf(apperrors.KindExecutionTimeout,
			"query exceeded the %s execution timeout", e.queryTimeout)
	}

	e.logger.Warn("Query failed",
		zap.String("query", logging.SanitizeQuery(sqlQuery)),
		zap.String("error", logging.SanitizeError(err)))

	return apperrors.Wrap(apperrors.KindExecution, "query execution failed", err)
}
