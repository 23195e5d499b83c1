package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
	"go.uber.org/zap"
)

// Table names of the raw message tables
var postgresTables = map[model.Collection]string{
	model.CollectionPayments:  "payment_msgs_raw",
	model.CollectionAuthLogs:  "auth_log_msgs_raw",
	model.CollectionDisputes:  "dispute_msgs_raw",
	model.CollectionKYCEvents: "kyc_msgs_raw",
}

// PostgresSinkConfig holds PostgreSQL sink configuration
type PostgresSinkConfig struct {
	ConnectionString string
	CreateTables     bool
}

// PostgresSink inserts batches into one table per collection. Rows whose
// primary key already exists are reported as duplicates.
type PostgresSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSink connects to PostgreSQL and optionally creates the tables
func NewPostgresSink(ctx context.Context, cfg PostgresSinkConfig, logger *zap.Logger) (*PostgresSink, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	s := &PostgresSink{db: db, logger: logger}

	if cfg.CreateTables {
		if err := s.createTables(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) createTables(ctx context.Context) error {
	for _, c := range model.Collections {
		if _, err := p.db.ExecContext(ctx, CreateTableSQL(c)); err != nil {
			return fmt.Errorf("failed to create table for %s: %w", c, err)
		}
		p.logger.Info("PostgreSQL table ready", zap.String("table", postgresTables[c]))
	}
	return nil
}

// emptyRecord returns the zero record of a collection, used to learn column types
func emptyRecord(c model.Collection) model.Record {
	switch c {
	case model.CollectionPayments:
		return model.Transaction{}
	case model.CollectionAuthLogs:
		return model.AuthEvent{}
	case model.CollectionDisputes:
		return model.Dispute{}
	case model.CollectionKYCEvents:
		return model.KYCEvent{}
	default:
		return nil
	}
}

func isTimestampColumn(col string) bool {
	return strings.HasSuffix(col, "timestamp")
}

func columnType(c model.Collection, col string, sample interface{}) string {
	switch {
	case col == model.PrimaryKey(c):
		return "BIGINT PRIMARY KEY"
	case col == "amount":
		return "NUMERIC(14,2)"
	case isTimestampColumn(col):
		return "TIMESTAMPTZ"
	}
	if _, ok := sample.(int64); ok {
		return "BIGINT"
	}
	return "TEXT"
}

// CreateTableSQL returns the DDL of a collection's table
func CreateTableSQL(c model.Collection) string {
	fields := emptyRecord(c).Fields()
	cols := model.Columns(c)

	defs := make([]string, len(cols))
	for i, col := range cols {
		defs[i] = fmt.Sprintf("%s %s", pq.QuoteIdentifier(col), columnType(c, col, fields[col]))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		pq.QuoteIdentifier(postgresTables[c]), strings.Join(defs, ",\n\t"))
}

// InsertSQL returns the parameterized insert of a collection's table
func InsertSQL(c model.Collection) string {
	cols := model.Columns(c)
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = pq.QuoteIdentifier(col)
		params[i] = fmt.Sprintf("$%d", i+1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		pq.QuoteIdentifier(postgresTables[c]),
		strings.Join(quoted, ", "),
		strings.Join(params, ", "),
		pq.QuoteIdentifier(model.PrimaryKey(c)))
}

// insertArgs returns the statement arguments of rec; empty timestamps become NULL
func insertArgs(rec model.Record) []interface{} {
	fields := rec.Fields()
	cols := model.Columns(rec.Collection())
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		v := fields[col]
		if s, ok := v.(string); ok && s == "" && isTimestampColumn(col) {
			v = nil
		}
		args[i] = v
	}
	return args
}

// BatchInsert inserts the batch in a single transaction
func (p *PostgresSink) BatchInsert(ctx context.Context, collection model.Collection, records []model.Record) (*model.BatchResult, error) {
	if _, ok := postgresTables[collection]; !ok {
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, InsertSQL(collection))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	result := &model.BatchResult{}
	for i, rec := range records {
		if rec.Collection() != collection {
			result.AddFailure(i, rec, fmt.Errorf("record belongs to %s", rec.Collection()))
			continue
		}

		res, err := stmt.ExecContext(ctx, insertArgs(rec)...)
		if err != nil {
			// The transaction is aborted; nothing in the batch was stored
			return nil, fmt.Errorf("failed to insert %s %d: %w", collection, rec.RecordID(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			result.AddFailure(i, rec, fmt.Errorf("duplicate %s", model.PrimaryKey(collection)))
			continue
		}
		result.InsertedCount++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// Close closes the database connection
func (p *PostgresSink) Close() error {
	p.logger.Info("Closing PostgreSQL sink")
	return p.db.Close()
}
