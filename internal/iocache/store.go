package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
	_ "modernc.org/sqlite" // SQLite driver
)

// Table names of the analysis store.
const (
	componentsTable     = "ce_components"
	analysesTable       = "ce_analyses"
	measuresTable       = "ce_measures"
	eventsTable         = "ce_events"
	fileSourcesTable    = "ce_file_sources"
	testsTable          = "ce_tests"
	scannerContextTable = "ce_scanner_context"
)

// storeTables lists every table, in drop order.
var storeTables = []string{
	scannerContextTable, testsTable, fileSourcesTable, eventsTable, measuresTable, analysesTable, componentsTable,
}

// SQLStore implements contract.AnalysisStore on database/sql.
type SQLStore struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.AnalysisStore = &SQLStore{} // Compile-time check

// NewAnalysisStore opens the store of the given backend and brings its schema up to date.
// The none backend returns a store that keeps nothing.
func NewAnalysisStore(backend schema.DatabaseBackend, connStr string) (contract.AnalysisStore, error) {
	if backend == schema.NoneBackend {
		return NoopStore{}, nil
	}
	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connectionHint(backend))
	}

	// sqlite migrates on the same handle so that in-memory databases see the schema
	if backend == schema.SQLiteBackend {
		_, err = migrateDB(db, backend, -1)
	} else {
		_, err = MigrateStore(backend, connStr, -1)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate analysis store: %w", err)
	}
	return &SQLStore{db: db, backend: backend}, nil
}

func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = contract.GetStoreDBFilePath()
		}
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
		return db, nil
	case schema.MySQLBackend:
		db, err := sql.Open("mysql", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}
		return db, nil
	case schema.PostgreSQLBackend:
		db, err := sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=... dbname=...", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

func connectionHint(backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
	case schema.PostgreSQLBackend:
		return "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
	default:
		return "Verify the database file is accessible."
	}
}

// rebind rewrites ? placeholders for the backend.
func (s *SQLStore) rebind(query string) string {
	if s.backend != schema.PostgreSQLBackend {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// upsertSuffix returns the conflict clause updating cols when key already exists.
func (s *SQLStore) upsertSuffix(key string, cols ...string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		if s.backend == schema.MySQLBackend {
			sets[i] = fmt.Sprintf("%s = new.%s", c, c)
		} else {
			sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
		}
	}
	if s.backend == schema.MySQLBackend {
		return " AS new ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// --- Components ---

const componentColumns = "uuid, component_key, name, description, path, qualifier, project_uuid, language, enabled"

func scanComponent(scan func(dest ...any) error) (schema.ComponentRecord, error) {
	var c schema.ComponentRecord
	err := scan(&c.UUID, &c.Key, &c.Name, &c.Description, &c.Path, &c.Qualifier, &c.ProjectUUID, &c.Language, &c.Enabled)
	return c, err
}

// SelectComponentsByProjectKey implements contract.AnalysisStore.
func (s *SQLStore) SelectComponentsByProjectKey(ctx context.Context, projectKey string) ([]schema.ComponentRecord, error) {
	query := s.rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE project_uuid IN (
		SELECT uuid FROM %s WHERE component_key = ? AND uuid = project_uuid) ORDER BY component_key`,
		componentColumns, componentsTable, componentsTable))
	rows, err := s.db.QueryContext(ctx, query, projectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var results []schema.ComponentRecord
	for rows.Next() {
		c, err := scanComponent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// SelectComponentByKey implements contract.AnalysisStore. Enabled rows win over disabled ones.
func (s *SQLStore) SelectComponentByKey(ctx context.Context, key string) (*schema.ComponentRecord, error) {
	query := s.rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE component_key = ? ORDER BY enabled DESC LIMIT 1`,
		componentColumns, componentsTable))
	c, err := scanComponent(s.db.QueryRowContext(ctx, query, key).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query component %s: %w", key, err)
	}
	return &c, nil
}

// UpsertComponents implements contract.AnalysisStore.
func (s *SQLStore) UpsertComponents(ctx context.Context, components []schema.ComponentRecord) error {
	query := s.rebind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, componentsTable, componentColumns) +
		s.upsertSuffix("uuid", "component_key", "name", "description", "path", "qualifier", "project_uuid", "language", "enabled"))
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare component upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, c := range components {
			if _, err := stmt.ExecContext(ctx, c.UUID, c.Key, c.Name, c.Description, c.Path, c.Qualifier, c.ProjectUUID, c.Language, c.Enabled); err != nil {
				return fmt.Errorf("failed to upsert component %s: %w", c.Key, err)
			}
		}
		return nil
	})
}

// DisableComponents implements contract.AnalysisStore.
func (s *SQLStore) DisableComponents(ctx context.Context, uuids []string) error {
	query := s.rebind(fmt.Sprintf(`UPDATE %s SET enabled = ? WHERE uuid = ?`, componentsTable))
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range uuids {
			if _, err := tx.ExecContext(ctx, query, false, id); err != nil {
				return fmt.Errorf("failed to disable component %s: %w", id, err)
			}
		}
		return nil
	})
}

// --- Analyses ---

const analysisColumns = "uuid, component_uuid, status, islast, version, created_at, period_mode, period_param, period_date"

func scanAnalysis(scan func(dest ...any) error) (schema.AnalysisRecord, error) {
	var (
		a          schema.AnalysisRecord
		status     string
		periodDate sql.NullInt64
	)
	err := scan(&a.UUID, &a.ComponentUUID, &status, &a.IsLast, &a.Version, &a.CreatedAt, &a.PeriodMode, &a.PeriodParam, &periodDate)
	a.Status = schema.SnapshotStatus(status)
	if periodDate.Valid {
		a.PeriodDate = &periodDate.Int64
	}
	return a, err
}

// SelectAnalyses implements contract.AnalysisStore. An empty component selects every project.
func (s *SQLStore) SelectAnalyses(ctx context.Context, q schema.AnalysisQuery) ([]schema.AnalysisRecord, error) {
	var (
		where []string
		args  []any
	)
	if q.ComponentUUID != "" {
		where, args = append(where, "component_uuid = ?"), append(args, q.ComponentUUID)
	}
	if q.Status != "" {
		where, args = append(where, "status = ?"), append(args, string(q.Status))
	}
	if q.CreatedAfter != nil {
		where, args = append(where, "created_at >= ?"), append(args, *q.CreatedAfter)
	}
	if q.CreatedBefore != nil {
		where, args = append(where, "created_at < ?"), append(args, *q.CreatedBefore)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, analysisColumns, analysesTable)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, uuid"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var results []schema.AnalysisRecord
	for rows.Next() {
		a, err := scanAnalysis(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// SelectLastAnalysis implements contract.AnalysisStore.
func (s *SQLStore) SelectLastAnalysis(ctx context.Context, componentUUID string) (*schema.AnalysisRecord, error) {
	query := s.rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE component_uuid = ? AND islast = ?`, analysisColumns, analysesTable))
	a, err := scanAnalysis(s.db.QueryRowContext(ctx, query, componentUUID, true).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last analysis: %w", err)
	}
	return &a, nil
}

// InsertAnalysis implements contract.AnalysisStore.
func (s *SQLStore) InsertAnalysis(ctx context.Context, a schema.AnalysisRecord) error {
	query := s.rebind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, analysesTable, analysisColumns))
	var periodDate sql.NullInt64
	if a.PeriodDate != nil {
		periodDate = sql.NullInt64{Int64: *a.PeriodDate, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query, a.UUID, a.ComponentUUID, string(a.Status), a.IsLast, a.Version, a.CreatedAt,
		a.PeriodMode, a.PeriodParam, periodDate)
	if err != nil {
		return fmt.Errorf("failed to insert analysis %s: %w", a.UUID, err)
	}
	return nil
}

// MarkAnalysisProcessed implements contract.AnalysisStore.
func (s *SQLStore) MarkAnalysisProcessed(ctx context.Context, componentUUID, analysisUUID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		unset := s.rebind(fmt.Sprintf(`UPDATE %s SET islast = ? WHERE component_uuid = ? AND uuid <> ?`, analysesTable))
		if _, err := tx.ExecContext(ctx, unset, false, componentUUID, analysisUUID); err != nil {
			return fmt.Errorf("failed to clear last analysis: %w", err)
		}
		mark := s.rebind(fmt.Sprintf(`UPDATE %s SET status = ?, islast = ? WHERE uuid = ?`, analysesTable))
		res, err := tx.ExecContext(ctx, mark, string(schema.ProcessedStatus), true, analysisUUID)
		if err != nil {
			return fmt.Errorf("failed to mark analysis %s: %w", analysisUUID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("analysis %s does not exist", analysisUUID)
		}
		return nil
	})
}

// --- Measures ---

const measureColumns = `analysis_uuid, component_uuid, metric_key, value, text_value, measure_data,
	variation_value_1, variation_value_2, variation_value_3, variation_value_4, variation_value_5, alert_status, alert_text`

func scanMeasure(scan func(dest ...any) error) (schema.MeasureRecord, error) {
	var m schema.MeasureRecord
	err := scan(&m.AnalysisUUID, &m.ComponentUUID, &m.MetricKey, &m.Value, &m.TextValue, &m.Data,
		&m.Variation1, &m.Variation2, &m.Variation3, &m.Variation4, &m.Variation5, &m.AlertStatus, &m.AlertText)
	return m, err
}

// InsertMeasures implements contract.AnalysisStore.
func (s *SQLStore) InsertMeasures(ctx context.Context, measures []schema.MeasureRecord) error {
	if len(measures) == 0 {
		return nil
	}
	query := s.rebind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, measuresTable, measureColumns))
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare measure insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, m := range measures {
			if _, err := stmt.ExecContext(ctx, m.AnalysisUUID, m.ComponentUUID, m.MetricKey, m.Value, m.TextValue, m.Data,
				m.Variation1, m.Variation2, m.Variation3, m.Variation4, m.Variation5, m.AlertStatus, m.AlertText); err != nil {
				return fmt.Errorf("failed to insert measure %s: %w", m.MetricKey, err)
			}
		}
		return nil
	})
}

// SelectLastMeasure implements contract.AnalysisStore.
func (s *SQLStore) SelectLastMeasure(ctx context.Context, componentUUID, metricKey string) (*schema.MeasureRecord, error) {
	query := s.rebind(fmt.Sprintf(`SELECT m.%s FROM %s m
		JOIN %s a ON a.uuid = m.analysis_uuid
		WHERE m.component_uuid = ? AND m.metric_key = ? AND a.status = ?
		ORDER BY a.created_at DESC LIMIT 1`,
		strings.ReplaceAll(measureColumns, ", ", ", m."), measuresTable, analysesTable))
	m, err := scanMeasure(s.db.QueryRowContext(ctx, query, componentUUID, metricKey, string(schema.ProcessedStatus)).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last measure %s: %w", metricKey, err)
	}
	return &m, nil
}

// SelectMeasures implements contract.AnalysisStore.
func (s *SQLStore) SelectMeasures(ctx context.Context, analysisUUID string) ([]schema.MeasureRecord, error) {
	query := s.rebind(fmt.Sprintf(`SELECT %s FROM %s WHERE analysis_uuid = ? ORDER BY component_uuid, metric_key`,
		measureColumns, measuresTable))
	rows, err := s.db.QueryContext(ctx, query, analysisUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query measures: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var results []schema.MeasureRecord
	for rows.Next() {
		m, err := scanMeasure(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan measure: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// --- Side data ---

// InsertEvent implements contract.AnalysisStore.
func (s *SQLStore) InsertEvent(ctx context.Context, e schema.EventRecord) error {
	query := s.rebind(fmt.Sprintf(`INSERT INTO %s (uuid, analysis_uuid, component_uuid, name, category, description,
		event_data, event_date, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, eventsTable))
	if _, err := s.db.ExecContext(ctx, query, e.UUID, e.AnalysisUUID, e.ComponentUUID, e.Name, e.Category, e.Description,
		e.Data, e.EventDate, e.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// SelectFileSources implements contract.AnalysisStore. The data column is not loaded.
func (s *SQLStore) SelectFileSources(ctx context.Context, projectUUID string) (map[string]schema.FileSourceRecord, error) {
	query := s.rebind(fmt.Sprintf(`SELECT file_uuid, project_uuid, src_hash, data_hash, line_count, updated_at
		FROM %s WHERE project_uuid = ?`, fileSourcesTable))
	rows, err := s.db.QueryContext(ctx, query, projectUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query file sources: %w", err)
	}
	defer func() { _ = rows.Close() }()
	results := make(map[string]schema.FileSourceRecord)
	for rows.Next() {
		var f schema.FileSourceRecord
		if err := rows.Scan(&f.FileUUID, &f.ProjectUUID, &f.SrcHash, &f.DataHash, &f.LineCount, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file source: %w", err)
		}
		results[f.FileUUID] = f
	}
	return results, rows.Err()
}

// UpsertFileSource implements contract.AnalysisStore.
func (s *SQLStore) UpsertFileSource(ctx context.Context, f schema.FileSourceRecord) error {
	query := s.rebind(fmt.Sprintf(`INSERT INTO %s (file_uuid, project_uuid, src_hash, data_hash, line_count, source_data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, fileSourcesTable) +
		s.upsertSuffix("file_uuid", "project_uuid", "src_hash", "data_hash", "line_count", "source_data", "updated_at"))
	if _, err := s.db.ExecContext(ctx, query, f.FileUUID, f.ProjectUUID, f.SrcHash, f.DataHash, f.LineCount, f.Data, f.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert file source: %w", err)
	}
	return nil
}

// InsertTests implements contract.AnalysisStore. Tests of a file replace the ones of the previous analysis.
func (s *SQLStore) InsertTests(ctx context.Context, tests []schema.TestRecord) error {
	if len(tests) == 0 {
		return nil
	}
	del := s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE file_uuid = ?`, testsTable))
	ins := s.rebind(fmt.Sprintf(`INSERT INTO %s (file_uuid, name, status, duration_ms, message, stacktrace, covered_lines)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, testsTable))
	return s.withTx(ctx, func(tx *sql.Tx) error {
		cleared := make(map[string]struct{})
		for _, t := range tests {
			if _, ok := cleared[t.FileUUID]; !ok {
				if _, err := tx.ExecContext(ctx, del, t.FileUUID); err != nil {
					return fmt.Errorf("failed to clear tests of %s: %w", t.FileUUID, err)
				}
				cleared[t.FileUUID] = struct{}{}
			}
			covered, err := json.Marshal(t.CoveredLines)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, ins, t.FileUUID, t.Name, string(t.Status), t.DurationMs, t.Message, t.Stacktrace, string(covered)); err != nil {
				return fmt.Errorf("failed to insert test %s: %w", t.Name, err)
			}
		}
		return nil
	})
}

// InsertScannerContext implements contract.AnalysisStore.
func (s *SQLStore) InsertScannerContext(ctx context.Context, analysisUUID, log string) error {
	query := s.rebind(fmt.Sprintf(`INSERT INTO %s (analysis_uuid, context_log) VALUES (?, ?)`, scannerContextTable))
	if _, err := s.db.ExecContext(ctx, query, analysisUUID, log); err != nil {
		return fmt.Errorf("failed to insert scanner context: %w", err)
	}
	return nil
}

// GetStatus implements contract.AnalysisStore.
func (s *SQLStore) GetStatus() (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:    string(s.backend),
		Connected:  s.db != nil,
		TableSizes: make(map[string]int64),
	}
	counts := []struct {
		dest  *int
		query string
	}{
		{&status.TotalProjects, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE uuid = project_uuid", componentsTable)},
		{&status.TotalComponents, fmt.Sprintf("SELECT COUNT(*) FROM %s", componentsTable)},
		{&status.TotalAnalyses, fmt.Sprintf("SELECT COUNT(*) FROM %s", analysesTable)},
		{&status.TotalMeasures, fmt.Sprintf("SELECT COUNT(*) FROM %s", measuresTable)},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return status, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	if status.TotalAnalyses > 0 {
		var last, oldest int64
		lastQuery := fmt.Sprintf("SELECT uuid, created_at FROM %s ORDER BY created_at DESC LIMIT 1", analysesTable)
		if err := s.db.QueryRow(lastQuery).Scan(&status.LastAnalysisUUID, &last); err != nil {
			return status, fmt.Errorf("failed to get last analysis: %w", err)
		}
		oldestQuery := fmt.Sprintf("SELECT MIN(created_at) FROM %s", analysesTable)
		if err := s.db.QueryRow(oldestQuery).Scan(&oldest); err != nil {
			return status, fmt.Errorf("failed to get oldest analysis: %w", err)
		}
		status.LastAnalysisTime = time.UnixMilli(last).UTC()
		status.OldestAnalysisTime = time.UnixMilli(oldest).UTC()
	}

	for _, table := range storeTables {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	return status, nil
}

// Close implements contract.AnalysisStore.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
