package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"courtreel/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewJob inserts a pending job for a telemetry file and its source video.
// A fresh webhook token is minted for the job.
func (s *Store) NewJob(ctx context.Context, name, sourceVideo, telemetryPath string) (*Job, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            name, source_video, telemetry_path, webhook_token, status,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name,
		nullableString(sourceVideo),
		nullableString(telemetryPath),
		uuid.NewString(),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Returns nil when no job exists.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET name = ?, vid = ?, source_video = ?, telemetry_path = ?,
             webhook_token = ?, status = ?, error_message = ?,
             progress_stage = ?, progress_message = ?, attempts = ?,
             result_json = ?, work_dir = ?, updated_at = ?, completed_at = ?
         WHERE id = ?`,
		job.Name,
		nullableString(job.VID),
		nullableString(job.SourceVideo),
		nullableString(job.TelemetryPath),
		nullableString(job.WebhookToken),
		job.Status,
		nullableString(job.ErrorMessage),
		nullableString(job.ProgressStage),
		nullableString(job.ProgressMsg),
		job.Attempts,
		nullableString(job.ResultJSON),
		nullableString(job.WorkDir),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.CompletedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextPending returns the oldest pending job, or nil when the queue is empty.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1`,
		StatusPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return job, nil
}

// Claim transitions a pending job to processing. It returns false when the
// job was already claimed or is no longer pending, so concurrent workers
// cannot pick up the same job.
func (s *Store) Claim(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, attempts = attempts + 1, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusProcessing,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkCompleted records a terminal success with the result manifest. It is a
// no-op when the job already reached a terminal state; the return value
// reports whether the transition happened.
func (s *Store) MarkCompleted(ctx context.Context, id int64, resultJSON string) (bool, error) {
	return s.finish(ctx, id, StatusCompleted, "", resultJSON)
}

// MarkFailed records a terminal failure. It is a no-op when the job already
// reached a terminal state; the return value reports whether the transition
// happened.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) (bool, error) {
	return s.finish(ctx, id, StatusFailed, message, "")
}

func (s *Store) finish(ctx context.Context, id int64, status Status, message, resultJSON string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, result_json = COALESCE(?, result_json),
             updated_at = ?, completed_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		status,
		nullableString(message),
		nullableString(resultJSON),
		now,
		now,
		id,
		StatusCompleted,
		StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("finish job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RetryFailed moves failed jobs back to pending for reprocessing. With no
// ids, all failed jobs are reset.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE jobs
            SET status = ?, error_message = NULL, progress_stage = NULL,
                progress_message = NULL, completed_at = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE jobs
        SET status = ?, error_message = NULL, progress_stage = NULL,
            progress_message = NULL, completed_at = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing resets jobs left in processing back to pending. Run at
// daemon startup to recover work interrupted by a crash.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET status = ?, progress_stage = NULL, progress_message = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusProcessing:
			health.Processing += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

const jobColumns = "id, name, vid, source_video, telemetry_path, webhook_token, status, error_message, progress_stage, progress_message, attempts, result_json, work_dir, created_at, updated_at, completed_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id            int64
		name          string
		vid           sql.NullString
		sourceVideo   sql.NullString
		telemetryPath sql.NullString
		webhookToken  sql.NullString
		statusStr     string
		errorMessage  sql.NullString
		progressStage sql.NullString
		progressMsg   sql.NullString
		attempts      sql.NullInt64
		resultJSON    sql.NullString
		workDir       sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		completedRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&name,
		&vid,
		&sourceVideo,
		&telemetryPath,
		&webhookToken,
		&statusStr,
		&errorMessage,
		&progressStage,
		&progressMsg,
		&attempts,
		&resultJSON,
		&workDir,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            id,
		Name:          name,
		VID:           vid.String,
		SourceVideo:   sourceVideo.String,
		TelemetryPath: telemetryPath.String,
		WebhookToken:  webhookToken.String,
		Status:        Status(statusStr),
		ErrorMessage:  errorMessage.String,
		ProgressStage: progressStage.String,
		ProgressMsg:   progressMsg.String,
		Attempts:      int(attempts.Int64),
		ResultJSON:    resultJSON.String,
		WorkDir:       workDir.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
