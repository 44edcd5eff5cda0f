package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies
// connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Dogs() store.Dogs                 { return &dogs{db: s.db} }
func (s *pgStore) Votes() store.Votes               { return &votes{db: s.db} }
func (s *pgStore) Applications() store.Applications { return &applications{db: s.db} }
func (s *pgStore) Outbox() store.Outbox             { return &outbox{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Dogs ---

type dogs struct{ db *sql.DB }

const dogColumns = `dog_id, shelter, city, state, name, species, description,
	birthday, weight, color, created_by, status, entry_date, photo_url,
	thumbnail_url, created_at, updated_at`

func scanDog(row interface{ Scan(...any) error }) (*model.Dog, error) {
	var d model.Dog
	if err := row.Scan(&d.DogID, &d.Shelter, &d.City, &d.State, &d.Name,
		&d.Species, &d.Description, &d.Birthday, &d.Weight, &d.Color,
		&d.CreatedBy, &d.Status, &d.EntryDate, &d.PhotoURL, &d.ThumbnailURL,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *dogs) Create(ctx context.Context, in *model.Dog) (*model.Dog, error) {
	out := *in
	if out.DogID == "" {
		out.DogID = uuid.New().String()
	}
	out.Status = model.DogStatusAvailable
	if out.EntryDate == "" {
		out.EntryDate = time.Now().UTC().Format(time.RFC3339)
	}

	row := r.db.QueryRowContext(ctx, `
        INSERT INTO dogs (dog_id, shelter, city, state, name, species,
            description, birthday, weight, color, created_by, status, entry_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING created_at, updated_at
    `, out.DogID, out.Shelter, out.City, out.State, out.Name, out.Species,
		out.Description, out.Birthday, out.Weight, out.Color, out.CreatedBy,
		out.Status, out.EntryDate)
	if err := row.Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *dogs) Get(ctx context.Context, dogID string) (*model.Dog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+dogColumns+` FROM dogs WHERE dog_id=$1`, dogID)
	d, err := scanDog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: dog %s", model.ErrNotFound, dogID)
	}
	return d, err
}

func (r *dogs) List(ctx context.Context, f model.DogFilter) ([]*model.Dog, error) {
	var (
		rows *sql.Rows
		err  error
	)
	// State uses the indexed path; remaining filters apply in memory, per
	// the read model's design.
	if f.State != "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+dogColumns+` FROM dogs WHERE state=$1`, f.State)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+dogColumns+` FROM dogs ORDER BY created_at ASC`)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	now := time.Now().UTC()
	out := make([]*model.Dog, 0)
	for rows.Next() {
		d, err := scanDog(rows)
		if err != nil {
			return nil, err
		}
		if !matchesFilter(d, f, now) {
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func matchesFilter(d *model.Dog, f model.DogFilter, now time.Time) bool {
	if f.Color != "" && !strings.EqualFold(d.Color, f.Color) {
		return false
	}
	if f.MinWeight != nil && d.Weight < *f.MinWeight {
		return false
	}
	if f.MaxWeight != nil && d.Weight > *f.MaxWeight {
		return false
	}
	if f.MinAge != nil || f.MaxAge != nil {
		age := d.Age(now)
		if f.MinAge != nil && age < *f.MinAge {
			return false
		}
		if f.MaxAge != nil && age > *f.MaxAge {
			return false
		}
	}
	return true
}

func (r *dogs) Delete(ctx context.Context, dogID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dogs WHERE dog_id=$1`, dogID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: dog %s", model.ErrNotFound, dogID)
	}
	return nil
}

func (r *dogs) SetStatus(ctx context.Context, dogID, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dogs SET status=$2, updated_at=now() WHERE dog_id=$1`, dogID, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: dog %s", model.ErrNotFound, dogID)
	}
	return nil
}

// --- Votes ---

type votes struct{ db *sql.DB }

func (r *votes) Upsert(ctx context.Context, in *model.Vote) (*model.Vote, error) {
	out := *in
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO votes (user_id, dog_id, vote_type, cast_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (user_id, dog_id)
        DO UPDATE SET vote_type=EXCLUDED.vote_type, cast_at=EXCLUDED.cast_at
    `, out.UserID, out.DogID, out.VoteType, out.Timestamp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *votes) Remove(ctx context.Context, userID, dogID string) error {
	// Removing an absent vote is a no-op.
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM votes WHERE user_id=$1 AND dog_id=$2`, userID, dogID)
	return err
}

func (r *votes) ListByUser(ctx context.Context, userID string) ([]*model.Vote, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT user_id, dog_id, vote_type, cast_at
        FROM votes WHERE user_id=$1 ORDER BY cast_at ASC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]*model.Vote, 0)
	for rows.Next() {
		var v model.Vote
		if err := rows.Scan(&v.UserID, &v.DogID, &v.VoteType, &v.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// --- Applications ---

type applications struct{ db *sql.DB }

const applicationColumns = `application_id, dog_id, shelter, adopter_id, status,
	adopter_name, adopter_email, adopter_phone, adopter_address, experience,
	living_space, has_kids, version, created_at, updated_at`

func scanApplication(row interface{ Scan(...any) error }) (*model.Application, error) {
	var a model.Application
	if err := row.Scan(&a.ApplicationID, &a.DogID, &a.Shelter, &a.AdopterID,
		&a.Status, &a.AdopterName, &a.AdopterEmail, &a.AdopterPhone,
		&a.AdopterAddress, &a.Experience, &a.LivingSpace, &a.HasKids,
		&a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *applications) Create(ctx context.Context, in *model.Application) (*model.Application, error) {
	out := *in
	if out.ApplicationID == "" {
		out.ApplicationID = uuid.New().String()
	}
	out.Status = model.ApplicationStatusPending
	out.Version = 1

	row := r.db.QueryRowContext(ctx, `
        INSERT INTO applications (application_id, dog_id, shelter, adopter_id,
            status, adopter_name, adopter_email, adopter_phone, adopter_address,
            experience, living_space, has_kids, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING created_at, updated_at
    `, out.ApplicationID, out.DogID, out.Shelter, out.AdopterID, out.Status,
		out.AdopterName, out.AdopterEmail, out.AdopterPhone, out.AdopterAddress,
		out.Experience, out.LivingSpace, out.HasKids, out.Version)
	if err := row.Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *applications) Get(ctx context.Context, applicationID string) (*model.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE application_id=$1`,
		applicationID)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: application %s", model.ErrNotFound, applicationID)
	}
	return a, err
}

func (r *applications) List(ctx context.Context) ([]*model.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]*model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Decide commits the status flip and its follow-up jobs in one transaction.
// The conditional update is the optimistic-concurrency guard: a stale version
// or an already-decided application updates zero rows.
func (r *applications) Decide(ctx context.Context, req store.DecideRequest) (*model.Application, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
        UPDATE applications
        SET status=$2, version=version+1, updated_at=now()
        WHERE application_id=$1 AND status='pending' AND version=$3
        RETURNING `+applicationColumns+`
    `, req.ApplicationID, req.Status, req.ExpectedVersion)

	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish absent from already decided / concurrently modified.
		check := tx.QueryRowContext(ctx,
			`SELECT 1 FROM applications WHERE application_id=$1`, req.ApplicationID)
		var one int
		if scanErr := check.Scan(&one); errors.Is(scanErr, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: application %s", model.ErrNotFound, req.ApplicationID)
		} else if scanErr != nil {
			return nil, scanErr
		}
		return nil, fmt.Errorf("%w: application %s already decided or modified", model.ErrConflict, req.ApplicationID)
	} else if err != nil {
		return nil, err
	}

	for _, j := range req.Jobs {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO outbox (op, aggregate_id, payload, status, next_attempt_at)
            VALUES ($1,$2,$3,'pending',now())
        `, j.Op, j.AggregateID, []byte(j.Payload)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}

// --- Outbox ---

type outbox struct{ db *sql.DB }

// leaseDuration is how long a leased job stays invisible to other workers.
// MarkDone and MarkFailed finalize earlier; an unfinalized job becomes
// leasable again once it lapses.
const leaseDuration = 30 * time.Second

const (
	// Claiming the rows in the same statement that reads them keeps two
	// concurrent workers from leasing, and delivering, the same job.
	leaseReadySQL = `
WITH ready AS (
    SELECT id
    FROM outbox
    WHERE status = 'pending' AND next_attempt_at <= now()
    ORDER BY id ASC
    FOR UPDATE SKIP LOCKED
    LIMIT $1
)
UPDATE outbox o
SET next_attempt_at = now() + make_interval(secs => $2),
    updated_at = now()
FROM ready
WHERE o.id = ready.id
RETURNING o.id, o.op, o.payload, o.aggregate_id, o.attempt_count, o.last_error`

	markDoneSQL = `UPDATE outbox SET status='done', updated_at=now() WHERE id=$1`

	markFailedSQL = `
UPDATE outbox
SET attempt_count = attempt_count + 1,
    last_error = $2,
    next_attempt_at = now() + make_interval(secs => LEAST(POWER(2, attempt_count+1), 300)),
    updated_at = now()
WHERE id=$1`
)

func (r *outbox) Lease(ctx context.Context, limit int) ([]*model.OutboxJob, error) {
	rows, err := r.db.QueryContext(ctx, leaseReadySQL, limit, int(leaseDuration.Seconds()))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.OutboxJob
	for rows.Next() {
		var j model.OutboxJob
		if err := rows.Scan(&j.ID, &j.Op, &j.Payload, &j.AggregateID, &j.AttemptCount, &j.LastError); err != nil {
			return nil, err
		}
		j.Status = model.OutboxStatusPending
		out = append(out, &j)
	}
	return out, rows.Err()
}

func (r *outbox) MarkDone(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, markDoneSQL, id)
	return err
}

func (r *outbox) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx, markFailedSQL, id, reason)
	return err
}
