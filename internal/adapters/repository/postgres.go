package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/stagely/internal/domain/model"
	"github.com/okian/stagely/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// foreign_key_violation
const pqForeignKeyViolation = "23503"

// PostgresStore is a Store over the festival planner schema.
type PostgresStore struct {
	db *sql.DB
}

// PostgresOption applies a configuration option to the PostgresStore.
type PostgresOption func(*postgresSettings)

type postgresSettings struct {
	migrate      bool
	maxOpenConns int
}

// WithMigrate creates missing tables on open.
func WithMigrate(migrate bool) PostgresOption {
	return func(s *postgresSettings) { s.migrate = migrate }
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) PostgresOption {
	return func(s *postgresSettings) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// OpenPostgres connects with lib/pq and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	settings := postgresSettings{maxOpenConns: 10}
	for _, opt := range opts {
		opt(&settings)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(settings.maxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PostgresStore{db: db}
	if settings.migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("query %s %s: %w", what, id, err)
}

func (s *PostgresStore) Festival(ctx context.Context, festivalID string) (f model.Festival, err error) {
	defer func(start time.Time) { observe("festival", start, err) }(time.Now())

	var start, end sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, year, start_time, end_time FROM festivals WHERE id = $1`, festivalID).
		Scan(&f.ID, &f.Name, &f.Year, &start, &end)
	if err != nil {
		return model.Festival{}, notFound(err, "festival", festivalID)
	}
	f.Window = model.Window{Start: start.String, End: end.String}
	return f, nil
}

func (s *PostgresStore) Day(ctx context.Context, dayID string) (d model.Day, err error) {
	defer func(start time.Time) { observe("day", start, err) }(time.Now())

	err = s.db.QueryRowContext(ctx,
		`SELECT id, festival_id, day_name, COALESCE(to_char(date, 'YYYY-MM-DD'), '') FROM festival_days WHERE id = $1`, dayID).
		Scan(&d.ID, &d.FestivalID, &d.Name, &d.Date)
	if err != nil {
		return model.Day{}, notFound(err, "day", dayID)
	}
	return d, nil
}

func (s *PostgresStore) Stages(ctx context.Context, dayID string) (out []model.Stage, err error) {
	defer func(start time.Time) { observe("stages", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, festival_day_id, name, order_index FROM stages WHERE festival_day_id = $1 ORDER BY order_index, name`, dayID)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var st model.Stage
		if err := rows.Scan(&st.ID, &st.DayID, &st.Name, &st.Order); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Performances(ctx context.Context, dayID string) (out []model.Performance, err error) {
	defer func(start time.Time) { observe("performances", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, festival_day_id, stage_id, artist_name, start_time, COALESCE(end_time, '')
		   FROM sets WHERE festival_day_id = $1 ORDER BY start_time, id`, dayID)
	if err != nil {
		return nil, fmt.Errorf("query sets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Performance
		if err := rows.Scan(&p.ID, &p.DayID, &p.StageID, &p.ArtistName, &p.Start, &p.End); err != nil {
			return nil, fmt.Errorf("scan set: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Performance(ctx context.Context, performanceID string) (p model.Performance, err error) {
	defer func(start time.Time) { observe("performance", start, err) }(time.Now())

	err = s.db.QueryRowContext(ctx,
		`SELECT id, festival_day_id, stage_id, artist_name, start_time, COALESCE(end_time, '') FROM sets WHERE id = $1`, performanceID).
		Scan(&p.ID, &p.DayID, &p.StageID, &p.ArtistName, &p.Start, &p.End)
	if err != nil {
		return model.Performance{}, notFound(err, "performance", performanceID)
	}
	return p, nil
}

func (s *PostgresStore) Group(ctx context.Context, groupID string) (g model.Group, err error) {
	defer func(start time.Time) { observe("group", start, err) }(time.Now())

	var members pq.StringArray
	err = s.db.QueryRowContext(ctx,
		`SELECT g.id, g.name, g.invite_code,
		        COALESCE(array_agg(gm.user_id ORDER BY gm.joined_at, gm.user_id) FILTER (WHERE gm.user_id IS NOT NULL), '{}')
		   FROM groups g LEFT JOIN group_members gm ON gm.group_id = g.id
		  WHERE g.id = $1
		  GROUP BY g.id`, groupID).
		Scan(&g.ID, &g.Name, &g.InviteCode, &members)
	if err != nil {
		return model.Group{}, notFound(err, "group", groupID)
	}
	g.MemberIDs = members
	return g, nil
}

func (s *PostgresStore) Members(ctx context.Context, groupID string) (out []model.Member, err error) {
	if _, err := s.Group(ctx, groupID); err != nil {
		return nil, err
	}
	defer func(start time.Time) { observe("members", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.username, COALESCE(p.display_name, ''), COALESCE(p.avatar_url, '')
		   FROM group_members gm JOIN profiles p ON p.id = gm.user_id
		  WHERE gm.group_id = $1
		  ORDER BY gm.joined_at, gm.user_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.ID, &m.Username, &m.DisplayName, &m.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ratings(ctx context.Context, memberIDs, performanceIDs []string) (out []model.Rating, err error) {
	if len(memberIDs) == 0 || len(performanceIDs) == 0 {
		return nil, nil
	}
	defer func(start time.Time) { observe("ratings", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, set_id, priority, updated_at FROM user_selections
		  WHERE user_id = ANY($1) AND set_id = ANY($2)`,
		pq.Array(memberIDs), pq.Array(performanceIDs))
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRating(row scanner) (model.Rating, error) {
	var (
		r        model.Rating
		priority string
	)
	if err := row.Scan(&r.MemberID, &r.PerformanceID, &priority, &r.UpdatedAt); err != nil {
		return model.Rating{}, err
	}
	tier, err := model.ParseTier(priority)
	if err != nil {
		return model.Rating{}, fmt.Errorf("rating %s/%s: %w", r.MemberID, r.PerformanceID, err)
	}
	r.Tier = tier
	return r, nil
}

func (s *PostgresStore) Rating(ctx context.Context, memberID, performanceID string) (r model.Rating, err error) {
	defer func(start time.Time) { observe("rating", start, err) }(time.Now())

	r, err = scanRating(s.db.QueryRowContext(ctx,
		`SELECT user_id, set_id, priority, updated_at FROM user_selections WHERE user_id = $1 AND set_id = $2`,
		memberID, performanceID))
	if err != nil {
		return model.Rating{}, notFound(err, "rating", memberID+"/"+performanceID)
	}
	return r, nil
}

func (s *PostgresStore) PutRating(ctx context.Context, r model.Rating) (err error) {
	defer func(start time.Time) { observe("put_rating", start, err) }(time.Now())

	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_selections (user_id, set_id, priority, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, set_id) DO UPDATE SET priority = EXCLUDED.priority, updated_at = EXCLUDED.updated_at`,
		r.MemberID, r.PerformanceID, r.Tier.Color(), r.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
		return fmt.Errorf("rating %s/%s: %w", r.MemberID, r.PerformanceID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteRating(ctx context.Context, memberID, performanceID string) (deleted bool, err error) {
	defer func(start time.Time) { observe("delete_rating", start, err) }(time.Now())

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM user_selections WHERE user_id = $1 AND set_id = $2`, memberID, performanceID)
	if err != nil {
		return false, fmt.Errorf("delete rating: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rating: %w", err)
	}
	return n > 0, nil
}

// Load inserts a dataset in one transaction, skipping rows that exist.
func (s *PostgresStore) Load(ctx context.Context, seed Seed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(query string, args ...any) {
		if err != nil {
			return
		}
		if _, execErr := tx.ExecContext(ctx, query, args...); execErr != nil {
			err = fmt.Errorf("%w: %w", ErrInvalidSeed, execErr)
		}
	}
	for _, f := range seed.Festivals {
		exec(`INSERT INTO festivals (id, name, year, start_time, end_time) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		      ON CONFLICT (id) DO NOTHING`, f.ID, f.Name, f.Year, f.Window.Start, f.Window.End)
	}
	for _, d := range seed.Days {
		exec(`INSERT INTO festival_days (id, festival_id, day_name, date) VALUES ($1, $2, $3, NULLIF($4, '')::date)
		      ON CONFLICT (id) DO NOTHING`, d.ID, d.FestivalID, d.Name, d.Date)
	}
	for _, st := range seed.Stages {
		exec(`INSERT INTO stages (id, festival_day_id, name, order_index) VALUES ($1, $2, $3, $4)
		      ON CONFLICT (id) DO NOTHING`, st.ID, st.DayID, st.Name, st.Order)
	}
	for _, p := range seed.Performances {
		exec(`INSERT INTO sets (id, festival_day_id, stage_id, artist_name, start_time, end_time)
		      VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')) ON CONFLICT (id) DO NOTHING`,
			p.ID, p.DayID, p.StageID, p.ArtistName, p.Start, p.End)
	}
	for _, m := range seed.Members {
		exec(`INSERT INTO profiles (id, username, display_name, avatar_url) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		      ON CONFLICT (id) DO NOTHING`, m.ID, m.Username, m.DisplayName, m.AvatarURL)
	}
	for _, g := range seed.Groups {
		exec(`INSERT INTO groups (id, name, invite_code) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			g.ID, g.Name, g.InviteCode)
		for i, id := range g.MemberIDs {
			exec(`INSERT INTO group_members (group_id, user_id, joined_at)
			      VALUES ($1, $2, now() + make_interval(secs => $3)) ON CONFLICT DO NOTHING`, g.ID, id, i)
		}
	}
	for _, r := range seed.Ratings {
		exec(`INSERT INTO user_selections (user_id, set_id, priority, updated_at) VALUES ($1, $2, $3, $4)
		      ON CONFLICT (user_id, set_id) DO UPDATE SET priority = EXCLUDED.priority, updated_at = EXCLUDED.updated_at`,
			r.MemberID, r.PerformanceID, r.Tier.Color(), stamp(r.UpdatedAt))
	}
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
