package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"loanplan/internal/model"
)

// Postgres reads ETL-owned snapshot tables and persists run results.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the run-result table this service owns. Snapshot tables
// belong to the ETL layer and are never created here.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS plan_runs (
    id          text PRIMARY KEY,
    office      text NOT NULL,
    week_start  date NOT NULL,
    status      text NOT NULL,
    assignments int  NOT NULL,
    objective   double precision NOT NULL,
    payload     jsonb NOT NULL,
    created_at  timestamptz NOT NULL DEFAULT now()
)`)
	return err
}

// LoadSnapshot pulls all reference records for one (office, week). The
// availability and capacity horizons extend two weeks past the week start so
// a Friday start can still cover a full loan window.
func (p *Postgres) LoadSnapshot(ctx context.Context, office string, weekStart time.Time) (model.Snapshot, error) {
	snap := model.Snapshot{
		Office:    office,
		WeekStart: weekStart.UTC(),
		AsOf:      time.Now().UTC(),
	}
	horizonEnd := weekStart.AddDate(0, 0, 14)

	var lat, lon sql.NullFloat64
	err := p.db.QueryRowContext(ctx,
		`SELECT lat, lon FROM offices WHERE name=$1`, office,
	).Scan(&lat, &lon)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return snap, err
	}
	if lat.Valid && lon.Valid {
		snap.OfficeLat, snap.OfficeLon = &lat.Float64, &lon.Float64
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT vin, make, model, office, COALESCE(class,''), COALESCE(powertrain,'')
		 FROM vehicles WHERE office=$1`, office)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var v model.Vehicle
		if err := rows.Scan(&v.VIN, &v.Make, &v.Model, &v.Office, &v.Class, &v.Powertrain); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Vehicles = append(snap.Vehicles, v)
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}

	rows, err = p.db.QueryContext(ctx,
		`SELECT person_id, office, lat, lon, preferred_weekday, publication_rate
		 FROM partners WHERE office=$1`, office)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var pr model.Partner
		var plat, plon, pub sql.NullFloat64
		var wd sql.NullInt64
		if err := rows.Scan(&pr.PersonID, &pr.Office, &plat, &plon, &wd, &pub); err != nil {
			rows.Close()
			return snap, err
		}
		if plat.Valid {
			pr.Lat = &plat.Float64
		}
		if plon.Valid {
			pr.Lon = &plon.Float64
		}
		if wd.Valid {
			w := time.Weekday(wd.Int64)
			pr.PreferredWeekday = &w
		}
		if pub.Valid {
			pr.PublicationRate = &pub.Float64
		}
		snap.Partners = append(snap.Partners, pr)
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}

	rows, err = p.db.QueryContext(ctx,
		`SELECT a.person_id, a.make, a.rank
		 FROM approvals a JOIN partners p ON p.person_id = a.person_id
		 WHERE p.office=$1`, office)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var ap model.Approval
		var rank string
		if err := rows.Scan(&ap.PersonID, &ap.Make, &rank); err != nil {
			rows.Close()
			return snap, err
		}
		ap.Rank = model.ParseRank(rank)
		snap.Approvals = append(snap.Approvals, ap)
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}

	rows, err = p.db.QueryContext(ctx,
		`SELECT av.vin, av.date, av.available
		 FROM availability av JOIN vehicles v ON v.vin = av.vin
		 WHERE v.office=$1 AND av.date >= $2 AND av.date < $3`,
		office, weekStart, horizonEnd)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var a model.AvailabilityRecord
		if err := rows.Scan(&a.VIN, &a.Date, &a.Available); err != nil {
			rows.Close()
			return snap, err
		}
		snap.Availability = append(snap.Availability, a)
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}

	rows, err = p.db.QueryContext(ctx,
		`SELECT h.person_id, h.make, COALESCE(h.model,''), COALESCE(h.class,''),
		        COALESCE(h.powertrain,''), h.start_date, h.end_date
		 FROM loan_history h JOIN partners p ON p.person_id = h.person_id
		 WHERE p.office=$1 AND h.start_date >= $2`,
		office, weekStart.AddDate(0, -15, 0))
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var h model.LoanHistoryRecord
		var end sql.NullTime
		if err := rows.Scan(&h.PersonID, &h.Make, &h.Model, &h.Class, &h.Powertrain, &h.StartDate, &end); err != nil {
			rows.Close()
			return snap, err
		}
		if end.Valid {
			h.EndDate = &end.Time
		}
		snap.LoanHistory = append(snap.LoanHistory, h)
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}

	rows, err = p.db.QueryContext(ctx,
		`SELECT make, COALESCE(rank,''), annual_cap, cooldown_days FROM rules`)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var r model.Rule
		var rank string
		var cap, cd sql.NullInt64
		if err := rows.Scan(&r.Make, &rank, &cap, &cd); err != nil {
			rows.Close()
			return snap, err
		}
		if rank != "" {
			r.Rank = model.ParseRank(rank)
		}
		if cap.Valid {
			v := int(cap.Int64)
			r.AnnualCap = &v
		}
		if cd.Valid {
			v := int(cd.Int64)
			r.CooldownDays = &v
		}
		snap.Rules = append(snap.Rules, r)
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}

	rows, err = p.db.QueryContext(ctx,
		`SELECT office, fleet, year, quarter, budget_amount, amount_used
		 FROM budgets WHERE office=$1`, office)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var b model.Budget
		var used sql.NullFloat64
		if err := rows.Scan(&b.Office, &b.Fleet, &b.Year, &b.Quarter, &b.BudgetAmount, &used); err != nil {
			rows.Close()
			return snap, err
		}
		if used.Valid {
			b.AmountUsed = &used.Float64
		}
		snap.Budgets = append(snap.Budgets, b)
	}
	if err := closeRows(rows); err != nil {
		return snap, err
	}

	rows, err = p.db.QueryContext(ctx,
		`SELECT office, date, slots, COALESCE(notes,'')
		 FROM capacity_days WHERE office=$1 AND date >= $2 AND date < $3`,
		office, weekStart, horizonEnd)
	if err != nil {
		return snap, err
	}
	for rows.Next() {
		var c model.CapacityDay
		if err := rows.Scan(&c.Office, &c.Date, &c.Slots, &c.Notes); err != nil {
			rows.Close()
			return snap, err
		}
		snap.CapacityDays = append(snap.CapacityDays, c)
	}
	return snap, closeRows(rows)
}

func (p *Postgres) SaveRun(ctx context.Context, run model.RunResult) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO plan_runs (id, office, week_start, status, assignments, objective, payload, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, assignments=EXCLUDED.assignments,
		     objective=EXCLUDED.objective, payload=EXCLUDED.payload`,
		run.RunID, run.Office, run.WeekStart, string(run.Status), len(run.Assignments),
		run.Objective, payload, run.CreatedAt)
	return err
}

func (p *Postgres) GetRun(ctx context.Context, runID string) (model.RunResult, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM plan_runs WHERE id=$1`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunResult{}, ErrNotFound
	}
	if err != nil {
		return model.RunResult{}, err
	}
	var run model.RunResult
	if err := json.Unmarshal(payload, &run); err != nil {
		return model.RunResult{}, err
	}
	return run, nil
}

func (p *Postgres) ListRuns(ctx context.Context, office, cursor string, limit int) ([]model.RunSummary, string, error) {
	if limit <= 0 {
		limit = 100
	}
	// Keyset pagination on (created_at, id) descending.
	args := []any{limit + 1}
	q := `SELECT id, office, week_start, status, assignments, objective, created_at FROM plan_runs`
	where := ""
	if office != "" {
		args = append(args, office)
		where = ` WHERE office=$2`
	}
	if cursor != "" {
		args = append(args, cursor)
		if where == "" {
			where = ` WHERE`
		} else {
			where += ` AND`
		}
		// $2 or $3 depending on office filter
		if office != "" {
			where += ` (created_at, id) < (SELECT created_at, id FROM plan_runs WHERE id=$3)`
		} else {
			where += ` (created_at, id) < (SELECT created_at, id FROM plan_runs WHERE id=$2)`
		}
	}
	q += where + ` ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	out := []model.RunSummary{}
	for rows.Next() {
		var s model.RunSummary
		var status string
		if err := rows.Scan(&s.RunID, &s.Office, &s.WeekStart, &status, &s.Assignments, &s.Objective, &s.CreatedAt); err != nil {
			rows.Close()
			return nil, "", err
		}
		s.Status = model.SolveStatus(status)
		out = append(out, s)
	}
	if err := closeRows(rows); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[len(out)-1].RunID
	}
	return out, next, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	rows.Close()
	return err
}
