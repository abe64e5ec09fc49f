package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"village-portal/internal/database"
	"village-portal/internal/model"
)

type DemographicRepository struct {
	db *database.DB
}

func NewDemographicRepository(db *database.DB) *DemographicRepository {
	return &DemographicRepository{db: db}
}

const demographicSelect = `SELECT d.id, d.nik, d.name, d.gender, d.birth_date, d.marital_status,
	d.education_id, e.name, d.religion_id, r.name, d.job, d.rt, d.rw, d.hamlet,
	d.active_status, d.status_changed_at, d.status_note, d.created_by, d.created_at, d.updated_at
	FROM demographics d
	JOIN educations e ON e.id = d.education_id
	JOIN religions r ON r.id = d.religion_id`

func scanDemographic(row interface{ Scan(...any) error }) (model.Demographic, error) {
	var (
		d         model.Demographic
		changedAt sql.NullTime
		note      sql.NullString
	)
	err := row.Scan(&d.ID, &d.NIK, &d.Name, &d.Gender, &d.BirthDate, &d.MaritalStatus,
		&d.EducationID, &d.Education, &d.ReligionID, &d.Religion, &d.Job, &d.RT, &d.RW, &d.Hamlet,
		&d.ActiveStatus, &changedAt, &note, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.Demographic{}, err
	}
	if changedAt.Valid {
		t := changedAt.Time
		d.StatusChangedAt = &t
	}
	d.StatusNote = stringPtr(note)
	return d, nil
}

func (r *DemographicRepository) List(ctx context.Context, query model.DemographicQuery) ([]model.Demographic, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	where := ""
	args := make([]any, 0, 3)
	if search := strings.TrimSpace(query.Search); search != "" {
		where = " WHERE d.name ILIKE $1 OR d.nik LIKE $1"
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.db.SQL.QueryRowContext(ctx, `SELECT COUNT(*) FROM demographics d`+where, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count demographics: %w", err)
	}

	n := len(args)
	args = append(args, query.Limit, (query.Page-1)*query.Limit)
	rows, err := r.db.SQL.QueryContext(ctx,
		demographicSelect+where+fmt.Sprintf(` ORDER BY d.name, d.id LIMIT $%d OFFSET $%d`, n+1, n+2),
		args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("list demographics: %w", err)
	}
	defer rows.Close()

	out := make([]model.Demographic, 0)
	for rows.Next() {
		d, err := scanDemographic(rows)
		if err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan demographic: %w", err)
		}
		out = append(out, d)
	}
	return out, model.NewMeta(query.Page, query.Limit, total), rows.Err()
}

func (r *DemographicRepository) FindByID(ctx context.Context, id string) (model.Demographic, error) {
	d, err := scanDemographic(r.db.SQL.QueryRowContext(ctx, demographicSelect+` WHERE d.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Demographic{}, model.ErrNotFound
	}
	if err != nil {
		return model.Demographic{}, fmt.Errorf("find demographic: %w", err)
	}
	return d, nil
}

func demographicWriteErr(op string, d model.Demographic, err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: nik %s", model.ErrAlreadyExists, d.NIK)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: unknown education or religion", model.ErrInvalidInput)
	default:
		return fmt.Errorf("%s demographic: %w", op, err)
	}
}

func (r *DemographicRepository) Create(ctx context.Context, d model.Demographic) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT INTO demographics (id, nik, name, gender, birth_date, marital_status, education_id, religion_id,
		                           job, rt, rw, hamlet, active_status, status_changed_at, status_note,
		                           created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		d.ID, d.NIK, d.Name, d.Gender, d.BirthDate, d.MaritalStatus, d.EducationID, d.ReligionID,
		d.Job, d.RT, d.RW, d.Hamlet, d.ActiveStatus, d.StatusChangedAt, nullString(d.StatusNote),
		d.CreatedBy, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return demographicWriteErr("create", d, err)
	}
	return nil
}

func (r *DemographicRepository) Update(ctx context.Context, d model.Demographic) error {
	res, err := r.db.SQL.ExecContext(ctx,
		`UPDATE demographics SET nik = $2, name = $3, gender = $4, birth_date = $5, marital_status = $6,
		        education_id = $7, religion_id = $8, job = $9, rt = $10, rw = $11, hamlet = $12,
		        active_status = $13, status_changed_at = $14, status_note = $15, updated_at = $16
		 WHERE id = $1`,
		d.ID, d.NIK, d.Name, d.Gender, d.BirthDate, d.MaritalStatus,
		d.EducationID, d.ReligionID, d.Job, d.RT, d.RW, d.Hamlet,
		d.ActiveStatus, d.StatusChangedAt, nullString(d.StatusNote), d.UpdatedAt)
	if err != nil {
		return demographicWriteErr("update", d, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *DemographicRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.SQL.ExecContext(ctx, `DELETE FROM demographics WHERE id = $1`, id)
	if database.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: resident is an institution member", model.ErrInUse)
	}
	if err != nil {
		return fmt.Errorf("delete demographic: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *DemographicRepository) Options(ctx context.Context) (model.DemographicOptions, error) {
	educations, err := r.lookup(ctx, "educations")
	if err != nil {
		return model.DemographicOptions{}, err
	}
	religions, err := r.lookup(ctx, "religions")
	if err != nil {
		return model.DemographicOptions{}, err
	}
	return model.DemographicOptions{Educations: educations, Religions: religions}, nil
}

func (r *DemographicRepository) lookup(ctx context.Context, table string) ([]model.LookupOption, error) {
	rows, err := r.db.SQL.QueryContext(ctx, fmt.Sprintf(`SELECT id, name FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]model.LookupOption, 0)
	for rows.Next() {
		var o model.LookupOption
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// StatisticsRecords returns the projection of every active resident.
func (r *DemographicRepository) StatisticsRecords(ctx context.Context) ([]model.StatisticsRecord, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		`SELECT d.gender, d.birth_date, e.name, r.name, d.job, d.marital_status, d.rt, d.rw, d.hamlet
		 FROM demographics d
		 JOIN educations e ON e.id = d.education_id
		 JOIN religions r ON r.id = d.religion_id
		 WHERE d.active_status = 'aktif'`)
	if err != nil {
		return nil, fmt.Errorf("list statistics records: %w", err)
	}
	defer rows.Close()

	out := make([]model.StatisticsRecord, 0)
	for rows.Next() {
		var rec model.StatisticsRecord
		if err := rows.Scan(&rec.Gender, &rec.BirthDate, &rec.Education, &rec.Religion, &rec.Job,
			&rec.MaritalStatus, &rec.RT, &rec.RW, &rec.Hamlet); err != nil {
			return nil, fmt.Errorf("scan statistics record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
