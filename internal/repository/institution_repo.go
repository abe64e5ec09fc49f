package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"village-portal/internal/database"
	"village-portal/internal/model"
	"village-portal/internal/reconcile"
)

type InstitutionRepository struct {
	db *database.DB
}

func NewInstitutionRepository(db *database.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

const institutionColumns = `id, name, abbreviation, legal_basis, office_address, logo_url,
	profile, vision_mission, main_duties, created_by, created_at, updated_at`

func scanInstitution(row interface{ Scan(...any) error }) (model.Institution, error) {
	var (
		inst model.Institution
		logo sql.NullString
	)
	err := row.Scan(&inst.ID, &inst.Name, &inst.Abbreviation, &inst.LegalBasis, &inst.OfficeAddress, &logo,
		&inst.Profile, &inst.VisionMission, &inst.MainDuties, &inst.CreatedBy, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return model.Institution{}, err
	}
	inst.LogoURL = stringPtr(logo)
	inst.Members = []model.Member{}
	return inst, nil
}

func (r *InstitutionRepository) List(ctx context.Context) ([]model.Institution, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT `+institutionColumns+` FROM institutions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	defer rows.Close()

	out := make([]model.Institution, 0)
	index := make(map[string]int)
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan institution: %w", err)
		}
		index[inst.ID] = len(out)
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	members, err := listMembers(ctx, r.db.SQL, "", "")
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if i, ok := index[m.InstitutionID]; ok {
			out[i].Members = append(out[i].Members, m)
		}
	}
	return out, nil
}

func (r *InstitutionRepository) FindByID(ctx context.Context, id string) (model.Institution, error) {
	inst, err := scanInstitution(r.db.SQL.QueryRowContext(ctx,
		`SELECT `+institutionColumns+` FROM institutions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Institution{}, model.ErrNotFound
	}
	if err != nil {
		return model.Institution{}, fmt.Errorf("find institution: %w", err)
	}

	members, err := listMembers(ctx, r.db.SQL, "m.institution_id = $1", id)
	if err != nil {
		return model.Institution{}, err
	}
	inst.Members = members
	return inst, nil
}

func (r *InstitutionRepository) Create(ctx context.Context, q database.DBTX, inst model.Institution) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO institutions (id, name, abbreviation, legal_basis, office_address, logo_url,
		                           profile, vision_mission, main_duties, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		inst.ID, inst.Name, inst.Abbreviation, inst.LegalBasis, inst.OfficeAddress, nullString(inst.LogoURL),
		inst.Profile, inst.VisionMission, inst.MainDuties, inst.CreatedBy, inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create institution: %w", err)
	}
	return nil
}

// Update writes the institution fields, and the logo url when inst carries
// one. It returns the logo url stored before the update.
func (r *InstitutionRepository) Update(ctx context.Context, q database.DBTX, inst model.Institution) (*string, error) {
	var previous sql.NullString
	err := q.QueryRowContext(ctx, `SELECT logo_url FROM institutions WHERE id = $1 FOR UPDATE`, inst.ID).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock institution: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`UPDATE institutions SET name = $2, abbreviation = $3, legal_basis = $4, office_address = $5,
		        logo_url = COALESCE($6, logo_url), profile = $7, vision_mission = $8, main_duties = $9, updated_at = $10
		 WHERE id = $1`,
		inst.ID, inst.Name, inst.Abbreviation, inst.LegalBasis, inst.OfficeAddress, nullString(inst.LogoURL),
		inst.Profile, inst.VisionMission, inst.MainDuties, inst.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update institution: %w", err)
	}
	return stringPtr(previous), nil
}

func (r *InstitutionRepository) Delete(ctx context.Context, id string) (*string, error) {
	var logo sql.NullString
	err := r.db.SQL.QueryRowContext(ctx, `DELETE FROM institutions WHERE id = $1 RETURNING logo_url`, id).Scan(&logo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete institution: %w", err)
	}
	return stringPtr(logo), nil
}

func scanMember(row interface{ Scan(...any) error }) (model.Member, error) {
	var m model.Member
	err := row.Scan(&m.ID, &m.InstitutionID, &m.DemographicID, &m.Position, &m.Name)
	return m, err
}

func listMembers(ctx context.Context, q database.DBTX, where string, arg string) ([]model.Member, error) {
	query := `SELECT m.id, m.institution_id, m.demographic_id, m.position, d.name
		FROM institution_members m
		JOIN demographics d ON d.id = m.demographic_id`
	args := []any{}
	if where != "" {
		query += " WHERE " + where
		args = append(args, arg)
	}
	query += " ORDER BY m.created_at, m.id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := make([]model.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var (
	_ reconcile.Collection[model.MemberFields, model.Member] = MemberCollection{}
	_ reconcile.Checker[model.MemberFields]                  = MemberCollection{}
)

// MemberCollection holds the members of an institution.
type MemberCollection struct{}

func (MemberCollection) Name() string { return "institution_members" }

func (MemberCollection) LockParent(ctx context.Context, q database.DBTX, parentID string) error {
	return lockRow(ctx, q, "institutions", parentID)
}

func (MemberCollection) List(ctx context.Context, q database.DBTX, parentID string) ([]model.Member, error) {
	return listMembers(ctx, q, "m.institution_id = $1", parentID)
}

func (MemberCollection) ChildID(m model.Member) string { return m.ID }

// Check rejects members that point at a resident who does not exist.
func (MemberCollection) Check(ctx context.Context, q database.DBTX, index int, f model.MemberFields) error {
	ok, err := rowExists(ctx, q, "demographics", f.DemographicID)
	if err != nil {
		return err
	}
	if !ok {
		return &reconcile.ValidationError{
			Index:   index,
			Field:   "demographicId",
			Message: "does not reference an existing resident",
		}
	}
	return nil
}

func (MemberCollection) Update(ctx context.Context, q database.DBTX, parentID string, id string, f model.MemberFields) (model.Member, error) {
	m, err := scanMember(q.QueryRowContext(ctx,
		`WITH m AS (
		     UPDATE institution_members SET demographic_id = $3, position = $4, updated_at = NOW()
		     WHERE id = $1 AND institution_id = $2
		     RETURNING id, institution_id, demographic_id, position
		 )
		 SELECT m.id, m.institution_id, m.demographic_id, m.position, d.name
		 FROM m JOIN demographics d ON d.id = m.demographic_id`,
		id, parentID, f.DemographicID, f.Position))
	if err != nil {
		return model.Member{}, fmt.Errorf("update member %s: %w", id, err)
	}
	return m, nil
}

func (MemberCollection) Create(ctx context.Context, q database.DBTX, parentID string, _ int, f model.MemberFields) (model.Member, error) {
	m, err := scanMember(q.QueryRowContext(ctx,
		`WITH m AS (
		     INSERT INTO institution_members (id, institution_id, demographic_id, position)
		     VALUES ($1, $2, $3, $4)
		     RETURNING id, institution_id, demographic_id, position
		 )
		 SELECT m.id, m.institution_id, m.demographic_id, m.position, d.name
		 FROM m JOIN demographics d ON d.id = m.demographic_id`,
		uuid.NewString(), parentID, f.DemographicID, f.Position))
	if err != nil {
		return model.Member{}, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

func (MemberCollection) Delete(ctx context.Context, q database.DBTX, parentID string, ids []string) (int64, error) {
	return deleteChildren(ctx, q, "institution_members", "institution_id", parentID, ids)
}
