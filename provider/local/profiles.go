package local

import (
	"context"
	"slices"
	"time"

	"github.com/goliatone/go-dashboard"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Profiles implements dashboard.UserStore over the users table
type Profiles struct {
	db *bun.DB
}

var _ dashboard.UserStore = (*Profiles)(nil)

func NewProfiles(db *bun.DB) *Profiles {
	return &Profiles{db: db}
}

// ListUsers returns all users in the requested order
func (p *Profiles) ListUsers(ctx context.Context, q dashboard.UserQuery) ([]*dashboard.UserRecord, error) {
	orderBy := q.OrderBy
	if !slices.Contains(dashboard.UserColumns, orderBy) {
		orderBy = dashboard.DefaultUserQuery().OrderBy
	}

	direction := "DESC"
	if q.Direction == dashboard.SortAsc {
		direction = "ASC"
	}

	users := make([]*dashboard.UserRecord, 0)
	err := p.db.NewSelect().
		Model(&users).
		Column(dashboard.UserColumns...).
		OrderExpr("?TableAlias.? "+direction, bun.Ident(orderBy)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns the user with id, or dashboard.ErrUserNotFound
func (p *Profiles) GetUser(ctx context.Context, id string) (*dashboard.UserRecord, error) {
	record := &dashboard.UserRecord{}
	err := p.db.NewSelect().
		Model(record).
		Column(dashboard.UserColumns...).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, dashboard.ErrUserNotFound.Clone().
				WithMetadata(map[string]any{"id": id})
		}
		return nil, err
	}
	return record, nil
}

// CountUsers counts the rows matching f
func (p *Profiles) CountUsers(ctx context.Context, f dashboard.UserFilter) (int, error) {
	q := p.db.NewSelect().Model((*dashboard.UserRecord)(nil))
	if f.CreatedBefore != nil {
		q = q.Where("?TableAlias.created_at < ?", f.CreatedBefore.UTC())
	}
	if f.CreatedSince != nil {
		q = q.Where("?TableAlias.created_at >= ?", f.CreatedSince.UTC())
	}
	switch f.Status {
	case dashboard.StatusTrue:
		q = q.Where("?TableAlias.status = ?", true)
	case dashboard.StatusNull:
		q = q.Where("?TableAlias.status IS NULL")
	}
	return q.Count(ctx)
}

// CreateTx inserts the profile row of a new account
func (p *Profiles) CreateTx(ctx context.Context, tx bun.IDB, record *dashboard.UserRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Role == "" {
		record.Role = dashboard.RoleUser
	}
	_, err := tx.NewInsert().Model(record).Exec(ctx)
	return err
}

// SetStatusTx stores the profile status flag
func (p *Profiles) SetStatusTx(ctx context.Context, tx bun.IDB, id string, status bool) error {
	_, err := tx.NewUpdate().
		Model((*dashboard.UserRecord)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
