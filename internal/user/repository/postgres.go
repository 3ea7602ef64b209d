package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"soori/internal/user/domain"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a user repository that uses the given pool for persistence.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const userColumns = `id, identity_uid, phone_number, role, name, recipient_type, supported_district, created_at, updated_at`

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByIdentityUID returns the user registered for the identity, or nil if not found.
func (r *PostgresRepository) GetByIdentityUID(ctx context.Context, identityUID string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE identity_uid = $1`, identityUID))
}

// GetVehicle returns the vehicle for id, or nil if not found.
func (r *PostgresRepository) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	var (
		v      domain.Vehicle
		userID *string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, model, purchased_at, manufactured_at, created_at, updated_at FROM vehicles WHERE id = $1`, id).
		Scan(&v.ID, &userID, &v.Model, &v.PurchasedAt, &v.ManufacturedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if userID != nil {
		v.UserID = *userID
	}
	return &v, nil
}

// Register inserts the user and upserts the vehicle in one transaction.
// A second registration for the same identity returns ErrUserExists; a vehicle owned by someone else
// returns ErrVehicleClaimed and nothing is written.
func (r *PostgresRepository) Register(ctx context.Context, u *domain.User, v *domain.Vehicle) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			u.ID, u.IdentityUID, u.PhoneNumber, string(u.Role), u.Name,
			string(u.RecipientType), string(u.SupportedDistrict), u.CreatedAt, u.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrUserExists
			}
			return err
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO vehicles (id, user_id, model, purchased_at, manufactured_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO UPDATE SET
			   user_id = EXCLUDED.user_id,
			   model = EXCLUDED.model,
			   purchased_at = EXCLUDED.purchased_at,
			   manufactured_at = EXCLUDED.manufactured_at,
			   updated_at = EXCLUDED.updated_at
			 WHERE vehicles.user_id IS NULL OR vehicles.user_id = EXCLUDED.user_id`,
			v.ID, u.ID, v.Model, v.PurchasedAt, v.ManufacturedAt, v.CreatedAt, v.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrVehicleClaimed
		}
		return nil
	})
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u                               domain.User
		role, recipientType, districtID string
	)
	err := row.Scan(&u.ID, &u.IdentityUID, &u.PhoneNumber, &role, &u.Name,
		&recipientType, &districtID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	u.RecipientType = domain.RecipientType(recipientType)
	u.SupportedDistrict = domain.SupportedDistrict(districtID)
	return &u, nil
}
