package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cargolink/internal/domain"
)

// ErrDuplicateEmail indica violacion del indice unico (email, user_type).
var ErrDuplicateEmail = errors.New("duplicate email")

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmailAndType(ctx context.Context, email, userType string) (domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (domain.User, error)
	GetByResetToken(ctx context.Context, token string) (domain.User, error)
	Update(ctx context.Context, user domain.User) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `
	id, name, email, password_hash, phone, user_type, is_email_verified,
	email_verification_token, email_verification_expires,
	password_reset_token, password_reset_expires,
	refresh_token, login_attempts, lock_until, last_login,
	created_at, updated_at
`

func (r *PgUserRepository) Create(ctx context.Context, user domain.User) error {
	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.UserType,
		user.IsEmailVerified,
		nullable(user.EmailVerificationToken),
		user.EmailVerificationExpires,
		nullable(user.PasswordResetToken),
		user.PasswordResetExpires,
		nullable(user.RefreshToken),
		user.LoginAttempts,
		user.LockUntil,
		user.LastLogin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) GetByEmailAndType(ctx context.Context, email, userType string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND user_type = $2`
	return r.scanOne(r.pool.QueryRow(ctx, query, email, userType))
}

func (r *PgUserRepository) GetByVerificationToken(ctx context.Context, token string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email_verification_token = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, token))
}

func (r *PgUserRepository) GetByResetToken(ctx context.Context, token string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE password_reset_token = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, token))
}

// Update guarda el registro completo; es la unica escritura post-creacion.
func (r *PgUserRepository) Update(ctx context.Context, user domain.User) error {
	const query = `
		UPDATE users SET
			name = $2,
			email = $3,
			password_hash = $4,
			phone = $5,
			user_type = $6,
			is_email_verified = $7,
			email_verification_token = $8,
			email_verification_expires = $9,
			password_reset_token = $10,
			password_reset_expires = $11,
			refresh_token = $12,
			login_attempts = $13,
			lock_until = $14,
			last_login = $15,
			updated_at = $16
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.UserType,
		user.IsEmailVerified,
		nullable(user.EmailVerificationToken),
		user.EmailVerificationExpires,
		nullable(user.PasswordResetToken),
		user.PasswordResetExpires,
		nullable(user.RefreshToken),
		user.LoginAttempts,
		user.LockUntil,
		user.LastLogin,
		user.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgUserRepository) scanOne(row pgx.Row) (domain.User, error) {
	var (
		u                 domain.User
		verificationToken *string
		resetToken        *string
		refreshToken      *string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Phone,
		&u.UserType,
		&u.IsEmailVerified,
		&verificationToken,
		&u.EmailVerificationExpires,
		&resetToken,
		&u.PasswordResetExpires,
		&refreshToken,
		&u.LoginAttempts,
		&u.LockUntil,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	if verificationToken != nil {
		u.EmailVerificationToken = *verificationToken
	}
	if resetToken != nil {
		u.PasswordResetToken = *resetToken
	}
	if refreshToken != nil {
		u.RefreshToken = *refreshToken
	}
	return u, nil
}

// nullable persiste strings vacios como NULL para que "token limpiado"
// y "token ausente" sean el mismo estado.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
