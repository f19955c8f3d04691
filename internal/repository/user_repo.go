package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"trivia-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

type NotificationRecipient struct {
	ID            uuid.UUID
	Email         string
	FullName      string
	CreatedAt     time.Time
	LastSentAtRaw string
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, avatar_url, is_verified, is_active, auth_provider, google_id, created_at, last_login_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &user.AvatarURL,
		&user.IsVerified, &user.IsActive, &user.AuthProvider, &user.GoogleID, &user.CreatedAt, &user.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, avatar_url, is_verified, auth_provider, google_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	user.ID = uuid.New()
	user.IsActive = true
	if user.AuthProvider == "" {
		user.AuthProvider = "email"
	}

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, user.AvatarURL,
		user.IsVerified, user.AuthProvider, user.GoogleID,
	).Scan(&user.CreatedAt)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
}

// LinkGoogle attaches a Google subject to an existing email account. Google
// has already verified the address, so the account counts as verified.
func (r *UserRepo) LinkGoogle(ctx context.Context, userID uuid.UUID, googleID string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET google_id = $1, is_verified = TRUE WHERE id = $2",
		googleID, userID,
	)
	return err
}

func (r *UserRepo) VerifyEmail(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET is_verified = TRUE WHERE id = $1", userID)
	return err
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

func (r *UserRepo) Update(ctx context.Context, user *models.User) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE users SET full_name = $1, avatar_url = $2 WHERE id = $3",
		user.FullName, user.AvatarURL, user.ID,
	)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, userID)
	return err
}

func (r *UserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	return err
}

func (r *UserRepo) CreateSettings(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "INSERT INTO user_settings (user_id) VALUES ($1) ON CONFLICT DO NOTHING", userID)
	return err
}

func (r *UserRepo) GetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, defaultValue bool) (bool, error) {
	var enabled bool
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE((
			SELECT CASE
				WHEN LOWER(COALESCE(notifications_json->>$2, '')) IN ('true', 'false')
					THEN (notifications_json->>$2)::boolean
				ELSE NULL
			END
			FROM user_settings
			WHERE user_id = $1
		), $3)
	`, userID, key, defaultValue).Scan(&enabled)
	if err != nil {
		return defaultValue, err
	}

	return enabled, nil
}

func (r *UserRepo) SetNotificationSetting(ctx context.Context, userID uuid.UUID, key string, enabled bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, notifications_json, updated_at)
		VALUES (
			$1,
			jsonb_build_object($2::text, to_jsonb($3::boolean)),
			NOW()
		)
		ON CONFLICT (user_id) DO UPDATE
		SET notifications_json = COALESCE(user_settings.notifications_json, '{}'::jsonb) ||
			jsonb_build_object($2::text, to_jsonb($3::boolean)),
			updated_at = NOW()
	`, userID, key, enabled)
	return err
}

func (r *UserRepo) SetNotificationTimestamp(ctx context.Context, userID uuid.UUID, key string, at time.Time) error {
	formatted := at.UTC().Format(time.RFC3339)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, notifications_json, updated_at)
		VALUES (
			$1,
			jsonb_build_object($2::text, to_jsonb($3::text)),
			NOW()
		)
		ON CONFLICT (user_id) DO UPDATE
		SET notifications_json = COALESCE(user_settings.notifications_json, '{}'::jsonb) ||
			jsonb_build_object($2::text, to_jsonb($3::text)),
			updated_at = NOW()
	`, userID, key, formatted)
	return err
}

// ListUsersWithNotificationEnabled returns verified, active users who opted
// in to notificationKey, with the raw timestamp stored under lastSentKey.
func (r *UserRepo) ListUsersWithNotificationEnabled(ctx context.Context, notificationKey, lastSentKey string) ([]NotificationRecipient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			u.id,
			u.email,
			u.full_name,
			u.created_at,
			COALESCE(us.notifications_json->>$2, '') AS last_sent_at
		FROM users u
		LEFT JOIN user_settings us ON us.user_id = u.id
		WHERE u.is_active = TRUE
		  AND u.is_verified = TRUE
		  AND COALESCE((
			CASE
				WHEN LOWER(COALESCE(us.notifications_json->>$1, '')) IN ('true', 'false')
				THEN (us.notifications_json->>$1)::boolean
				ELSE false
			END
		  ), false) = TRUE
	`, notificationKey, lastSentKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := make([]NotificationRecipient, 0)
	for rows.Next() {
		var recipient NotificationRecipient
		if scanErr := rows.Scan(
			&recipient.ID,
			&recipient.Email,
			&recipient.FullName,
			&recipient.CreatedAt,
			&recipient.LastSentAtRaw,
		); scanErr != nil {
			return nil, scanErr
		}
		recipients = append(recipients, recipient)
	}

	return recipients, rows.Err()
}
