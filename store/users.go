package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codemates/mates"
	"github.com/codemates/mates/media"
)

// DefaultAvatarURL is the placeholder everyone starts with. It carries no
// storage key, so the media orchestrator never tries to delete it.
const DefaultAvatarURL = "https://placehold.co/200x200"

type User struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Avatar       media.BlobRef `json:"avatar"`
	Bio          string        `json:"bio"`
	GitHub       string        `json:"github"`
	Portfolio    string        `json:"portfolio"`
	LinkedIn     string        `json:"linkedin"`
	TechStack    []string      `json:"techstack"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// UserRef is the author info embedded in posts, comments and profile lists.
type UserRef struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	AvatarURL string `json:"profilePic"`
}

const userColumns = `id, username, name, email, password_hash, avatar_url, avatar_key,
	bio, github, portfolio, linkedin, techstack, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var techstack, createdAt, updatedAt string
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash,
		&u.Avatar.URL, &u.Avatar.StorageKey, &u.Bio, &u.GitHub, &u.Portfolio,
		&u.LinkedIn, &techstack, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user", mates.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(techstack), &u.TechStack)
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}

// CreateUser persists a new account. The caller provides username, name,
// email and password hash; everything else is defaulted here.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	u.ID = uuid.NewString()
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Avatar.IsZero() {
		u.Avatar = media.BlobRef{URL: DefaultAvatarURL}
	}
	if u.TechStack == nil {
		u.TechStack = []string{}
	}
	techstack, _ := json.Marshal(u.TechStack)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, name, email, password_hash, avatar_url, avatar_key,
			bio, github, portfolio, linkedin, techstack, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Name, u.Email, u.PasswordHash, u.Avatar.URL, u.Avatar.StorageKey,
		u.Bio, u.GitHub, u.Portfolio, u.LinkedIn, string(techstack),
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username or email already taken", mates.ErrValidationFailed)
	}
	return err
}

func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

// SearchUsers matches username or display name by substring.
func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]UserRef, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, name, avatar_url FROM users
		WHERE username LIKE ? OR name LIKE ?
		ORDER BY username LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUserRefs(rows)
}

func collectUserRefs(rows *sql.Rows) ([]UserRef, error) {
	refs := []UserRef{}
	for rows.Next() {
		var r UserRef
		if err := rows.Scan(&r.ID, &r.Username, &r.Name, &r.AvatarURL); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// UserUpdate lists the profile fields a mutation may set; nil means "leave
// unchanged". Avatar is set only through the media orchestrator's commit.
type UserUpdate struct {
	Name      *string
	Bio       *string
	GitHub    *string
	Portfolio *string
	LinkedIn  *string
	TechStack *[]string
	Avatar    *media.BlobRef
}

// UpdateUser applies a profile mutation atomically and returns the updated
// document plus the avatar ref the document carried before, when the avatar
// was replaced.
func (s *Store) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, media.BlobRef, error) {
	var old media.BlobRef

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, old, err
	}
	defer tx.Rollback()

	if upd.Avatar != nil {
		err := tx.QueryRowContext(ctx,
			`SELECT avatar_url, avatar_key FROM users WHERE id = ?`, id).
			Scan(&old.URL, &old.StorageKey)
		if err == sql.ErrNoRows {
			return nil, media.BlobRef{}, fmt.Errorf("%w: user", mates.ErrNotFound)
		}
		if err != nil {
			return nil, media.BlobRef{}, err
		}
	}

	set := "updated_at = ?"
	args := []any{formatTime(time.Now())}
	appendSet := func(col string, v any) {
		set += ", " + col + " = ?"
		args = append(args, v)
	}
	if upd.Name != nil {
		appendSet("name", *upd.Name)
	}
	if upd.Bio != nil {
		appendSet("bio", *upd.Bio)
	}
	if upd.GitHub != nil {
		appendSet("github", *upd.GitHub)
	}
	if upd.Portfolio != nil {
		appendSet("portfolio", *upd.Portfolio)
	}
	if upd.LinkedIn != nil {
		appendSet("linkedin", *upd.LinkedIn)
	}
	if upd.TechStack != nil {
		techstack, _ := json.Marshal(*upd.TechStack)
		appendSet("techstack", string(techstack))
	}
	if upd.Avatar != nil {
		appendSet("avatar_url", upd.Avatar.URL)
		appendSet("avatar_key", upd.Avatar.StorageKey)
	}
	args = append(args, id)

	res, err := tx.ExecContext(ctx, `UPDATE users SET `+set+` WHERE id = ?`, args...)
	if err != nil {
		return nil, media.BlobRef{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, media.BlobRef{}, fmt.Errorf("%w: user", mates.ErrNotFound)
	}

	u, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, media.BlobRef{}, err
	}
	if err := tx.Commit(); err != nil {
		return nil, media.BlobRef{}, err
	}
	return u, old, nil
}

// ToggleFollow flips a follow edge as an idempotent set operation: a plain
// insert-if-absent or delete, never read-modify-write of a member list, so
// concurrent toggles can't lose updates. Reports whether follower now
// follows followee.
func (s *Store) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	if followerID == followeeID {
		return false, fmt.Errorf("%w: cannot follow yourself", mates.ErrValidationFailed)
	}
	if _, err := s.UserByID(ctx, followeeID); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO follows (follower_id, followee_id) VALUES (?, ?)`,
		followerID, followeeID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID)
	return false, err
}

func (s *Store) Followers(ctx context.Context, userID string) ([]UserRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.name, u.avatar_url FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = ? ORDER BY u.username`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUserRefs(rows)
}

func (s *Store) Following(ctx context.Context, userID string) ([]UserRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.name, u.avatar_url FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = ? ORDER BY u.username`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUserRefs(rows)
}
