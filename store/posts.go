package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codemates/mates"
	"github.com/codemates/mates/media"
)

type Comment struct {
	ID        string    `json:"id"`
	Author    UserRef   `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Post struct {
	ID        string        `json:"id"`
	Author    UserRef       `json:"author"`
	Content   string        `json:"content"`
	Media     media.BlobRef `json:"media"`
	MediaType string        `json:"mediaType"`
	Likes     []string      `json:"likes"`
	Comments  []Comment     `json:"comments"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

const postSelect = `
	SELECT p.id, p.content, p.media_url, p.media_key, p.media_type,
		p.created_at, p.updated_at, u.id, u.username, u.name, u.avatar_url
	FROM posts p JOIN users u ON u.id = p.user_id`

func (s *Store) CreatePost(ctx context.Context, authorID, content string, ref media.BlobRef, mediaType string) (*Post, error) {
	if strings.TrimSpace(content) == "" && ref.IsZero() {
		return nil, fmt.Errorf("%w: post needs content or media", mates.ErrValidationFailed)
	}
	if mediaType == "" {
		mediaType = media.KindText
	}
	id := uuid.NewString()
	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, user_id, content, media_url, media_key, media_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, authorID, content, ref.URL, ref.StorageKey, mediaType, now, now)
	if err != nil {
		return nil, err
	}
	return s.PostByID(ctx, id)
}

func (s *Store) PostByID(ctx context.Context, id string) (*Post, error) {
	posts, err := s.queryPosts(ctx, postSelect+` WHERE p.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: post", mates.ErrNotFound)
	}
	return &posts[0], nil
}

// Feed returns all posts newest first, with author info, likes and comments.
func (s *Store) Feed(ctx context.Context, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryPosts(ctx, postSelect+` ORDER BY p.created_at DESC LIMIT ?`, limit)
}

func (s *Store) PostsByUser(ctx context.Context, userID string) ([]Post, error) {
	return s.queryPosts(ctx, postSelect+` WHERE p.user_id = ? ORDER BY p.created_at DESC`, userID)
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...any) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []Post{}
	index := map[string]*Post{}
	for rows.Next() {
		var p Post
		var createdAt, updatedAt string
		err := rows.Scan(&p.ID, &p.Content, &p.Media.URL, &p.Media.StorageKey,
			&p.MediaType, &createdAt, &updatedAt,
			&p.Author.ID, &p.Author.Username, &p.Author.Name, &p.Author.AvatarURL)
		if err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		p.Likes = []string{}
		p.Comments = []Comment{}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range posts {
		index[posts[i].ID] = &posts[i]
	}
	if len(posts) == 0 {
		return posts, nil
	}

	ids := make([]any, 0, len(posts))
	placeholders := make([]string, 0, len(posts))
	for id := range index {
		ids = append(ids, id)
		placeholders = append(placeholders, "?")
	}
	in := "(" + strings.Join(placeholders, ",") + ")"

	likeRows, err := s.db.QueryContext(ctx,
		`SELECT post_id, user_id FROM post_likes WHERE post_id IN `+in, ids...)
	if err != nil {
		return nil, err
	}
	defer likeRows.Close()
	for likeRows.Next() {
		var postID, userID string
		if err := likeRows.Scan(&postID, &userID); err != nil {
			return nil, err
		}
		if p, ok := index[postID]; ok {
			p.Likes = append(p.Likes, userID)
		}
	}
	if err := likeRows.Err(); err != nil {
		return nil, err
	}

	commentRows, err := s.db.QueryContext(ctx, `
		SELECT c.post_id, c.id, c.text, c.created_at, u.id, u.username, u.name, u.avatar_url
		FROM post_comments c JOIN users u ON u.id = c.user_id
		WHERE c.post_id IN `+in+` ORDER BY c.created_at`, ids...)
	if err != nil {
		return nil, err
	}
	defer commentRows.Close()
	for commentRows.Next() {
		var postID, createdAt string
		var c Comment
		err := commentRows.Scan(&postID, &c.ID, &c.Text, &createdAt,
			&c.Author.ID, &c.Author.Username, &c.Author.Name, &c.Author.AvatarURL)
		if err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		if p, ok := index[postID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	return posts, commentRows.Err()
}

// PostUpdate lists the fields an edit may set; nil means unchanged. Media is
// set only through the media orchestrator's commit.
type PostUpdate struct {
	Content   *string
	Media     *media.BlobRef
	MediaType *string
}

// UpdatePost applies an owner-only edit atomically and returns the updated
// document plus the media ref it carried before, when media was replaced.
func (s *Store) UpdatePost(ctx context.Context, id, ownerID string, upd PostUpdate) (*Post, media.BlobRef, error) {
	var old media.BlobRef

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, old, err
	}
	defer tx.Rollback()

	var currentOwner string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, media_url, media_key FROM posts WHERE id = ?`, id).
		Scan(&currentOwner, &old.URL, &old.StorageKey)
	if err == sql.ErrNoRows {
		return nil, media.BlobRef{}, fmt.Errorf("%w: post", mates.ErrNotFound)
	}
	if err != nil {
		return nil, media.BlobRef{}, err
	}
	if currentOwner != ownerID {
		return nil, media.BlobRef{}, fmt.Errorf("%w: not the post owner", mates.ErrForbidden)
	}

	set := "updated_at = ?"
	args := []any{formatTime(time.Now())}
	if upd.Content != nil {
		set += ", content = ?"
		args = append(args, *upd.Content)
	}
	if upd.Media != nil {
		set += ", media_url = ?, media_key = ?"
		args = append(args, upd.Media.URL, upd.Media.StorageKey)
	}
	if upd.MediaType != nil {
		set += ", media_type = ?"
		args = append(args, *upd.MediaType)
	}
	args = append(args, id)

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET `+set+` WHERE id = ?`, args...); err != nil {
		return nil, media.BlobRef{}, err
	}
	if err := tx.Commit(); err != nil {
		return nil, media.BlobRef{}, err
	}

	if upd.Media == nil {
		old = media.BlobRef{}
	}
	p, err := s.PostByID(ctx, id)
	return p, old, err
}

// DeletePost removes the document record and returns the media ref it
// carried, so the caller can clean up the now-unreachable blob afterwards.
func (s *Store) DeletePost(ctx context.Context, id, ownerID string) (media.BlobRef, error) {
	var old media.BlobRef

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return old, err
	}
	defer tx.Rollback()

	var currentOwner string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, media_url, media_key FROM posts WHERE id = ?`, id).
		Scan(&currentOwner, &old.URL, &old.StorageKey)
	if err == sql.ErrNoRows {
		return media.BlobRef{}, fmt.Errorf("%w: post", mates.ErrNotFound)
	}
	if err != nil {
		return media.BlobRef{}, err
	}
	if currentOwner != ownerID {
		return media.BlobRef{}, fmt.Errorf("%w: not the post owner", mates.ErrForbidden)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return media.BlobRef{}, err
	}
	return old, tx.Commit()
}

// ToggleLike flips a like as an idempotent set operation, same shape as
// ToggleFollow, and returns the refreshed post.
func (s *Store) ToggleLike(ctx context.Context, postID, userID string) (*Post, error) {
	if _, err := s.PostByID(ctx, postID); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO post_likes (post_id, user_id) VALUES (?, ?)`,
		postID, userID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
		if err != nil {
			return nil, err
		}
	}
	return s.PostByID(ctx, postID)
}

func (s *Store) AddComment(ctx context.Context, postID, authorID, text string) (*Post, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: comment text is required", mates.ErrValidationFailed)
	}
	if _, err := s.PostByID(ctx, postID); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_comments (id, post_id, user_id, text, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), postID, authorID, text, formatTime(time.Now()))
	if err != nil {
		return nil, err
	}
	return s.PostByID(ctx, postID)
}
