package repository

import (
	"context"
	"fmt"

	"photoquest/internal/db"
	"photoquest/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const photoViewColumns = `ph.id, ph.user_id, ph.quest_id, ph.title, ph.description, ph.file_url, ph.created_at,
	u.display_name, (SELECT COUNT(*) FROM likes l WHERE l.photo_id = ph.id)`

type PhotoRepository struct {
	db *pgxpool.Pool
}

func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func (r *PhotoRepository) Create(ctx context.Context, p *domain.Photo) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO photos (user_id, quest_id, title, description, file_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		p.UserID, p.QuestID, p.Title, p.Description, p.FileURL,
	).Scan(&p.ID, &p.CreatedAt)
	if db.PgCode(err) == db.CodeForeignKeyViolation {
		return domain.Validation("photo references a missing user or quest")
	}
	return err
}

// GetByID retrieves a photo with author and like count.
func (r *PhotoRepository) GetByID(ctx context.Context, id int64) (*domain.PhotoView, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+photoViewColumns+`
		 FROM photos ph JOIN users u ON u.id = ph.user_id
		 WHERE ph.id = $1`, id)
	p, err := scanPhotoView(row)
	if isNoRows(err) {
		return nil, domain.NotFound("photo %d not found", id)
	}
	return p, err
}

// List returns photos newest first, optionally limited to one quest.
func (r *PhotoRepository) List(ctx context.Context, questID *int64) ([]*domain.PhotoView, error) {
	return r.list(ctx,
		`SELECT `+photoViewColumns+`
		 FROM photos ph JOIN users u ON u.id = ph.user_id
		 WHERE $1::bigint IS NULL OR ph.quest_id = $1
		 ORDER BY ph.created_at DESC, ph.id DESC`, questID)
}

func (r *PhotoRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.PhotoView, error) {
	return r.list(ctx,
		`SELECT `+photoViewColumns+`
		 FROM photos ph JOIN users u ON u.id = ph.user_id
		 WHERE ph.user_id = $1
		 ORDER BY ph.created_at DESC, ph.id DESC`, userID)
}

func (r *PhotoRepository) list(ctx context.Context, sql string, args ...any) ([]*domain.PhotoView, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*domain.PhotoView{}
	for rows.Next() {
		p, err := scanPhotoView(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// Delete removes the photo; likes and comments cascade.
func (r *PhotoRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete photo %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("photo %d not found", id)
	}
	return nil
}

// ToggleLike removes the user's like if present, otherwise adds it.
func (r *PhotoRepository) ToggleLike(ctx context.Context, photoID, userID int64) (liked bool, count int64, err error) {
	err = db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM likes WHERE photo_id = $1 AND user_id = $2`, photoID, userID)
		if err != nil {
			return err
		}
		liked = tag.RowsAffected() == 0
		if liked {
			_, err = tx.Exec(ctx,
				`INSERT INTO likes (photo_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				photoID, userID)
			if db.PgCode(err) == db.CodeForeignKeyViolation {
				return domain.NotFound("photo %d not found", photoID)
			}
			if err != nil {
				return err
			}
		}
		return tx.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE photo_id = $1`, photoID).Scan(&count)
	})
	return liked, count, err
}

func (r *PhotoRepository) LikeCount(ctx context.Context, photoID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE photo_id = $1`, photoID).Scan(&n)
	return n, err
}

func (r *PhotoRepository) AddComment(ctx context.Context, c *domain.Comment) error {
	err := r.db.QueryRow(ctx,
		`WITH ins AS (
		     INSERT INTO comments (photo_id, user_id, comment)
		     VALUES ($1, $2, $3)
		     RETURNING id, user_id, created_at
		 )
		 SELECT ins.id, ins.created_at, u.display_name FROM ins JOIN users u ON u.id = ins.user_id`,
		c.PhotoID, c.UserID, c.Comment,
	).Scan(&c.ID, &c.CreatedAt, &c.DisplayName)
	if db.PgCode(err) == db.CodeForeignKeyViolation {
		return domain.NotFound("photo %d not found", c.PhotoID)
	}
	return err
}

// ListComments returns a photo's comments, oldest first.
func (r *PhotoRepository) ListComments(ctx context.Context, photoID int64) ([]*domain.Comment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.photo_id, c.user_id, u.display_name, c.comment, c.created_at
		 FROM comments c JOIN users u ON u.id = c.user_id
		 WHERE c.photo_id = $1
		 ORDER BY c.created_at, c.id`, photoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.PhotoID, &c.UserID, &c.DisplayName, &c.Comment, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &c)
	}
	return res, rows.Err()
}

func scanPhotoView(row pgx.Row) (*domain.PhotoView, error) {
	var p domain.PhotoView
	if err := row.Scan(&p.ID, &p.UserID, &p.QuestID, &p.Title, &p.Description, &p.FileURL, &p.CreatedAt,
		&p.DisplayName, &p.Likes); err != nil {
		return nil, err
	}
	return &p, nil
}
