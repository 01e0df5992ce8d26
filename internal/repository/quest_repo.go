package repository

import (
	"context"
	"fmt"
	"time"

	"photoquest/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const questColumns = `q.id, q.title, q.description, q.entry_fee, q.reward_1, q.reward_2, q.reward_3,
	q.total_pool, q.status, q.start_date, q.end_date, q.created_at, q.updated_at`

type QuestRepository struct {
	db *pgxpool.Pool
}

func NewQuestRepository(db *pgxpool.Pool) *QuestRepository {
	return &QuestRepository{db: db}
}

// Create inserts a normalized quest.
func (r *QuestRepository) Create(ctx context.Context, n domain.NewQuest) (*domain.Quest, error) {
	q, err := scanQuest(r.db.QueryRow(ctx,
		`INSERT INTO quests AS q (title, description, entry_fee, reward_1, reward_2, reward_3, status, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+questColumns,
		n.Title, n.Description, n.EntryFee, *n.Reward1, *n.Reward2, *n.Reward3, n.Status, n.StartDate, n.EndDate,
	))
	if err != nil {
		return nil, fmt.Errorf("create quest: %w", err)
	}
	return q, nil
}

// GetByID retrieves a quest by id
func (r *QuestRepository) GetByID(ctx context.Context, id int64) (*domain.Quest, error) {
	return r.get(ctx, r.db, `SELECT `+questColumns+` FROM quests q WHERE q.id = $1`, id)
}

// GetForJoinWithTx locks the quest row against concurrent edits and other
// joins until tx ends. Joins of one quest run one at a time, so the pool
// update never deadlocks.
func (r *QuestRepository) GetForJoinWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Quest, error) {
	return r.get(ctx, tx, `SELECT `+questColumns+` FROM quests q WHERE q.id = $1 FOR NO KEY UPDATE`, id)
}

func (r *QuestRepository) get(ctx context.Context, qr Querier, sql string, id int64) (*domain.Quest, error) {
	q, err := scanQuest(qr.QueryRow(ctx, sql, id))
	if isNoRows(err) {
		return nil, domain.NotFound("quest %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get quest %d: %w", id, err)
	}
	return q, nil
}

// List returns every quest, newest first.
func (r *QuestRepository) List(ctx context.Context) ([]*domain.Quest, error) {
	return r.list(ctx, `SELECT `+questColumns+` FROM quests q ORDER BY q.created_at DESC, q.id DESC`)
}

// ListActive returns open quests, latest start first.
func (r *QuestRepository) ListActive(ctx context.Context) ([]*domain.Quest, error) {
	return r.list(ctx, `SELECT `+questColumns+` FROM quests q
		WHERE q.status = 'open'
		ORDER BY q.start_date DESC NULLS LAST, q.id DESC`)
}

func (r *QuestRepository) list(ctx context.Context, sql string, args ...any) ([]*domain.Quest, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*domain.Quest{}
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

// ListJoined returns the quests a user participates in, latest join first.
func (r *QuestRepository) ListJoined(ctx context.Context, userID int64) ([]*domain.JoinedQuest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+questColumns+`, qp.joined_at
		 FROM quest_participants qp
		 JOIN quests q ON q.id = qp.quest_id
		 WHERE qp.user_id = $1
		 ORDER BY qp.joined_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*domain.JoinedQuest{}
	for rows.Next() {
		var jq domain.JoinedQuest
		dest := append(questDest(&jq.Quest), &jq.JoinedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		res = append(res, &jq)
	}
	return res, rows.Err()
}

// Update writes only the fields set in u.
func (r *QuestRepository) Update(ctx context.Context, id int64, u domain.QuestUpdate) (*domain.Quest, error) {
	var set updateSet
	if u.Title != nil {
		set.add("title", *u.Title)
	}
	if u.Description != nil {
		set.add("description", *u.Description)
	}
	if u.EntryFee != nil {
		set.add("entry_fee", *u.EntryFee)
	}
	if u.Reward1 != nil {
		set.add("reward_1", *u.Reward1)
	}
	if u.Reward2 != nil {
		set.add("reward_2", *u.Reward2)
	}
	if u.Reward3 != nil {
		set.add("reward_3", *u.Reward3)
	}
	if u.Status != nil {
		set.add("status", *u.Status)
	}
	if u.StartDate != nil {
		set.add("start_date", *u.StartDate)
	}
	if u.EndDate != nil {
		set.add("end_date", *u.EndDate)
	}
	if set.empty() {
		return r.GetByID(ctx, id)
	}

	sql, args := set.sql("quests AS q", id)
	q, err := scanQuest(r.db.QueryRow(ctx, sql+` RETURNING `+questColumns, args...))
	if isNoRows(err) {
		return nil, domain.NotFound("quest %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("update quest %d: %w", id, err)
	}
	return q, nil
}

// SetStatus changes only the status.
func (r *QuestRepository) SetStatus(ctx context.Context, id int64, status domain.QuestStatus) (*domain.Quest, error) {
	return r.Update(ctx, id, domain.QuestUpdate{Status: &status})
}

// Delete removes the quest; participants cascade.
func (r *QuestRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quest %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("quest %d not found", id)
	}
	return nil
}

// AddParticipantWithTx inserts the membership row. joined is false when the
// user was already a member; in that case nothing was written.
func (r *QuestRepository) AddParticipantWithTx(ctx context.Context, tx pgx.Tx, questID, userID int64) (joined bool, joinedAt time.Time, err error) {
	err = tx.QueryRow(ctx,
		`INSERT INTO quest_participants (quest_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (quest_id, user_id) DO NOTHING
		 RETURNING joined_at`,
		questID, userID,
	).Scan(&joinedAt)
	if isNoRows(err) {
		return false, time.Time{}, nil
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("add participant %d to quest %d: %w", userID, questID, err)
	}
	return true, joinedAt, nil
}

// AddToPoolWithTx grows the quest's prize pool.
func (r *QuestRepository) AddToPoolWithTx(ctx context.Context, tx pgx.Tx, questID, coins int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE quests SET total_pool = total_pool + $1, updated_at = now() WHERE id = $2`,
		coins, questID)
	return err
}

// IsParticipant reports whether the user has joined the quest.
func (r *QuestRepository) IsParticipant(ctx context.Context, questID, userID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM quest_participants WHERE quest_id = $1 AND user_id = $2)`,
		questID, userID,
	).Scan(&ok)
	return ok, err
}

func questDest(q *domain.Quest) []any {
	return []any{&q.ID, &q.Title, &q.Description, &q.EntryFee, &q.Reward1, &q.Reward2, &q.Reward3,
		&q.TotalPool, &q.Status, &q.StartDate, &q.EndDate, &q.CreatedAt, &q.UpdatedAt}
}

func scanQuest(row pgx.Row) (*domain.Quest, error) {
	var q domain.Quest
	if err := row.Scan(questDest(&q)...); err != nil {
		return nil, err
	}
	return &q, nil
}
