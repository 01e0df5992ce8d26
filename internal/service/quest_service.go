package service

import (
	"context"
	"time"

	"photoquest/internal/db"
	"photoquest/internal/domain"
	"photoquest/internal/events"
	"photoquest/internal/logger"
	"photoquest/internal/metrics"
	"photoquest/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QuestService struct {
	db     *pgxpool.Pool
	quests *repository.QuestRepository
	ledger *LedgerService
	audit  *AuditService
	events events.Publisher
}

func NewQuestService(db *pgxpool.Pool, quests *repository.QuestRepository, ledger *LedgerService, audit *AuditService, publisher events.Publisher) *QuestService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &QuestService{db: db, quests: quests, ledger: ledger, audit: audit, events: publisher}
}

// JoinResult reports the outcome of a join. AlreadyJoined means the call
// was a no-op and nothing was charged.
type JoinResult struct {
	QuestID       int64     `json:"quest_id"`
	AlreadyJoined bool      `json:"already_joined"`
	Charged       int64     `json:"charged"`
	Balance       int64     `json:"balance"`
	JoinedAt      time.Time `json:"joined_at,omitempty"`
}

// Join makes the user a participant and charges the entry fee exactly once.
// Membership and debit commit together or not at all.
func (s *QuestService) Join(ctx context.Context, questID, userID int64) (*JoinResult, error) {
	res := &JoinResult{QuestID: questID}

	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		*res = JoinResult{QuestID: questID}

		q, err := s.quests.GetForJoinWithTx(ctx, tx, questID)
		if err != nil {
			return err
		}
		if !q.IsOpen() {
			return domain.InvalidState("quest %d is %s", questID, q.Status)
		}

		joined, joinedAt, err := s.quests.AddParticipantWithTx(ctx, tx, questID, userID)
		if err != nil {
			return err
		}
		if !joined {
			res.AlreadyJoined = true
			return nil
		}
		res.JoinedAt = joinedAt

		if q.EntryFee > 0 {
			if res.Balance, err = s.ledger.DebitUserWithTx(ctx, tx, userID, q.EntryFee); err != nil {
				return err
			}
			res.Charged = q.EntryFee
			if err := s.quests.AddToPoolWithTx(ctx, tx, questID, q.EntryFee); err != nil {
				return err
			}
		}

		return s.audit.LogWithTx(ctx, tx, userID, domain.AuditActionQuestJoin, domain.AuditCategoryQuest, map[string]interface{}{
			"quest_id":  questID,
			"entry_fee": q.EntryFee,
		})
	})
	if err != nil {
		metrics.QuestJoins.WithLabelValues(string(domain.KindOf(err))).Inc()
		return nil, err
	}

	if res.AlreadyJoined {
		metrics.QuestJoins.WithLabelValues("already_joined").Inc()
		if res.Balance, err = s.ledger.GetUserBalance(ctx, userID); err != nil {
			return nil, err
		}
		return res, nil
	}

	if res.Charged == 0 {
		if res.Balance, err = s.ledger.GetUserBalance(ctx, userID); err != nil {
			return nil, err
		}
	}

	metrics.QuestJoins.WithLabelValues("ok").Inc()
	logger.WithContext(ctx).Info("quest joined", "quest_id", questID, "user_id", userID, "charged", res.Charged)

	e := events.New(events.QuestJoined)
	e.QuestID, e.UserID, e.Coins = questID, userID, res.Charged
	events.PublishCommitted(ctx, s.events, e)

	return res, nil
}

func (s *QuestService) Create(ctx context.Context, adminID int64, n domain.NewQuest) (*domain.Quest, error) {
	if err := n.Normalize(); err != nil {
		return nil, err
	}
	q, err := s.quests.Create(ctx, n)
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, adminID, domain.AuditActionQuestCreate, domain.AuditCategoryQuest, map[string]interface{}{"quest_id": q.ID})
	return q, nil
}

// Update applies a partial update. Dates are checked against the stored
// values when only one side changes.
func (s *QuestService) Update(ctx context.Context, adminID, id int64, u domain.QuestUpdate) (*domain.Quest, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if u.StartDate != nil || u.EndDate != nil {
		cur, err := s.quests.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		start, end := cur.StartDate, cur.EndDate
		if u.StartDate != nil {
			start = u.StartDate
		}
		if u.EndDate != nil {
			end = u.EndDate
		}
		if start != nil && end != nil && end.Before(*start) {
			return nil, domain.Validation("end_date must not be before start_date")
		}
	}

	q, err := s.quests.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, adminID, domain.AuditActionQuestUpdate, domain.AuditCategoryQuest, map[string]interface{}{"quest_id": id})
	return q, nil
}

func (s *QuestService) SetStatus(ctx context.Context, adminID, id int64, status domain.QuestStatus) (*domain.Quest, error) {
	return s.Update(ctx, adminID, id, domain.QuestUpdate{Status: &status})
}

func (s *QuestService) Delete(ctx context.Context, adminID, id int64) error {
	if err := s.quests.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Log(ctx, adminID, domain.AuditActionQuestDelete, domain.AuditCategoryQuest, map[string]interface{}{"quest_id": id})
	return nil
}

func (s *QuestService) Get(ctx context.Context, id int64) (*domain.Quest, error) {
	return s.quests.GetByID(ctx, id)
}

func (s *QuestService) List(ctx context.Context) ([]*domain.Quest, error) {
	return s.quests.List(ctx)
}

func (s *QuestService) ListActive(ctx context.Context) ([]*domain.Quest, error) {
	return s.quests.ListActive(ctx)
}

func (s *QuestService) ListJoined(ctx context.Context, userID int64) ([]*domain.JoinedQuest, error) {
	return s.quests.ListJoined(ctx, userID)
}

func (s *QuestService) IsParticipant(ctx context.Context, questID, userID int64) (bool, error) {
	return s.quests.IsParticipant(ctx, questID, userID)
}
