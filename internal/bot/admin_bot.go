package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"photoquest/internal/domain"
	"photoquest/internal/events"
	"photoquest/internal/logger"
	"photoquest/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the Telegram API the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Approvals interface {
	Approve(ctx context.Context, transactionID, adminID int64) (*service.ApprovalResult, error)
	Reject(ctx context.Context, transactionID, adminID int64) (*domain.Transaction, error)
}

type PendingTopups interface {
	ListPending(ctx context.Context) ([]*domain.PendingTopup, error)
}

type DashboardSource interface {
	GetDashboard(ctx context.Context) (*service.Dashboard, error)
}

// AdminBot notifies admin chats about new top-ups and accepts
// /pending, /approve, /reject and /stats commands from them.
type AdminBot struct {
	api       *tgbotapi.BotAPI
	sender    Sender
	chatIDs   []int64
	actorID   int64 // admin user recorded as approver for bot decisions
	approvals Approvals
	pending   PendingTopups
	stats     DashboardSource
	stopCh    chan struct{}
	wg        sync.WaitGroup
	log       *slog.Logger
}

// NewAdminBot creates a new admin bot
func NewAdminBot(token string, chatIDs []int64, actorID int64, approvals Approvals, pending PendingTopups, stats DashboardSource) (*AdminBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newAdminBot(api, chatIDs, actorID, approvals, pending, stats)
	b.api = api
	b.log.Info("admin bot authorized", "username", api.Self.UserName)
	return b, nil
}

func newAdminBot(sender Sender, chatIDs []int64, actorID int64, approvals Approvals, pending PendingTopups, stats DashboardSource) *AdminBot {
	return &AdminBot{
		sender:    sender,
		chatIDs:   chatIDs,
		actorID:   actorID,
		approvals: approvals,
		pending:   pending,
		stats:     stats,
		stopCh:    make(chan struct{}),
		log:       logger.With("component", "admin_bot"),
	}
}

// Start listens for commands until Stop is called.
func (b *AdminBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || !msg.IsCommand() || !b.isAdminChat(msg.Chat.ID) {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				b.reply(msg, b.handleCommand(ctx, msg.Command(), msg.CommandArguments()))
			}(msg)
		}
	}
}

// Stop gracefully stops the bot
func (b *AdminBot) Stop() {
	close(b.stopCh)
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AdminBot) isAdminChat(chatID int64) bool {
	return slices.Contains(b.chatIDs, chatID)
}

// Publish implements events.Publisher; only new submissions are announced.
func (b *AdminBot) Publish(_ context.Context, e events.Event) error {
	if e.Type != events.TopupSubmitted {
		return nil
	}
	text := fmt.Sprintf("<b>New top-up #%d</b>\nUser: %d\nCoins: %d\nPaid: %s\nSlip: %s\n\n/approve %d  /reject %d",
		e.TransactionID, e.UserID, e.Coins, e.Money.StringFixed(2), html.EscapeString(e.SlipURL),
		e.TransactionID, e.TransactionID)

	var firstErr error
	for _, chatID := range b.chatIDs {
		m := tgbotapi.NewMessage(chatID, text)
		m.ParseMode = tgbotapi.ModeHTML
		if _, err := b.sender.Send(m); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("notify chat %d: %w", chatID, err)
		}
	}
	return firstErr
}

func (b *AdminBot) handleCommand(ctx context.Context, cmd, args string) string {
	switch cmd {
	case "start", "help":
		return helpMessage
	case "stats":
		return b.handleStats(ctx)
	case "pending":
		return b.handlePending(ctx)
	case "approve":
		return b.handleDecision(ctx, args, true)
	case "reject":
		return b.handleDecision(ctx, args, false)
	default:
		return "Unknown command. Use /help."
	}
}

const helpMessage = `<b>PhotoQuest admin</b>

/stats - wallet and queue figures
/pending - pending top-ups
/approve &lt;id&gt; - approve a top-up
/reject &lt;id&gt; - reject a top-up`

func (b *AdminBot) handleStats(ctx context.Context) string {
	d, err := b.stats.GetDashboard(ctx)
	if err != nil {
		b.log.Error("stats failed", "error", err)
		return "Failed to load stats."
	}
	return fmt.Sprintf("<b>Wallet</b>\nCoins issued: %d\nRevenue: %s\n\nPending top-ups: %d\nApproved today: %d\nUsers: %d\nOpen quests: %d",
		d.Wallet.TotalCoins, d.Wallet.TotalRevenue.StringFixed(2),
		d.PendingTopups, d.ApprovedToday, d.TotalUsers, d.OpenQuests)
}

func (b *AdminBot) handlePending(ctx context.Context) string {
	list, err := b.pending.ListPending(ctx)
	if err != nil {
		b.log.Error("list pending failed", "error", err)
		return "Failed to load pending top-ups."
	}
	if len(list) == 0 {
		return "No pending top-ups."
	}

	var sb strings.Builder
	sb.WriteString("<b>Pending top-ups</b>\n")
	for i, p := range list {
		if i == 20 {
			fmt.Fprintf(&sb, "... and %d more", len(list)-i)
			break
		}
		fmt.Fprintf(&sb, "#%d %s: %s, %d coins, %s\n",
			p.ID, html.EscapeString(p.DisplayName), html.EscapeString(p.PackageName), p.Amount, p.Money.StringFixed(2))
	}
	return sb.String()
}

func (b *AdminBot) handleDecision(ctx context.Context, args string, approve bool) string {
	if b.actorID == 0 {
		return "Decisions from Telegram are disabled (no admin account configured)."
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || id <= 0 {
		return "Usage: /approve &lt;id&gt; or /reject &lt;id&gt;"
	}

	if approve {
		res, err := b.approvals.Approve(ctx, id, b.actorID)
		if err != nil {
			return "Not approved: " + html.EscapeString(err.Error())
		}
		return fmt.Sprintf("Approved #%d: %d coins credited to user %d.", id, res.Transaction.Amount, res.Transaction.UserID)
	}

	t, err := b.approvals.Reject(ctx, id, b.actorID)
	if err != nil {
		return "Not rejected: " + html.EscapeString(err.Error())
	}
	return fmt.Sprintf("Rejected #%d for user %d.", id, t.UserID)
}

func (b *AdminBot) reply(msg *tgbotapi.Message, text string) {
	m := tgbotapi.NewMessage(msg.Chat.ID, text)
	m.ParseMode = tgbotapi.ModeHTML
	m.ReplyToMessageID = msg.MessageID
	if _, err := b.sender.Send(m); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}
