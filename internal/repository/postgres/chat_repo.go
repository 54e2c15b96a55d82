// internal/repository/postgres/chat_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"rayslaund-service/internal/domain/chat"
	"rayslaund-service/internal/events"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository persists per-customer support threads. A thread row holds
// the control state (ownership + ownership_rev); messages carry the
// denormalized is_human_owned flag, rewritten across the whole history on
// every ownership toggle so readers never have to join against a transition
// log.
type ChatRepository struct {
	db  *pgxpool.Pool
	bus *events.Bus
}

func NewChatRepository(db *pgxpool.Pool, bus *events.Bus) *ChatRepository {
	return &ChatRepository{db: db, bus: bus}
}

const messageColumns = `
	id, sender_id, sender_name, sender_role, text,
	is_automated, needs_attention, is_human_owned, created_at
`

// GetThread loads a customer's thread. A customer without a thread row gets
// an empty assistant-owned thread; the row itself is created lazily on the
// first append.
func (r *ChatRepository) GetThread(ctx context.Context, customerID string) (*chat.Thread, error) {
	t := &chat.Thread{
		CustomerID: customerID,
		Ownership:  chat.OwnedByAssistant,
	}

	err := r.db.QueryRow(ctx,
		`SELECT ownership, ownership_rev FROM chat_threads WHERE customer_id = $1`,
		customerID,
	).Scan(&t.Ownership, &t.OwnershipRev)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+messageColumns+` FROM chat_messages WHERE customer_id = $1 ORDER BY created_at ASC, id ASC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(
			&m.ID, &m.SenderID, &m.SenderName, &m.SenderRole, &m.Text,
			&m.IsAutomated, &m.NeedsAttention, &m.IsHumanOwned, &m.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		t.Messages = append(t.Messages, m)
	}

	return t, rows.Err()
}

// AppendMessage appends a customer or system message to the thread. The
// message picks up the thread's current ownership flag at write time.
func (r *ChatRepository) AppendMessage(ctx context.Context, customerID string, m *chat.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ownership, _, err := ensureThread(ctx, tx, customerID)
	if err != nil {
		return err
	}
	m.IsHumanOwned = ownership == chat.OwnedByHuman

	if err := insertMessage(ctx, tx, customerID, m); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.bus.Publish(events.CollectionChats)
	return nil
}

// AppendAutomatedReply appends an assistant reply, gated on the ownership
// revision observed when the generation started. If a takeover intervened
// (revision moved, or the thread is human-owned) the reply is dropped and
// (false, nil) is returned. A reply flagged needs-attention escalates the
// thread in the same transaction.
func (r *ChatRepository) AppendAutomatedReply(ctx context.Context, customerID string, m *chat.Message, expectedRev int64) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ownership, rev, err := ensureThread(ctx, tx, customerID)
	if err != nil {
		return false, err
	}
	if rev != expectedRev || ownership == chat.OwnedByHuman {
		return false, nil
	}

	m.IsHumanOwned = false
	if err := insertMessage(ctx, tx, customerID, m); err != nil {
		return false, err
	}

	if m.NeedsAttention {
		if err := setOwnership(ctx, tx, customerID, chat.OwnedByHuman); err != nil {
			return false, err
		}
		m.IsHumanOwned = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}

	r.bus.Publish(events.CollectionChats)
	return true, nil
}

// AppendOperatorMessage appends a staff/admin reply. If the thread is not
// yet human-owned the takeover happens atomically with the append, covering
// the whole history.
func (r *ChatRepository) AppendOperatorMessage(ctx context.Context, customerID string, m *chat.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ownership, _, err := ensureThread(ctx, tx, customerID)
	if err != nil {
		return err
	}
	if ownership != chat.OwnedByHuman {
		if err := setOwnership(ctx, tx, customerID, chat.OwnedByHuman); err != nil {
			return err
		}
	}

	m.IsHumanOwned = true
	if err := insertMessage(ctx, tx, customerID, m); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.bus.Publish(events.CollectionChats)
	return nil
}

// SetOwnership toggles the thread control state, rewriting the flag across
// the entire stored history. No-op when the thread is already in the target
// state.
func (r *ChatRepository) SetOwnership(ctx context.Context, customerID string, ownership chat.Ownership) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	current, _, err := ensureThread(ctx, tx, customerID)
	if err != nil {
		return err
	}
	if current == ownership {
		return nil
	}

	if err := setOwnership(ctx, tx, customerID, ownership); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.bus.Publish(events.CollectionChats)
	return nil
}

// ListThreadSummaries returns one row per thread: ownership, customer name
// and the most recent message, for the operator thread lists.
func (r *ChatRepository) ListThreadSummaries(ctx context.Context) ([]chat.AttentionItem, error) {
	query := `
		SELECT t.customer_id, COALESCE(u.full_name, ''), t.ownership, t.updated_at,
		       m.id, m.sender_id, m.sender_name, m.sender_role, m.text,
		       m.is_automated, m.needs_attention, m.is_human_owned, m.created_at
		FROM chat_threads t
		LEFT JOIN users u ON u.id = t.customer_id
		LEFT JOIN LATERAL (
			SELECT * FROM chat_messages
			WHERE customer_id = t.customer_id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON true
		ORDER BY t.updated_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var items []chat.AttentionItem
	for rows.Next() {
		var it chat.AttentionItem
		var m chat.Message
		var msgID *string
		if err := rows.Scan(
			&it.CustomerID, &it.CustomerName, &it.Ownership, &it.UpdatedAt,
			&msgID, &m.SenderID, &m.SenderName, &m.SenderRole, &m.Text,
			&m.IsAutomated, &m.NeedsAttention, &m.IsHumanOwned, &m.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan thread summary: %w", err)
		}
		if msgID != nil {
			m.ID = *msgID
			it.LastMessage = &m
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// --- tx helpers ---

// ensureThread creates the thread row on first touch and returns its
// current control state, locked for the duration of the transaction.
func ensureThread(ctx context.Context, tx pgx.Tx, customerID string) (chat.Ownership, int64, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO chat_threads (customer_id, ownership, ownership_rev)
		VALUES ($1, $2, 0)
		ON CONFLICT (customer_id) DO NOTHING
	`, customerID, chat.OwnedByAssistant)
	if err != nil {
		return "", 0, fmt.Errorf("failed to ensure thread: %w", err)
	}

	var ownership chat.Ownership
	var rev int64
	err = tx.QueryRow(ctx,
		`SELECT ownership, ownership_rev FROM chat_threads WHERE customer_id = $1 FOR UPDATE`,
		customerID,
	).Scan(&ownership, &rev)
	if err != nil {
		return "", 0, fmt.Errorf("failed to lock thread: %w", err)
	}

	return ownership, rev, nil
}

func insertMessage(ctx context.Context, tx pgx.Tx, customerID string, m *chat.Message) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO chat_messages (
			id, customer_id, sender_id, sender_name, sender_role, text,
			is_automated, needs_attention, is_human_owned
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`,
		m.ID, customerID, m.SenderID, m.SenderName, m.SenderRole, m.Text,
		m.IsAutomated, m.NeedsAttention, m.IsHumanOwned,
	).Scan(&m.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE chat_threads SET updated_at = NOW() WHERE customer_id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("failed to touch thread: %w", err)
	}

	return nil
}

// setOwnership flips the control state, bumps the revision and rewrites the
// denormalized flag on every stored message. Release additionally clears
// needs-attention across the history so the assistant resumes on the next
// customer message.
func setOwnership(ctx context.Context, tx pgx.Tx, customerID string, ownership chat.Ownership) error {
	_, err := tx.Exec(ctx, `
		UPDATE chat_threads
		SET ownership = $2, ownership_rev = ownership_rev + 1, updated_at = NOW()
		WHERE customer_id = $1
	`, customerID, ownership)
	if err != nil {
		return fmt.Errorf("failed to update thread ownership: %w", err)
	}

	if ownership == chat.OwnedByHuman {
		_, err = tx.Exec(ctx,
			`UPDATE chat_messages SET is_human_owned = true WHERE customer_id = $1`,
			customerID,
		)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE chat_messages SET is_human_owned = false, needs_attention = false WHERE customer_id = $1`,
			customerID,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to rewrite message flags: %w", err)
	}

	return nil
}
