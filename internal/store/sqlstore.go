package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// sqlStore implements Store on top of database/sql. Both backends share
// this code; only the driver, schema DDL, and placeholder style differ.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
}

func (s *sqlStore) q(query string) string {
	return s.dialect.rebind(query)
}

// DB exposes the underlying handle for schema setup and tests.
func (s *sqlStore) DB() *sql.DB {
	return s.db
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) CreateConversation(ctx context.Context, conv NewConversation) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	metadata, err := encodeMetadata(conv.Metadata)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO conversations (id, title, created_at, updated_at, user_id, model, system_prompt, first_user_message, first_assistant_message, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?)`),
		id, conv.Title, now, now, conv.UserID, conv.Model, conv.SystemPrompt, metadata,
	)
	if err != nil {
		return "", fmt.Errorf("insert conversation: %w", err)
	}
	return id, nil
}

func (s *sqlStore) AppendMessage(ctx context.Context, conversationID string, msg NewMessage) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	metadata, err := encodeMetadata(msg.Metadata)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback()

	// Touching updated_at first doubles as the existence check and, on
	// Postgres, takes the row lock that serializes concurrent appends
	// against the same conversation.
	res, err := tx.ExecContext(ctx,
		s.q(`UPDATE conversations SET updated_at = ? WHERE id = ?`),
		now, conversationID,
	)
	if err != nil {
		return "", fmt.Errorf("touch conversation %s: %w", conversationID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("touch conversation %s: %w", conversationID, err)
	}
	if affected == 0 {
		return "", ErrNotFound
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO messages (id, conversation_id, role, content, created_at, tokens, model, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		id, conversationID, msg.Role, msg.Content, now, msg.Tokens, msg.Model, metadata,
	)
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}

	// First message of a role sets the preview column exactly once. The
	// IS NULL guard keeps the check-then-set inside this transaction.
	switch msg.Role {
	case "user":
		_, err = tx.ExecContext(ctx,
			s.q(`UPDATE conversations SET first_user_message = ? WHERE id = ? AND first_user_message IS NULL`),
			preview(msg.Content), conversationID,
		)
	case "assistant":
		_, err = tx.ExecContext(ctx,
			s.q(`UPDATE conversations SET first_assistant_message = ? WHERE id = ? AND first_assistant_message IS NULL`),
			preview(msg.Content), conversationID,
		)
	}
	if err != nil {
		return "", fmt.Errorf("update preview column: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit append: %w", err)
	}
	return id, nil
}

func (s *sqlStore) GetConversation(ctx context.Context, conversationID string, includeMessages bool) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT c.id, c.title, c.created_at, c.updated_at, c.user_id, c.model, c.system_prompt,
		       c.first_user_message, c.first_assistant_message, c.metadata,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c WHERE c.id = ?`),
		conversationID,
	)

	conv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation %s: %w", conversationID, err)
	}

	if includeMessages {
		messages, err := s.listMessages(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		conv.Messages = messages
	}
	return conv, nil
}

func (s *sqlStore) listMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, conversation_id, role, content, created_at, tokens, model, metadata
		FROM messages WHERE conversation_id = ?
		ORDER BY created_at, id`),
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("select messages for %s: %w", conversationID, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			m        Message
			tokens   sql.NullInt64
			model    sql.NullString
			metadata sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt, &tokens, &model, &metadata); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if tokens.Valid {
			n := int(tokens.Int64)
			m.Tokens = &n
		}
		if model.Valid {
			v := model.String
			m.Model = &v
		}
		if metadata.Valid {
			meta, err := decodeMetadata(&metadata.String)
			if err != nil {
				return nil, err
			}
			m.Metadata = meta
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func (s *sqlStore) ListConversations(ctx context.Context, userID *string, limit, offset int) ([]Conversation, error) {
	query := `
		SELECT c.id, c.title, c.created_at, c.updated_at, c.user_id, c.model, c.system_prompt,
		       c.first_user_message, c.first_assistant_message, c.metadata,
		       COUNT(m.id)
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id`
	args := []any{}
	if userID != nil {
		query += ` WHERE c.user_id = ?`
		args = append(args, *userID)
	}
	query += `
		GROUP BY c.id, c.title, c.created_at, c.updated_at, c.user_id, c.model, c.system_prompt,
		         c.first_user_message, c.first_assistant_message, c.metadata
		ORDER BY c.updated_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, *conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return conversations, nil
}

func (s *sqlStore) DeleteConversation(ctx context.Context, conversationID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM messages WHERE conversation_id = ?`), conversationID); err != nil {
		return false, fmt.Errorf("delete messages for %s: %w", conversationID, err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM conversations WHERE id = ?`), conversationID)
	if err != nil {
		return false, fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete conversation %s: %w", conversationID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return affected > 0, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*Conversation, error) {
	var (
		c                      Conversation
		userID, systemPrompt   sql.NullString
		firstUser, firstAssist sql.NullString
		metadata               sql.NullString
	)
	err := row.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt, &userID, &c.Model, &systemPrompt,
		&firstUser, &firstAssist, &metadata, &c.MessageCount)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		v := userID.String
		c.UserID = &v
	}
	if systemPrompt.Valid {
		v := systemPrompt.String
		c.SystemPrompt = &v
	}
	if firstUser.Valid {
		v := firstUser.String
		c.FirstUserMessage = &v
	}
	if firstAssist.Valid {
		v := firstAssist.String
		c.FirstAssistantMessage = &v
	}
	if metadata.Valid {
		meta, err := decodeMetadata(&metadata.String)
		if err != nil {
			return nil, err
		}
		c.Metadata = meta
	}
	return &c, nil
}
