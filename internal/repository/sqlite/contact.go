package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.ContactRepository = (*DB)(nil)

func (db *DB) CreateContactMessage(ctx context.Context, m *model.ContactMessage) error {
	m.ID = xid.New().String()
	m.CreatedAt = now()
	m.UpdatedAt = m.CreatedAt
	if m.Status == "" {
		m.Status = model.ContactStatusNew
	}

	_, err := db.q.ExecContext(ctx,
		`INSERT INTO contact_messages (id, name, email, subject, message, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Subject, m.Message, m.Status, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating contact message: %w", err)
	}
	return nil
}

// ListContactMessages returns messages newest first.
func (db *DB) ListContactMessages(ctx context.Context) ([]model.ContactMessage, error) {
	rows, err := db.q.QueryContext(ctx,
		`SELECT id, name, email, subject, message, status, created_at, updated_at
		 FROM contact_messages
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing contact messages: %w", err)
	}
	defer rows.Close()

	messages := []model.ContactMessage{}
	for rows.Next() {
		var m model.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message,
			&m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning contact message row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating contact messages: %w", err)
	}
	return messages, nil
}
