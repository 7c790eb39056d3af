package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Source records where a bot answer drew from: a document chunk or a web
// search result, distinguished by Type.
type Source struct {
	Filename   string   `json:"filename"`
	Type       string   `json:"type"` // "document" or "web"
	ChunkIndex *int     `json:"chunk_index,omitempty"`
	Similarity *float64 `json:"similarity,omitempty"`
	URL        string   `json:"url,omitempty"`
	Snippet    string   `json:"snippet,omitempty"`
}

type Message struct {
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	Sources      []Source  `json:"sources,omitempty"`
	ContextParts []string  `json:"context_parts,omitempty"`
}

type Summary struct {
	ConversationID    string    `json:"conversation_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	SelectedDocuments []string  `json:"selected_documents"`
	Title             string    `json:"title"`
	Preview           string    `json:"preview"`
}

// Store persists conversations and their ordered message turns.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Save replaces the full message list for a conversation in one transaction
// (delete-then-insert), upserting the conversation row. created_at survives
// repeat saves; updated_at is refreshed every time.
func (s *Store) Save(ctx context.Context, id string, messages []Message, selectedDocuments []string) error {
	if selectedDocuments == nil {
		selectedDocuments = []string{}
	}
	docsJSON, err := json.Marshal(selectedDocuments)
	if err != nil {
		return fmt.Errorf("marshal selected documents: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (id, created_at, updated_at, selected_documents)
		 VALUES ($1, $2, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET updated_at = $2, selected_documents = $3`,
		id, now, docsJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM messages WHERE conversation_id = $1", id); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	for _, m := range messages {
		ts := m.Timestamp
		if ts.IsZero() {
			ts = now
		}
		sourcesJSON, err := marshalOrNil(m.Sources)
		if err != nil {
			return fmt.Errorf("marshal sources: %w", err)
		}
		partsJSON, err := marshalOrNil(m.ContextParts)
		if err != nil {
			return fmt.Errorf("marshal context parts: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO messages (conversation_id, role, content, timestamp, sources, context_parts)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			id, m.Role, m.Content, ts, sourcesJSON, partsJSON,
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// List returns all conversations newest-activity-first, each annotated with
// a derived title (first user message) and preview (most recent message).
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.created_at, c.updated_at, c.selected_documents,
		       (SELECT content FROM messages
		        WHERE conversation_id = c.id AND role = 'user'
		        ORDER BY timestamp ASC LIMIT 1),
		       (SELECT content FROM messages
		        WHERE conversation_id = c.id
		        ORDER BY timestamp DESC LIMIT 1)
		FROM conversations c
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			sum            Summary
			docsJSON       []byte
			title, preview *string
		)
		if err := rows.Scan(&sum.ConversationID, &sum.CreatedAt, &sum.UpdatedAt, &docsJSON, &title, &preview); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if err := json.Unmarshal(docsJSON, &sum.SelectedDocuments); err != nil {
			sum.SelectedDocuments = []string{}
		}

		if title != nil && strings.TrimSpace(*title) != "" {
			sum.Title = strings.TrimSpace(*title)
		} else {
			sum.Title = "Chat from " + sum.CreatedAt.Format(time.RFC3339)
		}
		if preview != nil && strings.TrimSpace(*preview) != "" {
			sum.Preview = strings.TrimSpace(*preview)
		} else {
			sum.Preview = "No messages yet"
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Get returns a conversation's messages in timestamp order. An unknown id
// yields an empty slice, matching a brand-new conversation.
func (s *Store) Get(ctx context.Context, id string) ([]Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT role, content, timestamp, sources, context_parts
		 FROM messages WHERE conversation_id = $1 ORDER BY timestamp ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			m                    Message
			sourcesJSON, partsJS []byte
		)
		if err := rows.Scan(&m.Role, &m.Content, &m.Timestamp, &sourcesJSON, &partsJS); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(sourcesJSON) > 0 {
			_ = json.Unmarshal(sourcesJSON, &m.Sources)
		}
		if len(partsJS) > 0 {
			_ = json.Unmarshal(partsJS, &m.ContextParts)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM messages WHERE conversation_id = $1", id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM conversations WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return tx.Commit(ctx)
}

func marshalOrNil(v any) ([]byte, error) {
	switch val := v.(type) {
	case []Source:
		if len(val) == 0 {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
