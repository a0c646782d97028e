package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/zayedali554/udaylive-bot/crypto"
)

var (
	// encryptor encrypts session access tokens at rest when ENCRYPTION_KEY is set.
	encryptor     crypto.Encryptor
	encryptorOnce sync.Once
	encryptorErr  error
)

// initEncryptor initializes the token encryptor from the ENCRYPTION_KEY
// environment variable. If unset, tokens are stored in plaintext
// (encryption_version = 0). Called lazily on first use.
func initEncryptor() {
	encryptorOnce.Do(func() {
		key := os.Getenv("ENCRYPTION_KEY")
		if key == "" {
			slog.Warn("ENCRYPTION_KEY not set, session tokens will be stored in plaintext (not recommended for production)", slog.String("component", "session_encryption"))
			return
		}

		enc, err := crypto.NewAESEncryptor(key)
		if err != nil {
			encryptorErr = fmt.Errorf("failed to initialize encryption: %w", err)
			slog.Error("encryption initialization failed", slog.Any("error", encryptorErr), slog.String("component", "session_encryption"))
			return
		}

		encryptor = enc
		slog.Info("session token encryption enabled (AES-256-GCM)", slog.String("component", "session_encryption"))
	})
}

func getEncryptor() (crypto.Encryptor, error) {
	initEncryptor()
	if encryptorErr != nil {
		return nil, encryptorErr
	}
	return encryptor, nil
}

// PostgresStore keeps admin sessions in the admin_sessions table, surviving
// restarts and shared across instances. Access tokens are encrypted at rest
// when ENCRYPTION_KEY is configured.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewPostgresStore(db *sql.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl}
}

func (p *PostgresStore) Put(ctx context.Context, s Session) error {
	enc, err := getEncryptor()
	if err != nil {
		return fmt.Errorf("get encryptor: %w", err)
	}
	encVersion := 0
	tokenToStore := s.AccessToken
	if enc != nil && s.AccessToken != "" {
		encVersion = 1
		tokenToStore, err = crypto.EncryptString(enc, s.AccessToken)
		if err != nil {
			return fmt.Errorf("encrypt session token: %w", err)
		}
	}
	if s.LastActivity.IsZero() {
		s.LastActivity = time.Now()
	}
	q := `INSERT INTO admin_sessions(conversation_id, email, access_token, encryption_version, last_activity_at, created_at)
		  VALUES($1,$2,$3,$4,$5,NOW())
		  ON CONFLICT(conversation_id) DO UPDATE SET
		    email=EXCLUDED.email,
		    access_token=EXCLUDED.access_token,
		    encryption_version=EXCLUDED.encryption_version,
		    last_activity_at=EXCLUDED.last_activity_at`
	_, err = p.db.ExecContext(ctx, q, s.ConversationID, s.Email, tokenToStore, encVersion, s.LastActivity.UTC())
	return err
}

func (p *PostgresStore) Get(ctx context.Context, conversationID string) (*Session, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT email, access_token, COALESCE(encryption_version, 0), last_activity_at
		 FROM admin_sessions WHERE conversation_id=$1`, conversationID)
	var s Session
	var encVersion int
	if err := row.Scan(&s.Email, &s.AccessToken, &encVersion, &s.LastActivity); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.ConversationID = conversationID

	now := time.Now()
	if now.Sub(s.LastActivity) > p.ttl {
		// Expired reads behave like absent sessions; drop the row eagerly.
		if _, err := p.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE conversation_id=$1`, conversationID); err != nil {
			slog.Warn("failed to delete expired session", slog.Any("err", err))
		}
		return nil, nil
	}

	if encVersion == 1 {
		enc, err := getEncryptor()
		if err != nil {
			return nil, fmt.Errorf("get encryptor for decryption: %w", err)
		}
		if enc == nil {
			return nil, fmt.Errorf("session token is encrypted but ENCRYPTION_KEY not configured")
		}
		token, err := crypto.DecryptString(enc, s.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("decrypt session token: %w", err)
		}
		s.AccessToken = token
	}

	// Sliding expiration: a successful read refreshes activity.
	if _, err := p.db.ExecContext(ctx, `UPDATE admin_sessions SET last_activity_at=NOW() WHERE conversation_id=$1`, conversationID); err != nil {
		slog.Warn("failed to refresh session activity", slog.Any("err", err))
	}
	s.LastActivity = now
	return &s, nil
}

func (p *PostgresStore) Delete(ctx context.Context, conversationID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE conversation_id=$1`, conversationID)
	return err
}

func (p *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM admin_sessions WHERE last_activity_at < NOW() - $1::interval`,
		fmt.Sprintf("%f seconds", p.ttl.Seconds()))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admin_sessions WHERE last_activity_at >= NOW() - $1::interval`,
		fmt.Sprintf("%f seconds", p.ttl.Seconds())).Scan(&n)
	return n, err
}

// PostgresFlowStore keeps pending flows in the conversation_states table.
type PostgresFlowStore struct {
	db *sql.DB
}

func NewPostgresFlowStore(db *sql.DB) *PostgresFlowStore {
	return &PostgresFlowStore{db: db}
}

func (p *PostgresFlowStore) Put(ctx context.Context, f Flow) error {
	q := `INSERT INTO conversation_states(conversation_id, step, partial_email, updated_at)
		  VALUES($1,$2,$3,NOW())
		  ON CONFLICT(conversation_id) DO UPDATE SET
		    step=EXCLUDED.step, partial_email=EXCLUDED.partial_email, updated_at=NOW()`
	_, err := p.db.ExecContext(ctx, q, f.ConversationID, string(f.Step), f.Email)
	return err
}

func (p *PostgresFlowStore) Get(ctx context.Context, conversationID string) (*Flow, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT step, COALESCE(partial_email, ''), updated_at FROM conversation_states WHERE conversation_id=$1`,
		conversationID)
	var f Flow
	var step string
	if err := row.Scan(&step, &f.Email, &f.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	f.ConversationID = conversationID
	f.Step = Step(step)
	return &f, nil
}

func (p *PostgresFlowStore) Delete(ctx context.Context, conversationID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM conversation_states WHERE conversation_id=$1`, conversationID)
	return err
}
