package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"contactsBot/internal/contact/models"
)

// Connection pool settings for the Postgres store.
const (
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 10
	DefaultConnMaxLifetime = 5 * time.Minute
)

// PostgresStore keeps every user's contacts in one table, partitioned by user_id.
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore connects to Postgres, checks the connection and creates the schema.
func NewPostgresStore(ctx context.Context, opts ...Option) (*PostgresStore, error) {
	cfg := applyOptions(opts)
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, errors.New("database DSN not set")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	sqldb.SetMaxOpenConns(DefaultMaxOpenConns)
	sqldb.SetMaxIdleConns(DefaultMaxIdleConns)
	sqldb.SetConnMaxLifetime(DefaultConnMaxLifetime)

	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewPostgresStoreFromDB(db)
	if err := s.createSchema(ctx); err != nil {
		slog.Error("Failed to create database schema", "error", err)
		return nil, err
	}
	slog.Debug("Postgres store ready")
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing bun handle without touching the schema.
func NewPostgresStoreFromDB(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) createSchema(ctx context.Context) error {
	tables := []interface{}{
		(*models.Contact)(nil),
		(*models.ReminderSettings)(nil),
	}

	for _, model := range tables {
		_, err := s.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	_, err := s.db.NewCreateIndex().
		Model((*models.Contact)(nil)).
		Index("contacts_user_name_idx").
		Column("user_id", "name").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
// validID reports whether id can name a row. The id column is a uuid, so anything else
// would fail in Postgres instead of matching nothing.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Add(ctx context.Context, userID int64, c models.Contact) (string, error) {
	c = c.Clone()
	c.ID = ""
	c.UserID = userID
	c.CreatedAt = time.Time{}
	if len(c.ExtraFields) == 0 {
		c.ExtraFields = nil
	}

	_, err := s.db.NewInsert().
		Model(&c).
		Returning("id, created_at").
		Exec(ctx)
	if err != nil {
		slog.Error("PostgresStore Add failed", "error", err, "user_id", userID)
		return "", fmt.Errorf("insert contact: %w", err)
	}
	slog.Debug("PostgresStore Add succeeded", "user_id", userID, "contact_id", c.ID)
	return c.ID, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID int64, id string) (models.Contact, error) {
	if !validID(id) {
		return models.Contact{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	var c models.Contact
	err := s.db.NewSelect().
		Model(&c).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contact{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		slog.Error("PostgresStore Get failed", "error", err, "user_id", userID, "contact_id", id)
		return models.Contact{}, fmt.Errorf("select contact %s: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) Update(ctx context.Context, userID int64, id string, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if !validID(id) {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	q := s.db.NewUpdate().
		Model((*models.Contact)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID)

	switch {
	case u.Name != nil:
		q = q.Set("name = ?", *u.Name)
	case u.Group != nil:
		q = q.Set("group_name = ?", *u.Group)
	case u.Birthday != nil:
		q = q.Set("birthday = ?", *u.Birthday)
	case u.ClearBirthday:
		q = q.Set("birthday = NULL")
	case u.SetExtra != nil:
		q = q.Set("extra_fields = COALESCE(extra_fields, '{}'::jsonb) || jsonb_build_object(?::text, ?::text)",
			u.SetExtra.Key, u.SetExtra.Value)
	case u.DeleteExtra != "":
		q = q.Set("extra_fields = NULLIF(extra_fields - ?::text, '{}'::jsonb)", u.DeleteExtra)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		slog.Error("PostgresStore Update failed", "error", err, "user_id", userID, "contact_id", id)
		return fmt.Errorf("update contact %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	slog.Debug("PostgresStore Update succeeded", "user_id", userID, "contact_id", id)
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID int64, id string) error {
	if !validID(id) {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	res, err := s.db.NewDelete().
		Model((*models.Contact)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		slog.Error("PostgresStore Delete failed", "error", err, "user_id", userID, "contact_id", id)
		return fmt.Errorf("delete contact %s: %w", id, err)
	}

	// check if row was actually deleted
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	slog.Debug("PostgresStore Delete succeeded", "user_id", userID, "contact_id", id)
	return nil
}

func (s *PostgresStore) QueryByField(ctx context.Context, userID int64, field Field, value string) ([]models.Contact, error) {
	var column string
	switch field {
	case FieldName:
		column = "name"
	case FieldGroup:
		column = "group_name"
	default:
		return nil, fmt.Errorf("unsupported query field %q", field)
	}

	var contacts []models.Contact
	err := s.db.NewSelect().
		Model(&contacts).
		Where("user_id = ?", userID).
		Where("? = ?", bun.Ident(column), value).
		Scan(ctx)
	if err != nil {
		slog.Error("PostgresStore QueryByField failed", "error", err, "user_id", userID, "field", field)
		return nil, fmt.Errorf("query contacts by %s: %w", field, err)
	}
	return contacts, nil
}

func (s *PostgresStore) ListAll(ctx context.Context, userID int64) ([]models.Contact, error) {
	var contacts []models.Contact
	err := s.db.NewSelect().
		Model(&contacts).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		slog.Error("PostgresStore ListAll failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	slog.Debug("PostgresStore ListAll succeeded", "user_id", userID, "count", len(contacts))
	return contacts, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.NewRaw("SELECT user_id FROM contacts UNION SELECT user_id FROM reminder_settings").
		Scan(ctx, &ids)
	if err != nil {
		slog.Error("PostgresStore ListUsers failed", "error", err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) GetReminderSettings(ctx context.Context, userID int64) (models.ReminderSettings, bool, error) {
	var rs models.ReminderSettings
	err := s.db.NewSelect().
		Model(&rs).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ReminderSettings{UserID: userID}, false, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetReminderSettings failed", "error", err, "user_id", userID)
		return models.ReminderSettings{}, false, fmt.Errorf("select reminder settings: %w", err)
	}
	return rs, true, nil
}

func (s *PostgresStore) SaveReminderSettings(ctx context.Context, userID int64, offsets map[string]bool) error {
	_, err := s.db.NewInsert().
		Model(&models.ReminderSettings{
			UserID:    userID,
			Offsets:   offsets,
			UpdatedAt: time.Now(),
		}).
		On("CONFLICT (user_id) DO UPDATE").
		Set("offsets = EXCLUDED.offsets").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		slog.Error("PostgresStore SaveReminderSettings failed", "error", err, "user_id", userID)
		return fmt.Errorf("save reminder settings: %w", err)
	}
	return nil
}
