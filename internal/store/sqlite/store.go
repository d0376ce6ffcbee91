// Package sqlite is the catalog repository backed by a SQLite database,
// accessed through GORM with the pure Go driver.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/bookshelf/internal/catalog"
	shelferrors "github.com/lepinkainen/bookshelf/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// Pure Go SQLite driver registered as "sqlite"
	_ "modernc.org/sqlite"
)

var _ catalog.Repository = (*Store)(nil)

// Store implements catalog.Repository.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open opens or creates the catalog database at path and migrates the
// schema. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: path}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// One connection keeps writes serialized and an in-memory database alive.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if path != ":memory:" {
		if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := db.AutoMigrate(&creatorModel{}, &referenceModel{}, &bookModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate catalog schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetCreator implements catalog.CreatorRepository.
func (s *Store) GetCreator(ctx context.Context, id uuid.UUID) (*catalog.Creator, error) {
	var m creatorModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id.String()).Error; err != nil {
		return nil, notFound(err, "creator %s", id)
	}
	return m.toCreator(), nil
}

// FindCreatorByIdentifier implements catalog.CreatorRepository.
func (s *Store) FindCreatorByIdentifier(ctx context.Context, source, id string) (*catalog.Creator, error) {
	column, ok := creatorIdentifierColumns[source]
	if !ok || id == "" {
		return nil, shelferrors.NewNotFoundError("creator with %s id %q", source, id)
	}
	var m creatorModel
	if err := s.db.WithContext(ctx).Where(column+" = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err, "creator with %s id %s", source, id)
	}
	return m.toCreator(), nil
}

// FindCreatorByName implements catalog.CreatorRepository.
func (s *Store) FindCreatorByName(ctx context.Context, name string) (*catalog.Creator, error) {
	var m creatorModel
	if err := s.db.WithContext(ctx).Where("name_key = ?", catalog.CreatorKey(name)).First(&m).Error; err != nil {
		return nil, notFound(err, "creator %q", name)
	}
	return m.toCreator(), nil
}

// CreateCreator implements catalog.CreatorRepository.
func (s *Store) CreateCreator(ctx context.Context, draft catalog.CreatorDraft) (*catalog.Creator, error) {
	draft.Name = catalog.CleanName(draft.Name)
	m := newCreatorModel(uuid.New(), draft)
	m.CreatedAt = s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for source, column := range creatorIdentifierColumns {
			id := draft.Identifiers.ForSource(source)
			if id == "" {
				continue
			}
			taken, err := exists(tx.Model(&creatorModel{}).Where(column+" = ?", id))
			if err != nil {
				return err
			}
			if taken {
				return shelferrors.NewAlreadyExistsError("creator with %s id %s", source, id)
			}
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, conflict(err, "creator %q", draft.Name)
	}
	return m.toCreator(), nil
}

// GetReference implements catalog.ReferenceRepository.
func (s *Store) GetReference(ctx context.Context, id uuid.UUID) (*catalog.Reference, error) {
	var m referenceModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id.String()).Error; err != nil {
		return nil, notFound(err, "reference %s", id)
	}
	return m.toReference(), nil
}

// FindReferenceByIdentifier implements catalog.ReferenceRepository.
func (s *Store) FindReferenceByIdentifier(ctx context.Context, kind catalog.Kind, externalID string) (*catalog.Reference, error) {
	if externalID == "" {
		return nil, shelferrors.NewNotFoundError("%s without id", kind)
	}
	var m referenceModel
	err := s.db.WithContext(ctx).Where("kind = ? AND external_id = ?", string(kind), externalID).First(&m).Error
	if err != nil {
		return nil, notFound(err, "%s with id %s", kind, externalID)
	}
	return m.toReference(), nil
}

// FindReferenceByName implements catalog.ReferenceRepository.
func (s *Store) FindReferenceByName(ctx context.Context, kind catalog.Kind, name string) (*catalog.Reference, error) {
	var m referenceModel
	err := s.db.WithContext(ctx).Where("kind = ? AND name_key = ?", string(kind), catalog.NameKey(kind, name)).First(&m).Error
	if err != nil {
		return nil, notFound(err, "%s %q", kind, name)
	}
	return m.toReference(), nil
}

// CreateReference implements catalog.ReferenceRepository.
func (s *Store) CreateReference(ctx context.Context, draft catalog.ReferenceDraft) (*catalog.Reference, error) {
	draft.Name = catalog.CleanName(draft.Name)
	m := newReferenceModel(uuid.New(), draft)
	m.CreatedAt = s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if draft.ExternalID != "" {
			q := tx.Model(&referenceModel{}).Where("kind = ? AND external_id = ?", m.Kind, draft.ExternalID)
			taken, err := exists(q)
			if err != nil {
				return err
			}
			if taken {
				return shelferrors.NewAlreadyExistsError("%s with id %s", draft.Kind, draft.ExternalID)
			}
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, conflict(err, "%s %q", draft.Kind, draft.Name)
	}
	return m.toReference(), nil
}

// GetBook implements catalog.BookRepository.
func (s *Store) GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	var m bookModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id.String()).Error; err != nil {
		return nil, notFound(err, "book %s", id)
	}
	return m.toBook()
}

// FindBookByISBN implements catalog.BookRepository.
func (s *Store) FindBookByISBN(ctx context.Context, isbn string) (*catalog.Book, error) {
	if isbn == "" {
		return nil, shelferrors.NewNotFoundError("book without ISBN")
	}
	var m bookModel
	if err := s.db.WithContext(ctx).Where("isbn = ?", isbn).First(&m).Error; err != nil {
		return nil, notFound(err, "book with ISBN %s", isbn)
	}
	return m.toBook()
}

// ListBooks implements catalog.BookRepository. Books are returned in the
// order they were created.
func (s *Store) ListBooks(ctx context.Context) ([]catalog.Book, error) {
	var models []bookModel
	if err := s.db.WithContext(ctx).Order("created_at ASC, rowid ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	out := make([]catalog.Book, 0, len(models))
	for _, m := range models {
		b, err := m.toBook()
		if err != nil {
			return nil, fmt.Errorf("decoding book %s: %w", m.ID, err)
		}
		out = append(out, *b)
	}
	return out, nil
}

// CreateBook implements catalog.BookRepository.
func (s *Store) CreateBook(ctx context.Context, draft catalog.BookDraft) (*catalog.Book, error) {
	m := newBookModel(uuid.New(), draft)
	now := s.now()
	m.CreatedAt, m.UpdatedAt = now, now

	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, conflict(err, "book with ISBN %s", draft.Identifiers.ISBN)
	}
	return m.toBook()
}

// ReplaceBook implements catalog.BookRepository.
func (s *Store) ReplaceBook(ctx context.Context, book catalog.Book) (*catalog.Book, error) {
	m := newBookModel(book.ID, book.BookDraft)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current bookModel
		if err := tx.Select("id", "created_at").First(&current, "id = ?", m.ID).Error; err != nil {
			return notFound(err, "book %s", book.ID)
		}
		m.CreatedAt = current.CreatedAt
		m.UpdatedAt = s.now()
		// Select("*") writes zero values too so cleared fields are cleared.
		return tx.Model(&bookModel{ID: m.ID}).Select("*").Updates(&m).Error
	})
	if err != nil {
		if shelferrors.IsNotFound(err) {
			return nil, err
		}
		return nil, conflict(err, "book with ISBN %s", book.Identifiers.ISBN)
	}
	return m.toBook()
}

// notFound maps gorm.ErrRecordNotFound to ErrNotFound and wraps anything
// else.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shelferrors.NewNotFoundError(format, args...)
	}
	return fmt.Errorf("querying %s: %w", fmt.Sprintf(format, args...), err)
}

// conflict maps unique constraint violations to ErrAlreadyExists.
func conflict(err error, format string, args ...any) error {
	if shelferrors.IsAlreadyExists(err) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique constraint") {
		return shelferrors.NewAlreadyExistsError(format, args...)
	}
	return fmt.Errorf("writing %s: %w", fmt.Sprintf(format, args...), err)
}

func exists(q *gorm.DB) (bool, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
