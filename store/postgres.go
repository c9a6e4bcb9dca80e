package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"skitbot/common"
	"skitbot/types"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PostgresConfig configures the database connection pool.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	// Verbose logs every SQL statement.
	Verbose bool
}

// PostgresStore is a gorm-backed Store.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects, pings and migrates the schema.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	level := logger.Warn
	if cfg.Verbose {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	log.Println("[store] database connected")
	return s, nil
}

// Migrate creates or updates the tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&types.Character{}, &types.Template{}, &types.Composition{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.NewNotFoundError(kind, id)
	}
	return err
}

func (s *PostgresStore) CreateComposition(ctx context.Context, c *types.Composition) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create composition: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComposition(ctx context.Context, id string) (*types.Composition, error) {
	var c types.Composition
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "composition", id)
	}
	return &c, nil
}

// UpdateComposition writes changed columns directly; updates carrying a script
// go through a locked read-modify-save so the JSON serializer runs.
func (s *PostgresStore) UpdateComposition(ctx context.Context, id string, u types.CompositionUpdate) (*types.Composition, error) {
	db := s.db.WithContext(ctx)

	if u.GeneratedScript == nil {
		cols := u.Columns()
		if len(cols) > 0 {
			res := db.Model(&types.Composition{}).Where("id = ?", id).Updates(cols)
			if res.Error != nil {
				return nil, fmt.Errorf("failed to update composition: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return nil, common.NewNotFoundError("composition", id)
			}
		}
		return s.GetComposition(ctx, id)
	}

	var c types.Composition
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error; err != nil {
			return notFound(err, "composition", id)
		}
		u.Apply(&c)
		return tx.Save(&c).Error
	})
	if err != nil {
		if common.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update composition: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) ListCompositions(ctx context.Context, limit int) ([]types.Composition, error) {
	var out []types.Composition
	err := s.db.WithContext(ctx).Order("created_at desc").Limit(ClampLimit(limit)).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list compositions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveTemplate(ctx context.Context, t *types.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cast := t.Characters
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Characters").Save(t).Error; err != nil {
			return fmt.Errorf("failed to save template: %w", err)
		}
		if err := tx.Model(t).Association("Characters").Replace(cast); err != nil {
			return fmt.Errorf("failed to set template characters: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetTemplate(ctx context.Context, id string) (*types.Template, error) {
	var t types.Template
	if err := s.db.WithContext(ctx).Preload("Characters").First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "template", id)
	}
	return &t, nil
}

func (s *PostgresStore) GetTemplateByName(ctx context.Context, name string) (*types.Template, error) {
	var t types.Template
	if err := s.db.WithContext(ctx).Preload("Characters").First(&t, "name = ?", name).Error; err != nil {
		return nil, notFound(err, "template", name)
	}
	return &t, nil
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]types.Template, error) {
	var out []types.Template
	if err := s.db.WithContext(ctx).Preload("Characters").Order("created_at desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeleteTemplate(ctx context.Context, id string) error {
	tmpl := types.Template{ID: id}
	res := s.db.WithContext(ctx).Select("Characters").Delete(&tmpl)
	if res.Error != nil {
		return fmt.Errorf("failed to delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.NewNotFoundError("template", id)
	}
	return nil
}

func (s *PostgresStore) CreateCharacter(ctx context.Context, c *types.Character) error {
	if strings.TrimSpace(c.Name) == "" {
		return common.NewValidationError("character name is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create character: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCharacter(ctx context.Context, id string) (*types.Character, error) {
	var c types.Character
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "character", id)
	}
	return &c, nil
}

func (s *PostgresStore) GetCharacterByName(ctx context.Context, name string) (*types.Character, error) {
	var c types.Character
	if err := s.db.WithContext(ctx).First(&c, "LOWER(name) = LOWER(?)", name).Error; err != nil {
		return nil, notFound(err, "character", name)
	}
	return &c, nil
}

func (s *PostgresStore) ListCharacters(ctx context.Context) ([]types.Character, error) {
	var out []types.Character
	if err := s.db.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateCharacter(ctx context.Context, c *types.Character) error {
	res := s.db.WithContext(ctx).Model(&types.Character{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"display_name":    c.DisplayName,
		"voice_id":        c.VoiceID,
		"image_url":       c.ImageURL,
		"position_x":      c.Position.X,
		"position_y":      c.Position.Y,
		"position_scale":  c.Position.Scale,
		"position_anchor": c.Position.Anchor,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update character: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return common.NewNotFoundError("character", c.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteCharacter(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM template_characters WHERE character_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to detach character: %w", err)
		}
		res := tx.Delete(&types.Character{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete character: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return common.NewNotFoundError("character", id)
		}
		return nil
	})
}
