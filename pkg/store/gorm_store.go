package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"scanbrief/pkg/domain"
)

const migrateLockID int64 = 52905290

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &ProcessedItemModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		// History rows must always reference an existing user.
		if err := tx.Exec(`
			DO $$
			BEGIN
				DELETE FROM processed_item_models i
				WHERE NOT EXISTS (SELECT 1 FROM user_models u WHERE u.id = i.user_id);
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'processed_item_models'
					AND constraint_name = 'processed_item_models_user_id_fkey'
				) THEN
					ALTER TABLE processed_item_models
					ADD CONSTRAINT processed_item_models_user_id_fkey
					FOREIGN KEY (user_id) REFERENCES user_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure user foreign key: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "email", "password_hash", "role", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by created_at.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// AppendItem stores one processed item and returns its ID.
func (s *GormStore) AppendItem(ctx context.Context, item domain.ProcessedItem) (string, error) {
	if err := validateItem(item); err != nil {
		return "", err
	}
	model := itemToModel(item)
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", fmt.Errorf("append item: %w", err)
	}
	return model.ID, nil
}

// GetItem returns one item after an ownership check. A missing or foreign
// item yields ErrNotFound.
func (s *GormStore) GetItem(ctx context.Context, userID, itemID string) (domain.ProcessedItem, error) {
	var model ProcessedItemModel
	if err := s.db.WithContext(ctx).First(&model, "id = ? AND user_id = ?", itemID, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ProcessedItem{}, ErrNotFound
		}
		return domain.ProcessedItem{}, err
	}
	return itemFromModel(model), nil
}

// ListItems returns a user's history, newest first. Query and time bounds
// narrow the result; filenames and content are matched via bound parameters
// only, never interpolated.
func (s *GormStore) ListItems(ctx context.Context, userID string, filter Filter, limit int) ([]domain.ProcessedItem, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + q + "%"
		tx = tx.Where("(source_filename ILIKE ? OR extracted_text ILIKE ? OR summary ILIKE ?)", pattern, pattern, pattern)
	}
	if !filter.From.IsZero() {
		tx = tx.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		tx = tx.Where("created_at <= ?", filter.To)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var models []ProcessedItemModel
	if err := tx.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	items := make([]domain.ProcessedItem, 0, len(models))
	for _, m := range models {
		items = append(items, itemFromModel(m))
	}
	return items, nil
}

// DeleteItem removes one item after an ownership check. Deleting an item that
// does not exist or belongs to someone else yields ErrNotFound.
func (s *GormStore) DeleteItem(ctx context.Context, userID, itemID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&ProcessedItemModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Aggregate computes a user's analytics from their history rows.
func (s *GormStore) Aggregate(ctx context.Context, userID string) (domain.AnalyticsSummary, error) {
	var row struct {
		TotalItems  int
		TotalTokens int64
		AvgMs       float64
		ActiveDays  int
	}
	err := s.db.WithContext(ctx).Model(&ProcessedItemModel{}).
		Select(`COUNT(*) AS total_items,
			COALESCE(SUM(token_usage), 0) AS total_tokens,
			COALESCE(AVG(processing_ms), 0) AS avg_ms,
			COUNT(DISTINCT DATE(created_at)) AS active_days`).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}
	summary := domain.AnalyticsSummary{
		TotalItems:        row.TotalItems,
		TotalTokens:       row.TotalTokens,
		AvgProcessingMs:   row.AvgMs,
		ActiveDays:        row.ActiveDays,
		LanguageBreakdown: map[string]int64{},
	}
	if summary.TotalItems == 0 {
		return summary, nil
	}
	var langs []struct {
		Language string
		Count    int64
	}
	err = s.db.WithContext(ctx).Model(&ProcessedItemModel{}).
		Select(`COALESCE(settings->>'summaryLanguage', 'unknown') AS language, COUNT(*) AS count`).
		Where("user_id = ?", userID).
		Group("settings->>'summaryLanguage'").
		Scan(&langs).Error
	if err != nil {
		return domain.AnalyticsSummary{}, err
	}
	for _, l := range langs {
		summary.LanguageBreakdown[l.Language] = l.Count
	}
	return summary, nil
}

// AdminOverview aggregates usage across all users.
func (s *GormStore) AdminOverview(ctx context.Context) (domain.AdminOverview, error) {
	var row struct {
		TotalUsers  int
		TotalItems  int
		TotalTokens int64
		ItemsToday  int
	}
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM user_models) AS total_users,
			(SELECT COUNT(*) FROM processed_item_models) AS total_items,
			(SELECT COALESCE(SUM(token_usage), 0) FROM processed_item_models) AS total_tokens,
			(SELECT COUNT(*) FROM processed_item_models WHERE DATE(created_at) = CURRENT_DATE) AS items_today
	`).Scan(&row).Error
	if err != nil {
		return domain.AdminOverview{}, err
	}
	return domain.AdminOverview{
		TotalUsers:  row.TotalUsers,
		TotalItems:  row.TotalItems,
		TotalTokens: row.TotalTokens,
		ItemsToday:  row.ItemsToday,
	}, nil
}

func validateItem(item domain.ProcessedItem) error {
	if strings.TrimSpace(item.UserID) == "" {
		return fmt.Errorf("%w: user id required", ErrInvalidItem)
	}
	if item.TokenUsage < 0 {
		return fmt.Errorf("%w: negative token usage", ErrInvalidItem)
	}
	if item.ProcessingDuration < 0 {
		return fmt.Errorf("%w: negative processing duration", ErrInvalidItem)
	}
	return nil
}
