package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"platewise/internal/catalog"
	"platewise/internal/models"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// StringSlice represents a slice of strings that can be stored in the database
type StringSlice []string

// Value converts the slice to a JSON string for storage
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan converts the database value back to a slice
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for StringSlice")
	}
}

// FoodRecord is the stored form of a catalog item
type FoodRecord struct {
	gorm.Model
	Name        string `gorm:"index"`
	MealTime    string `gorm:"index"`
	Category    string
	Calories    float64
	Protein     float64
	Carbs       float64
	Fat         float64
	Fiber       float64
	Sodium      float64
	ServingSize string
	DietaryTags StringSlice `gorm:"type:text"`
	URL         string
}

// TableName sets the table name for FoodRecord
func (FoodRecord) TableName() string {
	return "foods"
}

func recordFromItem(item models.FoodItem) FoodRecord {
	return FoodRecord{
		Name:        item.Name,
		MealTime:    string(item.MealTime),
		Category:    item.Category,
		Calories:    item.Calories,
		Protein:     item.Protein,
		Carbs:       item.Carbs,
		Fat:         item.Fat,
		Fiber:       item.Fiber,
		Sodium:      item.Sodium,
		ServingSize: item.ServingSize,
		DietaryTags: StringSlice(item.DietaryTags),
		URL:         item.URL,
	}
}

func (r FoodRecord) item() models.FoodItem {
	return models.FoodItem{
		Name:        r.Name,
		MealTime:    models.MealTime(r.MealTime),
		Category:    r.Category,
		Calories:    r.Calories,
		Protein:     r.Protein,
		Carbs:       r.Carbs,
		Fat:         r.Fat,
		Fiber:       r.Fiber,
		Sodium:      r.Sodium,
		ServingSize: r.ServingSize,
		DietaryTags: []string(r.DietaryTags),
		URL:         r.URL,
	}
}

// Store persists the food catalog
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the database and migrates the schema
func Open(dialect, dsn string, logger *slog.Logger) (*Store, error) {
	if dialect != DriverSQLite && dialect != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", dialect)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.LogMode(false)

	// Configure connection pool
	db.DB().SetMaxIdleConns(10)
	db.DB().SetMaxOpenConns(100)
	db.DB().SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&FoodRecord{}).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ReplaceFoods swaps the stored catalog for items in one transaction
func (s *Store) ReplaceFoods(items []models.FoodItem) error {
	tx := s.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	if err := tx.Unscoped().Delete(&FoodRecord{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear foods: %w", err)
	}
	for i := range items {
		rec := recordFromItem(items[i])
		if err := tx.Create(&rec).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to store food %q: %w", items[i].Name, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit foods: %w", err)
	}
	s.logger.Info("catalog stored", "items", len(items))
	return nil
}

// ListFoods returns stored items in insertion order
func (s *Store) ListFoods() ([]models.FoodItem, error) {
	var records []FoodRecord
	if err := s.db.Order("id asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list foods: %w", err)
	}
	items := make([]models.FoodItem, len(records))
	for i, r := range records {
		items[i] = r.item()
	}
	return items, nil
}

// CountFoods returns the number of stored items
func (s *Store) CountFoods() (int, error) {
	var n int
	if err := s.db.Model(&FoodRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count foods: %w", err)
	}
	return n, nil
}

// LoadCatalog builds a catalog handle from the stored items
func (s *Store) LoadCatalog() (*catalog.Catalog, error) {
	items, err := s.ListFoods()
	if err != nil {
		return nil, err
	}
	return catalog.New(items, "database")
}
