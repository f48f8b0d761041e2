package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/waterlogd/waterlog/internal/log"
	"github.com/waterlogd/waterlog/internal/types"
)

// PostgresStore implements ReadingStore on a Postgres database via GORM
type PostgresStore struct {
	db *gorm.DB
}

// readingRecord is the GORM model for a stored reading. Seq preserves
// insertion order among readings sharing a timestamp.
type readingRecord struct {
	ID         string    `gorm:"primaryKey"`
	Seq        int64     `gorm:"autoIncrement;uniqueIndex"`
	Timestamp  time.Time `gorm:"index;not null"`
	Value      float64   `gorm:"not null"`
	Confidence string
	Notes      string
	Image      string
	Attributes pgtype.JSONB `gorm:"type:jsonb;default:'{}'"`
}

// TableName implements the GORM Tabler interface to specify the correct table name
func (readingRecord) TableName() string {
	return "readings"
}

// NewPostgresStore connects to Postgres and migrates the readings table
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to create a Postgres connection: %w", err)
	}

	if err := db.AutoMigrate(&readingRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate readings table: %w", err)
	}
	log.Info("Postgres connection successful")

	return &PostgresStore{db: db}, nil
}

// AddReading inserts a reading, assigning an id when none is set
func (p *PostgresStore) AddReading(ctx context.Context, r *types.Reading) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	rec, err := toRecord(r)
	if err != nil {
		return err
	}

	if err := p.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// UpdateReading replaces the stored row for r.ID
func (p *PostgresStore) UpdateReading(ctx context.Context, r *types.Reading) error {
	rec, err := toRecord(r)
	if err != nil {
		return err
	}

	result := p.db.WithContext(ctx).Model(&readingRecord{}).Where("id = ?", r.ID).
		Updates(map[string]any{
			"timestamp":  rec.Timestamp,
			"value":      rec.Value,
			"confidence": rec.Confidence,
			"notes":      rec.Notes,
			"image":      rec.Image,
			"attributes": rec.Attributes,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update reading: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReading removes a reading by id
func (p *PostgresStore) DeleteReading(ctx context.Context, id string) error {
	result := p.db.WithContext(ctx).Where("id = ?", id).Delete(&readingRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete reading: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetReading returns a single reading by id
func (p *PostgresStore) GetReading(ctx context.Context, id string) (*types.Reading, error) {
	var rec readingRecord
	err := p.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reading: %w", err)
	}
	return fromRecord(&rec)
}

// ListReadings returns all readings in chronological order
func (p *PostgresStore) ListReadings(ctx context.Context) ([]types.Reading, error) {
	var recs []readingRecord
	if err := p.db.WithContext(ctx).Order("timestamp, seq").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}

	readings := make([]types.Reading, 0, len(recs))
	for i := range recs {
		r, err := fromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		readings = append(readings, *r)
	}
	return readings, nil
}

// LatestReading returns the most recent reading, ErrNotFound when empty
func (p *PostgresStore) LatestReading(ctx context.Context) (*types.Reading, error) {
	var rec readingRecord
	err := p.db.WithContext(ctx).Order("timestamp DESC, seq DESC").First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest reading: %w", err)
	}
	return fromRecord(&rec)
}

// Close closes the underlying connection pool
func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(r *types.Reading) (*readingRecord, error) {
	rec := &readingRecord{
		ID:         r.ID,
		Timestamp:  r.Timestamp,
		Value:      r.Value,
		Confidence: string(r.Confidence),
		Notes:      r.Notes,
		Image:      r.Image,
	}

	attrs := r.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	if err := rec.Attributes.Set(attrs); err != nil {
		return nil, fmt.Errorf("failed to encode reading attributes: %w", err)
	}

	return rec, nil
}

func fromRecord(rec *readingRecord) (*types.Reading, error) {
	r := &types.Reading{
		ID:         rec.ID,
		Timestamp:  rec.Timestamp,
		Value:      rec.Value,
		Confidence: types.Confidence(rec.Confidence),
		Notes:      rec.Notes,
		Image:      rec.Image,
	}

	if rec.Attributes.Status == pgtype.Present {
		var attrs map[string]string
		if err := rec.Attributes.AssignTo(&attrs); err != nil {
			return nil, fmt.Errorf("failed to decode reading attributes: %w", err)
		}
		if len(attrs) > 0 {
			r.Attributes = attrs
		}
	}

	return r, nil
}
