package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"
	"gorm.io/gorm"
)

// positionRecord is the row layout of the positions table.
type positionRecord struct {
	ID       string    `gorm:"primaryKey;type:text"`
	TokenID  string    `gorm:"type:text;not null;index"`
	Side     string    `gorm:"type:text;not null"`
	Price    float64   `gorm:"not null"`
	Size     float64   `gorm:"not null"`
	Cost     float64   `gorm:"not null"`
	OpenedAt time.Time `gorm:"not null;index"`
	// Insertion order; timestamps can tie.
	Seq      int64     `gorm:"autoIncrement;not null;uniqueIndex"`
}

func (positionRecord) TableName() string { return "positions" }

func toRecord(p risk.Position, openedAt time.Time) positionRecord {
	return positionRecord{
		ID:       p.ID,
		TokenID:  p.TokenID,
		Side:     string(p.Side),
		Price:    p.Price,
		Size:     p.Size,
		Cost:     p.Cost,
		OpenedAt: openedAt,
	}
}

func (r positionRecord) position() risk.Position {
	return risk.Position{
		ID:      r.ID,
		TokenID: r.TokenID,
		Side:    risk.Side(r.Side),
		Price:   r.Price,
		Size:    r.Size,
		Cost:    r.Cost,
	}
}

type PostgresPositionRepo struct {
	db *gorm.DB
}

func NewPostgresPositionRepo(db *gorm.DB) (*PostgresPositionRepo, error) {
	if err := db.AutoMigrate(&positionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate positions: %w", err)
	}
	return &PostgresPositionRepo{db: db}, nil
}

func (r *PostgresPositionRepo) List(ctx context.Context) ([]risk.Position, error) {
	var rows []positionRecord
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]risk.Position, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.position())
	}
	return out, nil
}

func (r *PostgresPositionRepo) Add(ctx context.Context, p risk.Position) error {
	rec := toRecord(p, time.Now().UTC())
	err := r.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.NewInvalidRequest(fmt.Sprintf("position %s already exists", p.ID))
	}
	return err
}

func (r *PostgresPositionRepo) Remove(ctx context.Context, id string) (risk.Position, error) {
	var rec positionRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&positionRecord{}, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return risk.Position{}, apperrors.NewNotFound(fmt.Sprintf("position %s not found", id))
	}
	if err != nil {
		return risk.Position{}, err
	}
	return rec.position(), nil
}
