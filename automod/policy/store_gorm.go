package policy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type serverPolicyRow struct {
	ServerID  string       `gorm:"primaryKey"`
	Policy    ServerPolicy `gorm:"serializer:json;type:text"`
	UpdatedAt time.Time
}

func (serverPolicyRow) TableName() string {
	return "automod_server_policy"
}

// Durable policy store in a SQL database (sqlite or postgres). Policy bodies are stored as a JSON column.
type GormPolicyStore struct {
	db *gorm.DB
}

var _ PolicyStore = (*GormPolicyStore)(nil)

// Runs auto-migration for the policy table.
func NewGormPolicyStore(db *gorm.DB) (*GormPolicyStore, error) {
	if err := db.AutoMigrate(&serverPolicyRow{}); err != nil {
		return nil, fmt.Errorf("migrating policy table: %w", err)
	}
	return &GormPolicyStore{db: db}, nil
}

func (s *GormPolicyStore) Get(ctx context.Context, server string) (*ServerPolicy, error) {
	var row serverPolicyRow
	err := s.db.WithContext(ctx).Where("server_id = ?", server).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPolicy
	}
	if err != nil {
		return nil, fmt.Errorf("loading policy: %w", err)
	}
	row.Policy.ServerID = row.ServerID
	return row.Policy.Normalize(), nil
}

func (s *GormPolicyStore) Put(ctx context.Context, p *ServerPolicy) error {
	row := serverPolicyRow{
		ServerID: p.ServerID,
		Policy:   *p.Normalize(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "server_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"policy", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving policy: %w", err)
	}
	return nil
}

func (s *GormPolicyStore) Delete(ctx context.Context, server string) error {
	return s.db.WithContext(ctx).Where("server_id = ?", server).Delete(&serverPolicyRow{}).Error
}
