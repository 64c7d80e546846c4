package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/prepacking"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPrepackingEventRepository implements prepacking.Repository using GORM
type GormPrepackingEventRepository struct {
	db *gorm.DB
}

var _ prepacking.Repository = (*GormPrepackingEventRepository)(nil)

// NewGormPrepackingEventRepository creates a new GormPrepackingEventRepository
func NewGormPrepackingEventRepository(db *gorm.DB) *GormPrepackingEventRepository {
	return &GormPrepackingEventRepository{db: db}
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("StatusChanges", func(db *gorm.DB) *gorm.DB { return db.Order("occurred_at") })
}

// FindByID finds an event with its line items and status history
func (r *GormPrepackingEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*prepacking.PrepackingEvent, error) {
	var model models.PrepackingEventModel
	if err := withChildren(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Find lists events matching the filter, newest first
func (r *GormPrepackingEventRepository) Find(ctx context.Context, filter prepacking.Filter) ([]prepacking.PrepackingEvent, error) {
	query := withChildren(r.db.WithContext(ctx))
	if filter.FacilityID != nil {
		query = query.Where("facility_id = ?", *filter.FacilityID)
	}
	if filter.ProgramID != nil {
		query = query.Where("program_id = ?", *filter.ProgramID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}

	var eventModels []models.PrepackingEventModel
	if err := query.Order("date_created DESC").Order("id").Find(&eventModels).Error; err != nil {
		return nil, err
	}

	events := make([]prepacking.PrepackingEvent, len(eventModels))
	for i := range eventModels {
		events[i] = *eventModels[i].ToDomain()
	}
	return events, nil
}

// Save inserts a new event or updates a stored one whose version is one behind
// the aggregate's. Line items are replaced; status changes are append only.
func (r *GormPrepackingEventRepository) Save(ctx context.Context, event *prepacking.PrepackingEvent) error {
	model := models.PrepackingEventModelFromDomain(event)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.PrepackingEventModel
		err := tx.Select("version").Where("id = ?", event.ID).Take(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.insert(tx, model)
		}
		if err != nil {
			return err
		}

		expectedVersion := event.GetVersion() - 1
		if current.Version != expectedVersion {
			return fmt.Errorf("%w: prepacking event %s is at version %d, expected %d",
				shared.ErrConcurrencyConflict, event.ID, current.Version, expectedVersion)
		}

		result := tx.Model(&models.PrepackingEventModel{}).
			Where("id = ? AND version = ?", event.ID, expectedVersion).
			Updates(map[string]any{
				"date_authorised":     model.DateAuthorised,
				"supervisory_node_id": model.SupervisoryNodeID,
				"comments":            model.Comments,
				"status":              model.Status,
				"updated_at":          model.UpdatedAt,
				"version":             model.Version,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: prepacking event %s", shared.ErrConcurrencyConflict, event.ID)
		}

		if err := tx.Where("prepacking_event_id = ?", event.ID).Delete(&models.PrepackingLineItemModel{}).Error; err != nil {
			return err
		}
		return r.insertChildren(tx, model)
	})
}

func (r *GormPrepackingEventRepository) insert(tx *gorm.DB, model *models.PrepackingEventModel) error {
	if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
		return err
	}
	return r.insertChildren(tx, model)
}

func (r *GormPrepackingEventRepository) insertChildren(tx *gorm.DB, model *models.PrepackingEventModel) error {
	if len(model.LineItems) > 0 {
		if err := tx.Create(&model.LineItems).Error; err != nil {
			return err
		}
	}
	if len(model.StatusChanges) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.StatusChanges).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an event with its line items and status history
func (r *GormPrepackingEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prepacking_event_id = ?", id).Delete(&models.PrepackingLineItemModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("prepacking_event_id = ?", id).Delete(&models.PrepackingStatusChangeModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.PrepackingEventModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountDrafts counts events waiting for authorization or rejection
func (r *GormPrepackingEventRepository) CountDrafts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PrepackingEventModel{}).
		Where("status = ?", string(prepacking.StatusDraft)).
		Count(&count).Error
	return count, err
}
