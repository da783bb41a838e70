package repository

import (
	"errors"

	"swapcal/cmd/internal/domain"
	"swapcal/cmd/internal/domain/entity"
	"swapcal/cmd/internal/utils"

	"gorm.io/gorm"
)

type DefaultSlotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) *DefaultSlotRepository {
	return &DefaultSlotRepository{db: db}
}

func (r *DefaultSlotRepository) FindByID(id string) (*entity.Slot, error) {
	var slot entity.Slot
	err := r.db.First(&slot, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &slot, err
}

func (r *DefaultSlotRepository) FindByOwner(ownerID int) ([]*entity.Slot, error) {
	var slots []*entity.Slot
	err := r.db.
		Where("owner_id = ?", ownerID).
		Order("starts_at asc").
		Find(&slots).Error
	return slots, err
}

func (r *DefaultSlotRepository) ListSwappableExcluding(ownerID int) ([]*entity.Slot, error) {
	var slots []*entity.Slot
	err := r.db.
		Where("status = ?", entity.SlotSwappable).
		Where("owner_id <> ?", ownerID).
		Order("starts_at asc").
		Find(&slots).Error
	return slots, err
}

func (r *DefaultSlotRepository) Save(slot *entity.Slot) error {
	return r.db.Save(slot).Error
}

func (r *DefaultSlotRepository) Delete(slot *entity.Slot) error {
	return r.db.Delete(slot).Error
}

// CompareAndSetStatus is the guard against double-claiming: the UPDATE
// only matches while the slot still carries the expected status, so of
// two racing writers exactly one sees RowsAffected == 1.
func (r *DefaultSlotRepository) CompareAndSetStatus(id string, expected, next entity.SlotStatus) (*entity.Slot, error) {
	res := r.db.Model(&entity.Slot{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(map[string]any{"status": next, "updated_at": utils.NowUTC()})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		slot, err := r.FindByID(id)
		if err != nil {
			return nil, err
		}
		if slot == nil {
			return nil, nil
		}
		return nil, domain.ErrConflict
	}
	return r.FindByID(id)
}

// TransferOwnership writes owner and status in a single UPDATE so the
// two fields can never be observed half-applied.
func (r *DefaultSlotRepository) TransferOwnership(id string, newOwnerID int, next entity.SlotStatus) (*entity.Slot, error) {
	res := r.db.Model(&entity.Slot{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"owner_id":   newOwnerID,
			"status":     next,
			"updated_at": utils.NowUTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(id)
}
