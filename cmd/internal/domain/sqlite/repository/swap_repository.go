package repository

import (
	"errors"

	"swapcal/cmd/internal/domain"
	"swapcal/cmd/internal/domain/entity"
	"swapcal/cmd/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DefaultSwapRepository struct {
	db *gorm.DB
}

func NewSwapRepository(db *gorm.DB) *DefaultSwapRepository {
	return &DefaultSwapRepository{db: db}
}

// Create inserts a new PENDING request. The duplicate check is safe
// without further locking only because the caller claimed both slots
// (SWAPPABLE -> SWAP_PENDING) first; holding the claims is the mutual
// exclusion scope.
func (r *DefaultSwapRepository) Create(requesterID, responderID int, mySlotID, theirSlotID, message string) (*entity.SwapRequest, error) {
	var count int64
	err := r.db.Model(&entity.SwapRequest{}).
		Where("status = ?", entity.SwapPending).
		Where(
			"my_slot_id IN (?, ?) OR their_slot_id IN (?, ?)",
			mySlotID, theirSlotID, mySlotID, theirSlotID,
		).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, domain.ErrDuplicatePending
	}

	req := &entity.SwapRequest{
		ID:          uuid.NewString(),
		RequesterID: requesterID,
		ResponderID: responderID,
		MySlotID:    mySlotID,
		TheirSlotID: theirSlotID,
		Status:      entity.SwapPending,
		Message:     message,
		CreatedAt:   utils.NowUTC(),
	}

	if err := r.db.Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (r *DefaultSwapRepository) FindByID(id string) (*entity.SwapRequest, error) {
	var req entity.SwapRequest
	err := r.db.First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &req, err
}

// Resolve is a compare-and-swap on status: only a PENDING row matches
// the UPDATE, so a replayed or raced resolve loses deterministically.
func (r *DefaultSwapRepository) Resolve(id string, outcome entity.SwapStatus, actedBy int, actedAt int64) (*entity.SwapRequest, error) {
	res := r.db.Model(&entity.SwapRequest{}).
		Where("id = ? AND status = ?", id, entity.SwapPending).
		Updates(map[string]any{
			"status":    outcome,
			"action_by": actedBy,
			"action_at": actedAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		req, err := r.FindByID(id)
		if err != nil {
			return nil, err
		}
		if req == nil {
			return nil, nil
		}
		return nil, domain.ErrAlreadyResolved
	}
	return r.FindByID(id)
}

func (r *DefaultSwapRepository) FindByRequester(userID int) ([]*entity.SwapRequest, error) {
	var reqs []*entity.SwapRequest
	err := r.db.
		Where("requester_id = ?", userID).
		Order("created_at desc").
		Find(&reqs).Error
	return reqs, err
}

func (r *DefaultSwapRepository) FindByResponder(userID int) ([]*entity.SwapRequest, error) {
	var reqs []*entity.SwapRequest
	err := r.db.
		Where("responder_id = ?", userID).
		Order("created_at desc").
		Find(&reqs).Error
	return reqs, err
}
