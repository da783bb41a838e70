package service

import (
	"errors"

	"swapcal/cmd/internal/domain"
	"swapcal/cmd/internal/domain/entity"
	"swapcal/cmd/internal/utils"
	"swapcal/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

type SlotRequest struct {
	Title    string `json:"title" validate:"required,max=128"`
	StartsAt string `json:"starts_at" validate:"required,iso8601"`
	EndsAt   string `json:"ends_at" validate:"required,iso8601"`
}

type ToggleSwappableRequest struct {
	Swappable *bool `json:"swappable" validate:"required"`
}

type SlotResponse struct {
	ID        string `json:"id"`
	OwnerID   int    `json:"owner_id"`
	Title     string `json:"title"`
	StartsAt  string `json:"starts_at"`
	EndsAt    string `json:"ends_at"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type DefaultSlotService struct {
	Slots    domain.SlotStore
	UserRepo UserRepository
	Validate *validator.Validate
}

func NewSlotService(slots domain.SlotStore, userRepo UserRepository, validate *validator.Validate) *DefaultSlotService {
	return &DefaultSlotService{Slots: slots, UserRepo: userRepo, Validate: validate}
}

func (s *DefaultSlotService) GetMySlots(subId string) ([]*SlotResponse, apierror.ErrorResponse) {
	caller, apierr := s.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	slots, err := s.Slots.FindByOwner(caller.ID)
	if err != nil {
		log.Errorf("failed to list slots for user %d: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*SlotResponse, len(slots))
	for i, slot := range slots {
		resp[i] = toSlotResponse(slot)
	}
	return resp, nil
}

// CreateSlot adds a new calendar slot for the caller. New slots always
// start in BUSY; the owner has to toggle them swappable explicitly.
func (s *DefaultSlotService) CreateSlot(req *SlotRequest, subId string) (*SlotResponse, apierror.ErrorResponse) {
	caller, apierr := s.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	begin, end, apierr := parseTimeRange(req.StartsAt, req.EndsAt)
	if apierr != nil {
		return nil, apierr
	}

	now := utils.NowUTC()
	slot := &entity.Slot{
		ID:        uuid.NewString(),
		OwnerID:   caller.ID,
		Title:     req.Title,
		StartsAt:  begin,
		EndsAt:    end,
		Status:    entity.SlotBusy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Slots.Save(slot); err != nil {
		log.Errorf("failed to save slot: %v", err)
		return nil, apierror.InternalServerError
	}
	return toSlotResponse(slot), nil
}

func (s *DefaultSlotService) UpdateSlot(id string, req *SlotRequest, subId string) (*SlotResponse, apierror.ErrorResponse) {
	caller, apierr := s.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	begin, end, apierr := parseTimeRange(req.StartsAt, req.EndsAt)
	if apierr != nil {
		return nil, apierr
	}

	slot, apierr := s.fetchOwnedSlot(id, caller.ID)
	if apierr != nil {
		return nil, apierr
	}

	// A live swap request pins the record until it is resolved.
	if slot.Status == entity.SlotSwapPending {
		return nil, apierror.SlotPendingError
	}

	slot.Title = req.Title
	slot.StartsAt = begin
	slot.EndsAt = end
	slot.UpdatedAt = utils.NowUTC()

	if err := s.Slots.Save(slot); err != nil {
		log.Errorf("failed to update slot %s: %v", id, err)
		return nil, apierror.InternalServerError
	}
	return toSlotResponse(slot), nil
}

func (s *DefaultSlotService) DeleteSlot(id, subId string) apierror.ErrorResponse {
	caller, apierr := s.fetchCaller(subId)
	if apierr != nil {
		return apierr
	}

	slot, apierr := s.fetchOwnedSlot(id, caller.ID)
	if apierr != nil {
		return apierr
	}

	if slot.Status == entity.SlotSwapPending {
		return apierror.SlotPendingError
	}

	if err := s.Slots.Delete(slot); err != nil {
		log.Errorf("failed to delete slot %s: %v", id, err)
		return apierror.InternalServerError
	}
	return nil
}

// ToggleSwappable flips a slot between BUSY and SWAPPABLE through the
// same compare-and-swap the swap engine uses to claim slots, so a toggle
// can never race a concurrent swap request into an inconsistent state.
func (s *DefaultSlotService) ToggleSwappable(id, subId string, makeSwappable bool) (*SlotResponse, apierror.ErrorResponse) {
	caller, apierr := s.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	slot, apierr := s.fetchOwnedSlot(id, caller.ID)
	if apierr != nil {
		return nil, apierr
	}

	expected, next := entity.SlotBusy, entity.SlotSwappable
	if !makeSwappable {
		expected, next = entity.SlotSwappable, entity.SlotBusy
	}

	updated, err := s.Slots.CompareAndSetStatus(slot.ID, expected, next)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			if slot.Status == entity.SlotSwapPending {
				return nil, apierror.SlotPendingError
			}
			return nil, apierror.NotSwappableError
		}
		log.Errorf("failed to toggle slot %s: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if updated == nil {
		return nil, apierror.NotFoundError
	}
	return toSlotResponse(updated), nil
}

func (s *DefaultSlotService) fetchCaller(subId string) (*entity.User, apierror.ErrorResponse) {
	caller, err := s.UserRepo.FindBySub(subId)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", subId, err)
		return nil, apierror.InternalServerError
	}
	if caller == nil {
		return nil, apierror.InvalidAuthTokenError
	}
	return caller, nil
}

func (s *DefaultSlotService) fetchOwnedSlot(id string, ownerID int) (*entity.Slot, apierror.ErrorResponse) {
	slot, err := s.Slots.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch slot %s: %v", id, err)
		return nil, apierror.InternalServerError
	}
	if slot == nil {
		return nil, apierror.NotFoundError
	}
	if slot.OwnerID != ownerID {
		return nil, apierror.NotOwnerError
	}
	return slot, nil
}

func parseTimeRange(startsAt, endsAt string) (int64, int64, apierror.ErrorResponse) {
	begin, err := utils.FromEpoch(startsAt)
	if err != nil {
		return 0, 0, apierror.MalformedBodyError
	}

	end, err := utils.FromEpoch(endsAt)
	if err != nil {
		return 0, 0, apierror.MalformedBodyError
	}

	if begin >= end {
		return 0, 0, apierror.InvalidTimeRangeError
	}
	return begin, end, nil
}

func toSlotResponse(slot *entity.Slot) *SlotResponse {
	return &SlotResponse{
		ID:        slot.ID,
		OwnerID:   slot.OwnerID,
		Title:     slot.Title,
		StartsAt:  utils.FormatEpoch(slot.StartsAt),
		EndsAt:    utils.FormatEpoch(slot.EndsAt),
		Status:    string(slot.Status),
		CreatedAt: utils.FormatEpoch(slot.CreatedAt),
		UpdatedAt: utils.FormatEpoch(slot.UpdatedAt),
	}
}
