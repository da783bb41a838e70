package service

import (
	"swapcal/cmd/internal/domain"
	"swapcal/cmd/internal/domain/entity"
	"swapcal/cmd/internal/utils"
	"swapcal/cmd/internal/utils/apierror"

	"github.com/labstack/gommon/log"
)

type MarketSlotResponse struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	StartsAt string       `json:"starts_at"`
	EndsAt   string       `json:"ends_at"`
	Status   string       `json:"status"`
	Owner    *SwapUserRef `json:"owner"`
}

// DefaultMarketService serves the read-only marketplace projections. It
// composes the slot store and the swap ledger but never writes either.
type DefaultMarketService struct {
	Slots    domain.SlotStore
	Swaps    domain.SwapLedger
	UserRepo UserRepository
}

func NewMarketService(slots domain.SlotStore, swaps domain.SwapLedger, userRepo UserRepository) *DefaultMarketService {
	return &DefaultMarketService{Slots: slots, Swaps: swaps, UserRepo: userRepo}
}

// Browse returns every slot currently offered for swapping by someone
// other than the caller, ordered by start time, with the owner's display
// identity joined in at query time.
func (m *DefaultMarketService) Browse(subId string) ([]*MarketSlotResponse, apierror.ErrorResponse) {
	caller, apierr := m.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	slots, err := m.Slots.ListSwappableExcluding(caller.ID)
	if err != nil {
		log.Errorf("failed to list swappable slots for user %d: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	owners, apierr := m.ownerIndex(slots)
	if apierr != nil {
		return nil, apierr
	}

	resp := make([]*MarketSlotResponse, len(slots))
	for i, slot := range slots {
		resp[i] = &MarketSlotResponse{
			ID:       slot.ID,
			Title:    slot.Title,
			StartsAt: utils.FormatEpoch(slot.StartsAt),
			EndsAt:   utils.FormatEpoch(slot.EndsAt),
			Status:   string(slot.Status),
			Owner:    owners[slot.OwnerID],
		}
	}
	return resp, nil
}

// Incoming lists swap requests awaiting the caller's decision plus the
// ones they already resolved, most recent first.
func (m *DefaultMarketService) Incoming(subId string) ([]*SwapRequestResponse, apierror.ErrorResponse) {
	return m.listRequests(subId, m.Swaps.FindByResponder)
}

// Outgoing lists swap requests the caller has sent, most recent first.
func (m *DefaultMarketService) Outgoing(subId string) ([]*SwapRequestResponse, apierror.ErrorResponse) {
	return m.listRequests(subId, m.Swaps.FindByRequester)
}

func (m *DefaultMarketService) listRequests(subId string, find func(userID int) ([]*entity.SwapRequest, error)) ([]*SwapRequestResponse, apierror.ErrorResponse) {
	caller, apierr := m.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	reqs, err := find(caller.ID)
	if err != nil {
		log.Errorf("failed to list swap requests for user %d: %v", caller.ID, err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*SwapRequestResponse, len(reqs))
	for i, req := range reqs {
		built, err := buildSwapResponse(req, m.Slots, m.UserRepo)
		if err != nil {
			log.Errorf("failed to build swap response for %s: %v", req.ID, err)
			return nil, apierror.InternalServerError
		}
		resp[i] = built
	}
	return resp, nil
}

func (m *DefaultMarketService) ownerIndex(slots []*entity.Slot) (map[int]*SwapUserRef, apierror.ErrorResponse) {
	seen := make(map[int]bool)
	ids := make([]int, 0, len(slots))
	for _, slot := range slots {
		if !seen[slot.OwnerID] {
			seen[slot.OwnerID] = true
			ids = append(ids, slot.OwnerID)
		}
	}

	index := make(map[int]*SwapUserRef, len(ids))
	if len(ids) == 0 {
		return index, nil
	}

	owners, err := m.UserRepo.FindByIDs(ids)
	if err != nil {
		log.Errorf("failed to fetch slot owners: %v", err)
		return nil, apierror.InternalServerError
	}

	for _, owner := range owners {
		index[owner.ID] = &SwapUserRef{ID: owner.ID, Name: owner.Name, Email: owner.Email}
	}
	return index, nil
}

func (m *DefaultMarketService) fetchCaller(subId string) (*entity.User, apierror.ErrorResponse) {
	caller, err := m.UserRepo.FindBySub(subId)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", subId, err)
		return nil, apierror.InternalServerError
	}
	if caller == nil {
		return nil, apierror.InvalidAuthTokenError
	}
	return caller, nil
}
