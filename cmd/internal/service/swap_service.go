package service

import (
	"errors"
	"fmt"

	"swapcal/cmd/internal/domain"
	"swapcal/cmd/internal/domain/entity"
	"swapcal/cmd/internal/utils"
	"swapcal/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

type CreateSwapRequest struct {
	MySlotID    string `json:"my_slot_id" validate:"required"`
	TheirSlotID string `json:"their_slot_id" validate:"required"`
	Message     string `json:"message" validate:"max=500"`
}

type ResolveSwapRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

type SwapUserRef struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SwapSlotRef struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
	Status   string `json:"status"`
}

type SwapRequestResponse struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	Message   string       `json:"message,omitempty"`
	Requester *SwapUserRef `json:"requester"`
	Responder *SwapUserRef `json:"responder"`
	MySlot    *SwapSlotRef `json:"my_slot"`
	TheirSlot *SwapSlotRef `json:"their_slot"`
	CreatedAt string       `json:"created_at"`
	ActionAt  *string      `json:"action_at,omitempty"`
	ActionBy  *int         `json:"action_by,omitempty"`
}

// DefaultSwapService is the transaction engine for two-party slot swaps.
// It is the only writer of slot ownership and of cross-record status
// invariants; the stores themselves only offer single-record primitives.
type DefaultSwapService struct {
	Slots    domain.SlotStore
	Swaps    domain.SwapLedger
	UserRepo UserRepository
	Tx       domain.TxManager
	Validate *validator.Validate
}

func NewSwapService(slots domain.SlotStore, swaps domain.SwapLedger, userRepo UserRepository, tx domain.TxManager, validate *validator.Validate) *DefaultSwapService {
	return &DefaultSwapService{Slots: slots, Swaps: swaps, UserRepo: userRepo, Tx: tx, Validate: validate}
}

// CreateRequest proposes exchanging the caller's slot for someone
// else's. Both slots are claimed (SWAPPABLE -> SWAP_PENDING) through
// compare-and-swap before the ledger row is written; if any step loses a
// race, every claim already taken is released again so a failed call
// leaves both slots exactly as it found them.
func (s *DefaultSwapService) CreateRequest(req *CreateSwapRequest, subId string) (*SwapRequestResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if err := s.Validate.Struct(req); err != nil {
		return nil, apierror.FromValidationError(err)
	}

	if req.MySlotID == req.TheirSlotID {
		return nil, apierror.NewSimple(400, "Cannot swap a slot with itself")
	}

	caller, apierr := s.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	mySlot, theirSlot, apierr := s.fetchSwapPair(req.MySlotID, req.TheirSlotID)
	if apierr != nil {
		return nil, apierr
	}

	if mySlot.OwnerID != caller.ID {
		return nil, apierror.NotOwnerError
	}

	if theirSlot.OwnerID == caller.ID {
		return nil, apierror.NewSimple(400, "Cannot swap two of your own slots")
	}

	// A SWAP_PENDING slot is, by invariant, referenced by exactly one
	// pending request, so the caller is told about the duplicate rather
	// than the raw status mismatch.
	if mySlot.Status == entity.SlotSwapPending || theirSlot.Status == entity.SlotSwapPending {
		return nil, apierror.DuplicatePendingError
	}

	if mySlot.Status != entity.SlotSwappable || theirSlot.Status != entity.SlotSwappable {
		return nil, apierror.NotSwappableError
	}

	// Phase one: claim both slots. The claim is the mutual exclusion
	// scope for everything that follows; of two racing creators only one
	// can move a slot out of SWAPPABLE.
	if apierr := s.claim(mySlot.ID); apierr != nil {
		return nil, apierr
	}

	if apierr := s.claim(theirSlot.ID); apierr != nil {
		s.release(mySlot.ID)
		return nil, apierr
	}

	// Phase two: record the request. Both slots are held, so the ledger's
	// duplicate check cannot race another creator.
	swapReq, err := s.Swaps.Create(caller.ID, theirSlot.OwnerID, mySlot.ID, theirSlot.ID, req.Message)
	if err != nil {
		s.release(mySlot.ID)
		s.release(theirSlot.ID)
		if errors.Is(err, domain.ErrDuplicatePending) {
			return nil, apierror.DuplicatePendingError
		}
		log.Errorf("failed to create swap request: %v", err)
		return nil, apierror.InternalServerError
	}

	log.Infof("swap request %s created by user %d (%s <-> %s)", swapReq.ID, caller.ID, mySlot.ID, theirSlot.ID)
	return s.buildResponse(swapReq)
}

var errRequestMissing = errors.New("swap request row disappeared")

// ResolveRequest accepts or rejects a pending swap. The ledger
// transition and both slot writes run in one transaction: on accept the
// two owners are exchanged and both slots end BUSY, on reject both slots
// return to SWAPPABLE, and in neither case can a half-applied state be
// observed. A replayed resolve loses the ledger's compare-and-swap and
// reports AlreadyResolved without touching any slot.
func (s *DefaultSwapService) ResolveRequest(requestID, subId string, accept bool) (*SwapRequestResponse, apierror.ErrorResponse) {
	caller, apierr := s.fetchCaller(subId)
	if apierr != nil {
		return nil, apierr
	}

	swapReq, err := s.Swaps.FindByID(requestID)
	if err != nil {
		log.Errorf("failed to fetch swap request %s: %v", requestID, err)
		return nil, apierror.InternalServerError
	}

	if swapReq == nil {
		return nil, apierror.NotFoundError
	}

	if swapReq.Status.Terminal() {
		return nil, apierror.AlreadyResolvedError
	}

	if swapReq.ResponderID != caller.ID {
		return nil, apierror.NotResponderError
	}

	outcome := entity.SwapRejected
	if accept {
		outcome = entity.SwapAccepted
	}

	now := utils.NowUTC()
	var resolved *entity.SwapRequest

	err = s.Tx.Do(func(slots domain.SlotStore, swaps domain.SwapLedger) error {
		r, err := swaps.Resolve(requestID, outcome, caller.ID, now)
		if err != nil {
			return err
		}
		if r == nil {
			return errRequestMissing
		}

		if accept {
			if err := exchangeOwners(slots, r); err != nil {
				return err
			}
		} else {
			if err := releaseSlots(slots, r); err != nil {
				return err
			}
		}

		resolved = r
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyResolved):
			return nil, apierror.AlreadyResolvedError
		case errors.Is(err, errRequestMissing):
			return nil, apierror.NotFoundError
		default:
			log.Errorf("failed to resolve swap request %s: %v", requestID, err)
			return nil, apierror.InternalServerError
		}
	}

	log.Infof("swap request %s resolved as %s by user %d", requestID, outcome, caller.ID)
	return s.buildResponse(resolved)
}

// exchangeOwners swaps the owner of the two slots and parks both in
// BUSY. Owner and status move in one write per slot, inside the caller's
// transaction.
func exchangeOwners(slots domain.SlotStore, r *entity.SwapRequest) error {
	mySlot, err := slots.FindByID(r.MySlotID)
	if err != nil {
		return err
	}
	theirSlot, err := slots.FindByID(r.TheirSlotID)
	if err != nil {
		return err
	}
	if mySlot == nil || theirSlot == nil {
		return fmt.Errorf("swap request %s references a missing slot", r.ID)
	}

	requesterOwner := mySlot.OwnerID
	transfers := []struct {
		slotID   string
		newOwner int
	}{
		{mySlot.ID, theirSlot.OwnerID},
		{theirSlot.ID, requesterOwner},
	}

	for _, t := range transfers {
		updated, err := slots.TransferOwnership(t.slotID, t.newOwner, entity.SlotBusy)
		if err != nil {
			return fmt.Errorf("transfer of slot %s failed: %w", t.slotID, err)
		}
		if updated == nil {
			return fmt.Errorf("transfer of slot %s failed: slot not found", t.slotID)
		}
	}
	return nil
}

// releaseSlots puts both slots of a rejected request back on the market.
// A conflict here means the SWAP_PENDING invariant was broken elsewhere,
// so the whole resolution is rolled back.
func releaseSlots(slots domain.SlotStore, r *entity.SwapRequest) error {
	for _, id := range []string{r.MySlotID, r.TheirSlotID} {
		updated, err := slots.CompareAndSetStatus(id, entity.SlotSwapPending, entity.SlotSwappable)
		if err != nil {
			return fmt.Errorf("release of slot %s failed: %w", id, err)
		}
		if updated == nil {
			return fmt.Errorf("release of slot %s failed: slot not found", id)
		}
	}
	return nil
}

func (s *DefaultSwapService) claim(slotID string) apierror.ErrorResponse {
	claimed, err := s.Slots.CompareAndSetStatus(slotID, entity.SlotSwappable, entity.SlotSwapPending)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Someone else moved the slot out of SWAPPABLE between our
			// precondition read and the claim.
			return apierror.DuplicatePendingError
		}
		log.Errorf("failed to claim slot %s: %v", slotID, err)
		return apierror.InternalServerError
	}
	if claimed == nil {
		return apierror.NotFoundError
	}
	return nil
}

// release is the compensating step for a failed create: it hands a
// claimed slot back to the market. It runs to completion regardless of
// why the create aborted.
func (s *DefaultSwapService) release(slotID string) {
	if _, err := s.Slots.CompareAndSetStatus(slotID, entity.SlotSwapPending, entity.SlotSwappable); err != nil {
		log.Errorf("failed to release claim on slot %s: %v", slotID, err)
	}
}

func (s *DefaultSwapService) fetchCaller(subId string) (*entity.User, apierror.ErrorResponse) {
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

func (s *DefaultSwapService) fetchSwapPair(mySlotID, theirSlotID string) (*entity.Slot, *entity.Slot, apierror.ErrorResponse) {
	mySlot, err := s.Slots.FindByID(mySlotID)
	if err != nil {
		log.Errorf("failed to fetch slot %s: %v", mySlotID, err)
		return nil, nil, apierror.InternalServerError
	}

	theirSlot, err := s.Slots.FindByID(theirSlotID)
	if err != nil {
		log.Errorf("failed to fetch slot %s: %v", theirSlotID, err)
		return nil, nil, apierror.InternalServerError
	}

	if mySlot == nil || theirSlot == nil {
		return nil, nil, apierror.NotFoundError
	}
	return mySlot, theirSlot, nil
}

func (s *DefaultSwapService) buildResponse(req *entity.SwapRequest) (*SwapRequestResponse, apierror.ErrorResponse) {
	resp, err := buildSwapResponse(req, s.Slots, s.UserRepo)
	if err != nil {
		log.Errorf("failed to build swap response for %s: %v", req.ID, err)
		return nil, apierror.InternalServerError
	}
	return resp, nil
}

// buildSwapResponse resolves the request's foreign keys to their current
// display snapshots. Slot titles and statuses are read at response time,
// not cached from creation.
func buildSwapResponse(req *entity.SwapRequest, slots domain.SlotStore, users UserRepository) (*SwapRequestResponse, error) {
	resp := &SwapRequestResponse{
		ID:        req.ID,
		Status:    string(req.Status),
		Message:   req.Message,
		CreatedAt: utils.FormatEpoch(req.CreatedAt),
		ActionBy:  req.ActionBy,
	}

	if req.ActionAt != nil {
		at := utils.FormatEpoch(*req.ActionAt)
		resp.ActionAt = &at
	}

	for _, ref := range []struct {
		userID int
		out    **SwapUserRef
	}{
		{req.RequesterID, &resp.Requester},
		{req.ResponderID, &resp.Responder},
	} {
		user, err := users.FindByID(ref.userID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			*ref.out = &SwapUserRef{ID: user.ID, Name: user.Name, Email: user.Email}
		}
	}

	for _, ref := range []struct {
		slotID string
		out    **SwapSlotRef
	}{
		{req.MySlotID, &resp.MySlot},
		{req.TheirSlotID, &resp.TheirSlot},
	} {
		slot, err := slots.FindByID(ref.slotID)
		if err != nil {
			return nil, err
		}
		if slot != nil {
			*ref.out = &SwapSlotRef{
				ID:       slot.ID,
				Title:    slot.Title,
				StartsAt: utils.FormatEpoch(slot.StartsAt),
				EndsAt:   utils.FormatEpoch(slot.EndsAt),
				Status:   string(slot.Status),
			}
		}
	}

	return resp, nil
}
