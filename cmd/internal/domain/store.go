package domain

import (
	"errors"

	"swapcal/cmd/internal/domain/entity"
)

// Store-level errors. Services translate these into API errors before
// they reach a route; a raw conflict never crosses the HTTP boundary.
var (
	// ErrConflict is a compare-and-swap miss: the record exists but its
	// current status did not match the expected one.
	ErrConflict = errors.New("status conflict")

	// ErrDuplicatePending means a PENDING swap request already references
	// one of the slots involved.
	ErrDuplicatePending = errors.New("duplicate pending swap request")

	// ErrAlreadyResolved means the swap request left PENDING earlier;
	// terminal requests are immutable.
	ErrAlreadyResolved = errors.New("swap request already resolved")
)

// SlotStore holds slot records. All mutations are single-record atomic
// operations; multi-record atomicity belongs to the swap engine.
type SlotStore interface {
	FindByID(id string) (*entity.Slot, error)
	FindByOwner(ownerID int) ([]*entity.Slot, error)
	ListSwappableExcluding(ownerID int) ([]*entity.Slot, error)
	Save(slot *entity.Slot) error
	Delete(slot *entity.Slot) error

	// CompareAndSetStatus updates the status only if the current status
	// equals expected. Returns (nil, ErrConflict) on a status mismatch and
	// (nil, nil) when the slot does not exist.
	CompareAndSetStatus(id string, expected, next entity.SlotStatus) (*entity.Slot, error)

	// TransferOwnership sets owner and status together in one write.
	// Returns (nil, nil) when the slot does not exist.
	TransferOwnership(id string, newOwnerID int, next entity.SlotStatus) (*entity.Slot, error)
}

// SwapLedger holds swap-request records.
type SwapLedger interface {
	// Create inserts a new PENDING request. Fails with ErrDuplicatePending
	// if a PENDING request already references mySlotID or theirSlotID.
	Create(requesterID, responderID int, mySlotID, theirSlotID, message string) (*entity.SwapRequest, error)

	FindByID(id string) (*entity.SwapRequest, error)

	// Resolve moves the request from PENDING to outcome, recording who
	// acted and when. Returns (nil, ErrAlreadyResolved) if the request is
	// already terminal and (nil, nil) when it does not exist.
	Resolve(id string, outcome entity.SwapStatus, actedBy int, actedAt int64) (*entity.SwapRequest, error)

	FindByRequester(userID int) ([]*entity.SwapRequest, error)
	FindByResponder(userID int) ([]*entity.SwapRequest, error)
}

// TxManager runs fn against both stores inside one atomic scope: either
// every write fn performs is committed, or none of them is.
type TxManager interface {
	Do(fn func(slots SlotStore, swaps SwapLedger) error) error
}
