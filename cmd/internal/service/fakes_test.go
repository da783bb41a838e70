package service

import (
	"sort"
	"sync"

	"swapcal/cmd/internal/domain"
	"swapcal/cmd/internal/domain/entity"
	"swapcal/cmd/internal/utils"
	"swapcal/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// In-memory stores with the same compare-and-swap contracts as the
// sqlite repositories, so the engine's protocol can be exercised under
// real goroutine races.

type fakeSlotStore struct {
	mu    sync.Mutex
	slots map[string]*entity.Slot

	// onCAS, when set, runs before a CompareAndSetStatus takes the lock.
	// Tests use it to interleave a competing write into the race window.
	onCAS func(id string)
}

func newFakeSlotStore() *fakeSlotStore {
	return &fakeSlotStore{slots: make(map[string]*entity.Slot)}
}

func (f *fakeSlotStore) put(slot *entity.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *slot
	f.slots[slot.ID] = &c
}

func (f *fakeSlotStore) setStatus(id string, status entity.SlotStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slot, ok := f.slots[id]; ok {
		slot.Status = status
	}
}

func (f *fakeSlotStore) FindByID(id string) (*entity.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slot, ok := f.slots[id]
	if !ok {
		return nil, nil
	}
	c := *slot
	return &c, nil
}

func (f *fakeSlotStore) FindByOwner(ownerID int) ([]*entity.Slot, error) {
	return f.filter(func(s *entity.Slot) bool { return s.OwnerID == ownerID }), nil
}

func (f *fakeSlotStore) ListSwappableExcluding(ownerID int) ([]*entity.Slot, error) {
	return f.filter(func(s *entity.Slot) bool {
		return s.Status == entity.SlotSwappable && s.OwnerID != ownerID
	}), nil
}

func (f *fakeSlotStore) filter(keep func(*entity.Slot) bool) []*entity.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.Slot
	for _, slot := range f.slots {
		if keep(slot) {
			c := *slot
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt < out[j].StartsAt })
	return out
}

func (f *fakeSlotStore) Save(slot *entity.Slot) error {
	f.put(slot)
	return nil
}

func (f *fakeSlotStore) Delete(slot *entity.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.slots, slot.ID)
	return nil
}

func (f *fakeSlotStore) CompareAndSetStatus(id string, expected, next entity.SlotStatus) (*entity.Slot, error) {
	if f.onCAS != nil {
		f.onCAS(id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	slot, ok := f.slots[id]
	if !ok {
		return nil, nil
	}
	if slot.Status != expected {
		return nil, domain.ErrConflict
	}

	slot.Status = next
	slot.UpdatedAt = utils.NowUTC()
	c := *slot
	return &c, nil
}

func (f *fakeSlotStore) TransferOwnership(id string, newOwnerID int, next entity.SlotStatus) (*entity.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slot, ok := f.slots[id]
	if !ok {
		return nil, nil
	}

	slot.OwnerID = newOwnerID
	slot.Status = next
	slot.UpdatedAt = utils.NowUTC()
	c := *slot
	return &c, nil
}

func (f *fakeSlotStore) snapshot() map[string]entity.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]entity.Slot, len(f.slots))
	for id, slot := range f.slots {
		out[id] = *slot
	}
	return out
}

func (f *fakeSlotStore) restore(snap map[string]entity.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.slots = make(map[string]*entity.Slot, len(snap))
	for id, slot := range snap {
		c := slot
		f.slots[id] = &c
	}
}

type fakeSwapLedger struct {
	mu   sync.Mutex
	reqs map[string]*entity.SwapRequest

	// createErr, when set, is returned by Create after the duplicate
	// check, standing in for a store failure.
	createErr error
}

func newFakeSwapLedger() *fakeSwapLedger {
	return &fakeSwapLedger{reqs: make(map[string]*entity.SwapRequest)}
}

func (f *fakeSwapLedger) put(req *entity.SwapRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *req
	f.reqs[req.ID] = &c
}

func (f *fakeSwapLedger) Create(requesterID, responderID int, mySlotID, theirSlotID, message string) (*entity.SwapRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, req := range f.reqs {
		if req.Status != entity.SwapPending {
			continue
		}
		for _, id := range []string{mySlotID, theirSlotID} {
			if req.MySlotID == id || req.TheirSlotID == id {
				return nil, domain.ErrDuplicatePending
			}
		}
	}

	if f.createErr != nil {
		return nil, f.createErr
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
	c := *req
	f.reqs[req.ID] = &c
	return req, nil
}

func (f *fakeSwapLedger) FindByID(id string) (*entity.SwapRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.reqs[id]
	if !ok {
		return nil, nil
	}
	c := *req
	return &c, nil
}

func (f *fakeSwapLedger) Resolve(id string, outcome entity.SwapStatus, actedBy int, actedAt int64) (*entity.SwapRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.reqs[id]
	if !ok {
		return nil, nil
	}
	if req.Status != entity.SwapPending {
		return nil, domain.ErrAlreadyResolved
	}

	req.Status = outcome
	req.ActionBy = &actedBy
	req.ActionAt = &actedAt
	c := *req
	return &c, nil
}

func (f *fakeSwapLedger) FindByRequester(userID int) ([]*entity.SwapRequest, error) {
	return f.filter(func(r *entity.SwapRequest) bool { return r.RequesterID == userID }), nil
}

func (f *fakeSwapLedger) FindByResponder(userID int) ([]*entity.SwapRequest, error) {
	return f.filter(func(r *entity.SwapRequest) bool { return r.ResponderID == userID }), nil
}

func (f *fakeSwapLedger) filter(keep func(*entity.SwapRequest) bool) []*entity.SwapRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.SwapRequest
	for _, req := range f.reqs {
		if keep(req) {
			c := *req
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}

func (f *fakeSwapLedger) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, req := range f.reqs {
		if req.Status == entity.SwapPending {
			n++
		}
	}
	return n
}

func (f *fakeSwapLedger) snapshot() map[string]entity.SwapRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]entity.SwapRequest, len(f.reqs))
	for id, req := range f.reqs {
		out[id] = *req
	}
	return out
}

func (f *fakeSwapLedger) restore(snap map[string]entity.SwapRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reqs = make(map[string]*entity.SwapRequest, len(snap))
	for id, req := range snap {
		c := req
		f.reqs[id] = &c
	}
}

// fakeTxManager serializes transactions and rolls both stores back to
// their pre-transaction snapshots when fn fails, matching the
// all-or-nothing contract of the sqlite transaction manager.
type fakeTxManager struct {
	mu    sync.Mutex
	slots *fakeSlotStore
	swaps *fakeSwapLedger
}

func (m *fakeTxManager) Do(fn func(slots domain.SlotStore, swaps domain.SwapLedger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slotSnap := m.slots.snapshot()
	swapSnap := m.swaps.snapshot()

	if err := fn(m.slots, m.swaps); err != nil {
		m.slots.restore(slotSnap)
		m.swaps.restore(swapSnap)
		return err
	}
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[int]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*entity.User)}
}

func (f *fakeUserRepo) put(user *entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *user
	f.users[user.ID] = &c
}

func (f *fakeUserRepo) FindByID(id int) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	c := *user
	return &c, nil
}

func (f *fakeUserRepo) FindBySub(sub string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.SubUUID == sub {
			c := *user
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByIDs(ids []int) ([]*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*entity.User
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			c := *user
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) FindAll() ([]*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*entity.User, 0, len(f.users))
	for _, user := range f.users {
		c := *user
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUserRepo) FindByEmail(email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			c := *user
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ExistsByEmail(email string) (bool, error) {
	user, _ := f.FindByEmail(email)
	return user != nil, nil
}

func (f *fakeUserRepo) Save(user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == 0 {
		user.ID = len(f.users) + 1
	}
	c := *user
	f.users[user.ID] = &c
	return nil
}

func newTestValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hasupper", validators.HasUpper)
	_ = v.RegisterValidation("haslower", validators.HasLower)
	_ = v.RegisterValidation("hasdigit", validators.HasDigit)
	_ = v.RegisterValidation("hasspecial", validators.HasSpecial)
	_ = v.RegisterValidation("nodupes", validators.NoDupes)
	_ = v.RegisterValidation("nospaces", validators.NoWhiteSpaces)
	_ = v.RegisterValidation("iso8601", validators.IsIso8601)
	return v
}
