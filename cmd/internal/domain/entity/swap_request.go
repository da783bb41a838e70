package entity

type SwapStatus string

const (
	SwapPending  SwapStatus = "PENDING"
	SwapAccepted SwapStatus = "ACCEPTED"
	SwapRejected SwapStatus = "REJECTED"
)

// Terminal reports whether no further transition is permitted.
func (s SwapStatus) Terminal() bool {
	return s == SwapAccepted || s == SwapRejected
}

type SwapRequest struct {
	ID          string     `gorm:"primaryKey"`
	RequesterID int        `gorm:"not null;index"` // References: users(id)
	ResponderID int        `gorm:"not null;index"` // References: users(id)
	MySlotID    string     `gorm:"not null;index"` // References: slots(id), owned by requester at creation
	TheirSlotID string     `gorm:"not null;index"` // References: slots(id), owned by responder at creation
	Status      SwapStatus `gorm:"not null;index"`
	Message     string
	CreatedAt   int64  `gorm:"not null"`
	ActionAt    *int64 // set when leaving PENDING
	ActionBy    *int   // who resolved it

	// Relations
	Requester User `gorm:"foreignKey:RequesterID;references:ID"`
	Responder User `gorm:"foreignKey:ResponderID;references:ID"`
	MySlot    Slot `gorm:"foreignKey:MySlotID;references:ID"`
	TheirSlot Slot `gorm:"foreignKey:TheirSlotID;references:ID"`
}
