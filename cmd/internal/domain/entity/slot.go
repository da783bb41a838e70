package entity

type SlotStatus string

const (
	SlotBusy        SlotStatus = "BUSY"
	SlotSwappable   SlotStatus = "SWAPPABLE"
	SlotSwapPending SlotStatus = "SWAP_PENDING"
)

type Slot struct {
	ID        string     `gorm:"primaryKey"`
	OwnerID   int        `gorm:"not null;index"` // References: users(id)
	Title     string     `gorm:"not null"`
	StartsAt  int64      `gorm:"not null"`
	EndsAt    int64      `gorm:"not null"`
	Status    SlotStatus `gorm:"not null;index"`
	CreatedAt int64      `gorm:"not null"`
	UpdatedAt int64      `gorm:"not null"`

	// Relations
	Owner User `gorm:"foreignKey:OwnerID;references:ID"`
}
