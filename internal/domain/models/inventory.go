package models

import "time"

// InventoryCategory groups stock items.
type InventoryCategory string

const (
	CategoryFeed       InventoryCategory = "feed"
	CategoryEggs       InventoryCategory = "eggs"
	CategoryMedication InventoryCategory = "medication"
	CategoryVaccine    InventoryCategory = "vaccine"
	CategoryEquipment  InventoryCategory = "equipment"
	CategoryOther      InventoryCategory = "other"
)

// Valid reports whether the category is known.
func (c InventoryCategory) Valid() bool {
	switch c {
	case CategoryFeed, CategoryEggs, CategoryMedication, CategoryVaccine, CategoryEquipment, CategoryOther:
		return true
	default:
		return false
	}
}

// InventoryItem is a stock line tracked by the farm store.
type InventoryItem struct {
	ID           string            `bson:"_id" json:"id"`
	Name         string            `bson:"name" json:"name"`
	Category     InventoryCategory `bson:"category" json:"category"`
	Quantity     float64           `bson:"quantity" json:"quantity"`
	Unit         string            `bson:"unit" json:"unit"`
	MinThreshold float64           `bson:"min_threshold" json:"minThreshold"`
	UpdatedAt    time.Time         `bson:"updated_at" json:"updatedAt"`
}

// Low reports whether the item is at or below its reorder threshold.
func (i InventoryItem) Low() bool {
	return i.MinThreshold > 0 && i.Quantity <= i.MinThreshold
}
