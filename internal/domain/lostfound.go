package domain

import (
	"time"

	"github.com/google/uuid"
)

// LostItemsCollection holds the lost-and-found inventory
const LostItemsCollection = "lostfound"

// LostItemStatus tracks an inventory item
type LostItemStatus string

const (
	LostItemStored   LostItemStatus = "stored"
	LostItemReturned LostItemStatus = "returned"
)

// LostItem is one object in the lost-and-found inventory
type LostItem struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	FoundBy     string         `json:"foundBy"`
	FoundAt     time.Time      `json:"foundAt"`
	Status      LostItemStatus `json:"status"`
	ReturnedTo  string         `json:"returnedTo,omitempty"`
	PhotoURL    string         `json:"photoUrl,omitempty"`
}

// NewLostItem creates a stored item
func NewLostItem(description, location, foundBy string, foundAt time.Time) LostItem {
	return LostItem{
		ID:          uuid.New().String(),
		Description: description,
		Location:    location,
		FoundBy:     foundBy,
		FoundAt:     foundAt,
		Status:      LostItemStored,
	}
}

// Document returns the stored form of the item
func (l LostItem) Document() Document {
	return Document{
		"description": l.Description,
		"location":    l.Location,
		"foundBy":     l.FoundBy,
		"foundAt":     l.FoundAt.UTC(),
		"status":      string(l.Status),
		"returnedTo":  l.ReturnedTo,
		"photoUrl":    l.PhotoURL,
	}
}

// LostItemFromSnapshot decodes a stored item
func LostItemFromSnapshot(snap DocumentSnapshot) LostItem {
	d := snap.Data
	item := LostItem{
		ID:          snap.ID(),
		Description: stringField(d, "description", ""),
		Location:    stringField(d, "location", ""),
		FoundBy:     stringField(d, "foundBy", ""),
		FoundAt:     timeField(d, "foundAt"),
		Status:      LostItemStored,
		ReturnedTo:  stringField(d, "returnedTo", ""),
		PhotoURL:    stringField(d, "photoUrl", ""),
	}
	if stringField(d, "status", "") == string(LostItemReturned) {
		item.Status = LostItemReturned
	}
	if item.FoundAt.IsZero() {
		item.FoundAt = snap.CreatedAt
	}
	return item
}
