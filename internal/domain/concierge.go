package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	WakeUpCallsCollection  = "wakeups"
	TaxiBookingsCollection = "taxis"
)

// WakeUpCall is a scheduled guest wake-up call
type WakeUpCall struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	GuestName string    `json:"guestName"`
	Time      time.Time `json:"time"`
	Notes     string    `json:"notes,omitempty"`
	Done      bool      `json:"done"`
}

// NewWakeUpCall creates a pending wake-up call
func NewWakeUpCall(room, guestName string, at time.Time, notes string) WakeUpCall {
	return WakeUpCall{
		ID:        uuid.New().String(),
		Room:      room,
		GuestName: guestName,
		Time:      at,
		Notes:     notes,
	}
}

// Document returns the stored form of the call
func (w WakeUpCall) Document() Document {
	return Document{
		"room":      w.Room,
		"guestName": w.GuestName,
		"time":      w.Time.UTC(),
		"notes":     w.Notes,
		"done":      w.Done,
	}
}

// WakeUpCallFromSnapshot decodes a stored call
func WakeUpCallFromSnapshot(snap DocumentSnapshot) WakeUpCall {
	d := snap.Data
	return WakeUpCall{
		ID:        snap.ID(),
		Room:      stringField(d, "room", ""),
		GuestName: stringField(d, "guestName", ""),
		Time:      timeField(d, "time"),
		Notes:     stringField(d, "notes", ""),
		Done:      boolField(d, "done", false),
	}
}

// TaxiStatus tracks a taxi booking
type TaxiStatus string

const (
	TaxiStatusRequested TaxiStatus = "requested"
	TaxiStatusConfirmed TaxiStatus = "confirmed"
	TaxiStatusCompleted TaxiStatus = "completed"
	TaxiStatusCancelled TaxiStatus = "cancelled"
)

// ParseTaxiStatus maps unknown values to requested
func ParseTaxiStatus(value string) TaxiStatus {
	switch TaxiStatus(value) {
	case TaxiStatusConfirmed, TaxiStatusCompleted, TaxiStatusCancelled:
		return TaxiStatus(value)
	}
	return TaxiStatusRequested
}

// TaxiBooking is a taxi ordered for a guest
type TaxiBooking struct {
	ID          string     `json:"id"`
	Room        string     `json:"room"`
	GuestName   string     `json:"guestName"`
	PickupTime  time.Time  `json:"pickupTime"`
	Destination string     `json:"destination"`
	Passengers  int        `json:"passengers"`
	Status      TaxiStatus `json:"status"`
}

// NewTaxiBooking creates a requested booking
func NewTaxiBooking(room, guestName string, pickup time.Time, destination string, passengers int) TaxiBooking {
	if passengers < 1 {
		passengers = 1
	}
	return TaxiBooking{
		ID:          uuid.New().String(),
		Room:        room,
		GuestName:   guestName,
		PickupTime:  pickup,
		Destination: destination,
		Passengers:  passengers,
		Status:      TaxiStatusRequested,
	}
}

// Document returns the stored form of the booking
func (t TaxiBooking) Document() Document {
	return Document{
		"room":        t.Room,
		"guestName":   t.GuestName,
		"pickupTime":  t.PickupTime.UTC(),
		"destination": t.Destination,
		"passengers":  float64(t.Passengers),
		"status":      string(t.Status),
	}
}

// TaxiBookingFromSnapshot decodes a stored booking
func TaxiBookingFromSnapshot(snap DocumentSnapshot) TaxiBooking {
	d := snap.Data
	t := TaxiBooking{
		ID:          snap.ID(),
		Room:        stringField(d, "room", ""),
		GuestName:   stringField(d, "guestName", ""),
		PickupTime:  timeField(d, "pickupTime"),
		Destination: stringField(d, "destination", ""),
		Passengers:  1,
		Status:      ParseTaxiStatus(stringField(d, "status", "")),
	}
	if n, ok := numberField(d, "passengers"); ok && n >= 1 {
		t.Passengers = int(n)
	}
	return t
}

// SortWakeUpCalls orders calls by scheduled time, earliest first
func SortWakeUpCalls(calls []WakeUpCall) {
	sort.SliceStable(calls, func(i, j int) bool { return calls[i].Time.Before(calls[j].Time) })
}

// SortTaxiBookings orders bookings by pickup time, earliest first
func SortTaxiBookings(bookings []TaxiBooking) {
	sort.SliceStable(bookings, func(i, j int) bool { return bookings[i].PickupTime.Before(bookings[j].PickupTime) })
}
