package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/hotelops/backoffice/internal/pkg/logger"
	"github.com/rs/zerolog"
)

// ConciergeService manages wake-up calls and taxi bookings. Every
// operation requires the reception capability.
type ConciergeService struct {
	store   domain.DocumentStore
	wakeUps *Live[[]domain.WakeUpCall]
	taxis   *Live[[]domain.TaxiBooking]
	log     zerolog.Logger
}

// NewConciergeService starts following both concierge collections
func NewConciergeService(ctx context.Context, store domain.DocumentStore) (*ConciergeService, error) {
	wakeUps, err := SubscribeQuery(ctx, store, domain.WakeUpCallsCollection, decodeWakeUpCalls)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to wake-up calls: %w", err)
	}

	taxis, err := SubscribeQuery(ctx, store, domain.TaxiBookingsCollection, decodeTaxiBookings)
	if err != nil {
		wakeUps.Close()
		return nil, fmt.Errorf("failed to subscribe to taxi bookings: %w", err)
	}

	return &ConciergeService{
		store:   store,
		wakeUps: wakeUps,
		taxis:   taxis,
		log:     logger.Component("concierge"),
	}, nil
}

// WakeUpCalls returns the scheduled calls, earliest first
func (s *ConciergeService) WakeUpCalls(caller domain.Principal) ([]domain.WakeUpCall, error) {
	if err := requireCapability(caller, domain.CanViewReception); err != nil {
		return nil, err
	}
	calls, _ := s.wakeUps.Snapshot()
	return calls, nil
}

// ScheduleWakeUp creates a wake-up call
func (s *ConciergeService) ScheduleWakeUp(ctx context.Context, caller domain.Principal, room, guestName string, at time.Time, notes string) (domain.WakeUpCall, error) {
	if err := requireCapability(caller, domain.CanViewReception); err != nil {
		return domain.WakeUpCall{}, err
	}
	room = strings.TrimSpace(room)
	if room == "" || at.IsZero() {
		return domain.WakeUpCall{}, fmt.Errorf("%w: room and time are required", domain.ErrInvalidInput)
	}

	call := domain.NewWakeUpCall(room, strings.TrimSpace(guestName), at, notes)
	if err := s.store.MergeWrite(ctx, domain.JoinPath(domain.WakeUpCallsCollection, call.ID), call.Document()); err != nil {
		return domain.WakeUpCall{}, fmt.Errorf("failed to schedule wake-up call: %w", err)
	}

	s.log.Info().Str("uid", caller.UID).Str("room", room).Time("at", at).Msg("Wake-up call scheduled")
	return call, nil
}

// SetWakeUpDone marks a call as made or pending
func (s *ConciergeService) SetWakeUpDone(ctx context.Context, caller domain.Principal, id string, done bool) error {
	return s.update(ctx, caller, domain.WakeUpCallsCollection, id, domain.Document{"done": done})
}

// CancelWakeUp removes a call
func (s *ConciergeService) CancelWakeUp(ctx context.Context, caller domain.Principal, id string) error {
	return s.remove(ctx, caller, domain.WakeUpCallsCollection, id)
}

// TaxiBookings returns the bookings, earliest pickup first
func (s *ConciergeService) TaxiBookings(caller domain.Principal) ([]domain.TaxiBooking, error) {
	if err := requireCapability(caller, domain.CanViewReception); err != nil {
		return nil, err
	}
	bookings, _ := s.taxis.Snapshot()
	return bookings, nil
}

// BookTaxi creates a taxi booking
func (s *ConciergeService) BookTaxi(ctx context.Context, caller domain.Principal, room, guestName string, pickup time.Time, destination string, passengers int) (domain.TaxiBooking, error) {
	if err := requireCapability(caller, domain.CanViewReception); err != nil {
		return domain.TaxiBooking{}, err
	}
	destination = strings.TrimSpace(destination)
	if destination == "" || pickup.IsZero() {
		return domain.TaxiBooking{}, fmt.Errorf("%w: destination and pickup time are required", domain.ErrInvalidInput)
	}

	booking := domain.NewTaxiBooking(strings.TrimSpace(room), strings.TrimSpace(guestName), pickup, destination, passengers)
	if err := s.store.MergeWrite(ctx, domain.JoinPath(domain.TaxiBookingsCollection, booking.ID), booking.Document()); err != nil {
		return domain.TaxiBooking{}, fmt.Errorf("failed to book taxi: %w", err)
	}

	s.log.Info().Str("uid", caller.UID).Str("destination", destination).Time("pickup", pickup).Msg("Taxi booked")
	return booking, nil
}

// SetTaxiStatus moves a booking to status
func (s *ConciergeService) SetTaxiStatus(ctx context.Context, caller domain.Principal, id string, status domain.TaxiStatus) error {
	return s.update(ctx, caller, domain.TaxiBookingsCollection, id,
		domain.Document{"status": string(domain.ParseTaxiStatus(string(status)))})
}

// CancelTaxi removes a booking
func (s *ConciergeService) CancelTaxi(ctx context.Context, caller domain.Principal, id string) error {
	return s.remove(ctx, caller, domain.TaxiBookingsCollection, id)
}

// WakeUpFeed and TaxiFeed expose the projections for streaming consumers
func (s *ConciergeService) WakeUpFeed() *Live[[]domain.WakeUpCall] { return s.wakeUps }
func (s *ConciergeService) TaxiFeed() *Live[[]domain.TaxiBooking]  { return s.taxis }

// Close stops following both collections
func (s *ConciergeService) Close() {
	s.wakeUps.Close()
	s.taxis.Close()
}

func (s *ConciergeService) update(ctx context.Context, caller domain.Principal, collection, id string, patch domain.Document) error {
	path, err := s.existing(ctx, caller, collection, id)
	if err != nil {
		return err
	}
	if err := s.store.MergeWrite(ctx, path, patch); err != nil {
		return fmt.Errorf("failed to update %s: %w", collection, err)
	}
	return nil
}

func (s *ConciergeService) remove(ctx context.Context, caller domain.Principal, collection, id string) error {
	path, err := s.existing(ctx, caller, collection, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, path); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	return nil
}

func (s *ConciergeService) existing(ctx context.Context, caller domain.Principal, collection, id string) (string, error) {
	if err := requireCapability(caller, domain.CanViewReception); err != nil {
		return "", err
	}
	if err := requireID(id); err != nil {
		return "", err
	}

	path := domain.JoinPath(collection, id)
	snap, err := s.store.Get(ctx, path)
	if err != nil {
		return "", err
	}
	if !snap.Exists {
		return "", fmt.Errorf("%s %s: %w", collection, id, domain.ErrNotFound)
	}
	return path, nil
}

func decodeWakeUpCalls(snap domain.QuerySnapshot) []domain.WakeUpCall {
	calls := make([]domain.WakeUpCall, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		calls = append(calls, domain.WakeUpCallFromSnapshot(doc))
	}
	domain.SortWakeUpCalls(calls)
	return calls
}

func decodeTaxiBookings(snap domain.QuerySnapshot) []domain.TaxiBooking {
	bookings := make([]domain.TaxiBooking, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		bookings = append(bookings, domain.TaxiBookingFromSnapshot(doc))
	}
	domain.SortTaxiBookings(bookings)
	return bookings
}
