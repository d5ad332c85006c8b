package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flightline-aero/flightdeck-scheduling/platform/go/persistence"
	"github.com/flightline-aero/flightdeck-scheduling/platform/go/tenant"
)

// MemoryRepository is an in-memory Repository used by service tests. It
// mirrors the store semantics: tenant scoping from the context, the half-open
// overlap predicate, the unique availability tuple, and pagination counts.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]map[uuid.UUID]persistence.User
	bookings map[uuid.UUID]map[uuid.UUID]persistence.Booking
	slots    map[uuid.UUID]map[uuid.UUID]persistence.AvailabilitySlot
	now      func() time.Time
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[uuid.UUID]map[uuid.UUID]persistence.User),
		bookings: make(map[uuid.UUID]map[uuid.UUID]persistence.Booking),
		slots:    make(map[uuid.UUID]map[uuid.UUID]persistence.AvailabilitySlot),
		now:      time.Now,
	}
}

// AddUser seeds a user so joined identity summaries resolve.
func (m *MemoryRepository) AddUser(u persistence.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users[u.TenantID] == nil {
		m.users[u.TenantID] = make(map[uuid.UUID]persistence.User)
	}
	m.users[u.TenantID][u.UserID] = u
}

func (m *MemoryRepository) summary(tenantID, userID uuid.UUID) persistence.UserSummary {
	if u, ok := m.users[tenantID][userID]; ok {
		return persistence.UserSummary{ID: u.UserID, Name: u.Name, Email: u.Email}
	}
	return persistence.UserSummary{ID: userID}
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func overlapsBooking(b persistence.Booking, tenantID uuid.UUID, p persistence.OverlapParams) bool {
	if b.TenantID != tenantID || b.InstructorID != p.InstructorID || b.Date != p.Date {
		return false
	}
	if p.ExcludeBookingID != nil && b.BookingID == *p.ExcludeBookingID {
		return false
	}
	if !containsStatus(p.Statuses, b.Status) {
		return false
	}
	return b.StartTime < p.EndTime && b.EndTime > p.StartTime
}

func sortBookings(bookings []persistence.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].Date != bookings[j].Date {
			return bookings[i].Date < bookings[j].Date
		}
		return bookings[i].StartTime < bookings[j].StartTime
	})
}

func (m *MemoryRepository) CreateBooking(ctx context.Context, params persistence.CreateBookingParams) (persistence.Booking, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.Booking{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	probe := persistence.OverlapParams{
		InstructorID: params.InstructorID,
		Date:         params.Date,
		StartTime:    params.StartTime,
		EndTime:      params.EndTime,
		Statuses:     params.BlockingStatuses,
	}
	for _, b := range m.bookings[scope.TenantID] {
		if overlapsBooking(b, scope.TenantID, probe) {
			return persistence.Booking{}, persistence.ErrBookingOverlap
		}
	}

	now := m.now()
	booking := persistence.Booking{
		BookingID:    params.BookingID,
		TenantID:     scope.TenantID,
		StudentID:    params.StudentID,
		InstructorID: params.InstructorID,
		Date:         params.Date,
		StartTime:    params.StartTime,
		EndTime:      params.EndTime,
		Status:       params.Status,
		Notes:        params.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
		Student:      m.summary(scope.TenantID, params.StudentID),
		Instructor:   m.summary(scope.TenantID, params.InstructorID),
	}
	if m.bookings[scope.TenantID] == nil {
		m.bookings[scope.TenantID] = make(map[uuid.UUID]persistence.Booking)
	}
	m.bookings[scope.TenantID][booking.BookingID] = booking

	return booking, nil
}

func (m *MemoryRepository) GetBooking(ctx context.Context, id uuid.UUID) (persistence.Booking, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.Booking{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	booking, ok := m.bookings[scope.TenantID][id]
	if !ok {
		return persistence.Booking{}, persistence.ErrBookingNotFound
	}
	return booking, nil
}

func (m *MemoryRepository) ListBookings(ctx context.Context, params persistence.ListBookingsParams) (persistence.ListBookingsResult, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.ListBookingsResult{}, err
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = 10
	}
	if params.Limit > 100 {
		params.Limit = 100
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]persistence.Booking, 0)
	for _, b := range m.bookings[scope.TenantID] {
		if params.StudentID != nil && b.StudentID != *params.StudentID {
			continue
		}
		if params.InstructorID != nil && b.InstructorID != *params.InstructorID {
			continue
		}
		if params.Status != nil && *params.Status != "" && b.Status != *params.Status {
			continue
		}
		matched = append(matched, b)
	}
	sortBookings(matched)

	result := persistence.ListBookingsResult{Bookings: []persistence.Booking{}, TotalItems: len(matched)}
	offset := (params.Page - 1) * params.Limit
	if offset >= len(matched) {
		return result, nil
	}
	end := offset + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	result.Bookings = append(result.Bookings, matched[offset:end]...)
	return result, nil
}

func (m *MemoryRepository) ListBookingsInRange(ctx context.Context, params persistence.ListBookingsInRangeParams) ([]persistence.Booking, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]persistence.Booking, 0)
	for _, b := range m.bookings[scope.TenantID] {
		if b.Date < params.From || b.Date >= params.To {
			continue
		}
		if !containsStatus(params.Statuses, b.Status) {
			continue
		}
		if params.StudentID != nil && b.StudentID != *params.StudentID {
			continue
		}
		if params.InstructorID != nil && b.InstructorID != *params.InstructorID {
			continue
		}
		matched = append(matched, b)
	}
	sortBookings(matched)
	return matched, nil
}

func (m *MemoryRepository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status string, assignedAt *time.Time) (persistence.Booking, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.Booking{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[scope.TenantID][id]
	if !ok {
		return persistence.Booking{}, persistence.ErrBookingNotFound
	}
	booking.Status = status
	if assignedAt != nil {
		booking.AssignedAt = assignedAt
	}
	booking.UpdatedAt = m.now()
	m.bookings[scope.TenantID][id] = booking
	return booking, nil
}

func (m *MemoryRepository) HasOverlap(ctx context.Context, params persistence.OverlapParams) (bool, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, b := range m.bookings[scope.TenantID] {
		if overlapsBooking(b, scope.TenantID, params) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) CreateAvailability(ctx context.Context, params persistence.CreateAvailabilityParams) (persistence.AvailabilitySlot, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.AvailabilitySlot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.slots[scope.TenantID] {
		if s.InstructorID == params.InstructorID && s.Date == params.Date &&
			s.StartTime == params.StartTime && s.EndTime == params.EndTime {
			return persistence.AvailabilitySlot{}, persistence.ErrAvailabilityConflict
		}
	}

	slot := persistence.AvailabilitySlot{
		SlotID:       params.SlotID,
		TenantID:     scope.TenantID,
		InstructorID: params.InstructorID,
		Date:         params.Date,
		StartTime:    params.StartTime,
		EndTime:      params.EndTime,
		CreatedAt:    m.now(),
		Instructor:   m.summary(scope.TenantID, params.InstructorID),
	}
	if m.slots[scope.TenantID] == nil {
		m.slots[scope.TenantID] = make(map[uuid.UUID]persistence.AvailabilitySlot)
	}
	m.slots[scope.TenantID][slot.SlotID] = slot
	return slot, nil
}

func (m *MemoryRepository) GetAvailability(ctx context.Context, id uuid.UUID) (persistence.AvailabilitySlot, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return persistence.AvailabilitySlot{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	slot, ok := m.slots[scope.TenantID][id]
	if !ok {
		return persistence.AvailabilitySlot{}, persistence.ErrAvailabilityNotFound
	}
	return slot, nil
}

func (m *MemoryRepository) ListAvailability(ctx context.Context, params persistence.ListAvailabilityParams) ([]persistence.AvailabilitySlot, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]persistence.AvailabilitySlot, 0)
	for _, s := range m.slots[scope.TenantID] {
		if params.InstructorID != nil && s.InstructorID != *params.InstructorID {
			continue
		}
		if params.Date != nil && *params.Date != "" && s.Date != *params.Date {
			continue
		}
		matched = append(matched, s)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date < matched[j].Date
		}
		return matched[i].StartTime < matched[j].StartTime
	})
	return matched, nil
}

func (m *MemoryRepository) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[scope.TenantID][id]; !ok {
		return persistence.ErrAvailabilityNotFound
	}
	delete(m.slots[scope.TenantID], id)
	return nil
}

func (m *MemoryRepository) ListInstructors(ctx context.Context) ([]persistence.UserSummary, error) {
	scope, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	instructors := make([]persistence.UserSummary, 0)
	for _, u := range m.users[scope.TenantID] {
		if u.Role != "INSTRUCTOR" || !u.IsApproved {
			continue
		}
		instructors = append(instructors, persistence.UserSummary{ID: u.UserID, Name: u.Name, Email: u.Email})
	}
	sort.SliceStable(instructors, func(i, j int) bool { return instructors[i].Name < instructors[j].Name })
	return instructors, nil
}
