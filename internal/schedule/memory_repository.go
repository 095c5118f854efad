package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository with the same observable
// behavior as PgRepository. It backs the test suites and local runs
// without Postgres. Safe for concurrent use.
type MemoryRepository struct {
	mu         sync.RWMutex
	dentists   map[uuid.UUID]Dentist
	patients   map[uuid.UUID]Patient
	treatments map[uuid.UUID]Treatment
	appts      map[uuid.UUID]Appointment
	blocked    map[uuid.UUID]BlockedPeriod
	events     []EventLog
	nextEvent  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		dentists:   make(map[uuid.UUID]Dentist),
		patients:   make(map[uuid.UUID]Patient),
		treatments: make(map[uuid.UUID]Treatment),
		appts:      make(map[uuid.UUID]Appointment),
		blocked:    make(map[uuid.UUID]BlockedPeriod),
	}
}

// Fixture setters

func (r *MemoryRepository) PutDentist(d Dentist) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dentists[d.ID] = d
}

func (r *MemoryRepository) PutPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

func (r *MemoryRepository) PutTreatment(t Treatment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.treatments[t.ID] = t
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

// Interface methods

func (r *MemoryRepository) GetDentistByID(ctx context.Context, id uuid.UUID) (*Dentist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dentists[id]
	if !ok {
		return nil, ErrDentistNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) GetTreatmentByID(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.treatments[id]
	if !ok {
		return nil, ErrTreatmentNotFound
	}
	return &t, nil
}

func (r *MemoryRepository) ListOccupied(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]Occupied, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	span := Interval{Start: from, End: to}
	var result []Occupied

	for _, a := range r.appts {
		if a.DentistID == dentistID && a.Status.Occupies() && a.Interval().Overlaps(span) {
			result = append(result, Occupied{ID: a.ID, Kind: OccupiedAppointment, Interval: a.Interval()})
		}
	}
	for _, b := range r.blocked {
		if b.DentistID == dentistID && b.Interval().Overlaps(span) {
			result = append(result, Occupied{ID: b.ID, Kind: OccupiedBlockedPeriod, Interval: b.Interval()})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})
	return result, nil
}

func (r *MemoryRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) CreateAppointment(ctx context.Context, dentistID, patientID, treatmentID uuid.UUID, start, end time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	a := Appointment{
		ID:          uuid.New(),
		DentistID:   dentistID,
		PatientID:   patientID,
		TreatmentID: treatmentID,
		StartTime:   start,
		EndTime:     end,
		Status:      StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.appts[a.ID] = a
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointmentTime(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != StatusScheduled {
		return nil, ErrAppointmentNotFound
	}
	a.StartTime = start
	a.EndTime = end
	a.UpdatedAt = time.Now()
	r.appts[id] = a
	return &a, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.appts[id] = a
	return &a, nil
}

func (r *MemoryRepository) ListAppointmentsInRange(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	span := Interval{Start: from, End: to}
	var result []Appointment
	for _, a := range r.appts {
		if a.DentistID == dentistID && a.Interval().Overlaps(span) {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (r *MemoryRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Appointment
	for _, a := range r.appts {
		if f.DentistID != nil && a.DentistID != *f.DentistID {
			continue
		}
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		matched = append(matched, a)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartTime.Before(matched[j].StartTime)
	})

	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (r *MemoryRepository) GetBlockedPeriodByID(ctx context.Context, id uuid.UUID) (*BlockedPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blocked[id]
	if !ok {
		return nil, ErrBlockedPeriodNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) CreateBlockedPeriod(ctx context.Context, dentistID uuid.UUID, iv Interval, reason string) (*BlockedPeriod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := BlockedPeriod{
		ID:        uuid.New(),
		DentistID: dentistID,
		StartTime: iv.Start,
		EndTime:   iv.End,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	r.blocked[b.ID] = b
	return &b, nil
}

func (r *MemoryRepository) DeleteBlockedPeriod(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blocked[id]; !ok {
		return ErrBlockedPeriodNotFound
	}
	delete(r.blocked, id)
	return nil
}

func (r *MemoryRepository) ListBlockedPeriodsInRange(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]BlockedPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	span := Interval{Start: from, End: to}
	var result []BlockedPeriod
	for _, b := range r.blocked {
		if b.DentistID == dentistID && b.Interval().Overlaps(span) {
			result = append(result, b)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextEvent++
	ev.ID = r.nextEvent
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	r.events = append(r.events, ev)
	return nil
}
