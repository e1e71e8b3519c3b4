package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"transport-vendor-api/internal/models"
)

// MemStore is an in-memory vendor store with the same error behavior as the
// PostgreSQL store. Set Err to make every call fail with it.
type MemStore struct {
	mu      sync.Mutex
	nextID  int64
	vendors map[int64]*models.Vendor
	clock   time.Time

	Err error
}

func NewMemStore() *MemStore {
	return &MemStore{
		nextID:  1,
		vendors: map[int64]*models.Vendor{},
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// now advances a fake clock by one second per call so ordering by time is
// deterministic.
func (m *MemStore) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *MemStore) Ping(ctx context.Context) error {
	return m.Err
}

func (m *MemStore) List(ctx context.Context, f models.ListFilter) ([]models.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := []models.Vendor{}
	for _, v := range m.vendors {
		if q != "" && !matches(v, q) {
			continue
		}
		out = append(out, clone(v))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []models.Vendor{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(v *models.Vendor, q string) bool {
	fields := []string{v.Name, v.TransportName}
	for _, p := range []*string{v.VendorCity, v.MainServiceCity} {
		if p != nil {
			fields = append(fields, *p)
		}
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func (m *MemStore) Get(ctx context.Context, id int64) (*models.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	v, ok := m.vendors[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := clone(v)
	return &c, nil
}

func (m *MemStore) FindDuplicate(ctx context.Context, name, transportName string, excludeID int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, false, m.Err
	}
	id, ok := m.findDuplicate(name, transportName, excludeID)
	return id, ok, nil
}

func (m *MemStore) findDuplicate(name, transportName string, excludeID int64) (int64, bool) {
	var found int64
	for id, v := range m.vendors {
		if id == excludeID {
			continue
		}
		if strings.EqualFold(v.Name, strings.TrimSpace(name)) && strings.EqualFold(v.TransportName, strings.TrimSpace(transportName)) {
			if found == 0 || id < found {
				found = id
			}
		}
	}
	return found, found != 0
}

func (m *MemStore) Create(ctx context.Context, in models.VendorInput) (int64, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if id, ok := m.findDuplicate(in.Name, in.TransportName, 0); ok {
		return 0, &models.DuplicateError{ExistingID: id, Name: in.Name, TransportName: in.TransportName}
	}

	id := m.nextID
	m.nextID++
	now := m.now()
	v := &models.Vendor{ID: id, CreatedAt: now, UpdatedAt: now, Notes: append([]models.Note{}, in.Notes...)}
	apply(v, in)
	m.vendors[id] = v
	return id, nil
}

func (m *MemStore) Update(ctx context.Context, id int64, in models.VendorInput) (*models.Vendor, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	v, ok := m.vendors[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if dup, ok := m.findDuplicate(in.Name, in.TransportName, id); ok {
		return nil, &models.DuplicateError{ExistingID: dup, Name: in.Name, TransportName: in.TransportName}
	}
	apply(v, in)
	v.UpdatedAt = m.now()
	c := clone(v)
	return &c, nil
}

func (m *MemStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.vendors[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.vendors, id)
	return nil
}

func (m *MemStore) AppendNote(ctx context.Context, id int64, comment string) ([]models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	v, ok := m.vendors[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	at := m.now()
	note, err := models.NewNote(comment, at)
	if err != nil {
		return nil, err
	}
	v.Notes = append(v.Notes, note)
	v.UpdatedAt = at
	return append([]models.Note{}, v.Notes...), nil
}

// Len reports how many vendors are stored.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vendors)
}

func apply(v *models.Vendor, in models.VendorInput) {
	v.Name = in.Name
	v.TransportName = in.TransportName
	v.VisitingCard = in.VisitingCard
	v.OwnerBroker = in.OwnerBroker
	v.VendorState = in.VendorState
	v.VendorCity = in.VendorCity
	v.WhatsappNumber = in.WhatsappNumber
	v.AlternateNumber = in.AlternateNumber
	v.VehicleType = in.VehicleType
	v.MainServiceState = in.MainServiceState
	v.MainServiceCity = in.MainServiceCity
	v.ReturnService = in.ReturnService
	v.AnyAssociation = in.AnyAssociation
	v.AssociationName = in.AssociationName
	v.Verification = in.Verification
}

func clone(v *models.Vendor) models.Vendor {
	c := *v
	c.Notes = append([]models.Note{}, v.Notes...)
	return c
}
