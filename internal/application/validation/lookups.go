package validation

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/domain/referencedata"
	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

type lookupCacheKey struct{}

type programFacilityType struct {
	programID      uuid.UUID
	facilityTypeID uuid.UUID
}

type nodeQuery struct {
	programFacilityType
	facilityID uuid.UUID
}

// lookupCache memoizes reference lookups for the duration of one Validate call
// so that several validators reading the same facility or reason hit the
// remote services once.
type lookupCache struct {
	mu           sync.Mutex
	facilities   map[uuid.UUID]*referencedata.Facility
	programs     map[uuid.UUID]*referencedata.Program
	orderables   map[uuid.UUID]*referencedata.Orderable
	lots         map[uuid.UUID]*referencedata.Lot
	reasons      map[uuid.UUID]*stockledger.Reason
	validReasons map[programFacilityType][]stockledger.ValidReasonAssignment
	sources      map[nodeQuery][]stockledger.ValidSourceDestination
	destinations map[nodeQuery][]stockledger.ValidSourceDestination
}

func newLookupCache() *lookupCache {
	return &lookupCache{
		facilities:   make(map[uuid.UUID]*referencedata.Facility),
		programs:     make(map[uuid.UUID]*referencedata.Program),
		orderables:   make(map[uuid.UUID]*referencedata.Orderable),
		lots:         make(map[uuid.UUID]*referencedata.Lot),
		reasons:      make(map[uuid.UUID]*stockledger.Reason),
		validReasons: make(map[programFacilityType][]stockledger.ValidReasonAssignment),
		sources:      make(map[nodeQuery][]stockledger.ValidSourceDestination),
		destinations: make(map[nodeQuery][]stockledger.ValidSourceDestination),
	}
}

// withLookupCache attaches a fresh cache unless the context already carries one
func withLookupCache(ctx context.Context) context.Context {
	if _, ok := ctx.Value(lookupCacheKey{}).(*lookupCache); ok {
		return ctx
	}
	return context.WithValue(ctx, lookupCacheKey{}, newLookupCache())
}

// lookups reads reference data through the per-call cache
type lookups struct {
	refData referencedata.Client
	ledger  stockledger.Client
	cache   *lookupCache
}

func lookupsFor(ctx context.Context, refData referencedata.Client, ledger stockledger.Client) *lookups {
	cache, ok := ctx.Value(lookupCacheKey{}).(*lookupCache)
	if !ok {
		cache = newLookupCache()
	}
	return &lookups{refData: refData, ledger: ledger, cache: cache}
}

func cached[K comparable, V any](mu *sync.Mutex, m map[K]V, key K, fetch func() (V, error)) (V, error) {
	mu.Lock()
	if v, ok := m[key]; ok {
		mu.Unlock()
		return v, nil
	}
	mu.Unlock()

	v, err := fetch()
	if err != nil {
		return v, err
	}

	mu.Lock()
	m[key] = v
	mu.Unlock()
	return v, nil
}

func (l *lookups) facility(ctx context.Context, id uuid.UUID) (*referencedata.Facility, error) {
	f, err := cached(&l.cache.mu, l.cache.facilities, id, func() (*referencedata.Facility, error) {
		return l.refData.FindFacility(ctx, id)
	})
	if err != nil {
		return nil, notFoundAs(err, CodeFacilityNotFound, "facilityId", "facility %s does not exist", id)
	}
	return f, nil
}

func (l *lookups) program(ctx context.Context, id uuid.UUID) (*referencedata.Program, error) {
	p, err := cached(&l.cache.mu, l.cache.programs, id, func() (*referencedata.Program, error) {
		return l.refData.FindProgram(ctx, id)
	})
	if err != nil {
		return nil, notFoundAs(err, CodeProgramNotFound, "programId", "program %s does not exist", id)
	}
	return p, nil
}

// orderable returns shared.ErrNotFound unchanged so callers can pick their own code
func (l *lookups) orderable(ctx context.Context, id uuid.UUID) (*referencedata.Orderable, error) {
	return cached(&l.cache.mu, l.cache.orderables, id, func() (*referencedata.Orderable, error) {
		return l.refData.FindOrderable(ctx, id)
	})
}

func (l *lookups) lot(ctx context.Context, id uuid.UUID) (*referencedata.Lot, error) {
	return cached(&l.cache.mu, l.cache.lots, id, func() (*referencedata.Lot, error) {
		return l.refData.FindLot(ctx, id)
	})
}

func (l *lookups) reason(ctx context.Context, id uuid.UUID) (*stockledger.Reason, error) {
	return cached(&l.cache.mu, l.cache.reasons, id, func() (*stockledger.Reason, error) {
		return l.ledger.FindReason(ctx, id)
	})
}

func (l *lookups) facilityTypeID(ctx context.Context, event *stockledger.Event) (uuid.UUID, error) {
	f, err := l.facility(ctx, event.FacilityID)
	if err != nil {
		return uuid.Nil, err
	}
	return f.Type.ID, nil
}

func (l *lookups) validReasons(ctx context.Context, event *stockledger.Event) ([]stockledger.ValidReasonAssignment, error) {
	ftID, err := l.facilityTypeID(ctx, event)
	if err != nil {
		return nil, err
	}
	key := programFacilityType{programID: event.ProgramID, facilityTypeID: ftID}
	return cached(&l.cache.mu, l.cache.validReasons, key, func() ([]stockledger.ValidReasonAssignment, error) {
		return l.ledger.FindValidReasons(ctx, event.ProgramID, ftID)
	})
}

// validSources lists the valid sources; withAffinity narrows them to the event's facility
func (l *lookups) validSources(ctx context.Context, event *stockledger.Event, withAffinity bool) ([]stockledger.ValidSourceDestination, error) {
	key, facilityID, err := l.nodeQuery(ctx, event, withAffinity)
	if err != nil {
		return nil, err
	}
	return cached(&l.cache.mu, l.cache.sources, key, func() ([]stockledger.ValidSourceDestination, error) {
		return l.ledger.FindValidSources(ctx, key.programID, key.facilityTypeID, facilityID)
	})
}

// validDestinations lists the valid destinations; withAffinity narrows them to the event's facility
func (l *lookups) validDestinations(ctx context.Context, event *stockledger.Event, withAffinity bool) ([]stockledger.ValidSourceDestination, error) {
	key, facilityID, err := l.nodeQuery(ctx, event, withAffinity)
	if err != nil {
		return nil, err
	}
	return cached(&l.cache.mu, l.cache.destinations, key, func() ([]stockledger.ValidSourceDestination, error) {
		return l.ledger.FindValidDestinations(ctx, key.programID, key.facilityTypeID, facilityID)
	})
}

func (l *lookups) nodeQuery(ctx context.Context, event *stockledger.Event, withAffinity bool) (nodeQuery, *uuid.UUID, error) {
	ftID, err := l.facilityTypeID(ctx, event)
	if err != nil {
		return nodeQuery{}, nil, err
	}
	key := nodeQuery{programFacilityType: programFacilityType{programID: event.ProgramID, facilityTypeID: ftID}}
	if !withAffinity {
		return key, nil, nil
	}
	facilityID := event.FacilityID
	key.facilityID = facilityID
	return key, &facilityID, nil
}

// notFoundAs turns shared.ErrNotFound into a validation error and passes anything else through
func notFoundAs(err error, code, field, format string, args ...any) error {
	if errors.Is(err, shared.ErrNotFound) {
		return NewValidationError(code, field, format, args...)
	}
	return err
}
