// Package referencedata describes the catalog of orderables, lots, trade items,
// facilities, programs and users owned by the reference data service.
package referencedata

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeItemIdentifier is the identifiers key linking an orderable to its trade item
const TradeItemIdentifier = "tradeItem"

// Meta carries the versioning block the reference data service attaches to resources
type Meta struct {
	VersionNumber int64      `json:"versionNumber,omitempty"`
	LastUpdated   *time.Time `json:"lastUpdated,omitempty"`
}

// ObjectReference points at another resource by id
type ObjectReference struct {
	ID uuid.UUID `json:"id"`
}

// Dispensable describes how an orderable is dispensed to patients
type Dispensable struct {
	DispensingUnit        string `json:"dispensingUnit,omitempty"`
	SizeCode              string `json:"sizeCode,omitempty"`
	RouteOfAdministration string `json:"routeOfAdministration,omitempty"`
	DisplayValue          string `json:"displayValue,omitempty"`
}

// ProgramOrderable associates an orderable with a program
type ProgramOrderable struct {
	ProgramID                  uuid.UUID        `json:"programId"`
	OrderableDisplayCategoryID uuid.UUID        `json:"orderableDisplayCategoryId"`
	OrderableCategoryDisplay   string           `json:"orderableCategoryDisplayName,omitempty"`
	Active                     bool             `json:"active"`
	FullSupply                 bool             `json:"fullSupply"`
	DisplayOrder               int              `json:"displayOrder"`
	PricePerPack               *decimal.Decimal `json:"pricePerPack,omitempty"`
}

// OrderableChild is a component of a kit orderable
type OrderableChild struct {
	Orderable ObjectReference `json:"orderable"`
	Quantity  int64           `json:"quantity"`
}

// Orderable is a product that can be ordered and stocked
type Orderable struct {
	ID                    uuid.UUID          `json:"id"`
	ProductCode           string             `json:"productCode"`
	FullProductName       string             `json:"fullProductName"`
	Description           string             `json:"description"`
	NetContent            int64              `json:"netContent"`
	PackRoundingThreshold int64              `json:"packRoundingThreshold"`
	RoundToZero           bool               `json:"roundToZero"`
	Dispensable           Dispensable        `json:"dispensable"`
	Programs              []ProgramOrderable `json:"programs"`
	Children              []OrderableChild   `json:"children,omitempty"`
	Identifiers           map[string]string  `json:"identifiers,omitempty"`
	ExtraData             map[string]string  `json:"extraData,omitempty"`
	Meta                  Meta               `json:"meta"`
}

// TradeItemID returns the trade item the orderable is bound to, if any
func (o *Orderable) TradeItemID() (uuid.UUID, bool) {
	raw, ok := o.Identifiers[TradeItemIdentifier]
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// UsesVVM reports whether vaccine vial monitor tracking is enabled for the orderable
func (o *Orderable) UsesVVM() bool {
	enabled, err := strconv.ParseBool(o.ExtraData["useVVM"])
	return err == nil && enabled
}

// IsKit reports whether the orderable is composed of child orderables
func (o *Orderable) IsKit() bool {
	return len(o.Children) > 0
}

// TradeItem is the manufacturer-level identity lots hang off
type TradeItem struct {
	ID                      uuid.UUID `json:"id,omitempty"`
	ManufacturerOfTradeItem string    `json:"manufacturerOfTradeItem"`
	GTIN                    string    `json:"gtin,omitempty"`
}

// Lot is a batch of a trade item
type Lot struct {
	ID              uuid.UUID  `json:"id,omitempty"`
	LotCode         string     `json:"lotCode"`
	TradeItemID     uuid.UUID  `json:"tradeItemId"`
	ExpirationDate  *time.Time `json:"expirationDate,omitempty"`
	ManufactureDate *time.Time `json:"manufactureDate,omitempty"`
	Active          bool       `json:"active"`
}

// IsExpired reports whether the lot expired before the given day
func (l *Lot) IsExpired(asOf time.Time) bool {
	if l.ExpirationDate == nil {
		return false
	}
	return l.ExpirationDate.Before(truncateDay(asOf))
}

// FacilityType classifies facilities for product approval
type FacilityType struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
	Name string    `json:"name,omitempty"`
}

// GeographicZone is the administrative area a facility belongs to
type GeographicZone struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code,omitempty"`
	Name string    `json:"name,omitempty"`
}

// Facility is a physical site holding stock
type Facility struct {
	ID             uuid.UUID      `json:"id"`
	Code           string         `json:"code"`
	Name           string         `json:"name"`
	Active         bool           `json:"active"`
	Type           FacilityType   `json:"type"`
	GeographicZone GeographicZone `json:"geographicZone"`
}

// Program is a supply program such as a vaccination campaign
type Program struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

// ApprovedProduct approves an orderable for a facility type within a program
type ApprovedProduct struct {
	ID                  uuid.UUID       `json:"id,omitempty"`
	Orderable           ObjectReference `json:"orderable"`
	Program             ObjectReference `json:"program"`
	FacilityType        ObjectReference `json:"facilityType"`
	MaxPeriodsOfStock   decimal.Decimal `json:"maxPeriodsOfStock"`
	MinPeriodsOfStock   decimal.Decimal `json:"minPeriodsOfStock"`
	EmergencyOrderPoint decimal.Decimal `json:"emergencyOrderPoint"`
	Active              bool            `json:"active"`
	Meta                Meta            `json:"meta"`
}

// User is an account known to the reference data service
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Active    bool      `json:"active"`
}

// DisplayName formats the user the way authored records show it
func (u *User) DisplayName() string {
	return u.FirstName + ", " + u.LastName
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
