package pricing

// Catalog is the read-only reference data the engine prices against.
// Implementations must be safe for concurrent reads.
type Catalog interface {
	Package(id string) (Package, error)
	Salon(id string) (Salon, error)
	Service(id string) (Service, error)
	// Seasons are returned in priority order; the first match wins.
	Seasons() []Season
	Exclusions() ExclusionGraph
	// ExtraHourServiceID is empty when the catalog has no extra-hour service.
	ExtraHourServiceID() string
}
