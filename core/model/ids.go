package model

// Identifiers are distinct string types so that a resource id can never be
// passed where an element id is expected.
type (
	LSPID         string
	ShipmentID    string
	ResourceID    string
	ElementID     string
	ChainID       string
	LinkID        string
	CarrierID     string
	VehicleID     string
	VehicleTypeID string
	TourID        string
)

func (id ShipmentID) String() string { return string(id) }
func (id ResourceID) String() string { return string(id) }
func (id ElementID) String() string  { return string(id) }
func (id ChainID) String() string    { return string(id) }
func (id LinkID) String() string     { return string(id) }
func (id TourID) String() string     { return string(id) }
