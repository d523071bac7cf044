package domain

// Category identifies which GPX collection a point came from.
type Category string

const (
	CategoryWaypoint   Category = "waypoint"
	CategoryTrackpoint Category = "trackpoint"
	CategoryRoutepoint Category = "routepoint"
)

// Categories lists every category in emission order.
var Categories = [...]Category{CategoryWaypoint, CategoryTrackpoint, CategoryRoutepoint}

// Point is one converted GPX point. GridRef is always derived from Latitude
// and Longitude of the same record.
type Point struct {
	Name      *string  `json:"name" yaml:"name"`
	Category  Category `json:"category" yaml:"category"`
	Latitude  float64  `json:"latitude" yaml:"latitude"`
	Longitude float64  `json:"longitude" yaml:"longitude"`
	GridRef   string   `json:"gridRef" yaml:"gridRef"`
}
