package model

// ClassPercentages carries the reliability-aware cabin coverage percentages
// computed by the metadata precomputer (§4.10).
type ClassPercentages struct {
	Y float64 `json:"y"`
	W float64 `json:"w"`
	J float64 `json:"j"`
	F float64 `json:"f"`
}

// ItineraryMetadata holds the fields the metadata precomputer derives once
// per surviving itinerary (§4.10). It is left zero-valued until the
// precompute stage runs.
type ItineraryMetadata struct {
	TotalDuration int `json:"totalDuration"` // minutes, flights + layovers

	DepartureTime int64 `json:"departureTime"` // epoch ms, first flight departs
	ArrivalTime   int64 `json:"arrivalTime"`    // epoch ms, last flight arrives

	StopCount int `json:"stopCount"`

	AirlineCodes []string `json:"airlineCodes"`

	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Connections []string `json:"connections"`

	ClassPercentages ClassPercentages `json:"classPercentages"`

	PricingIDs []string `json:"pricingIds,omitempty"`
}

// Itinerary is an ordered sequence of flight UUIDs composed for one
// candidate route on one calendar date (§3).
type Itinerary struct {
	FlightUUIDs []string `json:"flightUuids"`
	RouteKey    string   `json:"routeKey"`
	Date        string   `json:"date"`

	Metadata ItineraryMetadata `json:"metadata"`
}

// DedupKey is the canonical string used to deduplicate itineraries
// per-(route,date): the joined UUID sequence (§4.9).
func (it Itinerary) DedupKey() string {
	out := it.RouteKey + "|" + it.Date + "|"
	for i, u := range it.FlightUUIDs {
		if i > 0 {
			out += ","
		}
		out += u
	}
	return out
}
