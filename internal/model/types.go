package model

import "time"

// Core domain types shared by the scheduler, planner and sync layers.

type GeoPoint struct {
    Lat float64 `json:"lat"`
    Lng float64 `json:"lng"`
}

// Client is one scheduled visit. Time is "HH:MM" or empty for all day.
type Client struct {
    ID       string    `json:"id"`
    Name     string    `json:"name"`
    Address  string    `json:"address"`
    Date     string    `json:"date"`
    Time     string    `json:"time"`
    Contact  string    `json:"contact"`
    PlaceID  string    `json:"-"`
    Location *GeoPoint `json:"location"`
}

// HasLocation reports whether the client is a stop eligible for ordering.
func (c Client) HasLocation() bool { return c.Location != nil }

// ClientInput is the add/edit form payload.
type ClientInput struct {
    ID      string `json:"id,omitempty"`
    Name    string `json:"name"`
    Address string `json:"address"`
    Date    string `json:"date"`
    Time    string `json:"time,omitempty"`
    Contact string `json:"contact,omitempty"`
    Place   *Place `json:"place,omitempty"` // autocomplete selection, if any
}

// Place is a structured autocomplete result.
type Place struct {
    PlaceID          string    `json:"placeId"`
    FormattedAddress string    `json:"formattedAddress,omitempty"`
    Location         *GeoPoint `json:"location,omitempty"`
}

type Prediction struct {
    PlaceID     string `json:"placeId"`
    Description string `json:"description"`
}

// RouteLeg is one directions-service segment.
type RouteLeg struct {
    DistanceMeters  int       `json:"distanceMeters"`
    DurationSeconds int       `json:"durationSeconds"`
    StartLocation   *GeoPoint `json:"startLocation,omitempty"`
}

type RouteSummary struct {
    DistanceKm   string `json:"distanceKm"`
    DurationText string `json:"durationText"`
    MapsURL      string `json:"mapsUrl"`
}

// RoutePlan is the retained route order for today plus its summary.
type RoutePlan struct {
    Origin    GeoPoint     `json:"origin"`
    Clients   []Client     `json:"clients"`
    Legs      []RouteLeg   `json:"legs"`
    Summary   RouteSummary `json:"summary"`
    PlannedAt time.Time    `json:"plannedAt"`
}

// DayGroup is one day of the upcoming schedule view.
type DayGroup struct {
    Date    string   `json:"date"`
    Label   string   `json:"label"`
    IsToday bool     `json:"isToday"`
    Clients []Client `json:"clients"`
}
