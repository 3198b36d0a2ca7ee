package models

import (
	"math"
	"time"
)

// LocationHistoryLimit caps the number of remembered locations per user.
const LocationHistoryLimit = 5

// Coordinate is a point in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate is finite and within range.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) || math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Location is a recorded position of a user.
type Location struct {
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	Accuracy  *float64  `db:"accuracy" json:"accuracy,omitempty"`
	Timestamp time.Time `db:"recorded_at" json:"timestamp"`
}

// Coordinate returns the location as a bare coordinate.
func (l Location) Coordinate() Coordinate {
	return Coordinate{Latitude: l.Latitude, Longitude: l.Longitude}
}

// User is a registered account.
type User struct {
	ID              string     `json:"id"`
	Email           *string    `json:"email,omitempty"`
	Phone           *string    `json:"phoneNumber,omitempty"`
	Name            string     `json:"name"`
	GivenName       string     `json:"givenName,omitempty"`
	FamilyName      string     `json:"familyName,omitempty"`
	Picture         string     `json:"picture,omitempty"`
	DeviceToken     *string    `json:"-"`
	CurrentLocation *Location  `json:"currentLocation,omitempty"`
	LocationHistory []Location `json:"locationHistory,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// DisplayName returns the name shown to other users.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Phone != nil && *u.Phone != "" {
		return *u.Phone
	}
	return "User"
}

// Token returns the device token or an empty string.
func (u User) Token() string {
	if u.DeviceToken == nil {
		return ""
	}
	return *u.DeviceToken
}

// Profile is the decoded identity payload used to create or update a user.
type Profile struct {
	Email       string
	Phone       string
	ExternalUID string
	Name        string
	GivenName   string
	FamilyName  string
	Picture     string
	DeviceToken string
	Location    *Location
}

// Candidate is a potential fan-out recipient as seen by the geo index.
type Candidate struct {
	ID          string
	Name        string
	DeviceToken string
	Current     *Location
	Latest      *Location
}

// ResolveLocation prefers the current location, then the latest history entry.
func (c Candidate) ResolveLocation() *Location {
	if c.Current != nil {
		return c.Current
	}
	return c.Latest
}
