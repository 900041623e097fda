package core

import "time"

// Result is the normalized create/update/publish response shared by all
// providers. URL is synthesized where the upstream API only hands back an id
// (Facebook), and passed through where the API returns a browsable link
// (Eventbrite, Meetup).
type Result struct {
	ID  string
	URL string
}

// Token is the outcome of a refresh or exchange grant. The core never stores
// tokens; lifetime bookkeeping is the caller's.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int64
	ExpiresAt    *time.Time
}

// Listing is the internal record a tenant publishes out to event platforms.
// Only Meetup ships a listing-to-event mapper in this layer; the other
// providers expect the caller to build the provider payload directly.
type Listing struct {
	Title       string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	Capacity    int
	URL         string
	Location    *ListingLocation
}

// ListingLocation is the free-form venue block attached to a listing.
type ListingLocation struct {
	Name       string
	Address    string
	City       string
	State      string
	PostalCode string
	Country    string
	Lat        float64
	Lon        float64
}
