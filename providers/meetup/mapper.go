package meetup

import (
	"strings"

	"github.com/goliatone/go-publisher/core"
)

// FormatListingEvent maps a normalized listing onto the Meetup event shape.
// Times become epoch milliseconds, duration is the start→end delta in
// milliseconds when both are set, and the event is submitted as published.
func FormatListingEvent(listing core.Listing) Event {
	event := Event{
		Name:          strings.TrimSpace(listing.Title),
		Description:   strings.TrimSpace(listing.Description),
		PublishStatus: "published",
	}

	if listing.StartDate != nil {
		event.Time = listing.StartDate.UnixMilli()
		if listing.EndDate != nil && listing.EndDate.After(*listing.StartDate) {
			event.Duration = listing.EndDate.UnixMilli() - listing.StartDate.UnixMilli()
		}
	}

	if listing.Capacity > 0 {
		event.RSVPLimit = listing.Capacity
	}

	if listing.URL != "" {
		event.HowToFindUs = listing.URL
	}

	if loc := listing.Location; loc != nil {
		event.Venue = &Venue{
			Name:     strings.TrimSpace(loc.Name),
			Address1: strings.TrimSpace(loc.Address),
			City:     strings.TrimSpace(loc.City),
			State:    strings.TrimSpace(loc.State),
			Zip:      strings.TrimSpace(loc.PostalCode),
			Country:  strings.TrimSpace(loc.Country),
			Lat:      loc.Lat,
			Lon:      loc.Lon,
		}
	}

	return event
}
