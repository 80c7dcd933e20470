package repository

import (
	"testing"

	"github.com/Sujalbagavan/community-hub/internal/model"
)

func TestBuildEventRowPaidEvent(t *testing.T) {
	price := 25.0
	spots := 50
	req := model.CreateEventRequest{
		Title:       "Charity Gala",
		Description: "Annual fundraiser",
		Date:        "2026-11-20",
		StartTime:   "18:00",
		EndTime:     "23:00",
		Category:    model.CategoryCharity,
		IsFree:      false,
		TicketPrice: &price,
		TotalSpots:  &spots,
	}
	organizer := model.User{ID: "org-1", Name: "Jordan"}

	row := buildEventRow(req, organizer)

	if row.ID == "" {
		t.Error("ID not assigned")
	}
	if row.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned")
	}
	if row.OrganizerID != "org-1" || row.OrganizerName != "Jordan" {
		t.Errorf("organizer = %s/%s, want org-1/Jordan", row.OrganizerID, row.OrganizerName)
	}
	if row.TicketPrice == nil || *row.TicketPrice != 25 {
		t.Errorf("TicketPrice = %v, want 25", row.TicketPrice)
	}
	if row.TotalSpots == nil || *row.TotalSpots != 50 {
		t.Errorf("TotalSpots = %v, want 50", row.TotalSpots)
	}
	// A paid event opens with every spot available.
	if row.SpotsRemaining == nil || *row.SpotsRemaining != 50 {
		t.Errorf("SpotsRemaining = %v, want 50", row.SpotsRemaining)
	}
}

func TestBuildEventRowFreeEvent(t *testing.T) {
	price := 10.0
	spots := 30
	req := model.CreateEventRequest{
		Title:       "Open Meetup",
		Description: "All welcome",
		Date:        "2026-10-01",
		StartTime:   "10:00",
		EndTime:     "12:00",
		Category:    model.CategoryMeetup,
		IsFree:      true,
		// Stray pricing on a free draft must not be persisted.
		TicketPrice: &price,
		TotalSpots:  &spots,
	}

	row := buildEventRow(req, model.User{ID: "org-2", Name: "Casey"})

	if row.TicketPrice != nil {
		t.Errorf("TicketPrice = %v, want nil for free event", *row.TicketPrice)
	}
	if row.TotalSpots != nil {
		t.Errorf("TotalSpots = %v, want nil for free event", *row.TotalSpots)
	}
	if row.SpotsRemaining != nil {
		t.Errorf("SpotsRemaining = %v, want nil for free event", *row.SpotsRemaining)
	}
}
