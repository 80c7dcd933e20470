package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Sujalbagavan/community-hub/internal/mapper"
	"github.com/Sujalbagavan/community-hub/internal/model"
	"github.com/Sujalbagavan/community-hub/internal/repository"
	"github.com/go-playground/validator/v10"
)

type fakeEventStore struct {
	rows  []mapper.EventRow
	joins map[string]mapper.EventJoins
}

func (f *fakeEventStore) List(ctx context.Context) ([]mapper.EventRow, error) {
	return f.rows, nil
}

func (f *fakeEventStore) GetWithJoins(ctx context.Context, id string) (mapper.EventRow, mapper.EventJoins, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return row, f.joins[id], nil
		}
	}
	return mapper.EventRow{}, mapper.EventJoins{}, repository.ErrNotFound
}

func (f *fakeEventStore) Create(ctx context.Context, req model.CreateEventRequest, organizer model.User) (mapper.EventRow, []mapper.VolunteerRoleRow, error) {
	row := mapper.EventRow{
		ID:            "ev-new",
		Title:         req.Title,
		Description:   req.Description,
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Location:      req.Location,
		OrganizerID:   organizer.ID,
		OrganizerName: organizer.Name,
		Category:      string(req.Category),
		IsFree:        req.IsFree,
	}
	f.rows = append(f.rows, row)
	return row, nil, nil
}

func (f *fakeEventStore) Update(ctx context.Context, id string, req model.UpdateEventRequest) (mapper.EventRow, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return mapper.EventRow{}, repository.ErrNotFound
}

func (f *fakeEventStore) Delete(ctx context.Context, id string) error {
	for i, row := range f.rows {
		if row.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// fakeParticipation scripts counter reads so tests can interleave the
// read-then-write steps of concurrent callers deterministically.
type fakeParticipation struct {
	attendees       []string
	volunteers      []string
	remainingReads  []*int
	remainingWrites []int
	filledReads     []int
	filledWrites    []int
}

func (f *fakeParticipation) InsertAttendee(ctx context.Context, eventID, userID string) error {
	f.attendees = append(f.attendees, eventID+":"+userID)
	return nil
}

func (f *fakeParticipation) GetSpotsRemaining(ctx context.Context, eventID string) (*int, error) {
	if len(f.remainingReads) == 0 {
		return nil, nil
	}
	v := f.remainingReads[0]
	f.remainingReads = f.remainingReads[1:]
	return v, nil
}

func (f *fakeParticipation) SetSpotsRemaining(ctx context.Context, eventID string, remaining int) error {
	f.remainingWrites = append(f.remainingWrites, remaining)
	return nil
}

func (f *fakeParticipation) InsertVolunteer(ctx context.Context, eventID, roleID, userID string) error {
	f.volunteers = append(f.volunteers, eventID+":"+roleID+":"+userID)
	return nil
}

func (f *fakeParticipation) GetSpotsFilled(ctx context.Context, roleID string) (int, error) {
	v := f.filledReads[0]
	f.filledReads = f.filledReads[1:]
	return v, nil
}

func (f *fakeParticipation) SetSpotsFilled(ctx context.Context, roleID string, filled int) error {
	f.filledWrites = append(f.filledWrites, filled)
	return nil
}

type fakeCommentStore struct {
	rows []mapper.CommentRow
}

func (f *fakeCommentStore) Insert(ctx context.Context, eventID, userID, content string) (mapper.CommentRow, error) {
	name := "Sam Lee"
	row := mapper.CommentRow{
		ID:      "c-new",
		EventID: eventID,
		UserID:  userID,
		Content: content,
		Profile: &mapper.ProfileRow{ID: userID, FullName: &name},
	}
	f.rows = append(f.rows, row)
	return row, nil
}

type fakeChatStore struct {
	saved []model.ChatMessage
}

func (f *fakeChatStore) Save(ctx context.Context, userID, message, response string) (model.ChatMessage, error) {
	msg := model.ChatMessage{ID: "m-new", UserID: userID, Message: message, Response: response}
	f.saved = append(f.saved, msg)
	return msg, nil
}

func (f *fakeChatStore) History(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	return f.saved, nil
}

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

func newTestState(events *fakeEventStore, parts *fakeParticipation) (*AppState, *fakeCommentStore, *fakeChatStore) {
	comments := &fakeCommentStore{}
	chat := &fakeChatStore{}
	if events.joins == nil {
		events.joins = make(map[string]mapper.EventJoins)
	}
	return NewAppState(events, parts, comments, chat), comments, chat
}

func TestJoinEventDecrementsCounter(t *testing.T) {
	events := &fakeEventStore{rows: []mapper.EventRow{{ID: "ev-1", SpotsRemaining: intPtr(50)}}}
	parts := &fakeParticipation{remainingReads: []*int{intPtr(50)}}
	state, _, _ := newTestState(events, parts)

	if err := state.JoinEvent(context.Background(), "ev-1", "u1"); err != nil {
		t.Fatalf("JoinEvent() error = %v", err)
	}
	if len(parts.attendees) != 1 || parts.attendees[0] != "ev-1:u1" {
		t.Errorf("attendees = %v, want [ev-1:u1]", parts.attendees)
	}
	if len(parts.remainingWrites) != 1 || parts.remainingWrites[0] != 49 {
		t.Errorf("counter writes = %v, want [49]", parts.remainingWrites)
	}
}

// TestJoinEventLostUpdate pins down the documented race: two joins that
// both read the pre-decrement counter value each write back 49, so one
// decrement is lost and the final counter is 49 with two attendee rows.
func TestJoinEventLostUpdate(t *testing.T) {
	events := &fakeEventStore{rows: []mapper.EventRow{{ID: "ev-1", SpotsRemaining: intPtr(50)}}}
	parts := &fakeParticipation{remainingReads: []*int{intPtr(50), intPtr(50)}}
	state, _, _ := newTestState(events, parts)

	if err := state.JoinEvent(context.Background(), "ev-1", "u1"); err != nil {
		t.Fatalf("first JoinEvent() error = %v", err)
	}
	if err := state.JoinEvent(context.Background(), "ev-1", "u2"); err != nil {
		t.Fatalf("second JoinEvent() error = %v", err)
	}

	if len(parts.attendees) != 2 {
		t.Fatalf("attendees = %v, want 2 rows", parts.attendees)
	}
	final := parts.remainingWrites[len(parts.remainingWrites)-1]
	if final != 49 {
		t.Errorf("final counter = %d, want 49 (lost update preserved)", final)
	}
}

func TestJoinEventDuplicateMembershipAllowed(t *testing.T) {
	events := &fakeEventStore{rows: []mapper.EventRow{{ID: "ev-1"}}}
	parts := &fakeParticipation{}
	state, _, _ := newTestState(events, parts)

	for i := 0; i < 2; i++ {
		if err := state.JoinEvent(context.Background(), "ev-1", "u1"); err != nil {
			t.Fatalf("JoinEvent() #%d error = %v", i+1, err)
		}
	}
	if len(parts.attendees) != 2 {
		t.Errorf("attendees = %v, want duplicate rows for the same user", parts.attendees)
	}
}

func TestJoinEventUnlimitedLeavesCounterAlone(t *testing.T) {
	events := &fakeEventStore{rows: []mapper.EventRow{{ID: "ev-1"}}}
	parts := &fakeParticipation{remainingReads: []*int{nil}}
	state, _, _ := newTestState(events, parts)

	if err := state.JoinEvent(context.Background(), "ev-1", "u1"); err != nil {
		t.Fatalf("JoinEvent() error = %v", err)
	}
	if len(parts.remainingWrites) != 0 {
		t.Errorf("counter writes = %v, want none for NULL counter", parts.remainingWrites)
	}
}

// TestVolunteerOverSubscription documents that a full role can still be
// taken: spots_filled goes from 1 to 2 on a 1-spot role, no capacity check.
func TestVolunteerOverSubscription(t *testing.T) {
	events := &fakeEventStore{rows: []mapper.EventRow{{ID: "ev-1"}}}
	parts := &fakeParticipation{filledReads: []int{1}}
	state, _, _ := newTestState(events, parts)

	if err := state.VolunteerForRole(context.Background(), "ev-1", "role-a", "u1"); err != nil {
		t.Fatalf("VolunteerForRole() error = %v", err)
	}
	if len(parts.filledWrites) != 1 || parts.filledWrites[0] != 2 {
		t.Errorf("filled writes = %v, want [2]", parts.filledWrites)
	}
}

func TestCreateEventValidation(t *testing.T) {
	events := &fakeEventStore{}
	state, _, _ := newTestState(events, &fakeParticipation{})
	organizer := model.User{ID: "org-1", Name: "Jordan"}

	base := model.CreateEventRequest{
		Title:       "Gala",
		Description: "Fundraiser",
		Date:        "2026-11-20",
		StartTime:   "18:00",
		EndTime:     "23:00",
		Category:    model.CategoryCharity,
	}

	t.Run("paid event requires price and spots", func(t *testing.T) {
		req := base
		req.IsFree = false
		_, err := state.CreateEvent(context.Background(), req, organizer)
		if err == nil {
			t.Fatal("CreateEvent() accepted a paid event without price or spots")
		}
		var verr validator.ValidationErrors
		if !errors.As(err, &verr) {
			t.Errorf("error %v is not a validation error", err)
		}
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		req := base
		req.IsFree = true
		req.Category = "Karaoke"
		if _, err := state.CreateEvent(context.Background(), req, organizer); err == nil {
			t.Fatal("CreateEvent() accepted an unknown category")
		}
	})

	t.Run("valid paid event accepted", func(t *testing.T) {
		req := base
		req.IsFree = false
		req.TicketPrice = floatPtr(25)
		req.TotalSpots = intPtr(50)
		ev, err := state.CreateEvent(context.Background(), req, organizer)
		if err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
		if ev.OrganizerID != "org-1" {
			t.Errorf("OrganizerID = %q, want org-1", ev.OrganizerID)
		}
		if got := state.Events(); len(got) != 1 || got[0].ID != ev.ID {
			t.Errorf("cache = %v, want the created event", got)
		}
	})
}

func TestGetEventNotFound(t *testing.T) {
	state, _, _ := newTestState(&fakeEventStore{}, &fakeParticipation{})

	_, err := state.GetEvent(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetEvent() error = %v, want ErrNotFound", err)
	}
}

func TestAddCommentUpdatesCache(t *testing.T) {
	events := &fakeEventStore{rows: []mapper.EventRow{{ID: "ev-1", Title: "Cleanup"}}}
	state, comments, _ := newTestState(events, &fakeParticipation{})

	if _, err := state.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	comment, err := state.AddComment(context.Background(), "ev-1", "u1", model.CommentRequest{Content: "See you there"})
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if comment.UserName != "Sam Lee" {
		t.Errorf("UserName = %q, want joined profile name", comment.UserName)
	}
	if len(comments.rows) != 1 {
		t.Errorf("stored comments = %d, want 1", len(comments.rows))
	}

	cached := state.Events()
	if len(cached) != 1 || len(cached[0].Comments) != 1 {
		t.Fatalf("cached comments = %+v, want the new comment appended", cached)
	}
	if cached[0].Comments[0].Content != "See you there" {
		t.Errorf("cached content = %q", cached[0].Comments[0].Content)
	}
}

func TestAddCommentRequiresContent(t *testing.T) {
	state, _, _ := newTestState(&fakeEventStore{}, &fakeParticipation{})

	if _, err := state.AddComment(context.Background(), "ev-1", "u1", model.CommentRequest{}); err == nil {
		t.Fatal("AddComment() accepted an empty comment")
	}
}

func TestChatEchoesMessage(t *testing.T) {
	state, _, chat := newTestState(&fakeEventStore{}, &fakeParticipation{})

	msg, err := state.Chat(context.Background(), "u1", "hello")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !strings.Contains(msg.Response, "hello") {
		t.Errorf("Response = %q, want the echoed message inside", msg.Response)
	}
	if len(chat.saved) != 1 {
		t.Errorf("saved exchanges = %d, want 1", len(chat.saved))
	}
}

func TestChatAnonymousNotPersisted(t *testing.T) {
	state, _, chat := newTestState(&fakeEventStore{}, &fakeParticipation{})

	msg, err := state.Chat(context.Background(), "", "hi there")
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if !strings.Contains(msg.Response, "hi there") {
		t.Errorf("Response = %q, want echo", msg.Response)
	}
	if len(chat.saved) != 0 {
		t.Errorf("saved exchanges = %d, want none for anonymous caller", len(chat.saved))
	}
}

func TestSetCurrentUser(t *testing.T) {
	state, _, _ := newTestState(&fakeEventStore{}, &fakeParticipation{})

	u := model.User{ID: "u1", Name: "Sam"}
	state.SetCurrentUser(&u)
	if got := state.CurrentUser(); got == nil || got.ID != "u1" {
		t.Errorf("CurrentUser() = %v, want u1", got)
	}
	state.SetCurrentUser(nil)
	if state.CurrentUser() != nil {
		t.Error("CurrentUser() not cleared")
	}
}
