package meetups

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/plutonic/backend/internal/domain/enums"
	"github.com/ivankudzin/plutonic/backend/internal/domain/model"
	pgrepo "github.com/ivankudzin/plutonic/backend/internal/repo/postgres"
	"github.com/ivankudzin/plutonic/backend/internal/session"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

const (
	senderID   = "sender"
	receiverID = "receiver"
)

func TestCreateRequiresAcceptedMatch(t *testing.T) {
	svc, _, match := newTestService(enums.MatchStatusPending)

	_, err := svc.Create(context.Background(), session.Session{UserID: senderID}, validInput(match.ID))
	if !errors.Is(err, ErrMatchNotAccepted) {
		t.Fatalf("expected ErrMatchNotAccepted, got %v", err)
	}
}

func TestCreateRejectsStrangersAndBadInput(t *testing.T) {
	svc, _, match := newTestService(enums.MatchStatusAccepted)

	if _, err := svc.Create(context.Background(), session.Session{UserID: "eve"}, validInput(match.ID)); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	noPlace := validInput(match.ID)
	noPlace.Place.Name = " "
	past := validInput(match.ID)
	past.Datetime = testNow.Add(-time.Hour)
	for _, input := range []CreateInput{noPlace, past} {
		if _, err := svc.Create(context.Background(), session.Session{UserID: senderID}, input); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	}
}

func TestCreateThenReceiverAccepts(t *testing.T) {
	svc, _, match := newTestService(enums.MatchStatusAccepted)

	invite, err := svc.Create(context.Background(), session.Session{UserID: senderID}, validInput(match.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if invite.Status != enums.InviteStatusPending || invite.ReceiverID != receiverID {
		t.Fatalf("unexpected invite: %+v", invite)
	}

	if _, err := svc.Accept(context.Background(), session.Session{UserID: senderID}, invite.ID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("sender must not accept own invite, got %v", err)
	}

	accepted, err := svc.Accept(context.Background(), session.Session{UserID: receiverID}, invite.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != enums.InviteStatusAccepted {
		t.Fatalf("unexpected status: %s", accepted.Status)
	}

	if _, err := svc.Cancel(context.Background(), session.Session{UserID: senderID}, invite.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("accepted invite is terminal, got %v", err)
	}
}

func TestProposeTimeChangeRoundTrip(t *testing.T) {
	svc, store, match := newTestService(enums.MatchStatusAccepted)
	invite, _ := svc.Create(context.Background(), session.Session{UserID: senderID}, validInput(match.ID))

	if _, err := svc.ProposeTimeChange(context.Background(), session.Session{UserID: receiverID}, invite.ID, testNow.Add(-time.Minute)); !errors.Is(err, ErrInvalidProposedTime) {
		t.Fatalf("expected ErrInvalidProposedTime, got %v", err)
	}
	if got := store.get(invite.ID); got.Status != enums.InviteStatusPending || got.ProposedDatetime != nil {
		t.Fatalf("rejected proposal changed the invite: %+v", got)
	}

	newTime := testNow.Add(72 * time.Hour)
	proposed, err := svc.ProposeTimeChange(context.Background(), session.Session{UserID: receiverID}, invite.ID, newTime)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if proposed.Status != enums.InviteStatusProposedChange || proposed.ProposedDatetime == nil || !proposed.ProposedDatetime.Equal(newTime) {
		t.Fatalf("unexpected proposal: %+v", proposed)
	}

	if _, err := svc.AcceptProposedTime(context.Background(), session.Session{UserID: receiverID}, invite.ID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("only the sender accepts a proposed time, got %v", err)
	}

	accepted, err := svc.AcceptProposedTime(context.Background(), session.Session{UserID: senderID}, invite.ID)
	if err != nil {
		t.Fatalf("accept proposed: %v", err)
	}
	if accepted.Status != enums.InviteStatusAccepted || !accepted.Datetime.Equal(newTime) || accepted.ProposedDatetime != nil {
		t.Fatalf("unexpected accepted invite: %+v", accepted)
	}
}

func TestEitherPartyDeclinesProposedChange(t *testing.T) {
	svc, _, match := newTestService(enums.MatchStatusAccepted)
	invite, _ := svc.Create(context.Background(), session.Session{UserID: senderID}, validInput(match.ID))
	if _, err := svc.ProposeTimeChange(context.Background(), session.Session{UserID: receiverID}, invite.ID, testNow.Add(time.Hour)); err != nil {
		t.Fatalf("propose: %v", err)
	}

	declined, err := svc.Decline(context.Background(), session.Session{UserID: senderID}, invite.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != enums.InviteStatusDeclined || declined.ProposedDatetime != nil {
		t.Fatalf("unexpected declined invite: %+v", declined)
	}
}

func TestCancelByEitherPartyFromPending(t *testing.T) {
	for _, caller := range []string{senderID, receiverID} {
		svc, _, match := newTestService(enums.MatchStatusAccepted)
		invite, _ := svc.Create(context.Background(), session.Session{UserID: senderID}, validInput(match.ID))

		cancelled, err := svc.Cancel(context.Background(), session.Session{UserID: caller}, invite.ID)
		if err != nil {
			t.Fatalf("cancel by %s: %v", caller, err)
		}
		if cancelled.Status != enums.InviteStatusCancelled {
			t.Fatalf("unexpected status: %s", cancelled.Status)
		}
	}
}

func TestStaleRevisionIsInvalidTransition(t *testing.T) {
	svc, store, match := newTestService(enums.MatchStatusAccepted)
	invite, _ := svc.Create(context.Background(), session.Session{UserID: senderID}, validInput(match.ID))
	store.bumpOnNextTransition = true

	if _, err := svc.Accept(context.Background(), session.Session{UserID: receiverID}, invite.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestListValidatesBoxAndDegrades(t *testing.T) {
	svc, store, _ := newTestService(enums.MatchStatusAccepted)

	if _, err := svc.List(context.Background(), session.Session{UserID: senderID}, "archive"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	store.listErr = errors.New("db down")
	items, err := svc.List(context.Background(), session.Session{UserID: senderID}, "sent")
	if err != nil || len(items) != 0 {
		t.Fatalf("expected degraded empty list, got %v %v", items, err)
	}
}

func validInput(matchID string) CreateInput {
	return CreateInput{
		MatchID:  matchID,
		Place:    model.Place{Name: "Blue Bottle", Address: "1 Main St", Category: "cafe"},
		Datetime: testNow.Add(48 * time.Hour),
		Message:  "coffee?",
	}
}

func newTestService(status enums.MatchStatus) (*Service, *memoryInviteStore, model.Match) {
	match := model.Match{ID: uuid.NewString(), InitiatorID: senderID, TargetID: receiverID, Status: status}
	store := newMemoryInviteStore()
	svc := NewService(store, matchReaderStub{match: match}, nil)
	svc.now = func() time.Time { return testNow }
	return svc, store, match
}

type matchReaderStub struct {
	match model.Match
}

func (s matchReaderStub) Get(_ context.Context, _ pgx.Tx, matchID string) (model.Match, error) {
	if matchID != s.match.ID {
		return model.Match{}, pgrepo.ErrMatchNotFound
	}
	return s.match, nil
}

type memoryInviteStore struct {
	mu                   sync.Mutex
	rows                 map[string]model.MeetupInvite
	listErr              error
	bumpOnNextTransition bool
}

func newMemoryInviteStore() *memoryInviteStore {
	return &memoryInviteStore{rows: make(map[string]model.MeetupInvite)}
}

func (s *memoryInviteStore) Insert(_ context.Context, invite model.MeetupInvite, now time.Time) (model.MeetupInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite.ID = uuid.NewString()
	invite.Status = enums.InviteStatusPending
	invite.Revision = 1
	invite.CreatedAt = now
	invite.UpdatedAt = now
	s.rows[invite.ID] = invite
	return invite, nil
}

func (s *memoryInviteStore) Get(_ context.Context, inviteID string) (model.MeetupInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.rows[inviteID]
	if !ok {
		return model.MeetupInvite{}, pgrepo.ErrInviteNotFound
	}
	return invite, nil
}

func (s *memoryInviteStore) Transition(_ context.Context, inviteID string, t pgrepo.InviteTransition, now time.Time) (model.MeetupInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.rows[inviteID]
	if s.bumpOnNextTransition {
		s.bumpOnNextTransition = false
		invite.Revision++
		s.rows[inviteID] = invite
	}
	if !ok || invite.Status != t.From || invite.Revision != t.Revision {
		return model.MeetupInvite{}, pgrepo.ErrInviteStale
	}
	invite.Status = t.To
	if t.Datetime != nil {
		invite.Datetime = *t.Datetime
	}
	invite.ProposedDatetime = t.ProposedDatetime
	invite.Revision++
	invite.UpdatedAt = now
	s.rows[inviteID] = invite
	return invite, nil
}

func (s *memoryInviteStore) ListForUser(_ context.Context, userID string, box pgrepo.InviteBox, _ int) ([]model.MeetupInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]model.MeetupInvite, 0)
	for _, invite := range s.rows {
		if (box != pgrepo.InviteBoxReceived && invite.SenderID == userID) || (box != pgrepo.InviteBoxSent && invite.ReceiverID == userID) {
			out = append(out, invite)
		}
	}
	return out, nil
}

func (s *memoryInviteStore) get(id string) model.MeetupInvite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}
