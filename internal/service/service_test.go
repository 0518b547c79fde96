package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/repository"
	"github.com/parksafe/parksafe/internal/testutil"
	"github.com/parksafe/parksafe/pkg/auth"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type published struct {
	event    model.ChangeEvent
	audience model.Audience
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(event model.ChangeEvent, audience model.Audience) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{event: event, audience: audience})
}

func (p *fakePublisher) last(t *testing.T) published {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.events)
	return p.events[len(p.events)-1]
}

type fakeNotifier struct {
	alerts chan *model.Alert
}

func (n *fakeNotifier) NotifyAlert(_ context.Context, alert *model.Alert, _ *model.Profile) error {
	n.alerts <- alert
	return nil
}

type fakeRevoker struct {
	tokens map[string]time.Duration
}

func (r *fakeRevoker) Revoke(_ context.Context, token string, ttl time.Duration) error {
	r.tokens[token] = ttl
	return nil
}

type fixture struct {
	db        *gorm.DB
	pub       *fakePublisher
	profiles  *repository.ProfileRepository
	groups    *repository.GroupRepository
	messages  *MessageService
	alice     *model.Profile
	bob       *model.Profile
	carol     *model.Profile
	trailCrew *model.Group
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	f := &fixture{
		db:       db,
		pub:      &fakePublisher{},
		profiles: repository.NewProfileRepository(db),
		groups:   repository.NewGroupRepository(db),
	}
	f.messages = NewMessageService(repository.NewMessageRepository(db), f.groups, f.profiles, f.pub, 50, 100)
	f.alice = testutil.CreateProfile(t, db, "alice@parksafe.test", "Alice")
	f.bob = testutil.CreateProfile(t, db, "bob@parksafe.test", "Bob")
	f.carol = testutil.CreateProfile(t, db, "carol@parksafe.test", "Carol")

	group, err := NewGroupService(f.groups, f.profiles).Create(f.alice.ID, model.CreateGroupRequest{
		Name:      "Trail Crew",
		MemberIDs: []uuid.UUID{f.bob.ID},
	})
	require.NoError(t, err)
	f.trailCrew = group
	return f
}

// ==================== Messages ====================

func TestMessageService_Validation(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()

	tests := []struct {
		name string
		req  model.SendMessageRequest
		want error
	}{
		{"empty", model.SendMessageRequest{Content: " ", RecipientID: &f.bob.ID}, ErrEmptyContent},
		{"no target", model.SendMessageRequest{Content: "hi"}, ErrInvalidTarget},
		{"both targets", model.SendMessageRequest{Content: "hi", RecipientID: &f.bob.ID, GroupID: &f.trailCrew.ID}, ErrInvalidTarget},
		{"bad type", model.SendMessageRequest{Content: "hi", RecipientID: &f.bob.ID, Type: "shout"}, ErrInvalidType},
		{"unknown recipient", model.SendMessageRequest{Content: "hi", RecipientID: &missing}, ErrRecipientNotFound},
		{"system without target", model.SendMessageRequest{Content: "hi", Type: model.MessageTypeSystem}, ErrInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.messages.Send(f.alice.ID, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
	require.Empty(t, f.pub.events)
}

func TestMessageService_SendDirectPublishesBareRow(t *testing.T) {
	f := newFixture(t)

	msg, err := f.messages.Send(f.alice.ID, model.SendMessageRequest{Content: " hello ", RecipientID: &f.bob.ID})
	require.NoError(t, err)
	require.Equal(t, "hello", msg.Content)
	require.Equal(t, model.MessageTypeNormal, msg.Type)
	require.NotNil(t, msg.Sender)
	require.Equal(t, "Alice", msg.Sender.DisplayName())

	p := f.pub.last(t)
	require.Equal(t, model.TableMessages, p.event.Table)
	require.Equal(t, model.ChangeInsert, p.event.Event)
	row := p.event.Record.(*model.Message)
	require.Equal(t, msg.ID, row.ID)
	require.Nil(t, row.Sender)
	require.ElementsMatch(t, []uuid.UUID{f.alice.ID, f.bob.ID}, p.audience.UserIDs)
}

func TestMessageService_GroupRequiresMembership(t *testing.T) {
	f := newFixture(t)

	_, err := f.messages.Send(f.carol.ID, model.SendMessageRequest{Content: "let me in", GroupID: &f.trailCrew.ID})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.messages.Send(f.bob.ID, model.SendMessageRequest{Content: "at camp", GroupID: &f.trailCrew.ID})
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{f.alice.ID, f.bob.ID}, f.pub.last(t).audience.UserIDs)
}

func TestMessageService_EmergencyBroadcastReachesEveryone(t *testing.T) {
	f := newFixture(t)

	msg, err := f.messages.Send(f.carol.ID, model.SendMessageRequest{Content: "rockslide", Type: model.MessageTypeEmergency})
	require.NoError(t, err)
	require.True(t, msg.IsBroadcast())
	require.Empty(t, f.pub.last(t).audience.UserIDs)

	got, err := f.messages.Get(f.bob.ID, msg.ID)
	require.NoError(t, err)
	require.Equal(t, msg.ID, got.ID)
}

func TestMessageService_ListAndGet(t *testing.T) {
	f := newFixture(t)
	msg, err := f.messages.Send(f.alice.ID, model.SendMessageRequest{Content: "private", RecipientID: &f.bob.ID})
	require.NoError(t, err)

	_, err = f.messages.Get(f.carol.ID, msg.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.messages.List(f.bob.ID, "not-a-uuid", 0)
	require.ErrorIs(t, err, ErrInvalidCursor)
	_, err = f.messages.List(f.bob.ID, uuid.NewString(), 0)
	require.ErrorIs(t, err, ErrInvalidCursor)

	list, err := f.messages.List(f.bob.ID, "", 1000)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

// ==================== Alerts ====================

func TestAlertService_CreateResolveExpire(t *testing.T) {
	f := newFixture(t)
	notifier := &fakeNotifier{alerts: make(chan *model.Alert, 1)}
	alerts := NewAlertService(repository.NewAlertRepository(f.db), f.profiles, f.pub, 5, notifier)

	_, err := alerts.Create(f.alice.ID, model.CreateAlertRequest{Type: "  "})
	require.ErrorIs(t, err, ErrEmptyAlertType)

	alert, err := alerts.Create(f.alice.ID, model.CreateAlertRequest{
		Type:     model.AlertTypePanic,
		Message:  "lost on the ridge",
		Severity: model.SeverityHigh,
		Location: &model.Location{Lat: 35.6, Lng: -83.5},
	})
	require.NoError(t, err)
	require.Equal(t, model.AlertStatusActive, alert.Status)
	require.Equal(t, model.ChangeInsert, f.pub.last(t).event.Event)

	select {
	case notified := <-notifier.alerts:
		require.Equal(t, alert.ID, notified.ID)
	case <-time.After(time.Second):
		t.Fatal("notifier not called")
	}

	_, err = alerts.Resolve(f.bob.ID, alert.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = alerts.Resolve(f.alice.ID, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	resolved, err := alerts.Resolve(f.alice.ID, alert.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertStatusResolved, resolved.Status)
	p := f.pub.last(t)
	require.Equal(t, model.ChangeUpdate, p.event.Event)
	require.Equal(t, model.AlertStatusResolved, p.event.Record.(*model.Alert).Status)

	active, err := alerts.List(string(model.AlertStatusActive), "", 0)
	require.NoError(t, err)
	require.Empty(t, active)

	stale, err := alerts.Create(f.bob.ID, model.CreateAlertRequest{Type: model.AlertTypeBroadcast})
	require.NoError(t, err)
	<-notifier.alerts

	alerts.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	n, err := alerts.ExpireStale(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, stale.ID, f.pub.last(t).event.Record.(*model.Alert).ID)
}

// ==================== Groups ====================

func TestGroupService_Membership(t *testing.T) {
	f := newFixture(t)
	groups := NewGroupService(f.groups, f.profiles)

	_, err := groups.Create(f.alice.ID, model.CreateGroupRequest{Name: "   "})
	require.ErrorIs(t, err, ErrEmptyName)
	_, err = groups.Create(f.alice.ID, model.CreateGroupRequest{Name: "x", MemberIDs: []uuid.UUID{uuid.New()}})
	require.ErrorIs(t, err, ErrRecipientNotFound)

	require.Len(t, f.trailCrew.Members, 2)

	// a non-admin may only add themselves, always as a plain member
	_, err = groups.AddMember(f.bob.ID, f.trailCrew.ID, model.AddMemberRequest{UserID: f.carol.ID})
	require.ErrorIs(t, err, ErrForbidden)
	member, err := groups.AddMember(f.carol.ID, f.trailCrew.ID, model.AddMemberRequest{UserID: f.carol.ID, Role: model.MemberRoleAdmin})
	require.NoError(t, err)
	require.Equal(t, model.MemberRoleMember, member.Role)

	_, err = groups.AddMember(f.alice.ID, f.trailCrew.ID, model.AddMemberRequest{UserID: f.carol.ID})
	require.ErrorIs(t, err, ErrAlreadyMember)
	_, err = groups.AddMember(f.alice.ID, uuid.New(), model.AddMemberRequest{UserID: f.carol.ID})
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, groups.RemoveMember(f.bob.ID, f.trailCrew.ID, f.carol.ID), ErrForbidden)
	require.NoError(t, groups.RemoveMember(f.carol.ID, f.trailCrew.ID, f.carol.ID))
	require.ErrorIs(t, groups.RemoveMember(f.alice.ID, f.trailCrew.ID, f.carol.ID), ErrNotFound)

	members, err := groups.Members(f.trailCrew.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	_, err = groups.Members(uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

// ==================== Profiles ====================

func TestProfileService_LocationAndActiveUsers(t *testing.T) {
	f := newFixture(t)
	profiles := NewProfileService(f.profiles, f.pub, time.Hour)

	resp, err := profiles.UpdateLocation(f.bob.ID, 35.6532, -83.5070)
	require.NoError(t, err)
	require.NotNil(t, resp.Location)

	p := f.pub.last(t)
	require.Equal(t, model.TableProfiles, p.event.Table)
	require.Equal(t, model.ChangeUpdate, p.event.Event)
	require.Equal(t, f.bob.ID, p.audience.Exclude)

	active, err := profiles.ActiveUsers(f.alice.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, f.bob.ID, active[0].ID)

	active, err = profiles.ActiveUsers(f.bob.ID)
	require.NoError(t, err)
	require.Empty(t, active, "the caller is never listed")

	profiles.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	active, err = profiles.ActiveUsers(f.alice.ID)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestProfileService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	profiles := NewProfileService(f.profiles, f.pub, time.Hour)

	name := "Ranger Bob"
	resp, err := profiles.UpdateProfile(f.bob.ID, model.UpdateProfileRequest{FullName: &name})
	require.NoError(t, err)
	require.Equal(t, name, *resp.FullName)

	resp, err = profiles.SetAvatar(f.bob.ID, "http://minio/avatars/bob.png")
	require.NoError(t, err)
	require.Equal(t, "http://minio/avatars/bob.png", *resp.AvatarURL)
	require.Equal(t, name, *resp.FullName)

	_, err = profiles.UpdateProfile(uuid.New(), model.UpdateProfileRequest{FullName: &name})
	require.ErrorIs(t, err, ErrNotFound)
}

// ==================== Auth ====================

func TestAuthService_RegisterLoginLogout(t *testing.T) {
	db := testutil.OpenDB(t)
	revoker := &fakeRevoker{tokens: map[string]time.Duration{}}
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	svc := NewAuthService(repository.NewProfileRepository(db), jwtManager, revoker)

	resp, err := svc.Register(model.RegisterRequest{Email: " Alice@ParkSafe.test ", Password: "hunter22", FullName: "Alice"})
	require.NoError(t, err)
	require.Equal(t, "alice@parksafe.test", resp.Profile.Email)
	require.NotEmpty(t, resp.Token)

	_, err = svc.Register(model.RegisterRequest{Email: "alice@parksafe.test", Password: "hunter22"})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Login(model.LoginRequest{Email: "alice@parksafe.test", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidLogin)
	_, err = svc.Login(model.LoginRequest{Email: "nobody@parksafe.test", Password: "hunter22"})
	require.ErrorIs(t, err, ErrInvalidLogin)

	login, err := svc.Login(model.LoginRequest{Email: "ALICE@parksafe.test", Password: "hunter22"})
	require.NoError(t, err)

	profile, err := svc.GetProfile(login.Profile.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice", *profile.FullName)

	require.NoError(t, svc.Logout(context.Background(), login.Token))
	ttl, ok := revoker.tokens[login.Token]
	require.True(t, ok)
	require.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

	require.Error(t, svc.Logout(context.Background(), "garbage"))
}
