package chatlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-client/internal/apperr"
	"chat-client/internal/loop"
	"chat-client/internal/mocks"
	"chat-client/internal/models"
	"chat-client/internal/notice"
	"chat-client/internal/session"
)

var (
	ann  = models.User{ID: "u1", Name: "Ann"}
	bob  = models.User{ID: "u2", Name: "Bob"}
	cara = models.User{ID: "u3", Name: "Cara"}

	direct = models.Conversation{ID: "c1", ChatName: "sender", Users: []models.User{ann, bob}}
	group  = models.Conversation{ID: "c2", ChatName: "Team", IsGroupChat: true, Users: []models.User{ann, bob}, GroupAdmin: &ann}
)

type fixture struct {
	loop    *loop.Loop
	store   *session.Store
	api     *mocks.ChatAPIMock
	channel *mocks.ChannelMock
	notices *notice.Board
	sync    *Synchronizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{
		loop:    loop.New(ctx),
		store:   session.NewStore(),
		api:     new(mocks.ChatAPIMock),
		channel: new(mocks.ChannelMock),
		notices: notice.NewBoard(time.Minute),
	}
	f.store.SetUser(&ann)
	f.sync = New(f.loop, f.store, f.api, f.channel, f.notices)
	go f.loop.Run()
	return f
}

func (f *fixture) do(t *testing.T, fn func()) {
	t.Helper()
	require.NoError(t, f.loop.Do(context.Background(), fn))
}

func ids(list []models.Conversation) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func TestRefreshReplacesKnownSet(t *testing.T) {
	f := newFixture(t)
	f.api.On("ListChats", mock.Anything).Return([]models.Conversation{group, direct, group}, nil).Once()

	require.NoError(t, f.sync.Refresh(context.Background()))

	assert.Equal(t, []string{"c2", "c1"}, ids(f.store.Conversations()))
	f.api.AssertExpectations(t)
}

func TestRefreshFailurePushesNotice(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{direct})
	f.api.On("ListChats", mock.Anything).Return(nil, apperr.Network("list chats", 500, "boom", nil)).Once()

	err := f.sync.Refresh(context.Background())
	require.Error(t, err)

	assert.Equal(t, []string{"c1"}, ids(f.store.Conversations()), "prior state kept")
	active := f.notices.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Failed to load chats", active[0].Description)
	assert.Equal(t, notice.PositionTopRight, active[0].Position)
}

// blockListChats makes the next ListChats call wait for release and return
// chats. started is closed once the call is in flight.
func (f *fixture) blockListChats(chats []models.Conversation) (started, release chan struct{}) {
	started, release = make(chan struct{}), make(chan struct{})
	f.api.On("ListChats", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(chats, nil).Once()
	return started, release
}

func TestInvalidateAppliesLatestResult(t *testing.T) {
	f := newFixture(t)
	started, release := f.blockListChats([]models.Conversation{group})

	f.do(t, func() { f.sync.Invalidate() })
	<-started
	f.api.On("ListChats", mock.Anything).Return([]models.Conversation{direct, group}, nil).Once()
	f.do(t, func() { f.sync.Invalidate() })

	require.Eventually(t, func() bool {
		return len(f.store.Conversations()) == 2
	}, time.Second, 5*time.Millisecond)

	close(release)
	// let the older result drain through the loop
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, []string{"c1", "c2"}, ids(f.store.Conversations()), "older generation dropped")
	f.do(t, func() { assert.Equal(t, uint64(2), f.sync.Generation()) })
	f.api.AssertNumberOfCalls(t, "ListChats", 2)
}

func TestRefreshSupersededByInvalidate(t *testing.T) {
	f := newFixture(t)
	started, release := f.blockListChats([]models.Conversation{group})

	done := make(chan error, 1)
	go func() { done <- f.sync.Refresh(context.Background()) }()
	<-started

	f.api.On("ListChats", mock.Anything).Return([]models.Conversation{direct, group}, nil).Once()
	f.do(t, func() { f.sync.Invalidate() })
	require.Eventually(t, func() bool {
		return len(f.store.Conversations()) == 2
	}, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"c1", "c2"}, ids(f.store.Conversations()))
}

func TestResetDropsPendingRefetch(t *testing.T) {
	f := newFixture(t)
	started, release := f.blockListChats([]models.Conversation{direct, group})

	f.do(t, func() { f.sync.Invalidate() })
	<-started
	f.do(t, func() {
		f.sync.Reset()
		f.store.SetUser(nil)
	})

	close(release)
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, f.store.Conversations())
	f.do(t, func() { assert.Equal(t, uint64(2), f.sync.Generation()) })
}

func TestOnSelectLeavesPreviousRoomOnce(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{direct, group})
	f.channel.On("LeaveRoom", "c1").Return(nil).Once()

	var transitions [][2]string
	f.store.OnSelect(func(prev, next *models.Conversation) {
		var p, n string
		if prev != nil {
			p = prev.ID
		}
		if next != nil {
			n = next.ID
		}
		transitions = append(transitions, [2]string{p, n})
	})

	f.do(t, func() {
		require.True(t, f.sync.Select("c1"))
		require.True(t, f.sync.Select("c2"))
		require.False(t, f.sync.Select("missing"))
	})

	f.channel.AssertExpectations(t)
	f.channel.AssertNumberOfCalls(t, "LeaveRoom", 1)
	assert.Equal(t, [][2]string{{"", "c1"}, {"c1", "c2"}}, transitions)
	assert.Equal(t, "c2", f.store.SelectedID())
}

func TestOnSelectNilClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{direct})
	f.channel.On("LeaveRoom", "c1").Return(errors.New("not connected")).Once()

	f.do(t, func() {
		f.sync.Select("c1")
		f.sync.OnSelect(nil)
	})

	assert.Equal(t, "", f.store.SelectedID())
	f.channel.AssertExpectations(t)
}

func TestUpsertFromCreationPrependsOnce(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{direct})

	f.do(t, func() {
		f.sync.UpsertFromCreation(group)
	})
	assert.Equal(t, []string{"c2", "c1"}, ids(f.store.Conversations()))
	assert.Equal(t, "c2", f.store.SelectedID())

	f.channel.On("LeaveRoom", "c2").Return(nil).Once()
	f.do(t, func() {
		f.sync.UpsertFromCreation(direct)
	})
	assert.Equal(t, []string{"c2", "c1"}, ids(f.store.Conversations()))
	assert.Equal(t, "c1", f.store.SelectedID())
}

func TestTouchBumpsConversation(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{group, direct})

	msg := models.Message{ID: "m1", Sender: ann, Content: "hello", Chat: &direct}
	f.do(t, func() { f.sync.Touch(msg) })

	list := f.store.Conversations()
	require.Equal(t, []string{"c1", "c2"}, ids(list))
	assert.Equal(t, "You: hello", Preview(list[0], ann))
}

func TestSearchUsersFailure(t *testing.T) {
	f := newFixture(t)
	f.api.On("SearchUsers", mock.Anything, "bob").Return(nil, errors.New("dial tcp: refused")).Once()

	_, err := f.sync.SearchUsers(context.Background(), "bob")
	require.Error(t, err)
	require.Len(t, f.notices.Active(), 1)
	assert.Equal(t, "Failed to load the search results", f.notices.Active()[0].Description)
}

func TestAccessChatOpensConversation(t *testing.T) {
	f := newFixture(t)
	f.api.On("AccessChat", mock.Anything, "u2").Return(direct, nil).Once()

	conv, err := f.sync.AccessChat(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "c1", conv.ID)
	assert.Equal(t, "c1", f.store.SelectedID())
	assert.Equal(t, []string{"c1"}, ids(f.store.Conversations()))
}

func TestCreateGroupValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.sync.CreateGroup(context.Background(), "  ", []string{"u2"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.sync.CreateGroup(context.Background(), "Team", nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.sync.CreateGroup(context.Background(), "Team", []string{"u2", "u2"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	active := f.notices.Active()
	require.Len(t, active, 3)
	assert.Equal(t, "User already selected", active[2].Title)
	assert.Equal(t, notice.StatusWarning, active[2].Status)
	assert.Equal(t, notice.PositionTop, active[2].Position)
	f.api.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateGroupSuccess(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{direct})
	f.api.On("CreateGroup", mock.Anything, "Team", []string{"u2", "u3"}).Return(group, nil).Once()

	conv, err := f.sync.CreateGroup(context.Background(), "Team", []string{"u2", "u3"})
	require.NoError(t, err)
	assert.Equal(t, "c2", conv.ID)
	assert.Equal(t, []string{"c2", "c1"}, ids(f.store.Conversations()))
	assert.Equal(t, "c2", f.store.SelectedID())
	assert.Equal(t, "New Group Chat Created", f.notices.Active()[0].Title)
}

func TestCreateGroupFailureNotice(t *testing.T) {
	f := newFixture(t)
	f.api.On("CreateGroup", mock.Anything, "Team", []string{"u2"}).
		Return(nil, apperr.Network("create group", 400, "Please fill all the feilds", nil)).Once()

	_, err := f.sync.CreateGroup(context.Background(), "Team", []string{"u2"})
	require.True(t, apperr.IsKind(err, apperr.KindNetwork))
	active := f.notices.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "Failed To Create Group Chat", active[0].Title)
	assert.Equal(t, "Please fill all the feilds", active[0].Description)
}

func TestRenameGroupReplacesOpenConversation(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{group})
	f.do(t, func() { f.sync.Select("c2") })

	renamed := group
	renamed.ChatName = "Crew"
	f.api.On("RenameGroup", mock.Anything, "c2", "Crew").Return(renamed, nil).Once()
	f.api.On("ListChats", mock.Anything).Return([]models.Conversation{renamed}, nil)

	_, err := f.sync.RenameGroup(context.Background(), "c2", "Crew")
	require.NoError(t, err)

	sel, ok := f.store.Selected()
	require.True(t, ok)
	assert.Equal(t, "Crew", sel.ChatName)
	conv, _ := f.store.Conversation("c2")
	assert.Equal(t, "Crew", conv.ChatName)
	assert.Equal(t, "Group Name Updated", f.notices.Active()[0].Title)
}

func TestRenameGroupEmptyNameIsNoop(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{group})

	conv, err := f.sync.RenameGroup(context.Background(), "c2", "")
	require.NoError(t, err)
	assert.Equal(t, "Team", conv.ChatName)
	f.api.AssertNotCalled(t, "RenameGroup", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddToGroupExistingMember(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{group})

	_, err := f.sync.AddToGroup(context.Background(), "c2", "u2")
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.Equal(t, "User already exists", f.notices.Active()[0].Title)
	f.api.AssertNotCalled(t, "AddToGroup", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddToGroup(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{group})

	grown := group
	grown.Users = []models.User{ann, bob, cara}
	f.api.On("AddToGroup", mock.Anything, "c2", "u3").Return(grown, nil).Once()
	f.api.On("ListChats", mock.Anything).Return([]models.Conversation{grown}, nil)

	_, err := f.sync.AddToGroup(context.Background(), "c2", "u3")
	require.NoError(t, err)
	conv, _ := f.store.Conversation("c2")
	assert.True(t, conv.HasMember("u3"))
}

func TestRemoveSelfClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{group})
	f.do(t, func() { f.sync.Select("c2") })

	left := group
	left.Users = []models.User{bob}
	f.api.On("RemoveFromGroup", mock.Anything, "c2", "u1").Return(left, nil).Once()
	f.api.On("ListChats", mock.Anything).Return([]models.Conversation{}, nil)
	f.channel.On("LeaveRoom", "c2").Return(nil).Once()

	_, err := f.sync.RemoveFromGroup(context.Background(), "c2", "u1")
	require.NoError(t, err)

	assert.Equal(t, "", f.store.SelectedID())
	f.channel.AssertExpectations(t)
	f.do(t, func() { assert.True(t, f.sync.Left("c2")) })
}

func TestLeftClearsWhenConversationReturns(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{group})
	f.api.On("RemoveFromGroup", mock.Anything, "c2", "u1").Return(group, nil).Once()
	f.api.On("ListChats", mock.Anything).Return([]models.Conversation{}, nil)

	_, err := f.sync.RemoveFromGroup(context.Background(), "c2", "u1")
	require.NoError(t, err)
	f.do(t, func() { assert.True(t, f.sync.Left("c2")) })

	// re-added by an admin
	f.do(t, func() {
		f.sync.apply([]models.Conversation{group})
		assert.False(t, f.sync.Left("c2"))
	})

	f.do(t, func() {
		f.sync.left["c1"] = true
		f.sync.Reset()
		assert.False(t, f.sync.Left("c1"))
	})
}

func TestRemoveOtherReloadsOpenConversation(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversations([]models.Conversation{group})
	f.do(t, func() { f.sync.Select("c2") })

	reloads := 0
	f.sync.SetReloader(func() { reloads++ })

	shrunk := group
	shrunk.Users = []models.User{ann}
	f.api.On("RemoveFromGroup", mock.Anything, "c2", "u2").Return(shrunk, nil).Once()
	f.api.On("ListChats", mock.Anything).Return([]models.Conversation{shrunk}, nil)

	_, err := f.sync.RemoveFromGroup(context.Background(), "c2", "u2")
	require.NoError(t, err)

	f.do(t, func() { assert.Equal(t, 1, reloads) })
	sel, _ := f.store.Selected()
	assert.False(t, sel.HasMember("u2"))
}
