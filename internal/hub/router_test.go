package hub_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlorchat/parlor/internal/domain"
	"github.com/parlorchat/parlor/pkg/protocol"
)

func TestRouter_Connected(t *testing.T) {
	t.Run("joins the session to its own user group", func(t *testing.T) {
		env := newTestEnv(t)
		s := newFakeSession("s1", "42")

		env.connect(t, s)

		assert.Contains(t, env.registry.Groups(s.ID()), "42")
	})

	t.Run("rejects a session without resolvable identity", func(t *testing.T) {
		env := newTestEnv(t)
		s := newFakeSession("s1", "")

		o := env.router.Connected(context.Background(), s)

		require.True(t, o.IsErr())
		assert.Equal(t, domain.CategoryUnauthenticated, o.Failure().Category)
		assert.Empty(t, env.registry.Groups(s.ID()))
	})
}

func TestRouter_Dispatch(t *testing.T) {
	t.Run("unknown method is ignored", func(t *testing.T) {
		env := newTestEnv(t)
		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.router.Dispatch(context.Background(), s, protocol.Invocation{Method: "SelfDestruct"})

		assert.Empty(t, s.Events())
	})

	t.Run("malformed arguments degrade to a validation failure reply", func(t *testing.T) {
		env := newTestEnv(t)
		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.router.Dispatch(context.Background(), s, protocol.Invocation{
			Method: protocol.MethodAddServer,
			Args:   []byte(`{"server":`),
		})

		events := s.eventsNamed(protocol.EventAddedServer)
		require.Len(t, events, 1)
		f := failureOf(t, events[0])
		assert.Equal(t, string(domain.CategoryValidation), f.Category)
	})

	t.Run("unauthenticated caller receives a failure event, nothing else", func(t *testing.T) {
		env := newTestEnv(t)
		s := newFakeSession("s1", "not-a-number")
		env.registry.Register(context.Background(), s)

		env.invoke(t, s, protocol.MethodAddServer, map[string]any{
			"server": domain.Server{Name: "general"},
		})

		events := s.eventsNamed(protocol.EventAddedServer)
		require.Len(t, events, 1)
		f := failureOf(t, events[0])
		assert.Equal(t, string(domain.CategoryUnauthenticated), f.Category)
		assert.Equal(t, string(domain.SeverityWarning), f.Severity)
	})
}

// Scenario: a channel member posts a message and every connection joined to
// the channel group receives it, the author included.
func TestRouter_PostChannelMessage(t *testing.T) {
	setupChannel := func(env *testEnv) {
		env.channels.getFn = func(_ context.Context, id int64) (domain.Channel, error) {
			return domain.Channel{ID: id, ServerID: 5, Name: "general"}, nil
		}
		env.servers.isSubscribedFn = func(_ context.Context, _, _ int64) (bool, error) {
			return true, nil
		}
	}

	t.Run("success broadcasts to the channel group including the author", func(t *testing.T) {
		env := newTestEnv(t)
		setupChannel(env)
		env.messages.insertFn = func(_ context.Context, kind domain.SurfaceKind, surfaceID int64, msg domain.Message) (domain.Message, error) {
			assert.Equal(t, domain.SurfaceChannel, kind)
			assert.Equal(t, int64(7), surfaceID)
			msg.ID = 100
			return msg, nil
		}

		author := newFakeSession("s1", "42")
		peer := newFakeSession("s2", "43")
		outsider := newFakeSession("s3", "44")
		env.connect(t, author)
		env.connect(t, peer)
		env.connect(t, outsider)
		ctx := context.Background()
		env.registry.Join(ctx, author.ID(), "channel:7")
		env.registry.Join(ctx, peer.ID(), "channel:7")

		env.invoke(t, author, protocol.MethodPostChannelMessage, map[string]any{
			"channelId": 7,
			"message":   domain.Message{Content: "hello"},
		})

		for _, s := range []*fakeSession{author, peer} {
			events := s.eventsNamed(protocol.EventChannelMessageReceived)
			require.Len(t, events, 1, "session %s", s.ID())
			payload := bodyOf[protocol.Payload[domain.Message]](t, events[0])
			assert.Equal(t, "channel:7", payload.GroupName)
			assert.Equal(t, int64(100), payload.Content.ID)
			assert.Equal(t, int64(42), payload.Content.AuthorID, "author is stamped from the connection identity")
		}
		assert.Empty(t, outsider.eventsNamed(protocol.EventChannelMessageReceived))
	})

	t.Run("failure reaches only the caller, never the group", func(t *testing.T) {
		env := newTestEnv(t)
		setupChannel(env)

		author := newFakeSession("s1", "42")
		peer := newFakeSession("s2", "43")
		env.connect(t, author)
		env.connect(t, peer)
		ctx := context.Background()
		env.registry.Join(ctx, author.ID(), "channel:7")
		env.registry.Join(ctx, peer.ID(), "channel:7")

		env.invoke(t, author, protocol.MethodPostChannelMessage, map[string]any{
			"channelId": 7,
			"message":   domain.Message{Content: ""},
		})

		events := author.eventsNamed(protocol.EventChannelMessageReceived)
		require.Len(t, events, 1)
		f := failureOf(t, events[0])
		assert.Equal(t, string(domain.CategoryValidation), f.Category)
		assert.Empty(t, peer.Events(), "group members never observe another caller's failures")
	})

	t.Run("non-subscriber is denied with the collapsed not-found", func(t *testing.T) {
		env := newTestEnv(t)
		env.channels.getFn = func(_ context.Context, id int64) (domain.Channel, error) {
			return domain.Channel{ID: id, ServerID: 5, Name: "general"}, nil
		}
		env.servers.isSubscribedFn = func(_ context.Context, _, _ int64) (bool, error) {
			return false, nil
		}

		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.invoke(t, s, protocol.MethodPostChannelMessage, map[string]any{
			"channelId": 7,
			"message":   domain.Message{Content: "hello"},
		})

		events := s.eventsNamed(protocol.EventChannelMessageReceived)
		require.Len(t, events, 1)
		f := failureOf(t, events[0])
		assert.Equal(t, string(domain.CategoryNotFound), f.Category,
			"missing and forbidden collapse to one category")
	})
}

func TestRouter_GetAllChannelMessages(t *testing.T) {
	t.Run("page is clamped server-side and replied to the caller only", func(t *testing.T) {
		env := newTestEnv(t)
		env.channels.getFn = func(_ context.Context, id int64) (domain.Channel, error) {
			return domain.Channel{ID: id, ServerID: 5}, nil
		}
		env.servers.isSubscribedFn = func(_ context.Context, _, _ int64) (bool, error) {
			return true, nil
		}
		var gotQuery domain.MessageQuery
		env.messages.listFn = func(_ context.Context, _ domain.SurfaceKind, _ int64, q domain.MessageQuery) ([]domain.Message, error) {
			gotQuery = q
			return []domain.Message{{ID: 1, Content: "hi"}}, nil
		}

		caller := newFakeSession("s1", "42")
		peer := newFakeSession("s2", "43")
		env.connect(t, caller)
		env.connect(t, peer)
		env.registry.Join(context.Background(), peer.ID(), "channel:7")

		env.invoke(t, caller, protocol.MethodGetAllChannelMessages, map[string]any{
			"channelId":     7,
			"searchTerm":    "hi",
			"lastMessageId": 500,
		})

		assert.Equal(t, domain.MessagePageSize, gotQuery.PageSize)
		assert.Equal(t, "hi", gotQuery.Search)
		assert.Equal(t, int64(500), gotQuery.LastID)

		events := caller.eventsNamed(protocol.EventAllChannelMessagesReceived)
		require.Len(t, events, 1)
		payload := bodyOf[protocol.Payload[[]domain.Message]](t, events[0])
		assert.Equal(t, "channel:7", payload.GroupName)
		require.Len(t, payload.Content, 1)
		assert.Empty(t, peer.Events(), "history fetch is caller-only")
	})
}

func TestRouter_AddToChannelConnection(t *testing.T) {
	t.Run("authorized join adds the membership and confirms", func(t *testing.T) {
		env := newTestEnv(t)
		env.channels.getFn = func(_ context.Context, id int64) (domain.Channel, error) {
			return domain.Channel{ID: id, ServerID: 5}, nil
		}
		env.servers.isSubscribedFn = func(_ context.Context, _, _ int64) (bool, error) {
			return true, nil
		}
		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.invoke(t, s, protocol.MethodAddToChannelConnection, map[string]any{"channelId": 7})

		assert.Contains(t, env.registry.Groups(s.ID()), "channel:7")
		assert.Len(t, s.eventsNamed(protocol.EventSelfAddedToChannel), 1)
	})

	t.Run("denied join is silent", func(t *testing.T) {
		env := newTestEnv(t)
		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.invoke(t, s, protocol.MethodAddToChannelConnection, map[string]any{"channelId": 7})

		assert.NotContains(t, env.registry.Groups(s.ID()), "channel:7")
		assert.Empty(t, s.Events())
	})
}

// Scenario: opening a conversation with a user for the first time creates
// the thread; reopening it returns the same thread.
func TestRouter_PostNewDirectMessaging(t *testing.T) {
	t.Run("creates the thread when none exists and joins its group", func(t *testing.T) {
		env := newTestEnv(t)
		inserted := false
		env.threads.insertFn = func(_ context.Context, firstID, secondID int64) (domain.DirectMessaging, error) {
			inserted = true
			return domain.DirectMessaging{ID: 9, FirstParticipantID: firstID, SecondParticipantID: secondID}, nil
		}
		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.invoke(t, s, protocol.MethodPostNewDirectMessaging, map[string]any{
			"firstParticipantId":  42,
			"secondParticipantId": 43,
		})

		assert.True(t, inserted)
		assert.Contains(t, env.registry.Groups(s.ID()), "dm:9")
		events := s.eventsNamed(protocol.EventNewDirectMessaging)
		require.Len(t, events, 1)
		payload := bodyOf[protocol.Payload[domain.DirectMessaging]](t, events[0])
		assert.Equal(t, "dm:9", payload.GroupName)
		assert.Equal(t, int64(9), payload.Content.ID)
	})

	t.Run("reuses the existing thread regardless of pair order", func(t *testing.T) {
		env := newTestEnv(t)
		env.threads.findByParticipantsFn = func(_ context.Context, firstID, secondID int64) (domain.DirectMessaging, error) {
			return domain.DirectMessaging{ID: 9, FirstParticipantID: 43, SecondParticipantID: 42}, nil
		}
		env.threads.insertFn = func(_ context.Context, _, _ int64) (domain.DirectMessaging, error) {
			t.Fatal("must not create a second thread for the same pair")
			return domain.DirectMessaging{}, nil
		}
		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.invoke(t, s, protocol.MethodPostNewDirectMessaging, map[string]any{
			"firstParticipantId":  42,
			"secondParticipantId": 43,
		})

		events := s.eventsNamed(protocol.EventNewDirectMessaging)
		require.Len(t, events, 1)
		payload := bodyOf[protocol.Payload[domain.DirectMessaging]](t, events[0])
		assert.Equal(t, int64(9), payload.Content.ID)
	})

	t.Run("caller outside the pair is denied", func(t *testing.T) {
		env := newTestEnv(t)
		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.invoke(t, s, protocol.MethodPostNewDirectMessaging, map[string]any{
			"firstParticipantId":  43,
			"secondParticipantId": 44,
		})

		events := s.eventsNamed(protocol.EventNewDirectMessaging)
		require.Len(t, events, 1)
		f := failureOf(t, events[0])
		assert.Equal(t, string(domain.CategoryNotFound), f.Category)
	})
}

func TestRouter_DirectMessageMutations(t *testing.T) {
	setupThread := func(env *testEnv) {
		env.threads.getFn = func(_ context.Context, id int64) (domain.DirectMessaging, error) {
			return domain.DirectMessaging{ID: id, FirstParticipantID: 42, SecondParticipantID: 43}, nil
		}
	}

	t.Run("edit broadcasts to the thread group", func(t *testing.T) {
		env := newTestEnv(t)
		setupThread(env)
		env.messages.updateFn = func(_ context.Context, kind domain.SurfaceKind, surfaceID, authorID int64, msg domain.Message) (domain.Message, error) {
			assert.Equal(t, domain.SurfaceDirect, kind)
			assert.Equal(t, int64(42), authorID)
			msg.Edited = true
			return msg, nil
		}

		author := newFakeSession("s1", "42")
		peer := newFakeSession("s2", "43")
		env.connect(t, author)
		env.connect(t, peer)
		ctx := context.Background()
		env.registry.Join(ctx, author.ID(), "dm:9")
		env.registry.Join(ctx, peer.ID(), "dm:9")

		env.invoke(t, author, protocol.MethodPutDirectMessage, map[string]any{
			"directMessagingId": 9,
			"message":           domain.Message{ID: 100, Content: "edited"},
		})

		for _, s := range []*fakeSession{author, peer} {
			events := s.eventsNamed(protocol.EventDirectMessageEdited)
			require.Len(t, events, 1, "session %s", s.ID())
			payload := bodyOf[protocol.Payload[domain.Message]](t, events[0])
			assert.True(t, payload.Content.Edited)
		}
	})

	t.Run("editing another user's message behaves as not-found", func(t *testing.T) {
		env := newTestEnv(t)
		setupThread(env)
		env.messages.updateFn = func(_ context.Context, _ domain.SurfaceKind, _, _ int64, _ domain.Message) (domain.Message, error) {
			return domain.Message{}, domain.ErrNotFound
		}

		author := newFakeSession("s1", "42")
		env.connect(t, author)
		env.registry.Join(context.Background(), author.ID(), "dm:9")

		env.invoke(t, author, protocol.MethodPutDirectMessage, map[string]any{
			"directMessagingId": 9,
			"message":           domain.Message{ID: 100, Content: "edited"},
		})

		events := author.eventsNamed(protocol.EventDirectMessageEdited)
		require.Len(t, events, 1)
		f := failureOf(t, events[0])
		assert.Equal(t, string(domain.CategoryNotFound), f.Category)
	})
}

// Scenario: inviting a user notifies them on every connection they hold;
// accepting notifies the server group and the accepting caller.
func TestRouter_Invitations(t *testing.T) {
	t.Run("send reaches the invitee's user group, not the sender", func(t *testing.T) {
		env := newTestEnv(t)
		env.servers.getFn = func(_ context.Context, id int64) (domain.Server, error) {
			return domain.Server{ID: id, Name: "gophers"}, nil
		}
		env.servers.isSubscribedFn = func(_ context.Context, userID, _ int64) (bool, error) {
			return userID == 42, nil // sender subscribed, target not
		}
		env.users.findByUserNameFn = func(_ context.Context, userName string) (domain.User, error) {
			return domain.User{ID: 77, UserName: userName}, nil
		}

		sender := newFakeSession("s1", "42")
		inviteePhone := newFakeSession("s2", "77")
		inviteeDesk := newFakeSession("s3", "77")
		env.connect(t, sender)
		env.connect(t, inviteePhone)
		env.connect(t, inviteeDesk)

		env.invoke(t, sender, protocol.MethodSendInvitation, map[string]any{
			"serverId": 5,
			"userName": "grace",
		})

		for _, s := range []*fakeSession{inviteePhone, inviteeDesk} {
			events := s.eventsNamed(protocol.EventNewInvitation)
			require.Len(t, events, 1, "session %s", s.ID())
			inv := bodyOf[domain.Invitation](t, events[0])
			assert.Equal(t, int64(77), inv.ReceiverID)
			assert.Equal(t, "gophers", inv.ServerName)
		}
		assert.Empty(t, sender.eventsNamed(protocol.EventNewInvitation))
	})

	t.Run("accept notifies the server group and the caller", func(t *testing.T) {
		env := newTestEnv(t)
		env.invitations.getFn = func(_ context.Context, id int64) (domain.Invitation, error) {
			return domain.Invitation{ID: id, ServerID: 5, ReceiverID: 42}, nil
		}
		env.invitations.resolveFn = func(_ context.Context, id int64, accepted bool) (domain.Invitation, error) {
			return domain.Invitation{ID: id, ServerID: 5, ReceiverID: 42, Accepted: accepted}, nil
		}

		accepter := newFakeSession("s1", "42")
		member := newFakeSession("s2", "43")
		env.connect(t, accepter)
		env.connect(t, member)
		env.registry.Join(context.Background(), member.ID(), "server:5")

		env.invoke(t, accepter, protocol.MethodUpdateInvitation, map[string]any{
			"invitation": domain.UpdateInvitation{ID: 9, Accepted: true},
		})

		require.Len(t, member.eventsNamed(protocol.EventUpdatedInvitation), 1)
		require.Len(t, accepter.eventsNamed(protocol.EventUpdatedInvitation), 1)
	})

	t.Run("decline notifies the caller only", func(t *testing.T) {
		env := newTestEnv(t)
		env.invitations.getFn = func(_ context.Context, id int64) (domain.Invitation, error) {
			return domain.Invitation{ID: id, ServerID: 5, ReceiverID: 42}, nil
		}
		env.invitations.resolveFn = func(_ context.Context, id int64, accepted bool) (domain.Invitation, error) {
			return domain.Invitation{ID: id, ServerID: 5, ReceiverID: 42, Accepted: accepted}, nil
		}

		decliner := newFakeSession("s1", "42")
		member := newFakeSession("s2", "43")
		env.connect(t, decliner)
		env.connect(t, member)
		env.registry.Join(context.Background(), member.ID(), "server:5")

		env.invoke(t, decliner, protocol.MethodUpdateInvitation, map[string]any{
			"invitation": domain.UpdateInvitation{ID: 9, Accepted: false},
		})

		assert.Empty(t, member.eventsNamed(protocol.EventUpdatedInvitation))
		require.Len(t, decliner.eventsNamed(protocol.EventUpdatedInvitation), 1)
	})

	t.Run("resolving someone else's invitation is denied as not-found", func(t *testing.T) {
		env := newTestEnv(t)
		env.invitations.getFn = func(_ context.Context, id int64) (domain.Invitation, error) {
			return domain.Invitation{ID: id, ServerID: 5, ReceiverID: 99}, nil
		}

		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.invoke(t, s, protocol.MethodUpdateInvitation, map[string]any{
			"invitation": domain.UpdateInvitation{ID: 9, Accepted: true},
		})

		events := s.eventsNamed(protocol.EventUpdatedInvitation)
		require.Len(t, events, 1)
		f := failureOf(t, events[0])
		assert.Equal(t, string(domain.CategoryNotFound), f.Category)
	})
}

func TestRouter_AddServer(t *testing.T) {
	t.Run("creator gets the stored server echoed back", func(t *testing.T) {
		env := newTestEnv(t)
		env.servers.insertFn = func(_ context.Context, name string, ownerID int64) (domain.Server, error) {
			assert.Equal(t, int64(42), ownerID)
			return domain.Server{ID: 8, Name: name}, nil
		}

		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.invoke(t, s, protocol.MethodAddServer, map[string]any{
			"server": domain.Server{Name: "gophers"},
		})

		events := s.eventsNamed(protocol.EventAddedServer)
		require.Len(t, events, 1)
		srv := bodyOf[domain.Server](t, events[0])
		assert.Equal(t, int64(8), srv.ID)
	})

	t.Run("blank name is a validation failure", func(t *testing.T) {
		env := newTestEnv(t)
		s := newFakeSession("s1", "42")
		env.connect(t, s)

		env.invoke(t, s, protocol.MethodAddServer, map[string]any{
			"server": domain.Server{Name: "   "},
		})

		events := s.eventsNamed(protocol.EventAddedServer)
		require.Len(t, events, 1)
		f := failureOf(t, events[0])
		assert.Equal(t, string(domain.CategoryValidation), f.Category)
	})
}

func TestRouter_UpdateMyInfo(t *testing.T) {
	t.Run("every connection of the user observes the update", func(t *testing.T) {
		env := newTestEnv(t)
		env.users.updateFn = func(_ context.Context, u domain.User) (domain.User, error) {
			assert.Equal(t, int64(42), u.ID, "the record id is forced to the caller")
			return u, nil
		}

		phone := newFakeSession("s1", "42")
		desk := newFakeSession("s2", "42")
		stranger := newFakeSession("s3", "43")
		env.connect(t, phone)
		env.connect(t, desk)
		env.connect(t, stranger)

		env.invoke(t, phone, protocol.MethodUpdateMyInfo, map[string]any{
			"user": domain.User{ID: 999, UserName: "grace"},
		})

		require.Len(t, phone.eventsNamed(protocol.EventUserUpdated), 1)
		require.Len(t, desk.eventsNamed(protocol.EventUserUpdated), 1)
		assert.Empty(t, stranger.eventsNamed(protocol.EventUserUpdated))
	})
}

// Panic capture: a fault inside the success hook degrades to a failure
// event on the caller instead of tearing down the dispatch loop.
func TestRouter_PanicInStoreDegradesToFailure(t *testing.T) {
	env := newTestEnv(t)
	env.servers.insertFn = func(_ context.Context, _ string, _ int64) (domain.Server, error) {
		panic("store exploded")
	}

	s := newFakeSession("s1", "42")
	env.connect(t, s)

	require.NotPanics(t, func() {
		env.invoke(t, s, protocol.MethodAddServer, map[string]any{
			"server": domain.Server{Name: "gophers"},
		})
	})

	events := s.eventsNamed(protocol.EventAddedServer)
	require.Len(t, events, 1)
	f := failureOf(t, events[0])
	assert.Equal(t, string(domain.CategoryUnexpected), f.Category)
	assert.Equal(t, string(domain.SeverityError), f.Severity)
}
