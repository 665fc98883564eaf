package services

import (
	"planning-poker/contract"
	"planning-poker/domain"
	"planning-poker/errors"
	"planning-poker/mocks"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRoomService_Create_And_Join(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, fixedRandom(0))

	room, creator := f.createRoom("sprint", "  Alice ")
	req.Equal(domain.RoomActive, room.Status)
	req.Nil(room.CurrentTaskID)
	req.Equal("Alice", creator.Name)
	req.Equal(domain.RoleCreator, creator.Role)
	req.True(creator.Connected)

	var state domain.RoomState
	var bob domain.User
	f.update(func(tx contract.Tx) error {
		var err error
		state, bob, err = f.rooms.Join(tx, room.ID, "Bob")
		return err
	})

	req.Equal(domain.RoleVoter, bob.Role)
	req.Len(state.Users, 2)
	req.Equal(creator.ID, state.Users[0].ID)
	req.Empty(state.Tasks)
	req.NotNil(state.Votes)
	req.NotNil(state.VotedUserIDs)

	err := f.try(func(tx contract.Tx) error {
		_, _, err := f.rooms.Join(tx, "room-missing", "Bob")
		return err
	})
	req.ErrorIs(err, errors.ErrRoomNotFound)

	err = f.try(func(tx contract.Tx) error {
		_, _, err := f.rooms.Join(tx, room.ID, "   ")
		return err
	})
	req.ErrorIs(err, errors.ErrEmptyName)
}

func TestRoomService_State_Shows_Current_Votes(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, fixedRandom(0))
	room, alice := f.createRoom("sprint", "Alice")
	bob := f.join(room.ID, "Bob")
	task := f.addTasks(room.ID, alice.ID, "A", "B")[0]
	f.vote(task.ID, bob.ID, 3)

	f.update(func(tx contract.Tx) error {
		state, err := f.rooms.State(tx, room.ID)
		req.Len(state.Tasks, 2)
		req.Len(state.Votes, 1)
		req.Equal([]string{bob.ID}, state.VotedUserIDs)
		return err
	})
}

func TestRoomService_Rejoin(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, fixedRandom(0))
	room, _ := f.createRoom("sprint", "Alice")
	bob := f.join(room.ID, "Bob")

	// Given Bob's last connection is gone
	f.update(func(tx contract.Tx) error {
		_, err := f.rooms.Disconnect(tx, room.ID, bob.ID)
		return err
	})
	req.False(f.user(bob.ID).Connected)

	// When Bob comes back
	var result RejoinResult
	f.update(func(tx contract.Tx) error {
		var err error
		result, err = f.rooms.Rejoin(tx, room.ID, bob.ID)
		return err
	})

	// Then he is connected again and the comeback is reported
	req.True(result.WasDisconnected)
	req.True(result.User.Connected)
	req.True(f.user(bob.ID).Connected)

	// And a second tab does not report a comeback
	f.update(func(tx contract.Tx) error {
		var err error
		result, err = f.rooms.Rejoin(tx, room.ID, bob.ID)
		return err
	})
	req.False(result.WasDisconnected)

	// And a user of another room cannot rejoin here
	_, zoe := f.createRoom("other", "Zoe")
	err := f.try(func(tx contract.Tx) error {
		_, err := f.rooms.Rejoin(tx, room.ID, zoe.ID)
		return err
	})
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestRoomService_Finish(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, fixedRandom(0))
	room, alice := f.createRoom("sprint", "Alice")
	bob := f.join(room.ID, "Bob")
	f.addTasks(room.ID, alice.ID, "A")

	err := f.try(func(tx contract.Tx) error {
		_, err := f.rooms.Finish(tx, room.ID, bob.ID)
		return err
	})
	req.ErrorIs(err, errors.ErrNotAuthorized)

	f.update(func(tx contract.Tx) error {
		_, err := f.rooms.Finish(tx, room.ID, alice.ID)
		return err
	})
	stored := f.room(room.ID)
	req.Equal(domain.RoomFinished, stored.Status)
	req.Nil(stored.CurrentTaskID)

	// Nobody new can join, known users can still come back
	err = f.try(func(tx contract.Tx) error {
		_, _, err := f.rooms.Join(tx, room.ID, "Carl")
		return err
	})
	req.ErrorIs(err, errors.ErrRoomFinished)
	f.update(func(tx contract.Tx) error {
		_, err := f.rooms.Rejoin(tx, room.ID, bob.ID)
		return err
	})
}

func TestRoomService_Finished_Room_Freezes_Roles(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	random := mocks.NewMockRandom(ctrl)
	f := newFixture(t, random)
	room, alice := f.createRoom("sprint", "Alice")
	bob := f.join(room.ID, "Bob")
	carl := f.join(room.ID, "Carl")
	f.update(func(tx contract.Tx) error {
		_, err := f.rooms.Finish(tx, room.ID, alice.ID)
		return err
	})

	// Role changes and kicks are refused
	err := f.try(func(tx contract.Tx) error {
		_, err := f.rooms.ChangeRole(tx, room.ID, alice.ID, bob.ID, domain.RoleAdmin)
		return err
	})
	req.ErrorIs(err, errors.ErrRoomFinished)
	err = f.try(func(tx contract.Tx) error {
		_, err := f.rooms.Kick(tx, room.ID, alice.ID, carl.ID)
		return err
	})
	req.ErrorIs(err, errors.ErrRoomFinished)

	// The creator leaving is recorded but nobody is promoted
	random.EXPECT().IntN(gomock.Any()).Times(0)
	var result DisconnectResult
	f.update(func(tx contract.Tx) error {
		var err error
		result, err = f.rooms.Disconnect(tx, room.ID, alice.ID)
		return err
	})
	req.Nil(result.Promoted)
	req.False(f.user(alice.ID).Connected)
	req.Equal(domain.RoleVoter, f.user(bob.ID).Role)
	req.Equal(domain.RoleVoter, f.user(carl.ID).Role)
	req.True(f.user(carl.ID).Connected)
}

func TestRoomService_ChangeRole(t *testing.T) {
	t.Run("creator promotes a voter to admin", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		bob := f.join(room.ID, "Bob")

		f.update(func(tx contract.Tx) error {
			updated, err := f.rooms.ChangeRole(tx, room.ID, alice.ID, bob.ID, domain.RoleAdmin)
			req.Equal(domain.RoleAdmin, updated.Role)
			return err
		})
		req.Equal(domain.RoleAdmin, f.user(bob.ID).Role)
	})

	t.Run("creator role cannot be touched", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, alice := f.createRoom("sprint", "Alice")
		bob := f.join(room.ID, "Bob")
		f.setRole(bob.ID, domain.RoleAdmin)

		for _, requester := range []string{alice.ID, bob.ID} {
			err := f.try(func(tx contract.Tx) error {
				_, err := f.rooms.ChangeRole(tx, room.ID, requester, alice.ID, domain.RoleVoter)
				return err
			})
			req.ErrorIs(err, errors.ErrTargetImmutable)
		}
		req.Equal(domain.RoleCreator, f.user(alice.ID).Role)
	})

	t.Run("admin cannot hand out admin", func(t *testing.T) {
		req := require.New(t)
		f := newFixture(t, fixedRandom(0))
		room, _ := f.createRoom("sprint", "Alice")
		bob := f.join(room.ID, "Bob")
		carl := f.join(room.ID, "Carl")
		f.setRole(bob.ID, domain.RoleAdmin)

		err := f.try(func(tx contract.Tx) error {
			_, err := f.rooms.ChangeRole(tx, room.ID, bob.ID, carl.ID, domain.RoleAdmin)
			return err
		})

		req.ErrorIs(err, errors.ErrInvalidRoleForActor)
		req.Equal(domain.RoleVoter, f.user(carl.ID).Role)
	})
}

func TestRoomService_Kick(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, fixedRandom(0))
	room, alice := f.createRoom("sprint", "Alice")
	bob := f.join(room.ID, "Bob")

	err := f.try(func(tx contract.Tx) error {
		_, err := f.rooms.Kick(tx, room.ID, bob.ID, alice.ID)
		return err
	})
	req.ErrorIs(err, errors.ErrNotAuthorized)

	f.update(func(tx contract.Tx) error {
		_, err := f.rooms.Kick(tx, room.ID, alice.ID, bob.ID)
		return err
	})
	req.False(f.user(bob.ID).Connected)
}

func TestRoomService_Failover(t *testing.T) {
	t.Run("promotes exactly one connected voter when the last manager leaves", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		random := mocks.NewMockRandom(ctrl)
		f := newFixture(t, random)
		room, alice := f.createRoom("sprint", "Alice")
		bob := f.join(room.ID, "Bob")
		carl := f.join(room.ID, "Carl")
		olga := f.join(room.ID, "Olga")
		f.setRole(olga.ID, domain.RoleObserver)

		// Two eligible voters, the draw picks the second one
		random.EXPECT().IntN(2).Return(1).Times(1)

		var result DisconnectResult
		f.update(func(tx contract.Tx) error {
			var err error
			result, err = f.rooms.Disconnect(tx, room.ID, alice.ID)
			return err
		})

		req.False(result.User.Connected)
		req.NotNil(result.Promoted)
		req.Equal(carl.ID, result.Promoted.ID)
		req.Equal(domain.RoleAdmin, f.user(carl.ID).Role)
		req.Equal(domain.RoleVoter, f.user(bob.ID).Role)
		req.Equal(domain.RoleObserver, f.user(olga.ID).Role)
		req.Equal(domain.RoleCreator, f.user(alice.ID).Role)
	})

	t.Run("no promotion while another admin is connected", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		random := mocks.NewMockRandom(ctrl)
		f := newFixture(t, random)
		room, alice := f.createRoom("sprint", "Alice")
		bob := f.join(room.ID, "Bob")
		carl := f.join(room.ID, "Carl")
		f.setRole(bob.ID, domain.RoleAdmin)

		random.EXPECT().IntN(gomock.Any()).Times(0)

		var result DisconnectResult
		f.update(func(tx contract.Tx) error {
			var err error
			result, err = f.rooms.Disconnect(tx, room.ID, alice.ID)
			return err
		})

		req.Nil(result.Promoted)
		req.Equal(domain.RoleVoter, f.user(carl.ID).Role)
	})

	t.Run("observers are never promoted", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		random := mocks.NewMockRandom(ctrl)
		f := newFixture(t, random)
		room, alice := f.createRoom("sprint", "Alice")
		olga := f.join(room.ID, "Olga")
		f.setRole(olga.ID, domain.RoleObserver)

		random.EXPECT().IntN(gomock.Any()).Times(0)

		var result DisconnectResult
		f.update(func(tx contract.Tx) error {
			var err error
			result, err = f.rooms.Disconnect(tx, room.ID, alice.ID)
			return err
		})

		req.Nil(result.Promoted)
		req.Equal(domain.RoleObserver, f.user(olga.ID).Role)
	})

	t.Run("a voter leaving does not trigger a promotion", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		random := mocks.NewMockRandom(ctrl)
		f := newFixture(t, random)
		room, _ := f.createRoom("sprint", "Alice")
		bob := f.join(room.ID, "Bob")
		f.join(room.ID, "Carl")

		random.EXPECT().IntN(gomock.Any()).Times(0)

		var result DisconnectResult
		f.update(func(tx contract.Tx) error {
			var err error
			result, err = f.rooms.Disconnect(tx, room.ID, bob.ID)
			return err
		})

		req.Nil(result.Promoted)
	})
}
