package repositories

import (
	"context"
	"encoding/json"
	"planning-poker/contract"
	"planning-poker/domain"
	"testing"
	"time"

	"github.com/mama165/sdk-go/database"
	"github.com/stretchr/testify/require"
)

func TestInspectRow_Entities(t *testing.T) {
	at := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	estimate, duration := 5, 42
	task := domain.NewTask("task-1", "room-1", "Login page", 0, at)
	task.Status = domain.TaskVoted
	task.FinalEstimate = &estimate
	task.VotingDurationSeconds = &duration

	testCases := []struct {
		name  string
		key   string
		value any
		want  func(req *require.Assertions, row database.InspectRow)
	}{
		{
			name: "room", key: RoomPrefix + "room-1", value: domain.NewRoom("room-1", "Sprint", at),
			want: func(req *require.Assertions, row database.InspectRow) {
				req.Equal("ROOM", row.Type)
				req.Equal("Sprint", row.Detail)
				req.Equal("active", row.Namespace)
				req.Equal("2024-03-14 09:00:00", row.Timestamp)
			},
		},
		{
			name: "user", key: UserPrefix + "user-1", value: domain.NewUser("user-1", "room-1", "Alice", domain.RoleCreator, at),
			want: func(req *require.Assertions, row database.InspectRow) {
				req.Equal("USER", row.Type)
				req.Equal("Alice (creator)", row.Detail)
				req.Equal("room-1", row.Namespace)
				req.Equal("connected:true", row.Scores)
			},
		},
		{
			name: "task", key: TaskPrefix + "task-1", value: task,
			want: func(req *require.Assertions, row database.InspectRow) {
				req.Equal("TASK", row.Type)
				req.Equal("#0 Login page [voted]", row.Detail)
				req.Equal("estimate:5 duration:42s", row.Scores)
			},
		},
		{
			name: "vote", key: VotePrefix + "task-1:user-1",
			value: domain.Vote{ID: "vote-1", TaskID: "task-1", UserID: "user-1", Value: 8, UpdatedAt: at},
			want: func(req *require.Assertions, row database.InspectRow) {
				req.Equal("VOTE", row.Type)
				req.Equal("value:8", row.Scores)
				req.Equal("task-1", row.Namespace)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			val, err := json.Marshal(tc.value)
			req.NoError(err)

			row := InspectRow(tc.key, val)

			req.Equal(tc.key, row.Key)
			tc.want(req, row)
		})
	}
}

func TestInspectRow_Corrupted_Value(t *testing.T) {
	req := require.New(t)

	row := InspectRow(RoomPrefix+"room-1", []byte("{not json"))

	req.Equal("CORRUPTED", row.Type)
	req.Contains(row.Detail, "unmarshal failed")
}

func TestDump_Skips_Indexes(t *testing.T) {
	req := require.New(t)
	store := setupStore(t)
	at := time.Now().UTC()

	req.NoError(store.Update(context.Background(), func(tx contract.Tx) error {
		if err := tx.Rooms().Create(domain.NewRoom("room-1", "Sprint", at)); err != nil {
			return err
		}
		return tx.Users().Create(domain.NewUser("user-1", "room-1", "Alice", domain.RoleCreator, at))
	}))

	var types []string
	req.NoError(Dump(store.db, "", false, func(row database.InspectRow) { types = append(types, row.Type) }))
	req.ElementsMatch([]string{"ROOM", "USER"}, types)

	types = nil
	req.NoError(Dump(store.db, "", true, func(row database.InspectRow) { types = append(types, row.Type) }))
	req.Contains(types, "INDEX")

	types = nil
	req.NoError(Dump(store.db, UserPrefix, false, func(row database.InspectRow) { types = append(types, row.Type) }))
	req.Equal([]string{"USER"}, types)
}
