package repositories

import (
	"encoding/json"
	"fmt"
	"planning-poker/domain"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
)

const inspectTimeLayout = "2006-01-02 15:04:05"

// InspectRow describes one stored entity for the debug inspector and the
// inspect command. Index keys carry no value and are shown as such.
func InspectRow(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	row.Key = key

	switch {
	case strings.HasPrefix(key, "idx:"):
		row.Type = "INDEX"
		row.Detail = ""
	case strings.HasPrefix(key, RoomPrefix):
		var room domain.Room
		if !decode(val, &room, &row) {
			return row
		}
		row.Type = "ROOM"
		row.EntityID = room.ID
		row.Namespace = string(room.Status)
		row.Timestamp = room.CreatedAt.Format(inspectTimeLayout)
		row.Detail = room.Name
		if room.CurrentTaskID != nil {
			row.Scores = "current:" + *room.CurrentTaskID
		}
	case strings.HasPrefix(key, UserPrefix):
		var user domain.User
		if !decode(val, &user, &row) {
			return row
		}
		row.Type = "USER"
		row.EntityID = user.ID
		row.Namespace = user.RoomID
		row.Timestamp = user.CreatedAt.Format(inspectTimeLayout)
		row.Detail = fmt.Sprintf("%s (%s)", user.Name, user.Role)
		row.Scores = fmt.Sprintf("connected:%t", user.Connected)
	case strings.HasPrefix(key, TaskPrefix):
		var task domain.Task
		if !decode(val, &task, &row) {
			return row
		}
		row.Type = "TASK"
		row.EntityID = task.ID
		row.Namespace = task.RoomID
		row.Timestamp = task.CreatedAt.Format(inspectTimeLayout)
		row.Detail = fmt.Sprintf("#%d %s [%s]", task.Order, task.Title, task.Status)
		if task.FinalEstimate != nil {
			row.Scores = fmt.Sprintf("estimate:%d", *task.FinalEstimate)
		}
		if task.VotingDurationSeconds != nil {
			row.Scores = strings.TrimSpace(fmt.Sprintf("%s duration:%ds", row.Scores, *task.VotingDurationSeconds))
		}
	case strings.HasPrefix(key, VotePrefix):
		var vote domain.Vote
		if !decode(val, &vote, &row) {
			return row
		}
		row.Type = "VOTE"
		row.EntityID = vote.UserID
		row.Namespace = vote.TaskID
		row.Timestamp = vote.UpdatedAt.Format(inspectTimeLayout)
		row.Scores = fmt.Sprintf("value:%d", vote.Value)
	}
	return row
}

func decode(val []byte, out any, row *database.InspectRow) bool {
	if err := json.Unmarshal(val, out); err != nil {
		row.Type = "CORRUPTED"
		row.Detail = "Error: unmarshal failed"
		return false
	}
	return true
}

// Dump walks every key starting with prefix and hands its row to fn.
// Index keys are skipped unless withIndexes is set.
func Dump(db *badger.DB, prefix string, withIndexes bool, fn func(row database.InspectRow)) error {
	return db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(prefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !withIndexes && strings.HasPrefix(key, "idx:") {
				continue
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			fn(InspectRow(key, val))
		}
		return nil
	})
}
