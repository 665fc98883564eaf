package repositories

import (
	"planning-poker/domain"
	"planning-poker/errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
)

type VoteRepository struct {
	txn *badger.Txn
}

func voteKey(taskID, userID string) string {
	return VotePrefix + taskID + ":" + userID
}

// Upsert keeps the identity and creation time of an existing vote and only
// rewrites its value. Concurrent resubmissions from two tabs end up as
// conflicting writes on the same key, badger lets one commit.
func (v VoteRepository) Upsert(vote domain.Vote) (domain.Vote, bool, error) {
	existing, err := v.FindByTaskAndUser(vote.TaskID, vote.UserID)
	switch {
	case err == nil:
		existing.Value = vote.Value
		existing.UpdatedAt = vote.UpdatedAt
		return existing, true, put(v.txn, voteKey(vote.TaskID, vote.UserID), existing)
	case errors.Is(err, errors.ErrVoteNotFound):
		return vote, false, put(v.txn, voteKey(vote.TaskID, vote.UserID), vote)
	default:
		return domain.Vote{}, false, err
	}
}

func (v VoteRepository) FindByTaskAndUser(taskID, userID string) (domain.Vote, error) {
	var vote domain.Vote
	err := get(v.txn, voteKey(taskID, userID), &vote, errors.ErrVoteNotFound)
	return vote, err
}

// FindByTask returns the votes of a task in the order they were first cast.
func (v VoteRepository) FindByTask(taskID string) ([]domain.Vote, error) {
	userIDs := scanSuffixes(v.txn, VotePrefix+taskID+":")
	votes := make([]domain.Vote, 0, len(userIDs))
	for _, userID := range userIDs {
		vote, err := v.FindByTaskAndUser(taskID, userID)
		if err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	slices.SortStableFunc(votes, func(a, b domain.Vote) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return votes, nil
}

func (v VoteRepository) DeleteByTask(taskID string) (int, error) {
	userIDs := scanSuffixes(v.txn, VotePrefix+taskID+":")
	for _, userID := range userIDs {
		if err := v.txn.Delete([]byte(voteKey(taskID, userID))); err != nil {
			return 0, err
		}
	}
	return len(userIDs), nil
}
