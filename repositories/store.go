package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"planning-poker/contract"

	"github.com/dgraph-io/badger/v4"
)

// Key layout
//
//	room:{roomID}                    -> Room
//	user:{userID}                    -> User
//	task:{taskID}                    -> Task
//	vote:{taskID}:{userID}           -> Vote (the key itself enforces one vote per user and task)
//	idx:room-user:{roomID}:{userID}  -> empty
//	idx:room-task:{roomID}:{taskID}  -> empty
const (
	RoomPrefix          = "room:"
	UserPrefix          = "user:"
	TaskPrefix          = "task:"
	VotePrefix          = "vote:"
	roomUserIndexPrefix = "idx:room-user:"
	roomTaskIndexPrefix = "idx:room-task:"
)

// Store is the badger implementation of contract.Store.
type Store struct {
	db  *badger.DB
	log *slog.Logger
}

func NewStore(db *badger.DB, log *slog.Logger) *Store {
	return &Store{db: db, log: log}
}

// Update runs fn in a read-write transaction, committed only when fn
// returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx contract.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(newTx(txn))
	})
}

func (s *Store) View(ctx context.Context, fn func(tx contract.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(newTx(txn))
	})
}

type badgerTx struct {
	rooms RoomRepository
	users UserRepository
	tasks TaskRepository
	votes VoteRepository
}

func newTx(txn *badger.Txn) badgerTx {
	return badgerTx{
		rooms: RoomRepository{txn: txn},
		users: UserRepository{txn: txn},
		tasks: TaskRepository{txn: txn},
		votes: VoteRepository{txn: txn},
	}
}

func (t badgerTx) Rooms() contract.RoomRepository { return t.rooms }
func (t badgerTx) Users() contract.UserRepository { return t.users }
func (t badgerTx) Tasks() contract.TaskRepository { return t.tasks }
func (t badgerTx) Votes() contract.VoteRepository { return t.votes }

func put(txn *badger.Txn, key string, value any) error {
	bytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	return txn.Set([]byte(key), bytes)
}

// get decodes the value stored at key into out. A missing key is reported
// as notFound so callers get a domain error instead of badger's.
func get(txn *badger.Txn, key string, out any, notFound error) error {
	item, err := txn.Get([]byte(key))
	if err == badger.ErrKeyNotFound {
		return notFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	switch err {
	case nil:
		return true, nil
	case badger.ErrKeyNotFound:
		return false, nil
	default:
		return false, err
	}
}

// scanSuffixes returns what follows prefix in every matching key. Only keys
// are read, and the iterator is closed before returning because a
// read-write transaction allows a single open iterator.
func scanSuffixes(txn *badger.Txn, prefix string) []string {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	options.Prefix = []byte(prefix)
	it := txn.NewIterator(options)
	defer it.Close()

	var suffixes []string
	for it.Rewind(); it.ValidForPrefix([]byte(prefix)); it.Next() {
		suffixes = append(suffixes, string(it.Item().Key()[len(prefix):]))
	}
	return suffixes
}
