package repositories

import (
	"planning-poker/domain"
	"planning-poker/errors"

	"github.com/dgraph-io/badger/v4"
)

type RoomRepository struct {
	txn *badger.Txn
}

func (r RoomRepository) Create(room domain.Room) error {
	found, err := exists(r.txn, RoomPrefix+room.ID)
	if err != nil {
		return err
	}
	if found {
		return errors.ErrRoomAlreadyExists
	}
	return put(r.txn, RoomPrefix+room.ID, room)
}

func (r RoomRepository) FindByID(id string) (domain.Room, error) {
	var room domain.Room
	err := get(r.txn, RoomPrefix+id, &room, errors.ErrRoomNotFound)
	return room, err
}

func (r RoomRepository) Update(room domain.Room) error {
	found, err := exists(r.txn, RoomPrefix+room.ID)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrRoomNotFound
	}
	return put(r.txn, RoomPrefix+room.ID, room)
}

// Delete removes the room record only. Users, tasks and votes stay readable
// as session history.
func (r RoomRepository) Delete(id string) error {
	return r.txn.Delete([]byte(RoomPrefix + id))
}
