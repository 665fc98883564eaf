package repositories

import (
	"planning-poker/domain"
	"planning-poker/errors"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

type UserRepository struct {
	txn *badger.Txn
}

func roomUserIndexKey(roomID, userID string) string {
	return roomUserIndexPrefix + roomID + ":" + userID
}

func (u UserRepository) Create(user domain.User) error {
	found, err := exists(u.txn, UserPrefix+user.ID)
	if err != nil {
		return err
	}
	if found {
		return errors.ErrUserAlreadyExists
	}
	if err = put(u.txn, UserPrefix+user.ID, user); err != nil {
		return err
	}
	return u.txn.Set([]byte(roomUserIndexKey(user.RoomID, user.ID)), nil)
}

func (u UserRepository) FindByID(id string) (domain.User, error) {
	var user domain.User
	err := get(u.txn, UserPrefix+id, &user, errors.ErrUserNotFound)
	return user, err
}

// FindByRoom returns the participants in join order.
func (u UserRepository) FindByRoom(roomID string) ([]domain.User, error) {
	ids := scanSuffixes(u.txn, roomUserIndexPrefix+roomID+":")
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		user, err := u.FindByID(id)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	slices.SortStableFunc(users, func(a, b domain.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return users, nil
}

func (u UserRepository) Update(user domain.User) error {
	found, err := exists(u.txn, UserPrefix+user.ID)
	if err != nil {
		return err
	}
	if !found {
		return errors.ErrUserNotFound
	}
	return put(u.txn, UserPrefix+user.ID, user)
}

func (u UserRepository) Delete(id string) error {
	user, err := u.FindByID(id)
	if err != nil {
		return err
	}
	if err = u.txn.Delete([]byte(roomUserIndexKey(user.RoomID, id))); err != nil {
		return err
	}
	return u.txn.Delete([]byte(UserPrefix + id))
}
