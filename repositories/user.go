package repositories

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"

	"puzzle-lab/domain"
	"puzzle-lab/errors"
)

type UserRepository struct {
	db       *badger.DB
	validate *validator.Validate

	seqOnce sync.Once
	seq     *badger.Sequence
	seqErr  error
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db, validate: validator.New()}
}

// nextID claims the id sequence on first use, keeping read-only processes
// free of writes.
func (r *UserRepository) nextID() (uint64, error) {
	r.seqOnce.Do(func() {
		r.seq, r.seqErr = r.db.GetSequence([]byte("seq:user"), 16)
	})
	if r.seqErr != nil {
		return 0, fmt.Errorf("user sequence: %w", r.seqErr)
	}
	return r.seq.Next()
}

func (r *UserRepository) Close() error {
	if r.seq == nil {
		return nil
	}
	return r.seq.Release()
}

type userRecord struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"hexcolor"`
}

// CreateUser persists a new solver and returns the allocated id.
func (r *UserRepository) CreateUser(name, color string) (domain.UserID, error) {
	record := userRecord{Name: name, Color: color}
	if err := r.validate.Struct(&record); err != nil {
		return domain.NoUser, fmt.Errorf("invalid user: %w", err)
	}
	next, err := r.nextID()
	if err != nil {
		return domain.NoUser, fmt.Errorf("next user id: %w", err)
	}
	id := domain.UserID(next)

	data, err := json.Marshal(record)
	if err != nil {
		return domain.NoUser, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(id), data)
	})
	if err != nil {
		return domain.NoUser, err
	}
	return id, nil
}

// UpdateColor rewrites the color of an existing solver.
func (r *UserRepository) UpdateColor(id domain.UserID, color string) error {
	record := userRecord{Color: color}
	if err := r.validate.StructPartial(&record, "Color"); err != nil {
		return fmt.Errorf("invalid color: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err == badger.ErrKeyNotFound {
			return fmt.Errorf("user %d: %w", id, errors.ErrUserNotFound)
		}
		if err != nil {
			return err
		}
		var stored userRecord
		err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
		if err != nil {
			return err
		}
		stored.Color = color
		data, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
}

// GetUsers returns all solvers ordered by id. The padded key makes the badger
// prefix scan come back in creation order.
func (r *UserRepository) GetUsers() ([]domain.User, error) {
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var id domain.UserID
			if _, err := fmt.Sscanf(string(item.Key()), "user:%d", &id); err != nil {
				continue
			}
			var record userRecord
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			users = append(users, domain.User{ID: id, Name: record.Name, Color: record.Color})
		}
		return nil
	})
	return users, err
}

func userKey(id domain.UserID) []byte {
	return []byte(fmt.Sprintf("user:%019d", id))
}
