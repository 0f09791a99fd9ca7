package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	"puzzle-lab/errors"
)

func Test_User_Create_And_List(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewUserRepository(db)
	defer repository.Close()

	aliceID, err := repository.CreateUser("Alice", "#ff0000")
	req.NoError(err)
	bobID, err := repository.CreateUser("Bob", "#00ff00")
	req.NoError(err)
	req.NotEqual(aliceID, bobID)

	users, err := repository.GetUsers()
	req.NoError(err)
	req.Len(users, 2)
	req.Equal("Alice", users[0].Name)
	req.Equal("Bob", users[1].Name)
}

func Test_User_UpdateColor(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewUserRepository(db)
	defer repository.Close()

	id, err := repository.CreateUser("Clara", "#0000ff")
	req.NoError(err)

	req.NoError(repository.UpdateColor(id, "#123456"))

	users, err := repository.GetUsers()
	req.NoError(err)
	req.Len(users, 1)
	req.Equal("#123456", users[0].Color)
}

func Test_User_Rejects_Bad_Color(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewUserRepository(db)
	defer repository.Close()

	_, err := repository.CreateUser("Mallory", "red-ish")
	req.Error(err)

	err = repository.UpdateColor(999, "#abcdef")
	req.ErrorIs(err, errors.ErrUserNotFound)
}
