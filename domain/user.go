package domain

// UserID identifies a persisted solver. NoUser marks cells nobody wrote yet.
type UserID int64

const NoUser UserID = -1

// User is a solver with a display name and a CSS hex color used to tint the
// letters they write.
type User struct {
	ID    UserID
	Name  string
	Color string
}
