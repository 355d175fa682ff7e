package models

// User is a row of the users table. Nullable columns are pointers.
type User struct {
	ID             int64
	Email          string
	HashedPassword *string
	FullName       *string
	Bio            *string
	Phone          *string
	PhotoURL       *string
	IsActive       bool
	FacebookID     *string
}

// ProfileUpdate lists the profile fields a caller asked to change. Nil
// fields are left as they are.
type ProfileUpdate struct {
	FullName *string
	Bio      *string
	Phone    *string
	Email    *string
}

// Empty reports whether the update touches nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.Bio == nil && u.Phone == nil && u.Email == nil
}
