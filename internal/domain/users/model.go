package users

import "time"

type Role string

const (
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

type User struct {
	ID         int64
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	Role       Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Telegram struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName prefers @username, then the full name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	return name
}
