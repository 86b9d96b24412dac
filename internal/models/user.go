package models

type UserRole string

const (
	// UserRoleAdmin is the elevated role: admin-equivalent rights across
	// every group, regardless of per-group admin membership.
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

type User struct {
	BaseModel
	Username     string   `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string   `json:"-" gorm:"type:text;not null"`
	Role         UserRole `json:"role" gorm:"type:varchar(20);not null;default:'USER'"`

	ParticipatingGroups []Group `json:"-" gorm:"many2many:group_participants"`
	AdminGroups         []Group `json:"-" gorm:"many2many:group_admins"`
}

// PublicUser is the shape exposed by identity resolution and user listings:
// never the password hash, never group links.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID.String(), Username: u.Username}
}
