package models

// Group holds a participant set and an admin set as independent
// many-to-many relations. The admin set is not constrained to be a subset
// of the participants.
type Group struct {
	BaseModel
	Name string `json:"name" gorm:"type:varchar(150);not null"`

	Participants []User `json:"participants,omitempty" gorm:"many2many:group_participants"`
	Admins       []User `json:"admins,omitempty" gorm:"many2many:group_admins"`
	Files        []File `json:"-" gorm:"foreignKey:GroupID"`
}
