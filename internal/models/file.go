package models

import "github.com/google/uuid"

// File is metadata only. The bytes live in the third-party drive at URL;
// deleting a File row never touches the remote object.
type File struct {
	BaseModel
	Name    string    `json:"name" gorm:"type:varchar(255);not null"`
	URL     string    `json:"url" gorm:"type:text;not null"`
	GroupID uuid.UUID `json:"groupId" gorm:"type:uuid;not null;index"`

	Group Group `json:"-" gorm:"foreignKey:GroupID"`
}
