package services

import (
	"context"

	"github.com/dms/backend/internal/models"
	"github.com/dms/backend/pkg/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Action string

const (
	ActionManageMembers Action = "group.manage_members"
	ActionManageAdmins  Action = "group.manage_admins"
	ActionManageFiles   Action = "group.manage_files"
)

type Resource struct {
	Type string
	ID   uuid.UUID
}

func GroupResource(id uuid.UUID) Resource {
	return Resource{Type: "group", ID: id}
}

// AccessService is the single capability check every admin-gated operation
// goes through.
type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

// Authorize allows the action when the user carries the elevated role, or
// when the target group's admin set contains the user. Deny is terminal for
// the request.
func (a *AccessService) Authorize(ctx context.Context, user *models.User, resource Resource, action Action) error {
	return a.authorize(a.DB.WithContext(ctx), user, resource, action)
}

// AuthorizeTx re-runs the predicate on tx so the check and the mutation it
// gates share one transaction.
func (a *AccessService) AuthorizeTx(tx *gorm.DB, user *models.User, resource Resource, action Action) error {
	return a.authorize(tx, user, resource, action)
}

func (a *AccessService) authorize(db *gorm.DB, user *models.User, resource Resource, _ Action) error {
	if user == nil {
		return apperr.New(apperr.Authentication, "Unauthorized")
	}
	if user.Role == models.UserRoleAdmin {
		return nil
	}

	if resource.Type != "group" {
		return apperr.New(apperr.Authorization, "Unauthorized")
	}

	var count int64
	err := db.Table("group_admins").
		Where("group_id = ? AND user_id = ?", resource.ID, user.ID).
		Count(&count).Error
	if err != nil {
		return apperr.Wrap(apperr.Upstream, "internal server error", err)
	}
	if count == 0 {
		return apperr.New(apperr.Authorization, "Unauthorized")
	}
	return nil
}
