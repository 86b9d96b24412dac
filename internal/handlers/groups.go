package handlers

import (
	"errors"
	"strings"

	"github.com/dms/backend/internal/middleware"
	"github.com/dms/backend/internal/models"
	"github.com/dms/backend/internal/services"
	"github.com/dms/backend/pkg/apperr"
	"github.com/dms/backend/pkg/logger"
	"github.com/dms/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GroupsHandler struct {
	DB     *gorm.DB
	Access *services.AccessService
	Audit  *services.AuditService
}

func NewGroupsHandler(db *gorm.DB, access *services.AccessService, audit *services.AuditService) *GroupsHandler {
	return &GroupsHandler{DB: db, Access: access, Audit: audit}
}

type createGroupRequest struct {
	Name string `json:"name"`
}

// Create inserts a group with the caller as sole participant and sole admin,
// in one transaction.
func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}

	group := models.Group{Name: req.Name}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		if err := tx.Model(&group).Association("Participants").Append(currentUser); err != nil {
			return err
		}
		return tx.Model(&group).Association("Admins").Append(currentUser)
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	logger.InfoWithUser(currentUser.ID.String(), "group_created", map[string]interface{}{
		"group_id":   group.ID.String(),
		"group_name": group.Name,
	})
	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group.create",
		ResourceType: "group",
		ResourceID:   &group.ID,
		Details:      map[string]interface{}{"name": group.Name},
		IPAddress:    c.IP(),
	})

	return utils.Success(c, fiber.StatusCreated, group)
}

type memberRequest struct {
	UserID uuid.UUID `json:"userId"`
}

// AddUser connects a user to the group's participant set. The admin gate ran
// as middleware; the predicate is re-run inside the mutation transaction.
func (h *GroupsHandler) AddUser(c *fiber.Ctx) error {
	return h.connectMember(c, "Participants", "group.user_add", services.ActionManageMembers)
}

// AddAdmin connects a user to the group's admin set. Participant membership
// is not required first.
func (h *GroupsHandler) AddAdmin(c *fiber.Ctx) error {
	return h.connectMember(c, "Admins", "group.admin_add", services.ActionManageAdmins)
}

func (h *GroupsHandler) connectMember(c *fiber.Ctx, association, auditAction string, action services.Action) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req memberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID == uuid.Nil {
		return utils.Error(c, fiber.StatusBadRequest, "userId is required")
	}

	var group models.Group
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := h.Access.AuthorizeTx(tx, currentUser, services.GroupResource(groupID), action); err != nil {
			return err
		}

		if err := tx.First(&group, "id = ?", groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "Group not found")
			}
			return err
		}

		var target models.User
		if err := tx.First(&target, "id = ?", req.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.NotFound, "User not found")
			}
			return err
		}

		return tx.Model(&group).Association(association).Append(&target)
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       auditAction,
		ResourceType: "group",
		ResourceID:   &groupID,
		Details:      map[string]interface{}{"target_user_id": req.UserID.String()},
		IPAddress:    c.IP(),
	})

	return utils.Success(c, fiber.StatusCreated, group)
}

// GetGroups lists the groups where the caller is a participant, in no
// guaranteed order.
func (h *GroupsHandler) GetGroups(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var groups []models.Group
	err := h.DB.
		Model(&models.Group{}).
		Joins("JOIN group_participants ON group_participants.group_id = groups.id").
		Where("group_participants.user_id = ?", currentUser.ID).
		Find(&groups).Error
	if err != nil {
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *GroupsHandler) GetFiles(c *fiber.Ctx) error {
	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var files []models.File
	if err := h.DB.Find(&files, "group_id = ?", groupID).Error; err != nil {
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, files)
}

func (h *GroupsHandler) GetUsers(c *fiber.Ctx) error {
	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var users []models.User
	err = h.DB.
		Model(&models.User{}).
		Joins("JOIN group_participants ON group_participants.user_id = users.id").
		Where("group_participants.group_id = ?", groupID).
		Find(&users).Error
	if err != nil {
		return utils.Fail(c, err)
	}

	public := make([]models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}

	return utils.Success(c, fiber.StatusOK, public)
}

// RemoveUser disconnects a user from the participant set. Removing an admin
// participant also disconnects them from the admin set, except when they are
// the group's last admin, which is refused.
func (h *GroupsHandler) RemoveUser(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req memberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.UserID == uuid.Nil {
		return utils.Error(c, fiber.StatusBadRequest, "userId is required")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := h.Access.AuthorizeTx(tx, currentUser, services.GroupResource(groupID), services.ActionManageMembers); err != nil {
			return err
		}

		var targetIsAdmin int64
		if err := tx.Table("group_admins").
			Where("group_id = ? AND user_id = ?", groupID, req.UserID).
			Count(&targetIsAdmin).Error; err != nil {
			return err
		}

		if targetIsAdmin > 0 {
			var adminCount int64
			if err := tx.Table("group_admins").
				Where("group_id = ?", groupID).
				Count(&adminCount).Error; err != nil {
				return err
			}
			if adminCount <= 1 {
				return apperr.New(apperr.Authorization, "Cannot remove the group's last admin")
			}
			if err := tx.Exec(
				"DELETE FROM group_admins WHERE group_id = ? AND user_id = ?",
				groupID, req.UserID,
			).Error; err != nil {
				return err
			}
		}

		return tx.Exec(
			"DELETE FROM group_participants WHERE group_id = ? AND user_id = ?",
			groupID, req.UserID,
		).Error
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "group.user_remove",
		ResourceType: "group",
		ResourceID:   &groupID,
		Details:      map[string]interface{}{"target_user_id": req.UserID.String()},
		IPAddress:    c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "User removed successfully"})
}

type addFileRequest struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
}

// AddFile records file metadata only; the bytes are assumed to already live
// at the given URL.
func (h *GroupsHandler) AddFile(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req addFileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.FileURL = strings.TrimSpace(req.FileURL)
	req.FileName = strings.TrimSpace(req.FileName)
	if req.FileURL == "" || req.FileName == "" {
		return utils.Error(c, fiber.StatusBadRequest, "fileUrl and fileName are required")
	}

	file := models.File{
		Name:    req.FileName,
		URL:     req.FileURL,
		GroupID: groupID,
	}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := h.Access.AuthorizeTx(tx, currentUser, services.GroupResource(groupID), services.ActionManageFiles); err != nil {
			return err
		}

		var exists int64
		if err := tx.Model(&models.Group{}).Where("id = ?", groupID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return apperr.New(apperr.NotFound, "Group not found")
		}

		return tx.Create(&file).Error
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "file.add",
		ResourceType: "file",
		ResourceID:   &file.ID,
		Details:      map[string]interface{}{"group_id": groupID.String(), "name": file.Name},
		IPAddress:    c.IP(),
	})

	return utils.Success(c, fiber.StatusCreated, file)
}

func (h *GroupsHandler) GetFileURL(c *fiber.Ctx) error {
	fileID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	var file models.File
	if err := h.DB.First(&file, "id = ?", fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "File not found")
		}
		return utils.Fail(c, err)
	}

	return utils.Success(c, fiber.StatusOK, file.URL)
}

// DeleteFile removes the metadata row only. The remote drive object is left
// in place, and the response says so.
func (h *GroupsHandler) DeleteFile(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	fileID, err := parseUUID(c.Params("fileId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid file id")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := h.Access.AuthorizeTx(tx, currentUser, services.GroupResource(groupID), services.ActionManageFiles); err != nil {
			return err
		}

		result := tx.Delete(&models.File{}, "id = ? AND group_id = ?", fileID, groupID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.NotFound, "File not found or already deleted")
		}
		return nil
	})
	if err != nil {
		return utils.Fail(c, err)
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "file.delete",
		ResourceType: "file",
		ResourceID:   &fileID,
		Details:      map[string]interface{}{"group_id": groupID.String()},
		IPAddress:    c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": "File reference successfully deleted",
		"warning": "the stored object was not removed; delete it from the drive manually",
	})
}
