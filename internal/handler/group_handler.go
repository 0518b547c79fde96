package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/service"
)

// GroupHandler handles group endpoints
type GroupHandler struct {
	groupService *service.GroupService
}

func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateGroup godoc
// @Summary Create a group; the caller becomes its admin
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateGroupRequest true "Create group request"
// @Success 201 {object} model.Group
// @Router /groups [post]
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req model.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	group, err := h.groupService.Create(currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, group)
}

// GetGroups godoc
// @Summary List the caller's groups
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Group
// @Router /groups [get]
func (h *GroupHandler) GetGroups(c *gin.Context) {
	groups, err := h.groupService.ListMine(currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

// GetMembers godoc
// @Summary List the members of a group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {array} model.GroupMember
// @Router /groups/{id}/members [get]
func (h *GroupHandler) GetMembers(c *gin.Context) {
	groupID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	members, err := h.groupService.Members(groupID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}

// AddMember godoc
// @Summary Join a group, or add someone as its admin
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Param body body model.AddMemberRequest true "Add member request"
// @Success 201 {object} model.GroupMember
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /groups/{id}/members [post]
func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	member, err := h.groupService.AddMember(currentUser(c), groupID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

// RemoveMember godoc
// @Summary Leave a group, or remove someone as its admin
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Param userId path string true "User ID"
// @Success 200 {object} model.SuccessResponse
// @Router /groups/{id}/members/{userId} [delete]
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramUUID(c, "userId")
	if !ok {
		return
	}

	if err := h.groupService.RemoveMember(currentUser(c), groupID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Member removed"})
}
