package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/service"
	"github.com/parksafe/parksafe/pkg/storage"
)

// ProfileHandler handles profile, location and device endpoints
type ProfileHandler struct {
	profileService *service.ProfileService
	storage        storage.Storage
}

func NewProfileHandler(profileService *service.ProfileService, storage storage.Storage) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, storage: storage}
}

// UpdateProfile godoc
// @Summary Update name and/or avatar URL
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UpdateProfileRequest true "Update profile request"
// @Success 200 {object} model.ProfileResponse
// @Router /profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.profileService.UpdateProfile(currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateLocation godoc
// @Summary Report the caller's current position
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.UpdateLocationRequest true "Location"
// @Success 200 {object} model.ProfileResponse
// @Router /profile/location [put]
func (h *ProfileHandler) UpdateLocation(c *gin.Context) {
	var req model.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.profileService.UpdateLocation(currentUser(c), *req.Lat, *req.Lng)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// ActiveUsers godoc
// @Summary List other users with a recent location
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ProfileResponse
// @Router /profiles/active [get]
func (h *ProfileHandler) ActiveUsers(c *gin.Context) {
	profiles, err := h.profileService.ActiveUsers(currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profiles)
}

// RegisterDevice godoc
// @Summary Register device for push notifications
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.RegisterDeviceRequest true "Register device request"
// @Success 200 {object} model.SuccessResponse
// @Router /profile/devices [post]
func (h *ProfileHandler) RegisterDevice(c *gin.Context) {
	var req model.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.profileService.RegisterDevice(currentUser(c), req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Device registered successfully"})
}

// UploadAvatar godoc
// @Summary Upload a profile picture
// @Tags Profile
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image (jpg, png, gif, webp)"
// @Success 200 {object} model.UploadResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 413 {object} model.ErrorResponse
// @Router /profile/avatar [post]
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: "File upload service unavailable"})
		return
	}

	// Leave room for multipart framing around the file
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxAvatarSize+1<<20)

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Avatar file is required", Message: err.Error()})
		return
	}
	defer file.Close()

	if err := storage.ValidateAvatar(header); err != nil {
		status := http.StatusBadRequest
		if err == storage.ErrAvatarTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, model.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.storage.Upload(c.Request.Context(), file, header, "avatars")
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Failed to upload avatar", Message: err.Error()})
		return
	}

	if _, err := h.profileService.SetAvatar(currentUser(c), result.URL); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.UploadResponse{
		URL:      result.URL,
		FileName: result.FileName,
		FileSize: result.FileSize,
		MimeType: result.MimeType,
	})
}
