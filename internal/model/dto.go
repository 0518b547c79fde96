package model

import "github.com/google/uuid"

// ========== Auth DTOs ==========

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"max=255"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	Profile ProfileResponse `json:"profile"`
}

// ========== Profile DTOs ==========

type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" binding:"omitempty,max=255"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,max=500"`
}

type UpdateLocationRequest struct {
	Lat *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" binding:"required,min=-180,max=180"`
}

type RegisterDeviceRequest struct {
	FCMToken   string `json:"fcm_token" binding:"required"`
	DeviceType string `json:"device_type" binding:"required"`
}

// UploadResponse is returned after a successful avatar upload
type UploadResponse struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

// ========== Group DTOs ==========

type CreateGroupRequest struct {
	Name      string      `json:"name" binding:"required,max=255"`
	MemberIDs []uuid.UUID `json:"member_ids"`
}

type AddMemberRequest struct {
	UserID uuid.UUID  `json:"user_id" binding:"required"`
	Role   MemberRole `json:"role" binding:"omitempty,oneof=admin member"`
}

// ========== Message DTOs ==========

// SendMessageRequest is validated by the service: exactly one of
// RecipientID/GroupID unless Type is emergency.
type SendMessageRequest struct {
	Content     string      `json:"content"`
	RecipientID *uuid.UUID  `json:"recipient_id,omitempty"`
	GroupID     *uuid.UUID  `json:"group_id,omitempty"`
	Type        MessageType `json:"type,omitempty"`
}

type MessageListRequest struct {
	Before string `form:"before"` // cursor for pagination (message ID)
	Limit  int    `form:"limit"`
}

// ========== Alert DTOs ==========

type CreateAlertRequest struct {
	Type     string      `json:"type" binding:"required,max=50"`
	Message  string      `json:"message"`
	Status   AlertStatus `json:"status" binding:"omitempty,oneof=active resolved"`
	Severity Severity    `json:"severity" binding:"omitempty,oneof=low medium high"`
	Location *Location   `json:"location,omitempty"`
}

type AlertListRequest struct {
	Status string `form:"status"`
	Before string `form:"before"`
	Limit  int    `form:"limit"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
