package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/repository"
	"gorm.io/gorm"
)

// ProfileService handles profile edits, locations and devices
type ProfileService struct {
	profileRepo  *repository.ProfileRepository
	publisher    Publisher
	activeWindow time.Duration
	now          func() time.Time
}

func NewProfileService(profileRepo *repository.ProfileRepository, publisher Publisher, activeWindow time.Duration) *ProfileService {
	return &ProfileService{
		profileRepo:  profileRepo,
		publisher:    publisher,
		activeWindow: activeWindow,
		now:          time.Now,
	}
}

// UpdateProfile changes the name and/or avatar of userID
func (s *ProfileService) UpdateProfile(userID uuid.UUID, req model.UpdateProfileRequest) (*model.ProfileResponse, error) {
	if err := s.profileRepo.UpdateProfile(userID, req.FullName, req.AvatarURL); err != nil {
		return nil, err
	}
	return s.reloadAndPublish(userID)
}

// SetAvatar stores the URL of an uploaded avatar
func (s *ProfileService) SetAvatar(userID uuid.UUID, url string) (*model.ProfileResponse, error) {
	return s.UpdateProfile(userID, model.UpdateProfileRequest{AvatarURL: &url})
}

// UpdateLocation records the current position of userID
func (s *ProfileService) UpdateLocation(userID uuid.UUID, lat, lng float64) (*model.ProfileResponse, error) {
	if err := s.profileRepo.UpdateLocation(userID, lat, lng, s.now()); err != nil {
		return nil, err
	}
	return s.reloadAndPublish(userID)
}

// ActiveUsers returns the other users that reported a location within the active window
func (s *ProfileService) ActiveUsers(userID uuid.UUID) ([]model.ProfileResponse, error) {
	profiles, err := s.profileRepo.FindActiveWithLocation(userID, s.now().Add(-s.activeWindow))
	if err != nil {
		return nil, err
	}

	result := make([]model.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		result = append(result, profiles[i].ToResponse())
	}
	return result, nil
}

// RegisterDevice stores an FCM token for userID
func (s *ProfileService) RegisterDevice(userID uuid.UUID, req model.RegisterDeviceRequest) error {
	return s.profileRepo.AddDevice(userID, req.FCMToken, req.DeviceType)
}

// reloadAndPublish tells every other user that the profile changed
func (s *ProfileService) reloadAndPublish(userID uuid.UUID) (*model.ProfileResponse, error) {
	profile, err := s.profileRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	resp := profile.ToResponse()
	s.publisher.Publish(model.ChangeEvent{
		Table:  model.TableProfiles,
		Event:  model.ChangeUpdate,
		Record: resp,
	}, model.Audience{Exclude: userID})
	return &resp, nil
}
