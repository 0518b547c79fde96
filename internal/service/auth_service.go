package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/repository"
	"github.com/parksafe/parksafe/pkg/auth"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService handles sign-up, sign-in and sign-out
type AuthService struct {
	profileRepo *repository.ProfileRepository
	jwtManager  *auth.JWTManager
	revoker     TokenRevoker
	now         func() time.Time
}

func NewAuthService(
	profileRepo *repository.ProfileRepository,
	jwtManager *auth.JWTManager,
	revoker TokenRevoker,
) *AuthService {
	return &AuthService{
		profileRepo: profileRepo,
		jwtManager:  jwtManager,
		revoker:     revoker,
		now:         time.Now,
	}
}

// ==================== Register ====================

// Register creates a new profile and signs it in
func (s *AuthService) Register(req model.RegisterRequest) (*model.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := s.profileRepo.FindByEmail(email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	now := s.now()
	profile := &model.Profile{
		Email:      email,
		Password:   string(hashedPassword),
		LastActive: &now,
	}
	if name := strings.TrimSpace(req.FullName); name != "" {
		profile.FullName = &name
	}

	if err := s.profileRepo.Create(profile); err != nil {
		return nil, errors.New("failed to create profile")
	}

	return s.issue(profile)
}

// ==================== Login ====================

// Login authenticates a profile and returns a JWT token
func (s *AuthService) Login(req model.LoginRequest) (*model.LoginResponse, error) {
	profile, err := s.profileRepo.FindByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLogin
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidLogin
	}

	_ = s.profileRepo.TouchLastActive(profile.ID, s.now())
	return s.issue(profile)
}

// Logout revokes the token until its natural expiry
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.ValidateToken(tokenString)
	if err != nil {
		return err
	}

	expiresIn := claims.ExpiresAt.Time.Sub(s.now())
	if expiresIn <= 0 {
		return nil
	}

	return s.revoker.Revoke(ctx, tokenString, expiresIn)
}

// GetProfile returns the signed-in user's profile
func (s *AuthService) GetProfile(userID uuid.UUID) (*model.ProfileResponse, error) {
	profile, err := s.profileRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	resp := profile.ToResponse()
	return &resp, nil
}

func (s *AuthService) issue(profile *model.Profile) (*model.LoginResponse, error) {
	token, err := s.jwtManager.GenerateToken(profile.ID, profile.Email, profile.DisplayName())
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &model.LoginResponse{
		Token:   token,
		Profile: profile.ToResponse(),
	}, nil
}
