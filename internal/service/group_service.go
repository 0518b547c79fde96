package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/repository"
	"gorm.io/gorm"
)

// GroupService handles groups and their membership
type GroupService struct {
	groupRepo   *repository.GroupRepository
	profileRepo *repository.ProfileRepository
}

func NewGroupService(groupRepo *repository.GroupRepository, profileRepo *repository.ProfileRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo, profileRepo: profileRepo}
}

// Create creates a group with the creator as admin
func (s *GroupService) Create(creatorID uuid.UUID, req model.CreateGroupRequest) (*model.Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	group := &model.Group{
		Name:      name,
		CreatedBy: creatorID,
	}

	// Add creator as admin
	members := []model.GroupMember{
		{
			UserID: creatorID,
			Role:   model.MemberRoleAdmin,
		},
	}

	seen := map[uuid.UUID]bool{creatorID: true}
	for _, memberID := range req.MemberIDs {
		if seen[memberID] {
			continue
		}
		seen[memberID] = true

		exists, err := s.profileRepo.Exists(memberID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrRecipientNotFound
		}
		members = append(members, model.GroupMember{
			UserID: memberID,
			Role:   model.MemberRoleMember,
		})
	}
	group.Members = members

	if err := s.groupRepo.Create(group); err != nil {
		return nil, errors.New("failed to create group")
	}

	// Reload with relations
	return s.groupRepo.FindByID(group.ID)
}

// ListMine returns the groups userID belongs to
func (s *GroupService) ListMine(userID uuid.UUID) ([]model.Group, error) {
	return s.groupRepo.GetUserGroups(userID)
}

// Members returns the members of a group
func (s *GroupService) Members(groupID uuid.UUID) ([]model.GroupMember, error) {
	if _, err := s.groupRepo.FindByID(groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.groupRepo.GetMembers(groupID)
}

// AddMember adds a user to a group. Users may join themselves; admins may add anyone.
func (s *GroupService) AddMember(actorID, groupID uuid.UUID, req model.AddMemberRequest) (*model.GroupMember, error) {
	if _, err := s.groupRepo.FindByID(groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	isAdmin, err := s.groupRepo.IsAdmin(groupID, actorID)
	if err != nil {
		return nil, err
	}
	if req.UserID != actorID && !isAdmin {
		return nil, ErrForbidden
	}

	role := req.Role
	if role == "" || !isAdmin {
		role = model.MemberRoleMember
	}

	exists, err := s.profileRepo.Exists(req.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRecipientNotFound
	}

	isMember, err := s.groupRepo.IsMember(groupID, req.UserID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, ErrAlreadyMember
	}

	member := &model.GroupMember{
		GroupID: groupID,
		UserID:  req.UserID,
		Role:    role,
	}
	if err := s.groupRepo.AddMember(member); err != nil {
		return nil, errors.New("failed to add member")
	}
	return member, nil
}

// RemoveMember removes a user from a group. Users may leave; admins may remove anyone.
func (s *GroupService) RemoveMember(actorID, groupID, userID uuid.UUID) error {
	if userID != actorID {
		isAdmin, err := s.groupRepo.IsAdmin(groupID, actorID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return ErrForbidden
		}
	}

	removed, err := s.groupRepo.RemoveMember(groupID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}
