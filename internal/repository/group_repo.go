package repository

import (
	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/model"
	"gorm.io/gorm"
)

// GroupRepository handles database operations for Group and GroupMember
type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create creates a new group with its members
func (r *GroupRepository) Create(group *model.Group) error {
	return r.db.Create(group).Error
}

// FindByID finds a group by ID with members
func (r *GroupRepository) FindByID(id uuid.UUID) (*model.Group, error) {
	var group model.Group
	err := r.db.
		Preload("Members.User").
		Where("id = ?", id).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetUserGroups returns the groups a user belongs to, newest first
func (r *GroupRepository) GetUserGroups(userID uuid.UUID) ([]model.Group, error) {
	groups := []model.Group{}
	err := r.db.
		Where("id IN (?)", r.db.Model(&model.GroupMember{}).Select("group_id").Where("user_id = ?", userID)).
		Preload("Members.User").
		Order("created_at DESC").
		Find(&groups).Error
	return groups, err
}

// GetMembers returns the members of a group with their profiles
func (r *GroupRepository) GetMembers(groupID uuid.UUID) ([]model.GroupMember, error) {
	members := []model.GroupMember{}
	err := r.db.
		Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

// AddMember adds a user to a group
func (r *GroupRepository) AddMember(member *model.GroupMember) error {
	return r.db.Create(member).Error
}

// RemoveMember deletes a membership
func (r *GroupRepository) RemoveMember(groupID, userID uuid.UUID) (bool, error) {
	res := r.db.
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&model.GroupMember{})
	return res.RowsAffected > 0, res.Error
}

// IsMember checks if a user is a member of a group
func (r *GroupRepository) IsMember(groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	return count > 0, err
}

// IsAdmin checks if a user administers a group
func (r *GroupRepository) IsAdmin(groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND role = ?", groupID, userID, model.MemberRoleAdmin).
		Count(&count).Error
	return count > 0, err
}

// GetMemberIDs returns all member user IDs for a group
func (r *GroupRepository) GetMemberIDs(groupID uuid.UUID) ([]uuid.UUID, error) {
	var memberIDs []uuid.UUID
	err := r.db.Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &memberIDs).Error
	return memberIDs, err
}
