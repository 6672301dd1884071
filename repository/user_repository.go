package repository

import (
	"context"
	"errors"
	"fmt"

	"Melodex/model"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	ListUsersExcept(ctx context.Context, excludeID string) ([]*model.User, error)
	CountUsers(ctx context.Context) (int64, error)
}

// gormUserRepository GORM 实现
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository 创建 GORM 用户仓库
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// CreateUser 创建用户
// 唯一索引冲突会被转换成 ErrDuplicateUser，由上层决定是否视为幂等成功
func (r *gormUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByExternalID 根据外部身份ID获取用户
func (r *gormUserRepository) GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user by external id %s: %w", externalID, err)
	}
	return &user, nil
}

// GetUserByID 根据ID获取用户
func (r *gormUserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user by id %s: %w", id, err)
	}
	return &user, nil
}

// ListUsersExcept 获取除指定用户外的所有用户
func (r *gormUserRepository) ListUsersExcept(ctx context.Context, excludeID string) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).
		Where("id <> ?", excludeID).
		Order("created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CountUsers 统计用户总数
func (r *gormUserRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
