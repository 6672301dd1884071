// Package identity implements idempotent user provisioning for externally
// asserted identities.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"Melodex/logger"
	"Melodex/model"
	"Melodex/repository"

	"github.com/google/uuid"
)

// ErrEmptyExternalID 表示回调中缺少外部身份ID
var ErrEmptyExternalID = errors.New("external id must not be empty")

// Provisioner ensures exactly one local user record exists per external identity.
type Provisioner struct {
	users repository.UserRepository
}

// NewProvisioner 创建身份供给器
func NewProvisioner(users repository.UserRepository) *Provisioner {
	return &Provisioner{users: users}
}

// Provision looks up the user for externalID and creates the record on first
// sight. Subsequent calls for the same identity are no-ops.
//
// 并发语义：两个并发请求同时首见同一 externalID 时，数据库唯一索引是最终裁判。
// 唯一键冲突被视为"已存在"，即幂等成功，不向调用方暴露错误。
func (p *Provisioner) Provision(ctx context.Context, externalID, firstName, lastName, imageURL string) (*model.User, error) {
	if externalID == "" {
		return nil, ErrEmptyExternalID
	}

	existing, err := p.users.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		logger.Debug("[Provision] 用户已存在，跳过创建",
			logger.String("externalId", externalID))
		return existing, nil
	}

	user := &model.User{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		FullName:   strings.TrimSpace(firstName + " " + lastName),
		ImageURL:   imageURL,
	}

	if err := p.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			// 并发请求抢先创建了同一身份，按幂等成功处理
			logger.Warn("[Provision] 并发创建冲突，视为已存在",
				logger.String("externalId", externalID))
			winner, lookupErr := p.users.GetUserByExternalID(ctx, externalID)
			if lookupErr != nil {
				return nil, fmt.Errorf("failed to load user after create conflict: %w", lookupErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("[Provision] 新用户已创建",
		logger.String("externalId", externalID),
		logger.String("userId", user.ID))
	return user, nil
}
