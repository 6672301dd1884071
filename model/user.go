package model

import "time"

// User represents a provisioned user in the system.
// 每个外部身份 (external_id) 最多对应一条记录，由数据库唯一索引兜底。
type User struct {
	ID         string    `json:"id" gorm:"type:char(36);primaryKey"`
	ExternalID string    `json:"externalId" gorm:"column:external_id;type:varchar(191);uniqueIndex;not null"`
	FullName   string    `json:"fullName" gorm:"column:full_name;not null"`
	ImageURL   string    `json:"imageUrl" gorm:"column:image_url"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName 指定GORM表名
func (User) TableName() string {
	return "users"
}
