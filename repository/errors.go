package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateUser 表示违反 users.external_id 唯一索引
	ErrDuplicateUser = errors.New("user with this external id already exists")
	// ErrNotFound 表示目标记录不存在
	ErrNotFound = errors.New("record not found")
)

const mysqlDupEntry = 1062

// isDuplicateKey reports whether err is a MySQL duplicate-entry violation.
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDupEntry
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
