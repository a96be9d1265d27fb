package domain

import "time"

// User 表示公司内的登录员工账号，也是图纸的 owner。
type User struct {
	ID        uint      `gorm:"primaryKey"` // 用户唯一标识符 (主键)
	Username  string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null"`
	Password  string    `gorm:"type:text;not null"` // 存储的是哈希后的密码，不能为空
	Email     string    `gorm:"type:varchar(191);uniqueIndex:idx_email"`
	CreatedAt time.Time `gorm:"autoCreateTime"` // 用户记录创建时间 (GORM 自动填充)
	UpdatedAt time.Time `gorm:"autoUpdateTime"` // 用户记录最后更新时间 (GORM 自动填充)
}
