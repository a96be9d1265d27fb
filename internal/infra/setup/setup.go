// Package setup 负责基础设施连接的初始化（MySQL、Redis）。
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"interior-planboard/internal/domain"
)

// InitDB 建立 MySQL 连接并配置连接池。
func InitDB(user, password, host, port, dbName string) (*gorm.DB, error) {
	if user == "" || password == "" || dbName == "" {
		return nil, fmt.Errorf("database credentials (DB_USER, DB_PASSWORD, DB_NAME) must be set")
	}
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3306"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logrus.Info("MySQL connected")
	return db, nil
}

// MigrateDB 自动迁移数据库模式。
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.User{}, &domain.DrawingRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logrus.Info("Database migrated")
	return nil
}

// InitRedis 建立 Redis 连接并做一次 Ping 探活。
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logrus.Info("Redis connected")
	return client, nil
}
