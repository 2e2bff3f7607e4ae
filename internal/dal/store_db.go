package dal

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wht-store-pay/internal/config"
)

var StoreDB *gorm.DB

// InitStoreDB 连接商城库（订单、购物车、收款方式）
func InitStoreDB() {
	c := config.C.Mysql
	if c.Driver == "sqlite" {
		db, err := OpenSQLite(c.Database)
		if err != nil {
			log.Fatalf("connect store db failed: %v", err)
		}
		if err := AutoMigrateStore(db); err != nil {
			log.Fatalf("migrate store db failed: %v", err)
		}
		StoreDB = db
		return
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond, // 慢 SQL 阈值
			LogLevel:                  gormLogLevel(config.C.Server.Mode),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		log.Fatalf("connect store db failed: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(2 * time.Hour)
	StoreDB = db
}

func gormLogLevel(mode string) logger.LogLevel {
	if mode == "debug" {
		return logger.Info
	}
	return logger.Warn
}
