package dal

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	mainmodel "wht-store-pay/internal/model/main"
	ordermodel "wht-store-pay/internal/model/order"
)

// OpenSQLite opens a single-connection SQLite store, used for local runs and tests.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite 只允许单写连接
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// AutoMigrateStore creates the tables the payment engine reads and writes.
func AutoMigrateStore(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&ordermodel.CustomerOrder{},
		&ordermodel.SellerOrder{},
		&mainmodel.PayMethod{},
		&mainmodel.SellerPayMethod{},
		&mainmodel.Buyer{},
		&mainmodel.Cart{},
		&mainmodel.CartLine{},
	); err != nil {
		return err
	}
	for _, t := range []string{
		ordermodel.TableOwnerGoodLine, ordermodel.TableOwnerServiceLine,
		ordermodel.TableSellerGoodLine, ordermodel.TableSellerServiceLine,
	} {
		if err := db.Table(t).AutoMigrate(&ordermodel.OrderLine{}); err != nil {
			return fmt.Errorf("migrate %s: %w", t, err)
		}
	}
	for _, t := range []string{ordermodel.TableOwnerTaxLine, ordermodel.TableSellerTaxLine} {
		if err := db.Table(t).AutoMigrate(&ordermodel.OrderTaxLine{}); err != nil {
			return fmt.Errorf("migrate %s: %w", t, err)
		}
	}
	return nil
}
