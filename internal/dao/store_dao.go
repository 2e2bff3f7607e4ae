package dao

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wht-store-pay/internal/dal"
	mainmodel "wht-store-pay/internal/model/main"
	ordermodel "wht-store-pay/internal/model/order"
)

type StoreDao struct {
	DB *gorm.DB
}

// 工厂方法：默认使用 dal.StoreDB
func NewStoreDao() *StoreDao {
	if dal.StoreDB == nil {
		log.Panic("[FATAL] dal.StoreDB is nil - database not initialized")
	}
	return &StoreDao{DB: dal.StoreDB}
}

// 支持传入自定义 DB（比如 txDB）
func NewStoreDaoWithDB(db *gorm.DB) *StoreDao {
	if db == nil {
		log.Panic("[FATAL] db cannot be nil")
	}
	return &StoreDao{DB: db}
}

func (r *StoreDao) checkDB() error {
	if r == nil {
		return errors.New("StoreDao is nil")
	}
	if r.DB == nil {
		return errors.New("DB connection is nil")
	}
	return nil
}

// ---------------- 订单 ----------------

// ListOwnerOrders 查询购买批次下指定状态的店主订单
func (r *StoreDao) ListOwnerOrders(buyerID, purchaseID uint64, status ordermodel.OrderStatus) ([]ordermodel.CustomerOrder, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("list owner orders failed: %w", err)
	}
	var list []ordermodel.CustomerOrder
	err := r.DB.Where("buyer_id = ? AND purchase_id = ? AND status = ?", buyerID, purchaseID, status).
		Order("id").Find(&list).Error
	return list, err
}

// ListSellerOrders 查询购买批次下指定状态的卖家订单
func (r *StoreDao) ListSellerOrders(buyerID, purchaseID uint64, status ordermodel.OrderStatus) ([]ordermodel.SellerOrder, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("list seller orders failed: %w", err)
	}
	var list []ordermodel.SellerOrder
	err := r.DB.Where("buyer_id = ? AND purchase_id = ? AND status = ?", buyerID, purchaseID, status).
		Order("id").Find(&list).Error
	return list, err
}

// BookNewOrders moves every NEW order of the buyer to BOOKED under purchaseID.
func (r *StoreDao) BookNewOrders(buyerID, purchaseID uint64) (int64, error) {
	if err := r.checkDB(); err != nil {
		return 0, fmt.Errorf("book orders failed: %w", err)
	}
	cols := map[string]interface{}{
		"status":      ordermodel.StatusBooked,
		"purchase_id": purchaseID,
		"version":     gorm.Expr("version + 1"),
		"updated_at":  time.Now(),
	}
	var total int64
	for _, model := range []interface{}{&ordermodel.CustomerOrder{}, &ordermodel.SellerOrder{}} {
		res := r.DB.Model(model).
			Where("buyer_id = ? AND status = ?", buyerID, ordermodel.StatusNew).
			Updates(cols)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

// TransitionOrders 批量状态迁移（店主与卖家订单表），返回受影响行数
// onlineOnly limits the update to orders paid through the gateway.
func (r *StoreDao) TransitionOrders(buyerID, purchaseID uint64, from, to ordermodel.OrderStatus, onlineOnly bool) (int64, error) {
	if err := r.checkDB(); err != nil {
		return 0, fmt.Errorf("transition orders failed: %w", err)
	}
	cols := map[string]interface{}{
		"status":     to,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	var total int64
	for _, model := range []interface{}{&ordermodel.CustomerOrder{}, &ordermodel.SellerOrder{}} {
		q := r.DB.Model(model).
			Where("buyer_id = ? AND purchase_id = ? AND status = ?", buyerID, purchaseID, from)
		if onlineOnly {
			q = q.Where("pay_method IN ?", ordermodel.OnlineMethods)
		}
		res := q.Updates(cols)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

// ListLines 读取明细表（商品或服务）中属于 orderIDs 的行
func (r *StoreDao) ListLines(table string, orderIDs []uint64) ([]ordermodel.OrderLine, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("list lines failed: %w", err)
	}
	var list []ordermodel.OrderLine
	if len(orderIDs) == 0 {
		return list, nil
	}
	err := r.DB.Table(table).Where("order_id IN ?", orderIDs).Order("order_id, id").Find(&list).Error
	return list, err
}

// ListTaxLines 读取订单级（发票基准）税行
func (r *StoreDao) ListTaxLines(table string, orderIDs []uint64) ([]ordermodel.OrderTaxLine, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("list tax lines failed: %w", err)
	}
	var list []ordermodel.OrderTaxLine
	if len(orderIDs) == 0 {
		return list, nil
	}
	err := r.DB.Table(table).Where("order_id IN ?", orderIDs).Order("order_id, id").Find(&list).Error
	return list, err
}

// ---------------- 收款方式 ----------------

func (r *StoreDao) ListOwnerPayMethods(name string) ([]mainmodel.PayMethod, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("list pay methods failed: %w", err)
	}
	var list []mainmodel.PayMethod
	err := r.DB.Where("name = ?", name).Find(&list).Error
	return list, err
}

func (r *StoreDao) ListSellerPayMethods(sellerID uint64, name string) ([]mainmodel.SellerPayMethod, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("list seller pay methods failed: %w", err)
	}
	var list []mainmodel.SellerPayMethod
	err := r.DB.Where("seller_id = ? AND name = ?", sellerID, name).Find(&list).Error
	return list, err
}

// ---------------- 买家 / 购物车 ----------------

func (r *StoreDao) GetBuyer(id uint64) (*mainmodel.Buyer, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("get buyer failed: %w", err)
	}
	var b mainmodel.Buyer
	err := r.DB.Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *StoreDao) GetCart(buyerID uint64) (*mainmodel.Cart, error) {
	if err := r.checkDB(); err != nil {
		return nil, fmt.Errorf("get cart failed: %w", err)
	}
	var c mainmodel.Cart
	err := r.DB.Where("buyer_id = ?", buyerID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// EmptyCart 删除购物车明细并清零汇总
func (r *StoreDao) EmptyCart(buyerID uint64) error {
	if err := r.checkDB(); err != nil {
		return fmt.Errorf("empty cart failed: %w", err)
	}
	if err := r.DB.Where("buyer_id = ?", buyerID).Delete(&mainmodel.CartLine{}).Error; err != nil {
		return err
	}
	return r.DB.Model(&mainmodel.Cart{}).Where("buyer_id = ?", buyerID).Updates(map[string]interface{}{
		"total":      decimal.Zero,
		"err":        false,
		"descr":      "",
		"updated_at": time.Now(),
	}).Error
}
