package service

import (
	"gorm.io/gorm"

	"wht-store-pay/internal/constant"
	"wht-store-pay/internal/dao"
	"wht-store-pay/internal/dto"
	ordermodel "wht-store-pay/internal/model/order"
)

// StoreCartService reads carts from the store database.
type StoreCartService struct{}

func (StoreCartService) GetCart(tx *gorm.DB, buyer dto.Buyer) (*dto.Cart, error) {
	c, err := dao.NewStoreDaoWithDB(tx).GetCart(buyer.ID)
	if err != nil {
		return nil, constant.Wrap(constant.CodeDatabaseError, err, "get cart of buyer %d", buyer.ID)
	}
	if c == nil {
		return nil, nil
	}
	return &dto.Cart{Buyer: buyer, HasError: c.HasError, Description: c.Description}, nil
}

func (StoreCartService) EmptyCart(tx *gorm.DB, buyerID uint64) error {
	if err := dao.NewStoreDaoWithDB(tx).EmptyCart(buyerID); err != nil {
		return constant.Wrap(constant.CodeDatabaseError, err, "empty cart of buyer %d", buyerID)
	}
	return nil
}

// StoreOrderAcceptor books NEW orders under a freshly minted purchase id.
type StoreOrderAcceptor struct {
	NewID func() uint64
}

func (a StoreOrderAcceptor) AcceptOrders(tx *gorm.DB, buyer dto.Buyer) (*dto.Purchase, error) {
	d := dao.NewStoreDaoWithDB(tx)
	purchaseID := a.NewID()
	if _, err := d.BookNewOrders(buyer.ID, purchaseID); err != nil {
		return nil, constant.Wrap(constant.CodeOrderUpdate, err, "book orders of buyer %d", buyer.ID)
	}
	owners, err := d.ListOwnerOrders(buyer.ID, purchaseID, ordermodel.StatusBooked)
	if err != nil {
		return nil, constant.Wrap(constant.CodeDatabaseError, err, "list owner orders")
	}
	sellers, err := d.ListSellerOrders(buyer.ID, purchaseID, ordermodel.StatusBooked)
	if err != nil {
		return nil, constant.Wrap(constant.CodeDatabaseError, err, "list seller orders")
	}
	return &dto.Purchase{ID: purchaseID, BuyerID: buyer.ID, Orders: owners, SellerOrders: sellers}, nil
}

// StoreOrderCanceller is a bulk status transition over both order tables.
type StoreOrderCanceller struct{}

func (StoreOrderCanceller) CancelOrders(tx *gorm.DB, buyerID, purchaseID uint64, from, to ordermodel.OrderStatus) error {
	if _, err := dao.NewStoreDaoWithDB(tx).TransitionOrders(buyerID, purchaseID, from, to, false); err != nil {
		return constant.Wrap(constant.CodeOrderUpdate, err, "cancel purchase %d of buyer %d", purchaseID, buyerID)
	}
	return nil
}
