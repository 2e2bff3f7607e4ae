package service

import (
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"wht-store-pay/internal/constant"
	"wht-store-pay/internal/dao"
	"wht-store-pay/internal/dto"
	mainmodel "wht-store-pay/internal/model/main"
	ordermodel "wht-store-pay/internal/model/order"
)

// PayeeResolver picks the single receiver of a purchase and its gateway credentials.
type PayeeResolver struct {
	// SingleOnlinePayee makes the store owner the payee of every online order;
	// seller orders then ride in the owner's invoice.
	SingleOnlinePayee bool
	validate          *validator.Validate
}

func NewPayeeResolver(singleOnlinePayee bool) *PayeeResolver {
	return &PayeeResolver{SingleOnlinePayee: singleOnlinePayee, validate: validator.New()}
}

// Resolve partitions the purchase's online orders and loads the payee's credentials.
// Orders paid by other methods are ignored.
func (r *PayeeResolver) Resolve(tx *gorm.DB, p *dto.Purchase) (*dto.Payee, error) {
	var owners, sellers []dto.OrderRef
	sellerIDs := make(map[uint64]struct{})
	for _, o := range p.Orders {
		if o.PayMethod.IsOnline() {
			owners = append(owners, ownerRef(o))
		}
	}
	for _, o := range p.SellerOrders {
		if o.PayMethod.IsOnline() {
			sellers = append(sellers, sellerRef(o))
			sellerIDs[o.SellerID] = struct{}{}
		}
	}
	if len(owners) == 0 && len(sellers) == 0 {
		return nil, constant.Errorf(constant.CodeNoPayableOrders, "purchase %d", p.ID)
	}

	payee := &dto.Payee{Kind: dto.PayeeOwner}
	switch {
	case r.SingleOnlinePayee:
		payee.Orders = append(owners, sellers...)
	case len(sellerIDs) > 1:
		return nil, constant.Errorf(constant.CodeMultiPayeeViolation, "purchase %d funds %d sellers", p.ID, len(sellerIDs))
	case len(owners) > 0 && len(sellers) > 0:
		return nil, constant.Errorf(constant.CodeMultiPayeeViolation, "purchase %d funds the owner and seller %d", p.ID, sellers[0].SellerID)
	case len(sellers) > 0:
		payee.Kind = dto.PayeeSeller
		payee.SellerID = sellers[0].SellerID
		payee.Orders = sellers
	default:
		payee.Orders = owners
	}

	creds, err := r.Credentials(tx, payee.SellerID)
	if err != nil {
		return nil, err
	}
	payee.Credentials = creds
	return payee, nil
}

// Credentials loads the one PAYPAL credential row of the owner (sellerID 0)
// or of the given seller.
func (r *PayeeResolver) Credentials(tx *gorm.DB, sellerID uint64) (dto.GatewayCredentials, error) {
	var creds dto.GatewayCredentials
	d := dao.NewStoreDaoWithDB(tx)
	if sellerID == 0 {
		rows, err := d.ListOwnerPayMethods(mainmodel.PayMethodName)
		if err != nil {
			return creds, constant.Wrap(constant.CodeDatabaseError, err, "owner pay methods")
		}
		if len(rows) != 1 {
			return creds, constant.Errorf(constant.CodePayMethodMisconfigured, "owner has %d %s rows", len(rows), mainmodel.PayMethodName)
		}
		creds = dto.GatewayCredentials{Mode: rows[0].Mode, ClientID: rows[0].ClientID, ClientSecret: rows[0].ClientSecret}
	} else {
		rows, err := d.ListSellerPayMethods(sellerID, mainmodel.PayMethodName)
		if err != nil {
			return creds, constant.Wrap(constant.CodeDatabaseError, err, "seller %d pay methods", sellerID)
		}
		if len(rows) != 1 {
			return creds, constant.Errorf(constant.CodePayMethodMisconfigured, "seller %d has %d %s rows", sellerID, len(rows), mainmodel.PayMethodName)
		}
		creds = dto.GatewayCredentials{Mode: rows[0].Mode, ClientID: rows[0].ClientID, ClientSecret: rows[0].ClientSecret}
	}
	if err := r.validate.Struct(creds); err != nil {
		// field names only, never the values
		return dto.GatewayCredentials{}, constant.Errorf(constant.CodePayMethodMisconfigured, "seller %d: %s", sellerID, invalidFields(err))
	}
	return creds, nil
}

func invalidFields(err error) string {
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return "invalid credentials"
	}
	s := ""
	for i, fe := range ves {
		if i > 0 {
			s += ","
		}
		s += fe.Field() + ":" + fe.Tag()
	}
	return s
}

func ownerRef(o ordermodel.CustomerOrder) dto.OrderRef {
	return dto.OrderRef{
		ID:         o.ID,
		Kind:       dto.PayeeOwner,
		BuyerID:    o.BuyerID,
		PurchaseID: o.PurchaseID,
		Currency:   o.Currency,
		PayMethod:  o.PayMethod,
		Status:     o.Status,
	}
}

func sellerRef(o ordermodel.SellerOrder) dto.OrderRef {
	return dto.OrderRef{
		ID:         o.ID,
		Kind:       dto.PayeeSeller,
		SellerID:   o.SellerID,
		BuyerID:    o.BuyerID,
		PurchaseID: o.PurchaseID,
		Currency:   o.Currency,
		PayMethod:  o.PayMethod,
		Status:     o.Status,
	}
}
