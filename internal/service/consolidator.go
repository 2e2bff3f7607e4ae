package service

import (
	"github.com/jinzhu/copier"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"wht-store-pay/internal/constant"
	"wht-store-pay/internal/dao"
	"wht-store-pay/internal/dto"
	ordermodel "wht-store-pay/internal/model/order"
)

// 发票基准税处理策略
const (
	InvoiceBasisReject    = "reject"
	InvoiceBasisAggregate = "aggregate"
)

type lineTables struct {
	goods, services, taxes string
}

var tablesByKind = map[dto.PayeeKind]lineTables{
	dto.PayeeOwner:  {ordermodel.TableOwnerGoodLine, ordermodel.TableOwnerServiceLine, ordermodel.TableOwnerTaxLine},
	dto.PayeeSeller: {ordermodel.TableSellerGoodLine, ordermodel.TableSellerServiceLine, ordermodel.TableSellerTaxLine},
}

// Consolidator builds the one gateway invoice of a payee from its orders' lines.
type Consolidator struct {
	PriceDecimals int32
	// InvoiceBasisTax is InvoiceBasisReject or InvoiceBasisAggregate.
	InvoiceBasisTax string
}

// Build reads the good and service lines of payee.Orders and merges them into
// one invoice. Persisted lines are never modified.
func (c *Consolidator) Build(tx *gorm.DB, buyerID, purchaseID uint64, payee *dto.Payee) (*dto.Invoice, error) {
	inv := &dto.Invoice{
		BuyerID:    buyerID,
		PurchaseID: purchaseID,
		Payee:      *payee,
		Subtotal:   decimal.Zero,
		TaxTotal:   decimal.Zero,
		Total:      decimal.Zero,
	}

	byKind := map[dto.PayeeKind][]uint64{}
	for _, o := range payee.Orders {
		if inv.Currency == "" {
			inv.Currency = o.Currency
		} else if o.Currency != inv.Currency {
			return nil, constant.Errorf(constant.CodeConsolidationFailed, "purchase %d mixes %s and %s", purchaseID, inv.Currency, o.Currency)
		}
		byKind[o.Kind] = append(byKind[o.Kind], o.ID)
	}
	if inv.Currency == "" {
		return nil, constant.Errorf(constant.CodeConsolidationFailed, "purchase %d has no currency", purchaseID)
	}

	d := dao.NewStoreDaoWithDB(tx)
	// owner orders first so the item order is stable
	for _, kind := range []dto.PayeeKind{dto.PayeeOwner, dto.PayeeSeller} {
		ids := byKind[kind]
		if len(ids) == 0 {
			continue
		}
		if err := c.addGroup(d, inv, tablesByKind[kind], ids); err != nil {
			return nil, err
		}
	}

	if len(inv.Goods) == 0 && len(inv.Services) == 0 {
		return nil, constant.Errorf(constant.CodeConsolidationFailed, "purchase %d has no lines", purchaseID)
	}
	if !c.balanced(inv) {
		return nil, constant.Errorf(constant.CodeConsolidationFailed, "purchase %d total %s != subtotal %s + tax %s",
			purchaseID, inv.Total, inv.Subtotal, inv.TaxTotal)
	}
	return inv, nil
}

func (c *Consolidator) addGroup(d *dao.StoreDao, inv *dto.Invoice, t lineTables, ids []uint64) error {
	goods, err := d.ListLines(t.goods, ids)
	if err != nil {
		return constant.Wrap(constant.CodeDatabaseError, err, "read %s", t.goods)
	}
	services, err := d.ListLines(t.services, ids)
	if err != nil {
		return constant.Wrap(constant.CodeDatabaseError, err, "read %s", t.services)
	}

	lineTax := decimal.Zero
	subtotal := decimal.Zero
	total := decimal.Zero
	for _, group := range []struct {
		rows []ordermodel.OrderLine
		kind dto.LineKind
		dst  *[]dto.InvoiceLine
	}{
		{goods, dto.LineGood, &inv.Goods},
		{services, dto.LineService, &inv.Services},
	} {
		for i := range group.rows {
			line, err := c.normalize(&group.rows[i], group.kind)
			if err != nil {
				return err
			}
			lineTax = lineTax.Add(line.TaxTotal)
			subtotal = subtotal.Add(line.Subtotal)
			total = total.Add(line.Total)
			*group.dst = append(*group.dst, line)
		}
	}

	// no tax on any line: the tax may live on the orders instead
	if lineTax.IsZero() && len(goods)+len(services) > 0 {
		taxes, err := d.ListTaxLines(t.taxes, ids)
		if err != nil {
			return constant.Wrap(constant.CodeDatabaseError, err, "read %s", t.taxes)
		}
		invoiceTax := decimal.Zero
		for _, tl := range taxes {
			invoiceTax = invoiceTax.Add(tl.Total)
		}
		if !invoiceTax.IsZero() {
			if c.InvoiceBasisTax != InvoiceBasisAggregate {
				return constant.Errorf(constant.CodeConsolidationFailed, "invoice basis tax %s on %s", invoiceTax, t.taxes)
			}
			inv.InvoiceBasisTax = true
			lineTax = invoiceTax
			total = total.Add(invoiceTax)
		}
	}

	inv.Subtotal = inv.Subtotal.Add(subtotal)
	inv.TaxTotal = inv.TaxTotal.Add(lineTax)
	inv.Total = inv.Total.Add(total)
	return nil
}

// normalize copies a persisted line and applies the tax-exclusive price rule:
// a taxed line whose price*qty equals its total carries a tax-inclusive price,
// so the gateway gets subtotal/qty instead.
func (c *Consolidator) normalize(row *ordermodel.OrderLine, kind dto.LineKind) (dto.InvoiceLine, error) {
	var line dto.InvoiceLine
	if err := copier.Copy(&line, row); err != nil {
		return line, constant.Wrap(constant.CodeSystemError, err, "copy line %d", row.ID)
	}
	line.Kind = kind
	if !line.Quantity.IsPositive() || !line.Quantity.Equal(line.Quantity.Truncate(0)) {
		return line, constant.Errorf(constant.CodeConsolidationFailed, "line %d quantity %s is not a positive integer", row.ID, line.Quantity)
	}
	if !line.TaxTotal.IsZero() && line.Price.Mul(line.Quantity).Equal(line.Total) {
		line.Price = line.Subtotal.DivRound(line.Quantity, c.PriceDecimals)
	}
	return line, nil
}

// balanced checks total == subtotal + tax within half a unit of the price precision.
// It does not check that the line totals add up to total: with an
// aggregated invoice basis tax (inv.InvoiceBasisTax) the order-level tax
// rows are in TaxTotal and Total but in no line, so the lines sum to
// Total - TaxTotal there. Only this relation holds for both modes.
func (c *Consolidator) balanced(inv *dto.Invoice) bool {
	tolerance := decimal.New(5, -(c.PriceDecimals + 1))
	return inv.Total.Sub(inv.Subtotal.Add(inv.TaxTotal)).Abs().LessThanOrEqual(tolerance)
}
