package seeding

import (
	"fmt"
	"time"

	"github.com/appetiteclub/orderdesk/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderdesk/pkg/order"
	"github.com/shopspring/decimal"
)

type product struct {
	name  string
	price string
}

var (
	burger     = product{name: "Sajtburger", price: "2990"}
	chicken    = product{name: "Csirkés szendvics", price: "2690"}
	fries      = product{name: "Hasábburgonya", price: "990"}
	lemonade   = product{name: "Házi limonádé", price: "890"}
	veggieWrap = product{name: "Zöldséges tortilla", price: "2490"}
)

func line(p product, qty int) order.LineItem {
	unit := decimal.RequireFromString(p.price)
	return order.LineItem{
		Name:       p.name,
		Quantity:   qty,
		TotalPrice: unit.Mul(decimal.NewFromInt(int64(qty))),
	}
}

// DemoOrders builds a small set of pending orders with consecutive ids
// starting at baseID.
func DemoOrders(baseID int64, now time.Time) []order.Order {
	burgerLine := line(burger, 2)
	burgerLine.SelectedSauce = "BBQ"
	burgerLine.RemoveItems = []string{"hagyma"}

	friesLine := line(fries, 1)
	friesLine.FriesUpgrade = "Édesburgonya"

	wrapLine := line(veggieWrap, 1)
	wrapLine.SpecialNotes = "Extra csípős"
	wrapLine.Extras = []string{"avokádó"}

	scenarios := []struct {
		customer string
		phone    string
		typ      order.Type
		payment  order.PaymentMethod
		address  string
		notes    string
		age      time.Duration
		items    []order.LineItem
	}{
		{
			customer: "Kiss Anna",
			phone:    "+36301234567",
			typ:      order.TypePickup,
			payment:  order.PaymentCard,
			age:      6 * time.Minute,
			items:    []order.LineItem{burgerLine, friesLine, line(lemonade, 2)},
		},
		{
			customer: "Nagy Péter",
			phone:    "+36209876543",
			typ:      order.TypeDelivery,
			payment:  order.PaymentCash,
			address:  "Budapest, Király utca 12. 3/4",
			notes:    "Kapucsengő: 34",
			age:      3 * time.Minute,
			items:    []order.LineItem{line(chicken, 1), wrapLine},
		},
		{
			customer: "Szabó Eszter",
			phone:    "+36705551234",
			typ:      order.TypePickup,
			payment:  order.PaymentCash,
			age:      time.Minute,
			items:    []order.LineItem{line(veggieWrap, 2), line(lemonade, 1)},
		},
	}

	orders := make([]order.Order, 0, len(scenarios))
	for i, s := range scenarios {
		id := baseID + int64(i)
		o := order.Order{
			ID:            id,
			OrderNumber:   fmt.Sprintf("D-%d", id),
			CustomerName:  s.customer,
			CustomerPhone: s.phone,
			Address:       s.address,
			Notes:         s.notes,
			Items:         s.items,
			PaymentMethod: s.payment,
			OrderType:     s.typ,
			Status:        orderstatus.Pending,
			CreatedAt:     now.Add(-s.age),
		}
		for _, it := range s.items {
			o.Total = o.Total.Add(it.TotalPrice)
		}
		orders = append(orders, o)
	}
	return orders
}
