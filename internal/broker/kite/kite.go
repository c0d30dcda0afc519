// Package kite adapts a Zerodha Kite account to the TradeAccount and
// PositionLookup interfaces.
package kite

import (
	"context"
	"errors"
	"strings"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"trade-mirror/internal/interfaces"
	"trade-mirror/internal/types"
)

const orderTag = "mirror"

type Params struct {
	AccountID   string
	APIKey      string
	AccessToken string
	Exchange    string
	Product     string
}

type Account struct {
	p  Params
	kc *kiteconnect.Client
}

var (
	_ interfaces.TradeAccount   = (*Account)(nil)
	_ interfaces.PositionLookup = (*Account)(nil)
)

func New(p Params) (*Account, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, errors.New("missing API key/access token")
	}
	if p.Exchange == "" {
		p.Exchange = kiteconnect.ExchangeNSE
	}
	if p.Product == "" {
		p.Product = kiteconnect.ProductCNC
	}

	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return &Account{p: p, kc: kc}, nil
}

func (a *Account) ID() string {
	return a.p.AccountID
}

// Submit places a day-validity limit order at the projected price.
func (a *Account) Submit(ctx context.Context, order types.Order) (types.OrderAck, error) {
	transactionType := kiteconnect.TransactionTypeSell
	if order.Action == types.ActionBuy {
		transactionType = kiteconnect.TransactionTypeBuy
	}

	resp, err := a.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        a.p.Exchange,
		Tradingsymbol:   strings.ToUpper(order.StockCode),
		TransactionType: transactionType,
		OrderType:       kiteconnect.OrderTypeLimit,
		Product:         a.p.Product,
		Validity:        kiteconnect.ValidityDay,
		Quantity:        int(order.Shares),
		Price:           order.Price.InexactFloat64(),
		Tag:             orderTag,
	})
	if err != nil {
		return types.OrderAck{}, err
	}
	return types.OrderAck{OrderID: resp.OrderID, Status: "PLACED", Message: "ok"}, nil
}

// Position returns the net position for a stock, nil when not held.
func (a *Account) Position(ctx context.Context, stockCode string) (*types.Position, error) {
	positions, err := a.kc.GetPositions()
	if err != nil {
		return nil, err
	}
	for _, p := range positions.Net {
		if strings.EqualFold(p.Tradingsymbol, stockCode) {
			return &types.Position{
				StockCode:       stockCode,
				AvailableShares: int64(p.Quantity),
			}, nil
		}
	}
	return nil, nil
}
