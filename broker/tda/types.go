package tda

import (
	"encoding/json"

	"github.com/rustyeddy/accountmanager/broker"
	"github.com/shopspring/decimal"
)

type accountResponse struct {
	SecuritiesAccount struct {
		AccountID       string `json:"accountId"`
		CurrentBalances struct {
			LiquidationValue decimal.Decimal `json:"liquidationValue"`
			BuyingPower      decimal.Decimal `json:"buyingPower"`
		} `json:"currentBalances"`
	} `json:"securitiesAccount"`
}

type orderJSON struct {
	OrderID        json.Number     `json:"orderId"`
	Status         string          `json:"status"`
	EnteredTime    string          `json:"enteredTime"`
	CloseTime      string          `json:"closeTime"`
	FilledQuantity decimal.Decimal `json:"filledQuantity"`
	Price          decimal.Decimal `json:"price"`
	Legs           []struct {
		Instrument struct {
			Symbol           string `json:"symbol"`
			UnderlyingSymbol string `json:"underlyingSymbol"`
		} `json:"instrument"`
		PositionEffect string          `json:"positionEffect"`
		Instruction    string          `json:"instruction"`
		Quantity       decimal.Decimal `json:"quantity"`
	} `json:"orderLegCollection"`
}

func (o orderJSON) toOrder() broker.Order {
	out := broker.Order{
		ID:             o.OrderID.String(),
		Status:         o.Status,
		EnteredTime:    o.EnteredTime,
		CloseTime:      o.CloseTime,
		FilledQuantity: o.FilledQuantity,
		Price:          o.Price,
	}
	for _, l := range o.Legs {
		out.Legs = append(out.Legs, broker.Leg{
			Symbol:           l.Instrument.Symbol,
			UnderlyingSymbol: l.Instrument.UnderlyingSymbol,
			PositionEffect:   l.PositionEffect,
			Instruction:      l.Instruction,
			Quantity:         l.Quantity,
		})
	}
	return out
}

type hoursJSON struct {
	Product      string `json:"product"`
	IsOpen       bool   `json:"isOpen"`
	SessionHours map[string][]struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"sessionHours"`
}

func (h hoursJSON) toSegment(product string) (broker.SegmentHours, error) {
	seg := broker.SegmentHours{Product: product, IsOpen: h.IsOpen}
	for _, iv := range h.SessionHours["regularMarket"] {
		start, err := broker.ParseTime(iv.Start)
		if err != nil {
			return seg, err
		}
		end, err := broker.ParseTime(iv.End)
		if err != nil {
			return seg, err
		}
		seg.RegularMarket = append(seg.RegularMarket, broker.Interval{Start: start, End: end})
	}
	return seg, nil
}
