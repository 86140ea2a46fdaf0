package clob

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		d.Decimal = decimal.Zero
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		val, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		d.Decimal = val
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		d.Decimal = decimal.NewFromFloat(f)
		return nil
	}
	return fmt.Errorf("invalid decimal: %s", string(b))
}

type PricePoint struct {
	TS    time.Time
	Price decimal.Decimal
}

// parsePriceHistory decodes a prices-history response. The endpoint wraps
// points as {"history":[{"t":unixSeconds,"p":price}]}; an {"error":...}
// body or a missing history key both mean "no data for this window" and
// decode to an empty series.
func parsePriceHistory(body []byte) []PricePoint {
	var resp struct {
		History []json.RawMessage `json:"history"`
		Error   json.RawMessage   `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return []PricePoint{}
	}
	if len(resp.Error) > 0 && string(resp.Error) != "null" {
		return []PricePoint{}
	}
	points := make([]PricePoint, 0, len(resp.History))
	for _, item := range resp.History {
		if point, ok := parsePricePoint(item); ok {
			points = append(points, point)
		}
	}
	return points
}

func parsePricePoint(item json.RawMessage) (PricePoint, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err != nil {
		return PricePoint{}, false
	}
	tsRaw := firstRaw(obj, "t", "ts", "timestamp")
	priceRaw := firstRaw(obj, "p", "price")
	if len(tsRaw) == 0 || len(priceRaw) == 0 {
		return PricePoint{}, false
	}
	ts, err := parseTimeRaw(tsRaw)
	if err != nil {
		return PricePoint{}, false
	}
	price, err := parseDecimalRaw(priceRaw)
	if err != nil {
		return PricePoint{}, false
	}
	return PricePoint{TS: ts, Price: price}, true
}

func parseDecimalRaw(b json.RawMessage) (decimal.Decimal, error) {
	var d Decimal
	if err := json.Unmarshal(b, &d); err != nil {
		return decimal.Zero, err
	}
	return d.Decimal, nil
}

func parseTimeRaw(b json.RawMessage) (time.Time, error) {
	var i int64
	if err := json.Unmarshal(b, &i); err == nil {
		return unixToTime(i), nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		return unixToTime(int64(f)), nil
	}
	return time.Time{}, fmt.Errorf("invalid time: %s", string(b))
}

func unixToTime(v int64) time.Time {
	if v > 1_000_000_000_000 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

func firstRaw(m map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return nil
}
