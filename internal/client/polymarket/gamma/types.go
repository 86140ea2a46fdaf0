package gamma

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// StringList decodes the Gamma API fields that arrive either as a JSON
// array of strings or as a JSON string containing an encoded array
// (outcomes, outcomePrices, clobTokenIds). Anything else decodes to an
// empty list rather than an error; a malformed field must not sink the
// whole market.
type StringList []string

func (s *StringList) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*s = arr
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err == nil {
		var inner []string
		if err := json.Unmarshal([]byte(raw), &inner); err == nil {
			*s = inner
			return nil
		}
	}
	*s = StringList{}
	return nil
}

// Number tolerates the API's habit of sending numerics as either JSON
// numbers or quoted strings.
type Number struct {
	decimal.Decimal
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		n.Decimal = decimal.Zero
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == "" {
			n.Decimal = decimal.Zero
			return nil
		}
		val, err := decimal.NewFromString(s)
		if err != nil {
			n.Decimal = decimal.Zero
			return nil
		}
		n.Decimal = val
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		n.Decimal = decimal.NewFromFloat(f)
		return nil
	}
	n.Decimal = decimal.Zero
	return nil
}

// Ptr returns the wrapped value, or nil for a nil receiver, so nullable
// model columns can be filled directly.
func (n *Number) Ptr() *decimal.Decimal {
	if n == nil {
		return nil
	}
	d := n.Decimal
	return &d
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07",
	"2006-01-02",
}

// Time decodes the assorted timestamp shapes Gamma emits. Unparseable
// values decode to the zero time.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			t.Time = ts.UTC()
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

func (t *Time) Ptr() *time.Time {
	if t == nil || t.Time.IsZero() {
		return nil
	}
	tt := t.Time
	return &tt
}

type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

type Market struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	Slug        string `json:"slug"`
	ConditionID string `json:"conditionId"`
	Category    string `json:"category"`

	Outcomes      StringList `json:"outcomes"`
	OutcomePrices StringList `json:"outcomePrices"`
	ClobTokenIDs  StringList `json:"clobTokenIds"`

	Active bool `json:"active"`
	Closed bool `json:"closed"`

	Volume         *Number `json:"volume"`
	Liquidity      *Number `json:"liquidity"`
	LastTradePrice *Number `json:"lastTradePrice"`
	BestBid        *Number `json:"bestBid"`
	BestAsk        *Number `json:"bestAsk"`
	Spread         *Number `json:"spread"`

	UmaResolutionStatus string `json:"umaResolutionStatus"`
	ResolvedBy          string `json:"resolvedBy"`

	StartDate  *Time `json:"startDate"`
	EndDate    *Time `json:"endDate"`
	ClosedTime *Time `json:"closedTime"`
	CreatedAt  *Time `json:"createdAt"`

	Events []Event `json:"events"`
	Tags   []Tag   `json:"tags"`
}

type Event struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`

	Active bool `json:"active"`
	Closed bool `json:"closed"`

	CreatedAt  *Time `json:"createdAt"`
	StartDate  *Time `json:"startDate"`
	EndDate    *Time `json:"endDate"`
	ClosedTime *Time `json:"closedTime"`

	Tags    []Tag    `json:"tags"`
	Markets []Market `json:"markets"`
}
