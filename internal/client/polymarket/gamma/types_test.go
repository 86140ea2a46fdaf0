package gamma

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStringListDecodesArray(t *testing.T) {
	var s StringList
	if err := json.Unmarshal([]byte(`["Yes","No"]`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(s) != 2 || s[0] != "Yes" || s[1] != "No" {
		t.Fatalf("got %v", s)
	}
}

func TestStringListDecodesEncodedString(t *testing.T) {
	var s StringList
	if err := json.Unmarshal([]byte(`"[\"Yes\", \"No\"]"`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(s) != 2 || s[0] != "Yes" || s[1] != "No" {
		t.Fatalf("got %v", s)
	}
}

func TestStringListMalformedDecodesEmpty(t *testing.T) {
	for _, raw := range []string{`"not an array"`, `123`, `{"a":1}`, `"[broken"`} {
		var s StringList
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			t.Fatalf("%s: unexpected error %v", raw, err)
		}
		if len(s) != 0 {
			t.Fatalf("%s: expected empty list, got %v", raw, s)
		}
	}
}

func TestNumberDecodesStringAndFloat(t *testing.T) {
	var m Market
	raw := `{"volume":"1234.5","liquidity":99.25,"bestBid":null}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Volume == nil || m.Volume.Decimal.String() != "1234.5" {
		t.Fatalf("volume: %+v", m.Volume)
	}
	if m.Liquidity == nil || m.Liquidity.Decimal.String() != "99.25" {
		t.Fatalf("liquidity: %+v", m.Liquidity)
	}
	if m.BestAsk != nil {
		t.Fatalf("absent field must stay nil")
	}
}

func TestTimeDecodesCommonLayouts(t *testing.T) {
	cases := map[string]time.Time{
		`"2024-03-10T12:00:00Z"`:      time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		`"2024-03-10T12:00:00.000Z"`:  time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		`"2024-03-10T12:00:00"`:       time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		`"2024-03-10"`:                time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	for raw, want := range cases {
		var ts Time
		if err := json.Unmarshal([]byte(raw), &ts); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if !ts.Time.Equal(want) {
			t.Fatalf("%s: got %v, want %v", raw, ts.Time, want)
		}
	}

	var ts Time
	if err := json.Unmarshal([]byte(`"garbage"`), &ts); err != nil {
		t.Fatalf("garbage: %v", err)
	}
	if !ts.Time.IsZero() {
		t.Fatalf("unparseable time should decode to zero, got %v", ts.Time)
	}
	if ts.Ptr() != nil {
		t.Fatalf("zero time must map to nil pointer")
	}
}

func TestMarketDecodesParallelFields(t *testing.T) {
	raw := `{
		"id":"500123",
		"question":"Will it happen?",
		"outcomes":"[\"Yes\",\"No\"]",
		"outcomePrices":["0.97","0.03"],
		"clobTokenIds":"[\"tok-a\",\"tok-b\"]",
		"closed":true,
		"closedTime":"2024-06-01T00:00:00Z"
	}`
	var m Market
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m.Outcomes) != 2 || len(m.OutcomePrices) != 2 || len(m.ClobTokenIDs) != 2 {
		t.Fatalf("parallel arrays wrong: %+v", m)
	}
	if m.ClobTokenIDs[0] != "tok-a" {
		t.Fatalf("token ids: %v", m.ClobTokenIDs)
	}
	if !m.Closed || m.ClosedTime.Ptr() == nil {
		t.Fatalf("closed fields: %+v", m)
	}
}
