package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDateAcceptsTimestampsAndDates(t *testing.T) {
	cases := map[string]string{
		"2001-04-09":                "2001-04-09",
		"2001-04-09T00:00:00Z":      "2001-04-09",
		"2001-04-09T16:30:00+08:00": "2001-04-09",
		"  2001-04-09 ":             "2001-04-09",
		"":                          "",
	}
	for in, want := range cases {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("parse %q: got %q want %q", in, got.String(), want)
		}
	}
	if _, err := ParseDate("09/04/2001"); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	type row struct {
		When Date `json:"When"`
	}
	b, err := json.Marshal(row{When: NewDate(2020, time.February, 29)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"When":"2020-02-29"}` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var decoded row
	if err := json.Unmarshal([]byte(`{"When":"2020-02-29T08:00:00Z"}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.When.Equal(NewDate(2020, time.February, 29)) {
		t.Fatalf("timestamp and date should normalise to the same day, got %s", decoded.When)
	}
	var empty row
	if err := json.Unmarshal([]byte(`{"When":null}`), &empty); err != nil || !empty.When.IsZero() {
		t.Fatalf("null should decode to zero date: %v %v", err, empty.When)
	}
	b, _ = json.Marshal(empty)
	if string(b) != `{"When":null}` {
		t.Fatalf("zero date should encode as null, got %s", b)
	}
	if err := json.Unmarshal([]byte(`{"When":12}`), &empty); err == nil {
		t.Fatalf("expected error for numeric date")
	}
}

func TestDateYearsAt(t *testing.T) {
	birth := NewDate(2000, time.June, 15)
	cases := []struct {
		now  time.Time
		want int
	}{
		{time.Date(2020, time.June, 14, 0, 0, 0, 0, time.UTC), 19},
		{time.Date(2020, time.June, 15, 0, 0, 0, 0, time.UTC), 20},
		{time.Date(2020, time.December, 1, 0, 0, 0, 0, time.UTC), 20},
		{time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC), 20},
	}
	for _, tc := range cases {
		if got := birth.YearsAt(tc.now); got != tc.want {
			t.Fatalf("YearsAt(%s) = %d want %d", tc.now.Format(DateLayout), got, tc.want)
		}
	}
	if (Date{}).YearsAt(time.Now()) != 0 {
		t.Fatalf("zero date should have no age")
	}
}
