package entities

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"civicdesk/internal/api"
	"civicdesk/internal/apitest"
	"civicdesk/internal/browser"
	"civicdesk/internal/query"
	"civicdesk/pkg/domain"
)

var fixedNow = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func youthIDs(in []domain.Youth) []int64 {
	out := make([]int64, len(in))
	for i, y := range in {
		out[i] = y.ID
	}
	return out
}

func TestRegistryCoversEveryEntityType(t *testing.T) {
	want := []string{"resident", "youth", "household", "income", "expense", "blotter",
		"certificate", "govdoc", "logbook", "programproject", "official", "settings"}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
	if e, ok := Lookup("  YOUTH "); !ok || e.Type != domain.EntityYouth {
		t.Fatalf("lookup by type failed: %+v", e)
	}
	if e, ok := Lookup("government documents"); !ok || e.Type != domain.EntityGovDoc {
		t.Fatalf("lookup by title failed: %+v", e)
	}
	if _, ok := Lookup("spaceship"); ok {
		t.Fatalf("unexpected match")
	}
}

// checkColumns makes sure every declared column is a wire field of T.
func checkColumns[T domain.Record](t *testing.T, d browser.Descriptor[T]) {
	t.Helper()
	if err := d.Validate(); err != nil {
		t.Fatalf("%s: %v", d.Type, err)
	}
	var zero T
	fields, err := domain.Fields(zero)
	if err != nil {
		t.Fatalf("%s: %v", d.Type, err)
	}
	for _, c := range d.Columns {
		if _, ok := fields[c]; !ok {
			t.Errorf("%s: column %q is not a field", d.Type, c)
		}
	}
	if d.Summary != nil {
		_ = d.Summary(nil)
	}
}

func TestDescriptorsAreConsistent(t *testing.T) {
	checkColumns(t, Residents())
	checkColumns(t, Youth())
	checkColumns(t, Households())
	checkColumns(t, Income())
	checkColumns(t, Expenses())
	checkColumns(t, Blotter())
	checkColumns(t, Certificates())
	checkColumns(t, GovDocs())
	checkColumns(t, Logbook())
	checkColumns(t, ProgramProjects())
	checkColumns(t, Officials())
	checkColumns(t, Settings())
}

func TestYouthScenarios(t *testing.T) {
	d := Youth(WithClock(clock))
	data := []domain.Youth{
		{ID: 1, Lastname: "Cruz", InSchoolYouth: true},
		{ID: 2, Lastname: "Diaz", InSchoolYouth: false},
	}
	if diff := cmp.Diff([]int64{1}, youthIDs(d.Criteria.Apply(data, "In School Youth"))); diff != "" {
		t.Fatalf("in school (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1, 2}, youthIDs(d.Criteria.Apply(data, "Alphabetical"))); diff != "" {
		t.Fatalf("alphabetical (-want +got):\n%s", diff)
	}
}

func TestYouthAgeBrackets(t *testing.T) {
	d := Youth(WithClock(clock))
	data := []domain.Youth{
		{ID: 1, Birthdate: domain.NewDate(2008, time.January, 2)}, // 16
		{ID: 2, Birthdate: domain.NewDate(2006, time.June, 1)},    // 18 today
		{ID: 3, Birthdate: domain.NewDate(2006, time.June, 2)},    // 17
		{ID: 4, Birthdate: domain.NewDate(1995, time.March, 9)},   // 29
		{ID: 5},
	}
	cases := map[string][]int64{
		"Child Youth (15-17)": {1, 3},
		"Core Youth (18-24)":  {2},
		"Young Adult (25-30)": {4},
	}
	for name, want := range cases {
		if diff := cmp.Diff(want, youthIDs(d.Criteria.Apply(data, name))); diff != "" {
			t.Errorf("%s (-want +got):\n%s", name, diff)
		}
	}
}

func TestResidentSummaryUsesCriteria(t *testing.T) {
	d := Residents(WithClock(clock))
	rows := []domain.Resident{
		{ID: 1, Sex: "Male", Birthdate: domain.NewDate(1950, time.May, 1), IsVoter: true},
		{ID: 2, Sex: "female", Birthdate: domain.NewDate(1964, time.June, 2), IsPWD: true},
		{ID: 3, Sex: "Female", Birthdate: domain.NewDate(1964, time.June, 1), IsVoter: true},
	}
	want := []browser.Metric{
		{Label: "Total", Value: "3"},
		{Label: "Male", Value: "1"},
		{Label: "Female", Value: "2"},
		{Label: "Senior Citizen", Value: "2"},
		{Label: "Voter", Value: "2"},
		{Label: "PWD", Value: "1"},
	}
	if diff := cmp.Diff(want, d.Summary(rows)); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
}

func TestLedgerOrderingAndTotals(t *testing.T) {
	d := Expenses()
	rows := []domain.Expense{
		{ID: 1, Amount: 100, DateIssued: domain.NewDate(2024, time.May, 3)},
		{ID: 2, Amount: 1250.5, DateIssued: domain.NewDate(2024, time.May, 9)},
		{ID: 3, Amount: 40},
	}
	ids := func(in []domain.Expense) []int64 {
		out := make([]int64, len(in))
		for i, e := range in {
			out[i] = e.ID
		}
		return out
	}
	if diff := cmp.Diff([]int64{2, 1, 3}, ids(d.Criteria.Apply(rows, "Newest"))); diff != "" {
		t.Fatalf("newest (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{2, 1, 3}, ids(d.Criteria.Apply(rows, "Highest Amount"))); diff != "" {
		t.Fatalf("highest (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{3, 1, 2}, ids(d.Criteria.Apply(rows, "Lowest Amount"))); diff != "" {
		t.Fatalf("lowest (-want +got):\n%s", diff)
	}
	want := []browser.Metric{{Label: "Total", Value: "3"}, {Label: "Total Expenses", Value: "1,390.50"}}
	if diff := cmp.Diff(want, d.Summary(rows)); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
}

func TestLogbookToday(t *testing.T) {
	d := Logbook(WithClock(clock))
	rows := []domain.Logbook{
		{ID: 1, Date: domain.NewDate(2024, time.June, 1), TimeIn: "08:00"},
		{ID: 2, Date: domain.NewDate(2024, time.May, 31), TimeIn: "08:00", TimeOut: "09:00"},
	}
	got := d.Summary(rows)
	want := []browser.Metric{{Label: "Total", Value: "2"}, {Label: "Today", Value: "1"}, {Label: "Still In", Value: "1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
}

func TestEntryOpensTypeErasedView(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.Register("blotter", "blotter")
	srv.Seed(t, "blotter",
		domain.Blotter{Complainant: "Reyes", Incident: "Noise", Status: "Pending", DateReported: domain.NewDate(2024, time.May, 1)},
		domain.Blotter{Complainant: "Santos", Incident: "Theft", Status: "Settled", DateReported: domain.NewDate(2024, time.May, 7)},
	)
	client, err := api.New(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	pool := query.NewPool()
	defer func() { _ = pool.Close(context.Background()) }()

	e, _ := Lookup("blotter")
	v, err := e.Open(browser.Deps{Client: client, Pool: pool}, WithClock(clock))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer v.Close()
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	v.SetCriterion("Newest")
	rows := v.Rows()
	if len(rows) != 2 || rows[0][2] != "Santos" {
		t.Fatalf("unexpected rows %v", rows)
	}
	v.SetCriterion("Pending")
	if diff := cmp.Diff([]int64{1}, v.VisibleIDs()); diff != "" {
		t.Fatalf("pending (-want +got):\n%s", diff)
	}
}
