package criteria

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"civicdesk/pkg/domain"
)

var fixedNow = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func youthTable() *Table[domain.Youth] {
	return NewTable(
		SortByText("Alphabetical", func(y domain.Youth) string { return y.Lastname }),
		SortByDate("Youngest", func(y domain.Youth) domain.Date { return y.Birthdate }).Descending(),
		Flag("In School Youth", func(y domain.Youth) bool { return y.InSchoolYouth }),
		StatusIs("Male", func(y domain.Youth) string { return y.Sex }, "Male"),
		AgeBetween("Age 15-17", func(y domain.Youth) domain.Date { return y.Birthdate }, 15, 17),
	).WithClock(func() time.Time { return fixedNow })
}

func sample() []domain.Youth {
	return []domain.Youth{
		{ID: 1, Lastname: "Cruz", InSchoolYouth: true, Sex: "male", Birthdate: domain.NewDate(2008, time.January, 2)},
		{ID: 2, Lastname: "Diaz", InSchoolYouth: false, Sex: "Female", Birthdate: domain.NewDate(2001, time.March, 9)},
		{ID: 3, Lastname: "abad", Sex: " Male ", Birthdate: domain.NewDate(2006, time.May, 2)},
		{ID: 4, Lastname: "Ébano"},
	}
}

func ids(in []domain.Youth) []int64 {
	out := make([]int64, len(in))
	for i, y := range in {
		out[i] = y.ID
	}
	return out
}

func TestScenarioInSchoolYouthAndAlphabetical(t *testing.T) {
	table := youthTable()
	data := []domain.Youth{
		{ID: 1, Lastname: "Cruz", InSchoolYouth: true},
		{ID: 2, Lastname: "Diaz", InSchoolYouth: false},
	}
	if diff := cmp.Diff([]int64{1}, ids(table.Apply(data, "In School Youth"))); diff != "" {
		t.Fatalf("in school filter (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1, 2}, ids(table.Apply(data, "Alphabetical"))); diff != "" {
		t.Fatalf("alphabetical (-want +got):\n%s", diff)
	}
}

func TestSortIsCaselessAndLocaleAware(t *testing.T) {
	got := ids(youthTable().Apply(sample(), "Alphabetical"))
	if diff := cmp.Diff([]int64{3, 1, 2, 4}, got); diff != "" {
		t.Fatalf("alphabetical (-want +got):\n%s", diff)
	}
}

func TestDescendingDateKeepsMissingLast(t *testing.T) {
	got := ids(youthTable().Apply(sample(), "Youngest"))
	if diff := cmp.Diff([]int64{1, 3, 2, 4}, got); diff != "" {
		t.Fatalf("youngest (-want +got):\n%s", diff)
	}
}

func TestSortsAreIdempotent(t *testing.T) {
	table := youthTable()
	for _, name := range table.Names() {
		c, _ := table.Lookup(name)
		if c.Kind != Sort {
			continue
		}
		once := table.Apply(sample(), name)
		twice := table.Apply(once, name)
		if !cmp.Equal(ids(once), ids(twice)) {
			t.Fatalf("%s: sorting twice changed order %v -> %v", name, ids(once), ids(twice))
		}
	}
}

func TestFiltersReturnMatchingSubset(t *testing.T) {
	table := youthTable()
	env := table.Env()
	in := sample()
	inIDs := map[int64]bool{}
	for _, y := range in {
		inIDs[y.ID] = true
	}
	for _, name := range table.Names() {
		c, _ := table.Lookup(name)
		if c.Kind == Sort {
			continue
		}
		for _, y := range table.Apply(in, name) {
			if !inIDs[y.ID] {
				t.Fatalf("%s invented record %d", name, y.ID)
			}
			if !c.Matches(env, y) {
				t.Fatalf("%s retained non-matching record %d", name, y.ID)
			}
		}
	}
	if diff := cmp.Diff([]int64{1, 3}, ids(table.Apply(in, "Male"))); diff != "" {
		t.Fatalf("status filter (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{1}, ids(table.Apply(in, "Age 15-17"))); diff != "" {
		t.Fatalf("age bracket (-want +got):\n%s", diff)
	}
}

func TestUnknownCriterionIsIdentityAndInputUntouched(t *testing.T) {
	table := youthTable()
	in := sample()
	before := ids(in)
	for _, name := range []string{"", "In school youth ", "Nonexistent"} {
		if got := table.Apply(in, name); !cmp.Equal(ids(got), before) {
			t.Fatalf("%q should be identity, got %v", name, ids(got))
		}
	}
	for _, name := range table.Names() {
		_ = table.Apply(in, name)
		if !cmp.Equal(ids(in), before) {
			t.Fatalf("%s mutated its input", name)
		}
	}
}

func TestEmptyInputYieldsEmptyOutput(t *testing.T) {
	table := youthTable()
	for _, name := range table.Names() {
		if got := table.Apply(nil, name); len(got) != 0 {
			t.Fatalf("%s produced %d records from nothing", name, len(got))
		}
	}
}

func TestDuplicateNamesPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewTable(
		SortByValue("Amount", func(e domain.Expense) float64 { return e.Amount }),
		SortByValue("Amount", func(e domain.Expense) float64 { return e.Amount }).Descending(),
	)
}
