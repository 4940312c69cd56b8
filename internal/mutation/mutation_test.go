package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"civicdesk/internal/api"
	"civicdesk/internal/apitest"
	"civicdesk/pkg/domain"
)

func TestComputePatchOnlyChangedFields(t *testing.T) {
	loaded := domain.Expense{Amount: 100, Type: "Gas"}
	edited := domain.Expense{Amount: 100, Type: "Diesel"}
	patch, err := ComputePatch(loaded, edited)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"Type": "Diesel"}, patch); diff != "" {
		t.Fatalf("patch (-want +got):\n%s", diff)
	}
}

func TestDatesCompareCanonically(t *testing.T) {
	loaded := domain.Income{ID: 3, Type: "Rental", Amount: 50, DateReceived: domain.NewDate(2024, time.March, 2)}
	edited, err := ApplyValues(loaded, map[string]string{
		"DateReceived": "2024-03-02T00:00:00Z",
		"Amount":       "50.00",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	patch, err := ComputePatch(loaded, edited)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if len(patch) != 0 {
		t.Fatalf("equivalent values must not appear changed: %v", patch)
	}

	edited, _ = ApplyValues(loaded, map[string]string{"DateReceived": "2024-03-05"})
	patch, _ = ComputePatch(loaded, edited)
	if diff := cmp.Diff(map[string]any{"DateReceived": "2024-03-05"}, patch); diff != "" {
		t.Fatalf("date patch (-want +got):\n%s", diff)
	}
}

func TestApplyValuesCoercesAndRejects(t *testing.T) {
	hh := int64(12)
	r := domain.Resident{ID: 1, Firstname: "Ana", HouseholdID: &hh}
	got, err := ApplyValues(r, map[string]string{
		"IsVoter":       "true",
		"MonthlyIncome": "12,500.50",
		"HouseholdID":   "",
		"Lastname":      "  Reyes ",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !got.IsVoter || got.MonthlyIncome != 12500.5 || got.HouseholdID != nil || got.Lastname != "Reyes" {
		t.Fatalf("unexpected coercion %+v", got)
	}
	if r.HouseholdID == nil || *r.HouseholdID != 12 {
		t.Fatalf("input record was modified")
	}
	got, err = ApplyValues(r, map[string]string{"HouseholdID": "40"})
	if err != nil || got.HouseholdID == nil || *got.HouseholdID != 40 {
		t.Fatalf("pointer field not set: %+v %v", got, err)
	}

	for _, bad := range []map[string]string{
		{"Nope": "x"},
		{"ID": "9"},
		{"IsVoter": "maybe"},
		{"Birthdate": "09/04/2001"},
	} {
		if _, err := ApplyValues(r, bad); !domain.IsValidationError(err) {
			t.Fatalf("%v: expected validation error, got %v", bad, err)
		}
	}
}

type recordingRemote struct {
	calls int
}

func (r *recordingRemote) Create(context.Context, domain.Expense) (domain.Expense, error) {
	r.calls++
	return domain.Expense{}, nil
}

func (r *recordingRemote) Update(context.Context, int64, map[string]any) (map[string]any, error) {
	r.calls++
	return nil, nil
}

func (r *recordingRemote) DeleteMany(context.Context, []int64) error {
	r.calls++
	return nil
}

func TestValidationFailsBeforeAnyRequest(t *testing.T) {
	remote := &recordingRemote{}
	d := New[domain.Expense]("expense", remote, nil)
	ctx := context.Background()
	if _, err := d.Create(ctx, domain.Expense{Amount: -1}); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	loaded := domain.Expense{ID: 1, Type: "Gas", Amount: 1, DateIssued: domain.NewDate(2024, 1, 1)}
	edited := loaded
	edited.Type = ""
	if _, err := d.EditOne(ctx, loaded, edited); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := d.EditOne(ctx, loaded, loaded); err != nil {
		t.Fatalf("no-op edit: %v", err)
	}
	other := loaded
	other.ID = 2
	if _, err := d.EditOne(ctx, loaded, other); !errors.Is(err, ErrIDChanged) {
		t.Fatalf("expected ErrIDChanged, got %v", err)
	}
	if err := d.DeleteMany(ctx, nil); err != nil {
		t.Fatalf("empty delete: %v", err)
	}
	if remote.calls != 0 {
		t.Fatalf("expected no remote calls, saw %d", remote.calls)
	}
}

func newDispatcher(t *testing.T) (*apitest.Server, *Dispatcher[domain.Expense]) {
	t.Helper()
	srv := apitest.NewServer(t)
	srv.Register("expense", "expense")
	client, err := api.New(srv.URL)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return srv, New[domain.Expense]("expense", api.NewResource[domain.Expense](client, "expense", "expense"), nil)
}

func TestEditOneSendsPatchAndMergesEcho(t *testing.T) {
	srv, d := newDispatcher(t)
	loaded := domain.Expense{ID: 5, Type: "Gas", Amount: 100, Payee: "Petron", DateIssued: domain.NewDate(2024, time.May, 3)}
	srv.Seed(t, "expense", loaded)

	edited := loaded
	edited.Type = "Diesel"
	res, err := d.EditOne(context.Background(), loaded, edited)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if res.Record.Type != "Diesel" || res.Record.Payee != "Petron" || res.Record.ID != 5 {
		t.Fatalf("unexpected merged record %+v", res.Record)
	}
	reqs := srv.Requests()
	var body map[string]any
	if err := json.Unmarshal(reqs[len(reqs)-1].Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"Type": "Diesel"}, body); diff != "" {
		t.Fatalf("wire patch (-want +got):\n%s", diff)
	}
}

func TestDeleteManyCollapsesDuplicatesAndSurfacesErrors(t *testing.T) {
	srv, d := newDispatcher(t)
	srv.Seed(t, "expense", domain.Expense{ID: 1, Type: "a"}, domain.Expense{ID: 2, Type: "b"})
	if err := d.DeleteMany(context.Background(), []int64{2, 1, 2}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var body struct{ IDs []int64 `json:"ids"` }
	reqs := srv.Requests()
	_ = json.Unmarshal(reqs[len(reqs)-1].Body, &body)
	if !cmp.Equal(body.IDs, []int64{1, 2}) {
		t.Fatalf("unexpected ids %v", body.IDs)
	}

	srv.FailNext(http.MethodDelete, "expense", http.StatusInternalServerError, "database is read-only")
	err := d.DeleteMany(context.Background(), []int64{7})
	if api.Message(err) != "database is read-only" {
		t.Fatalf("expected server message, got %v", err)
	}
}
