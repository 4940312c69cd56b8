package entities

import (
	"civicdesk/internal/browser"
	"civicdesk/internal/criteria"
	"civicdesk/internal/search"
	"civicdesk/pkg/domain"
)

// Income describes the treasury receipts ledger.
func Income(opts ...Option) browser.Descriptor[domain.Income] {
	o := build(opts)
	received := func(i domain.Income) domain.Date { return i.DateReceived }
	amt := func(i domain.Income) float64 { return i.Amount }
	t := table(o,
		criteria.SortByDate("Newest", received).Descending(),
		criteria.SortByDate("Oldest", received),
		criteria.SortByValue("Highest Amount", amt).Descending(),
		criteria.SortByValue("Lowest Amount", amt),
		criteria.SortByText("Received From", func(i domain.Income) string { return i.ReceivedFrom }),
	)
	return browser.Descriptor[domain.Income]{
		Type:       domain.EntityIncome,
		Title:      "Income",
		Collection: "income",
		Singular:   "income",
		Columns:    []string{"ID", "DateReceived", "Type", "Amount", "ReceivedFrom", "ReceivedBy", "ORNumber"},
		Criteria:   t,
		Haystack: func(i domain.Income) string {
			return search.Haystack(i.Type, i.ReceivedFrom, i.ReceivedBy, i.ORNumber)
		},
		Summary: func(rows []domain.Income) []browser.Metric {
			return []browser.Metric{total(rows), {Label: "Total Income", Value: amount(o, sum(rows, amt))}}
		},
	}
}

// Expenses describes the treasury disbursements ledger.
func Expenses(opts ...Option) browser.Descriptor[domain.Expense] {
	o := build(opts)
	issued := func(e domain.Expense) domain.Date { return e.DateIssued }
	amt := func(e domain.Expense) float64 { return e.Amount }
	t := table(o,
		criteria.SortByDate("Newest", issued).Descending(),
		criteria.SortByDate("Oldest", issued),
		criteria.SortByValue("Highest Amount", amt).Descending(),
		criteria.SortByValue("Lowest Amount", amt),
		criteria.SortByText("Payee", func(e domain.Expense) string { return e.Payee }),
	)
	return browser.Descriptor[domain.Expense]{
		Type:       domain.EntityExpense,
		Title:      "Expenses",
		Collection: "expense",
		Singular:   "expense",
		Columns:    []string{"ID", "DateIssued", "Type", "Amount", "Payee", "Description"},
		Criteria:   t,
		Haystack: func(e domain.Expense) string {
			return search.Haystack(e.Type, e.Payee, e.Description)
		},
		Summary: func(rows []domain.Expense) []browser.Metric {
			return []browser.Metric{total(rows), {Label: "Total Expenses", Value: amount(o, sum(rows, amt))}}
		},
	}
}

// Certificates describes issued certificates and their fees.
func Certificates(opts ...Option) browser.Descriptor[domain.Certificate] {
	o := build(opts)
	issued := func(c domain.Certificate) domain.Date { return c.DateIssued }
	kind := func(c domain.Certificate) string { return c.Type }
	fee := func(c domain.Certificate) float64 { return c.Amount }
	t := table(o,
		criteria.SortByDate("Newest", issued).Descending(),
		criteria.SortByDate("Oldest", issued),
		criteria.SortByText("Alphabetical", func(c domain.Certificate) string { return c.Name }),
		criteria.StatusIs("Barangay Clearance", kind, "Barangay Clearance"),
		criteria.StatusIs("Certificate of Residency", kind, "Certificate of Residency"),
		criteria.StatusIs("Certificate of Indigency", kind, "Certificate of Indigency"),
		criteria.StatusIs("Business Permit", kind, "Business Permit"),
		criteria.StatusIs("Pending", func(c domain.Certificate) string { return c.Status }, "Pending"),
		criteria.StatusIs("Released", func(c domain.Certificate) string { return c.Status }, "Released"),
	)
	return browser.Descriptor[domain.Certificate]{
		Type:       domain.EntityCertificate,
		Title:      "Certificates",
		Collection: "certificate",
		Singular:   "certificate",
		Columns:    []string{"ID", "DateIssued", "Name", "Type", "Purpose", "Amount", "ORNumber", "Status"},
		Criteria:   t,
		Haystack: func(c domain.Certificate) string {
			return search.Haystack(c.Name, c.Type, c.Purpose, c.ORNumber)
		},
		Summary: func(rows []domain.Certificate) []browser.Metric {
			return append([]browser.Metric{total(rows), {Label: "Fees Collected", Value: amount(o, sum(rows, fee))}},
				tally(t, rows, "Pending", "Released")...)
		},
	}
}

// ProgramProjects describes funded programs and projects.
func ProgramProjects(opts ...Option) browser.Descriptor[domain.ProgramProject] {
	o := build(opts)
	budget := func(p domain.ProgramProject) float64 { return p.Budget }
	status := func(p domain.ProgramProject) string { return p.Status }
	t := table(o,
		criteria.SortByText("Alphabetical", func(p domain.ProgramProject) string { return p.Name }),
		criteria.SortByDate("Newest", func(p domain.ProgramProject) domain.Date { return p.StartDate }).Descending(),
		criteria.SortByDate("Ending Soonest", func(p domain.ProgramProject) domain.Date { return p.EndDate }),
		criteria.SortByValue("Highest Budget", budget).Descending(),
		criteria.SortByValue("Lowest Budget", budget),
		criteria.StatusIs("Program", func(p domain.ProgramProject) string { return p.Type }, "Program"),
		criteria.StatusIs("Project", func(p domain.ProgramProject) string { return p.Type }, "Project"),
		criteria.StatusIs("Planned", status, "Planned"),
		criteria.StatusIs("Ongoing", status, "Ongoing"),
		criteria.StatusIs("Completed", status, "Completed"),
	)
	return browser.Descriptor[domain.ProgramProject]{
		Type:       domain.EntityProgramProject,
		Title:      "Programs & Projects",
		Collection: "programproject",
		Singular:   "programproject",
		Columns:    []string{"ID", "Name", "Type", "Implementor", "Budget", "StartDate", "EndDate", "Status"},
		Criteria:   t,
		Haystack: func(p domain.ProgramProject) string {
			return search.Haystack(p.Name, p.Implementor)
		},
		Summary: func(rows []domain.ProgramProject) []browser.Metric {
			return append([]browser.Metric{total(rows), {Label: "Total Budget", Value: amount(o, sum(rows, budget))}},
				tally(t, rows, "Ongoing", "Completed")...)
		},
	}
}
