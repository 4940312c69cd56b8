package entities

import (
	"strings"

	"civicdesk/internal/browser"
	"civicdesk/internal/criteria"
	"civicdesk/internal/search"
	"civicdesk/pkg/domain"
)

// Blotter describes incident reports.
func Blotter(opts ...Option) browser.Descriptor[domain.Blotter] {
	o := build(opts)
	reported := func(b domain.Blotter) domain.Date { return b.DateReported }
	status := func(b domain.Blotter) string { return b.Status }
	t := table(o,
		criteria.SortByDate("Newest", reported).Descending(),
		criteria.SortByDate("Oldest", reported),
		criteria.SortByText("Complainant", func(b domain.Blotter) string { return b.Complainant }),
		criteria.StatusIs("Pending", status, "Pending"),
		criteria.StatusIs("Ongoing", status, "Ongoing"),
		criteria.StatusIs("Settled", status, "Settled"),
		criteria.StatusIs("Filed to Action", status, "Filed to Action"),
	)
	return browser.Descriptor[domain.Blotter]{
		Type:       domain.EntityBlotter,
		Title:      "Blotter",
		Collection: "blotter",
		Singular:   "blotter",
		Columns:    []string{"ID", "DateReported", "Complainant", "Respondent", "Incident", "Location", "Status", "Narrative"},
		Criteria:   t,
		Haystack: func(b domain.Blotter) string {
			return search.Haystack(b.Complainant, b.Respondent, b.Incident, b.Location)
		},
		Summary: func(rows []domain.Blotter) []browser.Metric {
			return append([]browser.Metric{total(rows)}, tally(t, rows, "Pending", "Ongoing", "Settled")...)
		},
	}
}

// GovDocs describes ordinances, resolutions and executive orders.
func GovDocs(opts ...Option) browser.Descriptor[domain.GovDoc] {
	o := build(opts)
	issued := func(g domain.GovDoc) domain.Date { return g.DateIssued }
	kind := func(g domain.GovDoc) string { return g.Type }
	t := table(o,
		criteria.SortByDate("Newest", issued).Descending(),
		criteria.SortByDate("Oldest", issued),
		criteria.SortByText("Alphabetical", func(g domain.GovDoc) string { return g.Title }),
		criteria.StatusIs("Ordinance", kind, "Ordinance"),
		criteria.StatusIs("Resolution", kind, "Resolution"),
		criteria.StatusIs("Executive Order", kind, "Executive Order"),
	)
	return browser.Descriptor[domain.GovDoc]{
		Type:       domain.EntityGovDoc,
		Title:      "Government Documents",
		Collection: "govdoc",
		Singular:   "govdoc",
		Columns:    []string{"ID", "DateIssued", "Title", "Type", "Description", "Status"},
		Criteria:   t,
		Haystack: func(g domain.GovDoc) string {
			return search.Haystack(g.Title, g.Description)
		},
		Summary: func(rows []domain.GovDoc) []browser.Metric {
			return append([]browser.Metric{total(rows)}, tally(t, rows, "Ordinance", "Resolution", "Executive Order")...)
		},
	}
}

// Logbook describes the visitor and event log.
func Logbook(opts ...Option) browser.Descriptor[domain.Logbook] {
	o := build(opts)
	day := func(l domain.Logbook) domain.Date { return l.Date }
	t := table(o,
		criteria.SortByDate("Newest", day).Descending(),
		criteria.SortByDate("Oldest", day),
		criteria.SortByText("Alphabetical", func(l domain.Logbook) string { return l.Name }),
		criteria.Where("Today", func(env *criteria.Env, l domain.Logbook) bool {
			return !l.Date.IsZero() && l.Date.Equal(domain.DateOf(env.Now))
		}),
		criteria.Where("Still In", func(_ *criteria.Env, l domain.Logbook) bool {
			return strings.TrimSpace(l.TimeIn) != "" && strings.TrimSpace(l.TimeOut) == ""
		}),
	)
	return browser.Descriptor[domain.Logbook]{
		Type:       domain.EntityLogbook,
		Title:      "Logbook",
		Collection: "logbook",
		Singular:   "logbook",
		Columns:    []string{"ID", "Date", "Name", "Purpose", "TimeIn", "TimeOut", "Remarks"},
		Criteria:   t,
		Haystack: func(l domain.Logbook) string {
			return search.Haystack(l.Name, l.Purpose)
		},
		Summary: func(rows []domain.Logbook) []browser.Metric {
			return append([]browser.Metric{total(rows)}, tally(t, rows, "Today", "Still In")...)
		},
	}
}

// Settings describes the office profile. It is normally a single record, so
// it carries no criteria or summary.
func Settings(opts ...Option) browser.Descriptor[domain.Settings] {
	o := build(opts)
	return browser.Descriptor[domain.Settings]{
		Type:       domain.EntitySettings,
		Title:      "Settings",
		Collection: "settings",
		Singular:   "settings",
		Columns:    []string{"ID", "Barangay", "Municipality", "Province", "Captain", "Secretary", "Treasurer", "Contact"},
		Criteria:   table[domain.Settings](o),
		Haystack: func(s domain.Settings) string {
			return search.Haystack(s.Barangay, s.Municipality, s.Province)
		},
	}
}
