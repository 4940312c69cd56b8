package entities

import (
	"civicdesk/internal/browser"
	"civicdesk/internal/criteria"
	"civicdesk/internal/search"
	"civicdesk/pkg/domain"
)

// Residents describes the resident registry.
func Residents(opts ...Option) browser.Descriptor[domain.Resident] {
	o := build(opts)
	birth := func(r domain.Resident) domain.Date { return r.Birthdate }
	t := table(o,
		criteria.SortByText("Alphabetical", func(r domain.Resident) string { return r.Lastname }),
		criteria.SortByDate("Oldest", birth),
		criteria.SortByDate("Youngest", birth).Descending(),
		criteria.SortByText("Purok", func(r domain.Resident) string { return r.Purok }),
		criteria.SortByValue("Highest Income", func(r domain.Resident) float64 { return r.MonthlyIncome }).Descending(),
		criteria.StatusIs("Male", func(r domain.Resident) string { return r.Sex }, "Male"),
		criteria.StatusIs("Female", func(r domain.Resident) string { return r.Sex }, "Female"),
		criteria.AgeBetween("Minor", birth, 0, 17),
		criteria.AgeBetween("Senior Citizen", birth, 60, -1),
		criteria.Flag("Voter", func(r domain.Resident) bool { return r.IsVoter }),
		criteria.Flag("PWD", func(r domain.Resident) bool { return r.IsPWD }),
		criteria.StatusIs("Active", func(r domain.Resident) string { return r.Status }, "Active"),
		criteria.StatusIs("Deceased", func(r domain.Resident) string { return r.Status }, "Deceased"),
		criteria.StatusIs("Moved Out", func(r domain.Resident) string { return r.Status }, "Moved Out"),
	)
	return browser.Descriptor[domain.Resident]{
		Type:       domain.EntityResident,
		Title:      "Residents",
		Collection: "resident",
		Singular:   "resident",
		Columns: []string{"ID", "Lastname", "Firstname", "Middlename", "Suffix", "Sex", "Birthdate",
			"CivilStatus", "Occupation", "Purok", "HouseholdID", "IsVoter", "IsPWD", "Status", "MonthlyIncome"},
		Criteria: t,
		Haystack: func(r domain.Resident) string {
			return search.Haystack(search.FullName(r.Firstname, r.Middlename, r.Lastname, r.Suffix), r.Purok)
		},
		Summary: func(rows []domain.Resident) []browser.Metric {
			return append([]browser.Metric{total(rows)},
				tally(t, rows, "Male", "Female", "Senior Citizen", "Voter", "PWD")...)
		},
	}
}

// Youth describes the youth council profiles.
func Youth(opts ...Option) browser.Descriptor[domain.Youth] {
	o := build(opts)
	birth := func(y domain.Youth) domain.Date { return y.Birthdate }
	t := table(o,
		criteria.SortByText("Alphabetical", func(y domain.Youth) string { return y.Lastname }),
		criteria.SortByDate("Oldest", birth),
		criteria.SortByDate("Youngest", birth).Descending(),
		criteria.StatusIs("Male", func(y domain.Youth) string { return y.Sex }, "Male"),
		criteria.StatusIs("Female", func(y domain.Youth) string { return y.Sex }, "Female"),
		criteria.Flag("In School Youth", func(y domain.Youth) bool { return y.InSchoolYouth }),
		criteria.Flag("Out of School Youth", func(y domain.Youth) bool { return y.OutOfSchoolYouth }),
		criteria.Flag("Working Youth", func(y domain.Youth) bool { return y.WorkingYouth }),
		criteria.Flag("Youth with Specific Needs", func(y domain.Youth) bool { return y.YouthWithNeeds }),
		criteria.Flag("Registered Voter", func(y domain.Youth) bool { return y.IsRegisteredVoter }),
		criteria.AgeBetween("Child Youth (15-17)", birth, 15, 17),
		criteria.AgeBetween("Core Youth (18-24)", birth, 18, 24),
		criteria.AgeBetween("Young Adult (25-30)", birth, 25, 30),
	)
	return browser.Descriptor[domain.Youth]{
		Type:       domain.EntityYouth,
		Title:      "Youth",
		Collection: "youth",
		Singular:   "youth",
		Columns: []string{"ID", "Lastname", "Firstname", "Middlename", "Suffix", "Sex", "Birthdate", "Purok",
			"Education", "InSchoolYouth", "OutOfSchoolYouth", "WorkingYouth", "YouthWithNeeds", "IsRegisteredVoter"},
		Criteria: t,
		Haystack: func(y domain.Youth) string {
			return search.FullName(y.Firstname, y.Middlename, y.Lastname, y.Suffix)
		},
		Summary: func(rows []domain.Youth) []browser.Metric {
			return append([]browser.Metric{total(rows)},
				tally(t, rows, "In School Youth", "Out of School Youth", "Working Youth", "Registered Voter")...)
		},
	}
}

// Households describes the household registry.
func Households(opts ...Option) browser.Descriptor[domain.Household] {
	o := build(opts)
	income := func(h domain.Household) float64 { return h.MonthlyIncome }
	housing := func(h domain.Household) string { return h.HousingType }
	t := table(o,
		criteria.SortByText("Household Number", func(h domain.Household) string { return h.HouseholdNumber }),
		criteria.SortByText("Alphabetical", func(h domain.Household) string { return h.Head }),
		criteria.SortByValue("Most Members", func(h domain.Household) int { return h.Members }).Descending(),
		criteria.SortByValue("Highest Income", income).Descending(),
		criteria.SortByValue("Lowest Income", income),
		criteria.StatusIs("Owned", housing, "Owned"),
		criteria.StatusIs("Rented", housing, "Rented"),
		criteria.StatusIs("Informal Settler", housing, "Informal Settler"),
	)
	return browser.Descriptor[domain.Household]{
		Type:       domain.EntityHousehold,
		Title:      "Households",
		Collection: "household",
		Singular:   "household",
		Columns:    []string{"ID", "HouseholdNumber", "Head", "Purok", "Members", "MonthlyIncome", "HousingType"},
		Criteria:   t,
		Haystack: func(h domain.Household) string {
			return search.Haystack(h.HouseholdNumber, h.Head, h.Purok)
		},
		Summary: func(rows []domain.Household) []browser.Metric {
			members := 0
			for _, h := range rows {
				members += h.Members
			}
			return []browser.Metric{
				total(rows),
				{Label: "Members", Value: count(o, members)},
				{Label: "Monthly Income", Value: amount(o, sum(rows, income))},
			}
		},
	}
}

// Officials describes the roster of officials.
func Officials(opts ...Option) browser.Descriptor[domain.Official] {
	o := build(opts)
	status := func(of domain.Official) string { return of.Status }
	t := table(o,
		criteria.SortByText("Alphabetical", func(of domain.Official) string { return of.Name }),
		criteria.SortByText("Position", func(of domain.Official) string { return of.Position }),
		criteria.SortByDate("Term Ending", func(of domain.Official) domain.Date { return of.TermEnd }),
		criteria.StatusIs("Active", status, "Active"),
		criteria.StatusIs("Inactive", status, "Inactive"),
	)
	return browser.Descriptor[domain.Official]{
		Type:       domain.EntityOfficial,
		Title:      "Officials",
		Collection: "official",
		Singular:   "official",
		Columns:    []string{"ID", "Name", "Position", "Contact", "TermStart", "TermEnd", "Status"},
		Criteria:   t,
		Haystack: func(of domain.Official) string {
			return search.Haystack(of.Name, of.Position)
		},
		Summary: func(rows []domain.Official) []browser.Metric {
			return append([]browser.Metric{total(rows)}, tally(t, rows, "Active")...)
		},
	}
}
