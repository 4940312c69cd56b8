// Package domain defines the civic record types managed by the desk client,
// the canonical date representation, and client-side validation.
package domain

// EntityType identifies one record kind with its own endpoint and schema.
type EntityType string

// Supported entity types.
const (
	// EntityResident identifies a registered resident.
	EntityResident EntityType = "resident"
	// EntityYouth identifies a youth profile.
	EntityYouth EntityType = "youth"
	// EntityIncome identifies an income ledger entry.
	EntityIncome EntityType = "income"
	// EntityExpense identifies an expense ledger entry.
	EntityExpense EntityType = "expense"
	// EntityBlotter identifies a blotter (incident) report.
	EntityBlotter EntityType = "blotter"
	// EntityCertificate identifies an issued certificate.
	EntityCertificate EntityType = "certificate"
	// EntityGovDoc identifies an ordinance, resolution or similar document.
	EntityGovDoc EntityType = "govdoc"
	// EntityLogbook identifies a visitor/event logbook entry.
	EntityLogbook EntityType = "logbook"
	// EntityProgramProject identifies a program or project.
	EntityProgramProject EntityType = "programproject"
	// EntityHousehold identifies a household.
	EntityHousehold EntityType = "household"
	// EntityOfficial identifies an elected or appointed official.
	EntityOfficial EntityType = "official"
	// EntitySettings identifies the office settings record.
	EntitySettings EntityType = "settings"
)

// Record is implemented by every entity. The ID is assigned by the remote store and
// is the only join key the client uses for edits and deletes.
type Record interface {
	RecordID() int64
}

// Resident is a person registered in the community.
type Resident struct {
	ID            int64   `json:"ID"`
	Firstname     string  `json:"Firstname"`
	Middlename    string  `json:"Middlename"`
	Lastname      string  `json:"Lastname"`
	Suffix        string  `json:"Suffix"`
	Sex           string  `json:"Sex"`
	Birthdate     Date    `json:"Birthdate"`
	CivilStatus   string  `json:"CivilStatus"`
	Occupation    string  `json:"Occupation"`
	Purok         string  `json:"Purok"`
	HouseholdID   *int64  `json:"HouseholdID"`
	IsVoter       bool    `json:"IsVoter"`
	IsPWD         bool    `json:"IsPWD"`
	Status        string  `json:"Status"`
	MonthlyIncome float64 `json:"MonthlyIncome"`
}

// Youth is a youth profile kept for the youth council.
type Youth struct {
	ID                int64  `json:"ID"`
	Firstname         string `json:"Firstname"`
	Middlename        string `json:"Middlename"`
	Lastname          string `json:"Lastname"`
	Suffix            string `json:"Suffix"`
	Sex               string `json:"Sex"`
	Birthdate         Date   `json:"Birthdate"`
	Purok             string `json:"Purok"`
	Education         string `json:"Education"`
	InSchoolYouth     bool   `json:"InSchoolYouth"`
	OutOfSchoolYouth  bool   `json:"OutOfSchoolYouth"`
	WorkingYouth      bool   `json:"WorkingYouth"`
	YouthWithNeeds    bool   `json:"YouthWithNeeds"`
	IsRegisteredVoter bool   `json:"IsRegisteredVoter"`
}

// Income is a receipt in the treasury ledger.
type Income struct {
	ID           int64   `json:"ID"`
	Type         string  `json:"Type"`
	Amount       float64 `json:"Amount"`
	ReceivedFrom string  `json:"ReceivedFrom"`
	ReceivedBy   string  `json:"ReceivedBy"`
	ORNumber     string  `json:"ORNumber"`
	DateReceived Date    `json:"DateReceived"`
}

// Expense is a disbursement in the treasury ledger.
type Expense struct {
	ID          int64   `json:"ID"`
	Type        string  `json:"Type"`
	Amount      float64 `json:"Amount"`
	Payee       string  `json:"Payee"`
	Description string  `json:"Description"`
	DateIssued  Date    `json:"DateIssued"`
}

// Blotter is an incident report.
type Blotter struct {
	ID           int64  `json:"ID"`
	Complainant  string `json:"Complainant"`
	Respondent   string `json:"Respondent"`
	Incident     string `json:"Incident"`
	Location     string `json:"Location"`
	DateReported Date   `json:"DateReported"`
	Status       string `json:"Status"`
	Narrative    string `json:"Narrative"`
}

// Certificate is a document issued to a resident.
type Certificate struct {
	ID         int64   `json:"ID"`
	Name       string  `json:"Name"`
	Type       string  `json:"Type"`
	Purpose    string  `json:"Purpose"`
	Amount     float64 `json:"Amount"`
	ORNumber   string  `json:"ORNumber"`
	DateIssued Date    `json:"DateIssued"`
	Status     string  `json:"Status"`
}

// GovDoc is an ordinance, resolution, or executive order.
type GovDoc struct {
	ID          int64  `json:"ID"`
	Title       string `json:"Title"`
	Type        string `json:"Type"`
	Description string `json:"Description"`
	DateIssued  Date   `json:"DateIssued"`
	Status      string `json:"Status"`
}

// Logbook is a visitor or event log entry.
type Logbook struct {
	ID      int64  `json:"ID"`
	Name    string `json:"Name"`
	Purpose string `json:"Purpose"`
	Date    Date   `json:"Date"`
	TimeIn  string `json:"TimeIn"`
	TimeOut string `json:"TimeOut"`
	Remarks string `json:"Remarks"`
}

// ProgramProject is a funded program or project.
type ProgramProject struct {
	ID          int64   `json:"ID"`
	Name        string  `json:"Name"`
	Type        string  `json:"Type"`
	Implementor string  `json:"Implementor"`
	Budget      float64 `json:"Budget"`
	StartDate   Date    `json:"StartDate"`
	EndDate     Date    `json:"EndDate"`
	Status      string  `json:"Status"`
}

// Household groups residents living in one dwelling.
type Household struct {
	ID              int64   `json:"ID"`
	HouseholdNumber string  `json:"HouseholdNumber"`
	Head            string  `json:"Head"`
	Purok           string  `json:"Purok"`
	Members         int     `json:"Members"`
	MonthlyIncome   float64 `json:"MonthlyIncome"`
	HousingType     string  `json:"HousingType"`
}

// Official is an elected or appointed officer.
type Official struct {
	ID        int64  `json:"ID"`
	Name      string `json:"Name"`
	Position  string `json:"Position"`
	Contact   string `json:"Contact"`
	TermStart Date   `json:"TermStart"`
	TermEnd   Date   `json:"TermEnd"`
	Status    string `json:"Status"`
}

// Settings holds the office profile shown on printed documents.
type Settings struct {
	ID           int64  `json:"ID"`
	Barangay     string `json:"Barangay"`
	Municipality string `json:"Municipality"`
	Province     string `json:"Province"`
	Captain      string `json:"Captain"`
	Secretary    string `json:"Secretary"`
	Treasurer    string `json:"Treasurer"`
	Contact      string `json:"Contact"`
}

func (r Resident) RecordID() int64       { return r.ID }
func (y Youth) RecordID() int64          { return y.ID }
func (i Income) RecordID() int64         { return i.ID }
func (e Expense) RecordID() int64        { return e.ID }
func (b Blotter) RecordID() int64        { return b.ID }
func (c Certificate) RecordID() int64    { return c.ID }
func (g GovDoc) RecordID() int64         { return g.ID }
func (l Logbook) RecordID() int64        { return l.ID }
func (p ProgramProject) RecordID() int64 { return p.ID }
func (h Household) RecordID() int64      { return h.ID }
func (o Official) RecordID() int64       { return o.ID }
func (s Settings) RecordID() int64       { return s.ID }
