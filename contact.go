package main

// Source identifies the ingestion feed that produced a contact record.
type Source string

const (
	SourceManual Source = "manual"
	SourceWSJTX  Source = "cat-udp-binary"
	SourceADIF   Source = "adif-broadcast"
	SourceImport Source = "import"
)

// ConfirmStatus is the per-system QSL confirmation state of a logged contact.
type ConfirmStatus string

const (
	ConfirmPending       ConfirmStatus = "pending"
	ConfirmConfirmed     ConfirmStatus = "confirmed"
	ConfirmNotApplicable ConfirmStatus = "n/a"
)

// ConfirmSystem names one of the four QSL confirmation services tracked
// per contact.
type ConfirmSystem string

const (
	ConfirmQRZ     ConfirmSystem = "qrz"
	ConfirmEQSL    ConfirmSystem = "eqsl"
	ConfirmLoTW    ConfirmSystem = "lotw"
	ConfirmClubLog ConfirmSystem = "clublog"
)

// ContactCandidate is a contact report produced by a feed (or manual entry)
// before it has passed through the ingestion coordinator. Same shape as a
// stored record minus storage identity and confirmation state.
type ContactCandidate struct {
	Date     string // UTC date, YYYY-MM-DD
	TimeOn   string // UTC time, HH:MM
	Callsign string
	Band     string // derived bucket, e.g. "20m"; filled from Freq when empty
	Mode     string
	RSTSent  string
	RSTRcvd  string
	Name     string
	QTH      string
	Grid     string
	Freq     string // raw frequency text as reported by the feed (Hz or MHz)
	Distance string // great-circle km from the station grid, when known
	Comment  string
	Source   Source
}

// ContactRecord is the unit of truth for a logged QSO. Created only by the
// ingestion coordinator; confirmation statuses are the only fields mutated
// after creation.
type ContactRecord struct {
	ID int64
	ContactCandidate
	QRZStatus     ConfirmStatus
	EQSLStatus    ConfirmStatus
	LoTWStatus    ConfirmStatus
	ClubLogStatus ConfirmStatus
}

// newRecord wraps a candidate with the default confirmation state.
func newRecord(cand ContactCandidate) *ContactRecord {
	return &ContactRecord{
		ContactCandidate: cand,
		QRZStatus:        ConfirmPending,
		EQSLStatus:       ConfirmPending,
		LoTWStatus:       ConfirmPending,
		ClubLogStatus:    ConfirmPending,
	}
}
