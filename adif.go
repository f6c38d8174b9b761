package main

import (
	"regexp"
	"strings"
	"time"
)

// adifEOR splits a blob into records on the end-of-record marker.
var adifEOR = regexp.MustCompile(`(?i)<EOR>`)

// adifFields holds one pre-compiled matcher per field of interest. The
// pattern tolerates an optional one-letter type indicator after the
// length (<TAG:len:T>value). The declared length is advisory only: the
// value is taken verbatim up to the next angle bracket, so a wrong length
// does not corrupt the parse.
var adifFields = map[string]*regexp.Regexp{}

func init() {
	for _, tag := range []string{
		"CALL", "QSO_DATE", "TIME_ON", "BAND", "MODE", "RST_SENT",
		"RST_RCVD", "GRIDSQUARE", "NAME", "QTH", "FREQ", "COMMENT",
	} {
		adifFields[tag] = regexp.MustCompile(`(?i)<` + tag + `:\d+(?::[A-Za-z])?>([^<]+)`)
	}
}

func adifField(record, tag string) string {
	re, ok := adifFields[tag]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(record)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ParseADIF extracts contact candidates from an ADIF-like text blob. The
// blob may contain any number of records separated by <EOR> markers; a
// record without a CALL field is skipped, as is any individual field that
// does not match the expected shape. Date and time are reformatted from
// the compact ADIF forms and default to now (UTC) when absent; band falls
// back to the FREQ-derived bucket. The parser never fails: worst case it
// returns no candidates.
func ParseADIF(text string, now time.Time) []ContactCandidate {
	var out []ContactCandidate

	for _, record := range adifEOR.Split(text, -1) {
		if !strings.Contains(strings.ToUpper(record), "<CALL:") {
			continue
		}
		call := strings.ToUpper(adifField(record, "CALL"))
		if call == "" {
			continue
		}

		nowUTC := now.UTC()

		date := nowUTC.Format("2006-01-02")
		if d := adifField(record, "QSO_DATE"); len(d) == 8 {
			date = d[:4] + "-" + d[4:6] + "-" + d[6:]
		}

		timeOn := nowUTC.Format("15:04")
		if t := adifField(record, "TIME_ON"); len(t) >= 4 {
			timeOn = t[:2] + ":" + t[2:4]
		}

		freq := adifField(record, "FREQ")
		band := strings.ToLower(adifField(record, "BAND"))
		if band == "" {
			band = FreqToBand(freq)
		}

		mode := adifField(record, "MODE")
		if mode == "" {
			mode = "FT8"
		}
		rstSent := adifField(record, "RST_SENT")
		if rstSent == "" {
			rstSent = "-59"
		}
		rstRcvd := adifField(record, "RST_RCVD")
		if rstRcvd == "" {
			rstRcvd = "-59"
		}

		out = append(out, ContactCandidate{
			Date:     date,
			TimeOn:   timeOn,
			Callsign: call,
			Band:     band,
			Mode:     mode,
			RSTSent:  rstSent,
			RSTRcvd:  rstRcvd,
			Name:     adifField(record, "NAME"),
			QTH:      adifField(record, "QTH"),
			Grid:     adifField(record, "GRIDSQUARE"),
			Freq:     freq,
			Comment:  adifField(record, "COMMENT"),
		})
	}

	return out
}
