package main

import (
	"math"
	"strconv"
	"strings"
)

// FreqToBand converts a raw frequency string to an amateur radio band name.
// Feeds report frequency inconsistently (Hz from the binary protocol, MHz
// from ADIF and the cluster), so anything above 100000 is taken as Hz.
// Unparseable or out-of-band input falls back to "20m".
func FreqToBand(freq string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(freq), 64)
	if err != nil {
		return "20m"
	}
	if f > 100000 {
		f = f / 1000000
	}

	switch {
	case f >= 1.8 && f <= 2.0:
		return "160m"
	case f >= 3.5 && f <= 4.0:
		return "80m"
	case f >= 7.0 && f <= 7.3:
		return "40m"
	case f >= 10.1 && f <= 10.15:
		return "30m"
	case f >= 14.0 && f <= 14.35:
		return "20m"
	case f >= 18.068 && f <= 18.168:
		return "17m"
	case f >= 21.0 && f <= 21.45:
		return "15m"
	case f >= 24.89 && f <= 24.99:
		return "12m"
	case f >= 28.0 && f <= 29.7:
		return "10m"
	case f >= 50.0 && f <= 54.0:
		return "6m"
	default:
		return "20m"
	}
}

// ModeFromFreq guesses the operating mode from the kHz decimals of a
// frequency in MHz. Cluster spots carry no mode, so this is only a display
// heuristic (14.074 is the FT8 watering hole, below the digital segment
// is CW, and so on).
func ModeFromFreq(freq string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(freq), 64)
	if err != nil {
		return "SSB"
	}
	if f > 100000 {
		f = f / 1000000
	}
	// work in whole kHz so 14.074 does not round under the window edge
	khz := int(math.Round(f*1000)) % 1000

	switch {
	case (khz >= 74 && khz <= 76) || (khz >= 174 && khz <= 176):
		return "FT8"
	case khz >= 40 && khz <= 70:
		return "DIG"
	case khz < 40:
		return "CW"
	default:
		return "SSB"
	}
}

// minuteOfDay parses an "HH:MM" time string into minutes since midnight.
func minuteOfDay(hhmm string) (int, bool) {
	if len(hhmm) < 5 || hhmm[2] != ':' {
		return 0, false
	}
	h, err := strconv.Atoi(hhmm[:2])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(hhmm[3:5])
	if err != nil {
		return 0, false
	}
	return h*60 + m, true
}
