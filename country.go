package main

import "strings"

// countryPrefixes maps callsign prefixes to country names. This is a
// deliberately small built-in table, not a full DXCC database: it covers
// the prefixes that dominate cluster traffic so spots and contacts can be
// tagged without an external lookup.
var countryPrefixes = map[string]string{
	"ON": "Belgium", "F": "France", "K": "USA", "W": "USA", "N": "USA", "A": "USA",
	"G": "England", "M": "England", "2E": "England", "I": "Italy", "DL": "Germany", "EA": "Spain",
	"JA": "Japan", "VK": "Australia", "ZL": "New Zealand", "VE": "Canada", "PY": "Brazil",
	"UA": "Russia", "R": "Russia", "SP": "Poland", "OK": "Czech Rep", "PA": "Netherlands",
	"LX": "Luxembourg", "HB": "Switzerland", "CT": "Portugal", "OE": "Austria", "OH": "Finland",
	"SM": "Sweden", "LA": "Norway", "OZ": "Denmark", "ES": "Estonia", "YL": "Latvia", "LY": "Lithuania",
	"YO": "Romania", "LZ": "Bulgaria", "SV": "Greece", "9A": "Croatia", "S5": "Slovenia", "E7": "Bosnia",
	"YU": "Serbia", "TA": "Turkey", "4X": "Israel", "4Z": "Israel", "CN": "Morocco", "YB": "Indonesia",
	"BY": "China", "BV": "Taiwan", "VR": "Hong Kong", "HL": "South Korea", "HS": "Thailand",
	"DU": "Philippines", "9V": "Singapore", "9M": "Malaysia", "VU": "India", "4S": "Sri Lanka",
	"7X": "Algeria", "SU": "Egypt", "5Z": "Kenya", "CE": "Chile", "CX": "Uruguay", "OA": "Peru",
	"HK": "Colombia", "YV": "Venezuela", "HI": "Dom. Rep", "KP4": "Puerto Rico", "XE": "Mexico",
	"CO": "Cuba", "TF": "Iceland", "EI": "Ireland", "GI": "N. Ireland", "GW": "Wales",
	"GM": "Scotland", "GD": "Isle of Man", "GJ": "Jersey", "GU": "Guernsey", "OY": "Faroe Is.",
	"Z3": "N. Macedonia", "HA": "Hungary", "OM": "Slovakia", "FY": "French Guiana",
	"FM": "Martinique", "FG": "Guadeloupe", "ZB": "Gibraltar", "KH6": "Hawaii", "KH2": "Guam",
	"KP2": "US Virgin Is", "VP9": "Bermuda", "VP5": "Turks & Caicos", "8P": "Barbados",
	"9Y": "Trinidad", "ZF": "Cayman Is", "TG": "Guatemala", "TI": "Costa Rica", "HP": "Panama",
	"HH": "Haiti", "6Y": "Jamaica", "LU": "Argentina", "ZP": "Paraguay", "ZS": "South Africa",
	"9J": "Zambia", "C9": "Mozambique", "5N": "Nigeria", "6W": "Senegal", "9G": "Ghana",
	"5H": "Tanzania", "A4": "Oman", "HZ": "Saudi Arabia", "A6": "UAE", "A7": "Qatar",
	"A9": "Bahrain", "9K": "Kuwait", "OD": "Lebanon", "EP": "Iran", "EK": "Armenia",
	"4J": "Azerbaijan", "4K": "Azerbaijan", "UN": "Kazakhstan", "5B": "Cyprus",
	"P2": "Papua New Guinea", "FO": "French Polynesia", "FK": "New Caledonia",
	"9N": "Nepal", "S2": "Bangladesh", "AP": "Pakistan", "XV": "Vietnam", "XU": "Cambodia",
	"XW": "Laos", "XZ": "Myanmar",
}

// CountryForCallsign resolves a callsign to a country name using the
// longest matching prefix (up to 4 characters). A trailing digit in the
// candidate prefix is dropped before the fallback match, so "DL2ABC" and
// "DL2" both resolve through "DL". Returns "" when no prefix matches.
func CountryForCallsign(callsign string) string {
	if callsign == "" {
		return ""
	}
	c := strings.ToUpper(strings.TrimSpace(callsign))

	for i := 4; i >= 1; i-- {
		if len(c) < i {
			continue
		}
		p := c[:i]
		if name, ok := countryPrefixes[p]; ok {
			return name
		}
		if i > 1 && p[i-1] >= '0' && p[i-1] <= '9' {
			if name, ok := countryPrefixes[p[:i-1]]; ok {
				return name
			}
		}
	}
	return ""
}
