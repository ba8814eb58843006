package ais

import (
	"fmt"
	"strings"
)

// FormatMMSI renders an MMSI the way it appears on paper: nine digits,
// zero padded.
func FormatMMSI(mmsi uint32) string {
	return fmt.Sprintf("%09d", mmsi)
}

// IsBaseStationMMSI reports whether the MMSI matches the coast-station
// numbering pattern (leading "00"). This is a heuristic signal alongside the
// explicit type 4 report; the two are not equivalent, but either one marks
// the station as a base station.
func IsBaseStationMMSI(mmsi uint32) bool {
	return strings.HasPrefix(FormatMMSI(mmsi), "00")
}

// midCountries maps the three-digit Maritime Identification Digits prefix to
// a flag state. The table covers the commonly observed registries.
var midCountries = map[string]string{
	"201": "Albania", "202": "Andorra", "203": "Austria", "204": "Portugal",
	"205": "Belgium", "206": "Belarus", "207": "Bulgaria", "209": "Cyprus",
	"210": "Cyprus", "211": "Germany", "212": "Cyprus", "213": "Georgia",
	"215": "Malta", "218": "Germany", "219": "Denmark", "220": "Denmark",
	"224": "Spain", "225": "Spain", "226": "France", "227": "France",
	"228": "France", "229": "Malta", "230": "Finland", "231": "Faroe Islands",
	"232": "United Kingdom", "233": "United Kingdom", "234": "United Kingdom",
	"235": "United Kingdom", "236": "Gibraltar", "237": "Greece",
	"238": "Croatia", "239": "Greece", "240": "Greece", "241": "Greece",
	"242": "Morocco", "244": "Netherlands", "245": "Netherlands",
	"246": "Netherlands", "247": "Italy", "248": "Malta", "249": "Malta",
	"250": "Ireland", "251": "Iceland", "253": "Luxembourg", "254": "Monaco",
	"255": "Madeira", "256": "Malta", "257": "Norway", "258": "Norway",
	"259": "Norway", "261": "Poland", "262": "Montenegro", "263": "Portugal",
	"264": "Romania", "265": "Sweden", "266": "Sweden", "267": "Slovakia",
	"269": "Switzerland", "271": "Turkey", "272": "Ukraine",
	"273": "Russian Federation", "275": "Latvia", "276": "Estonia",
	"277": "Lithuania", "278": "Slovenia", "279": "Serbia",
	"303": "Alaska", "308": "Bahamas", "309": "Bahamas", "310": "Bermuda",
	"311": "Bahamas", "316": "Canada", "319": "Cayman Islands",
	"325": "Dominica", "327": "Dominican Republic", "331": "Greenland",
	"338": "United States", "339": "Jamaica", "345": "Mexico",
	"351": "Panama", "352": "Panama", "353": "Panama", "354": "Panama",
	"355": "Panama", "356": "Panama", "357": "Panama",
	"362": "Trinidad and Tobago", "366": "United States",
	"367": "United States", "368": "United States", "369": "United States",
	"370": "Panama", "371": "Panama", "372": "Panama", "373": "Panama",
	"374": "Panama", "375": "Saint Vincent and the Grenadines",
	"376": "Saint Vincent and the Grenadines",
	"377": "Saint Vincent and the Grenadines",
	"378": "British Virgin Islands",
	"403": "Saudi Arabia", "405": "Bangladesh", "408": "Bahrain",
	"412": "China", "413": "China", "414": "China", "416": "Taiwan",
	"417": "Sri Lanka", "419": "India", "422": "Iran", "425": "Iraq",
	"428": "Israel", "431": "Japan", "432": "Japan", "440": "South Korea",
	"441": "South Korea", "445": "North Korea", "447": "Kuwait",
	"450": "Lebanon", "455": "Maldives", "461": "Oman", "463": "Pakistan",
	"466": "Qatar", "468": "Syria", "470": "United Arab Emirates",
	"473": "Yemen", "477": "Hong Kong",
	"503": "Australia", "506": "Myanmar", "508": "Brunei",
	"512": "New Zealand", "514": "Cambodia", "515": "Cambodia",
	"520": "Fiji", "525": "Indonesia", "529": "Kiribati", "533": "Malaysia",
	"538": "Marshall Islands", "540": "New Caledonia", "548": "Philippines",
	"553": "Papua New Guinea", "563": "Singapore", "564": "Singapore",
	"565": "Singapore", "566": "Singapore", "567": "Thailand",
	"574": "Vietnam", "576": "Vanuatu", "577": "Vanuatu",
	"601": "South Africa", "603": "Angola", "605": "Algeria",
	"613": "Cameroon", "617": "Cape Verde", "619": "Ivory Coast",
	"621": "Djibouti", "622": "Egypt", "627": "Ghana", "634": "Kenya",
	"636": "Liberia", "637": "Liberia", "642": "Libya", "645": "Mauritius",
	"647": "Madagascar", "650": "Mozambique", "654": "Mauritania",
	"657": "Nigeria", "659": "Namibia", "662": "Sudan", "663": "Senegal",
	"664": "Seychelles", "666": "Somalia", "667": "Sierra Leone",
	"670": "Chad", "672": "Tunisia", "674": "Tanzania", "675": "Uganda",
	"677": "Tanzania", "678": "Zambia", "679": "Zimbabwe",
}

// Country looks up the flag state for an MMSI from its MID prefix.
func Country(mmsi uint32) string {
	s := FormatMMSI(mmsi)
	if country, ok := midCountries[s[:3]]; ok {
		return country
	}
	return "Unknown"
}
