package quote

// Countries is the fixed set of supported country codes, in display order.
var Countries = []string{"UAE", "KSA", "Oman", "Bahrain", "Jordan", "Egypt", "Qatar", "Kuwait"}

// countryNames maps country codes to the full names the geocoder expects.
var countryNames = map[string]string{
	"UAE":     "United Arab Emirates",
	"KSA":     "Saudi Arabia",
	"Oman":    "Oman",
	"Bahrain": "Bahrain",
	"Jordan":  "Jordan",
	"Egypt":   "Egypt",
	"Qatar":   "Qatar",
	"Kuwait":  "Kuwait",
}

// TruckTypes is the fixed set of truck type names. Matching is exact.
var TruckTypes = []string{
	"Box - 2 Axle 12M", "Flatbed - 2 Axle 12M", "Flatbed - 3 Axle 12M", "Lorry 5 Ton", "Lowbed - 3 Axle 15 M",
	"Box - 2 Axle 13.6M", "Flatbed - 2 Axle 13.6M", "Flatbed - 3 Axle 13.6M", "Lorry 7 Ton", "Lowbed 3 Axle 12.9M",
	"Box - 2 Axle 15M", "Flatbed - 2 Axle 15M", "Flatbed - 3 Axle 15M", "Dyna 5 Ton", "Lowbed 3 Axle 12M",
	"Box - 3 Axle 12M", "Flatbed - 2 Axle 18M", "Flatbed - 3 Axle 18M", "Dyna 7 Ton", "Lowbed 3 Axle 13.6M",
	"Box - 3 Axle 13.6M", "Flatbed - 2 Axle 24M", "Flatbed - 3 Axle 24M", "Side Grill 1 Ton", "Lowbed 3 Axle 14M",
	"Box - 3 Axle 15M", "Flatbed SideGrill - 2 Axle 12M", "Flatbed 13.6M", "Side Grill 10 Ton", "Lowbed 4 Axle 16M",
	"Box 10 Ton", "Flatbed SideGrill - 2 Axle 13.6M", "Flatbed SideGrill - 3 Axle 12M", "Side Grill 3 Ton", "Lowbed 5 Axle 17M",
	"Box 3 Ton", "Flatbed SideGrill - 2 Axle 15M", "Flatbed SideGrill - 3 Axle 13.6M", "Side Grill 4.2 Ton", "Lowbed 8 Axle 16M",
	"Box 4.2 Ton", "Lowbed 2 Axle 12.9M", "Flatbed SideGrill - 3 Axle 15M", "Side Grill 5 Ton", "Reefer 10 Ton",
	"Tipper 12M", "Reefer - 2 Axle 13.6M", "Curtain Side - 3 Axle 13.6M", "Side Grill 7 Ton", "Reefer 3 Ton",
	"Tipper 2 Axle", "Curtain Side - 2 Axle 10 Ton", "Curtain Side - 3 Axle 15M", "Curtain Side - 2 Axle 15M",
	"Tipper 3 Axle", "Curtain Side - 2 Axle 13.6M", "Reefer - 3 Axle 13.6M",
}

var truckTypeSet = func() map[string]bool {
	m := make(map[string]bool, len(TruckTypes))
	for _, t := range TruckTypes {
		m[t] = true
	}
	return m
}()

var foldedCountryNames = func() map[string]string {
	m := make(map[string]string, len(countryNames))
	for code, name := range countryNames {
		m[Fold(code)] = name
	}
	return m
}()

// CountryName returns the full name for a country code, matched
// case-insensitively. Unknown codes pass through unchanged.
func CountryName(code string) string {
	if name, ok := foldedCountryNames[Fold(code)]; ok {
		return name
	}
	return code
}

// IsCountry reports whether code is a supported country code (exact match).
func IsCountry(code string) bool {
	_, ok := countryNames[code]
	return ok
}

// IsTruckType reports whether name is one of TruckTypes (exact match).
func IsTruckType(name string) bool {
	return truckTypeSet[name]
}
