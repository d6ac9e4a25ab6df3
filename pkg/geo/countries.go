// Package geo provides country reference data and map-projection geometry
// for the dashboard.
package geo

import "github.com/hervehildenbrand/threatmap/pkg/models"

// builtinCountries maps ISO-2 codes to display names and centroids. It covers
// the countries that show up in practice on the threat feeds; a CSV file or
// database table can replace or extend it at startup.
var builtinCountries = map[string]models.Country{
	"AE": {Code: "AE", Name: "United Arab Emirates", Latitude: 23.42, Longitude: 53.85},
	"AR": {Code: "AR", Name: "Argentina", Latitude: -38.42, Longitude: -63.62},
	"AT": {Code: "AT", Name: "Austria", Latitude: 47.52, Longitude: 14.55},
	"AU": {Code: "AU", Name: "Australia", Latitude: -25.27, Longitude: 133.78},
	"BD": {Code: "BD", Name: "Bangladesh", Latitude: 23.68, Longitude: 90.36},
	"BE": {Code: "BE", Name: "Belgium", Latitude: 50.50, Longitude: 4.47},
	"BG": {Code: "BG", Name: "Bulgaria", Latitude: 42.73, Longitude: 25.49},
	"BR": {Code: "BR", Name: "Brazil", Latitude: -14.24, Longitude: -51.93},
	"CA": {Code: "CA", Name: "Canada", Latitude: 56.13, Longitude: -106.35},
	"CH": {Code: "CH", Name: "Switzerland", Latitude: 46.82, Longitude: 8.23},
	"CL": {Code: "CL", Name: "Chile", Latitude: -35.68, Longitude: -71.54},
	"CN": {Code: "CN", Name: "China", Latitude: 35.86, Longitude: 104.20},
	"CO": {Code: "CO", Name: "Colombia", Latitude: 4.57, Longitude: -74.30},
	"CZ": {Code: "CZ", Name: "Czechia", Latitude: 49.82, Longitude: 15.47},
	"DE": {Code: "DE", Name: "Germany", Latitude: 51.17, Longitude: 10.45},
	"DK": {Code: "DK", Name: "Denmark", Latitude: 56.26, Longitude: 9.50},
	"EG": {Code: "EG", Name: "Egypt", Latitude: 26.82, Longitude: 30.80},
	"ES": {Code: "ES", Name: "Spain", Latitude: 40.46, Longitude: -3.75},
	"FI": {Code: "FI", Name: "Finland", Latitude: 61.92, Longitude: 25.75},
	"FJ": {Code: "FJ", Name: "Fiji", Latitude: -17.71, Longitude: 178.07},
	"FR": {Code: "FR", Name: "France", Latitude: 46.23, Longitude: 2.21},
	"GB": {Code: "GB", Name: "United Kingdom", Latitude: 55.38, Longitude: -3.44},
	"GR": {Code: "GR", Name: "Greece", Latitude: 39.07, Longitude: 21.82},
	"HK": {Code: "HK", Name: "Hong Kong", Latitude: 22.40, Longitude: 114.11},
	"HU": {Code: "HU", Name: "Hungary", Latitude: 47.16, Longitude: 19.50},
	"ID": {Code: "ID", Name: "Indonesia", Latitude: -0.79, Longitude: 113.92},
	"IE": {Code: "IE", Name: "Ireland", Latitude: 53.41, Longitude: -8.24},
	"IL": {Code: "IL", Name: "Israel", Latitude: 31.05, Longitude: 34.85},
	"IN": {Code: "IN", Name: "India", Latitude: 20.59, Longitude: 78.96},
	"IQ": {Code: "IQ", Name: "Iraq", Latitude: 33.22, Longitude: 43.68},
	"IR": {Code: "IR", Name: "Iran", Latitude: 32.43, Longitude: 53.69},
	"IT": {Code: "IT", Name: "Italy", Latitude: 41.87, Longitude: 12.57},
	"JP": {Code: "JP", Name: "Japan", Latitude: 36.20, Longitude: 138.25},
	"KE": {Code: "KE", Name: "Kenya", Latitude: -0.02, Longitude: 37.91},
	"KP": {Code: "KP", Name: "North Korea", Latitude: 40.34, Longitude: 127.51},
	"KR": {Code: "KR", Name: "South Korea", Latitude: 35.91, Longitude: 127.77},
	"KZ": {Code: "KZ", Name: "Kazakhstan", Latitude: 48.02, Longitude: 66.92},
	"MA": {Code: "MA", Name: "Morocco", Latitude: 31.79, Longitude: -7.09},
	"MX": {Code: "MX", Name: "Mexico", Latitude: 23.63, Longitude: -102.55},
	"MY": {Code: "MY", Name: "Malaysia", Latitude: 4.21, Longitude: 101.98},
	"NG": {Code: "NG", Name: "Nigeria", Latitude: 9.08, Longitude: 8.68},
	"NL": {Code: "NL", Name: "Netherlands", Latitude: 52.13, Longitude: 5.29},
	"NO": {Code: "NO", Name: "Norway", Latitude: 60.47, Longitude: 8.47},
	"NZ": {Code: "NZ", Name: "New Zealand", Latitude: -40.90, Longitude: 174.89},
	"PE": {Code: "PE", Name: "Peru", Latitude: -9.19, Longitude: -75.02},
	"PH": {Code: "PH", Name: "Philippines", Latitude: 12.88, Longitude: 121.77},
	"PK": {Code: "PK", Name: "Pakistan", Latitude: 30.38, Longitude: 69.35},
	"PL": {Code: "PL", Name: "Poland", Latitude: 51.92, Longitude: 19.15},
	"PT": {Code: "PT", Name: "Portugal", Latitude: 39.40, Longitude: -8.22},
	"RO": {Code: "RO", Name: "Romania", Latitude: 45.94, Longitude: 24.97},
	"RS": {Code: "RS", Name: "Serbia", Latitude: 44.02, Longitude: 21.01},
	"RU": {Code: "RU", Name: "Russia", Latitude: 61.52, Longitude: 105.32},
	"SA": {Code: "SA", Name: "Saudi Arabia", Latitude: 23.89, Longitude: 45.08},
	"SE": {Code: "SE", Name: "Sweden", Latitude: 60.13, Longitude: 18.64},
	"SG": {Code: "SG", Name: "Singapore", Latitude: 1.35, Longitude: 103.82},
	"TH": {Code: "TH", Name: "Thailand", Latitude: 15.87, Longitude: 100.99},
	"TR": {Code: "TR", Name: "Turkey", Latitude: 38.96, Longitude: 35.24},
	"TW": {Code: "TW", Name: "Taiwan", Latitude: 23.70, Longitude: 120.96},
	"UA": {Code: "UA", Name: "Ukraine", Latitude: 48.38, Longitude: 31.17},
	"US": {Code: "US", Name: "United States", Latitude: 37.09, Longitude: -95.71},
	"VE": {Code: "VE", Name: "Venezuela", Latitude: 6.42, Longitude: -66.59},
	"VN": {Code: "VN", Name: "Vietnam", Latitude: 14.06, Longitude: 108.28},
	"ZA": {Code: "ZA", Name: "South Africa", Latitude: -30.56, Longitude: 22.94},
}
