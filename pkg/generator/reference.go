package generator

// CardNetwork pairs the gateway display name with the faker card type
type CardNetwork struct {
	Name      string
	fakerType string
}

var cardNetworks = []CardNetwork{
	{Name: "Visa", fakerType: "visa"},
	{Name: "Mastercard", fakerType: "mastercard"},
	{Name: "AMEX", fakerType: "american-express"},
	{Name: "Discover", fakerType: "discover"},
	{Name: "JCB", fakerType: "jcb"},
}

// Gambling, adult content, pharma, money transfer and similar categories
var highRiskMCCs = []int{7995, 5967, 7273, 5912, 5122, 4214, 6211, 4829, 6051, 5966}

var normalMCCs = []int{5411, 5812, 5813, 5300, 5331, 4511, 7011, 5941, 5999, 5200, 5311, 4111, 4812}

var knownCities = map[string][]string{
	"US": {"New York", "Los Angeles", "Chicago", "Houston", "Miami"},
	"GB": {"London", "Manchester", "Birmingham", "Glasgow"},
	"CA": {"Toronto", "Vancouver", "Montreal", "Calgary"},
	"AU": {"Sydney", "Melbourne", "Brisbane", "Perth"},
	"IN": {"Mumbai", "Delhi", "Bangalore", "Kolkata"},
	"DE": {"Berlin", "Munich", "Frankfurt", "Hamburg"},
	"FR": {"Paris", "Lyon", "Marseille", "Toulouse"},
	"CN": {"Beijing", "Shanghai", "Guangzhou", "Shenzhen"},
	"JP": {"Tokyo", "Osaka", "Yokohama", "Nagoya"},
	"BR": {"Sao Paulo", "Rio de Janeiro", "Brasilia"},
	"MX": {"Mexico City", "Guadalajara", "Monterrey"},
	"RU": {"Moscow", "Saint Petersburg", "Novosibirsk"},
	"ES": {"Madrid", "Barcelona", "Valencia"},
	"IT": {"Rome", "Milan", "Naples"},
	"ZA": {"Johannesburg", "Cape Town", "Durban"},
	"NG": {"Lagos", "Abuja", "Kano"},
	"KE": {"Nairobi", "Mombasa"},
	"AE": {"Dubai", "Abu Dhabi"},
	"NL": {"Amsterdam", "Rotterdam", "The Hague"},
	"SE": {"Stockholm", "Gothenburg", "Malmo"},
}

var currencyByCountry = map[string]string{
	"US": "USD", "GB": "GBP", "CA": "CAD", "AU": "AUD", "SG": "SGD", "JP": "JPY", "CN": "CNY", "IN": "INR",
	"DE": "EUR", "FR": "EUR", "IT": "EUR", "ES": "EUR", "NL": "EUR", "BE": "EUR", "IE": "EUR", "PT": "EUR",
	"AT": "EUR", "FI": "EUR", "GR": "EUR", "BR": "BRL", "MX": "MXN", "RU": "RUB", "ZA": "ZAR", "AE": "AED",
	"KE": "KES", "NG": "NGN", "SE": "SEK", "CH": "CHF", "HK": "HKD",
}

var fallbackCurrencies = []string{"USD", "EUR", "GBP", "AUD"}

var declineCodes = []string{"05", "51", "54", "65"}

// Countries where a driver license is the usual onboarding document
var driverLicenseCountries = map[string]bool{"US": true, "GB": true, "CA": true, "AU": true}

var (
	authChannels    = []string{"Web", "Mobile"}
	paymentChannels = []string{"POS", "Online", "Mobile"}
	cardNotPresent  = []string{"Online", "Mobile"}
)

// locationFor renders a login location, naming a city when the country has one
func locationFor(s *Stream, country string) string {
	if cities, ok := knownCities[country]; ok {
		return Pick(s, cities) + ", " + country
	}
	return country
}

// currencyFor resolves the settlement currency of a merchant country
func currencyFor(s *Stream, country string) string {
	if c, ok := currencyByCountry[country]; ok {
		return c
	}
	return Pick(s, fallbackCurrencies)
}
