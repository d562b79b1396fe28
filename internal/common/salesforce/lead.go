package salesforce

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"

	"fulfillment-workers/internal/models"
)

const dateLayout = "2006-01-02"

// LeadFixedValues are sent with every new lead.
type LeadFixedValues struct {
	Status        string `json:"Status"`
	OwnerID       string `json:"OwnerId"`
	Salutation    string `json:"Salutation"`
	HikariService string `json:"Hikari_Service__c"`
	RecordTypeID  string `json:"RecordTypeId"`
}

var DefaultLeadFixedValues = LeadFixedValues{
	Status:        "アポ前",
	OwnerID:       "0057F000001z74UQAQ",
	Salutation:    "様",
	HikariService: "光回線",
	RecordTypeID:  "012GA000000hznIYAQ",
}

// LeadRecord is the applicant part of a Lead. Dates are YYYY-MM-DD, phone and
// postcode carry no hyphens, and the identity card name is upper case.
type LeadRecord struct {
	LastName  string `json:"LastName"`
	FirstName string `json:"FirstName"`

	MeiKana  string `json:"Hikari_Mei_Kana__c"`
	SeiKana  string `json:"Hikari_Sei_Kana__c"`
	MeiKanji string `json:"Hikari_Mei_Kanji__c"`
	SeiKanji string `json:"Hikari_Sei_Kanji__c"`

	Birthday    string  `json:"Hikari_Birthday__c"`
	Country     string  `json:"Hikari_Country__c"`
	Email       string  `json:"Hikari_Email__c"`
	PhoneNumber string  `json:"Hikari_PhoneNumber__c"`
	Language    *string `json:"Hikari_Language__c"`

	IdentityCardName string  `json:"Hikari_IdentityCardName__c"`
	VisaExpiryDate   *string `json:"Hikari_Visa_ExpiryDate__c"`

	Postcode     string  `json:"Hiraki_Postcode__c"`
	Prefecture   string  `json:"Hiraki_Prefecture__c"`
	City         string  `json:"Hiraki_City__c"`
	StreetNumber string  `json:"Hiraki_Street_Number__c"`
	BuildingName *string `json:"Hiraki_BuildingName__c"`
}

// LeadVisa points a lead at its uploaded identity card images.
type LeadVisa struct {
	IdentityCardImage1 string `json:"Hikari_IdentityCardImage1__c"`
	IdentityCardImage2 string `json:"Hikari_IdentityCardImage2__c"`
}

var leadLanguages = map[string]string{
	"japanese":   "日本語",
	"vietnamese": "Tiếng Việt",
	"chinese":    "中文",
	"english":    "English",
	"korean":     "한국어",
	"taiwan":     "中文",
}

// LeadLanguage maps an applicant language code to the CRM picklist value.
func LeadLanguage(code string) *string {
	if name, ok := leadLanguages[code]; ok {
		return &name
	}
	return nil
}

// BuildLeadRecord maps an application with a wifi sub-record onto Lead fields.
func BuildLeadRecord(app *models.Application) LeadRecord {
	applicant := app.Applicant
	address := applicant.Address

	lead := LeadRecord{
		LastName:     applicant.LastName,
		FirstName:    applicant.FirstName,
		MeiKana:      applicant.FirstNameKana,
		SeiKana:      applicant.LastNameKana,
		MeiKanji:     applicant.FirstName,
		SeiKanji:     applicant.LastName,
		Birthday:     formatDate(applicant.Birthdate),
		Country:      applicant.Nationality,
		Email:        applicant.Email,
		PhoneNumber:  StripHyphens(applicant.PhoneNumber),
		Language:     LeadLanguage(applicant.DesiredLanguageCode),
		Postcode:     StripHyphens(address.PostalCode),
		Prefecture:   address.Prefecture,
		City:         address.City,
		StreetNumber: address.AddressDetail,
	}

	if building := address.BuildingName(); building != "" {
		lead.BuildingName = &building
	}

	if app.Wifi != nil {
		lead.IdentityCardName = UpperName(app.Wifi.VisaName)
		if app.Wifi.VisaExpDate != nil {
			exp := formatDate(app.Wifi.VisaExpDate)
			lead.VisaExpiryDate = &exp
		}
	}

	return lead
}

// StripHyphens folds full-width characters to their narrow form and removes hyphens.
func StripHyphens(s string) string {
	return strings.ReplaceAll(width.Fold.String(s), "-", "")
}

// UpperName is used for the identity card name. Casers are stateful, so one is built per call.
func UpperName(s string) string {
	return cases.Upper(language.Und).String(width.Fold.String(strings.TrimSpace(s)))
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
