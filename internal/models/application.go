// internal/models/application.go
package models

import "time"

// Application is the root aggregate loaded for one fulfillment run.
type Application struct {
	ID         int64                  `json:"id"`
	Agency     Agency                 `json:"agency"`
	Applicant  Applicant              `json:"applicant"`
	Utility    *UtilityApplication    `json:"utility,omitempty"`
	Wifi       *WifiApplication       `json:"wifi,omitempty"`
	CreditCard *CreditCardApplication `json:"creditCard,omitempty"`
}

type Agency struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Accounts []AgencyAccount `json:"accounts"`
}

type AgencyAccount struct {
	ID               int64  `json:"id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	IsRepresentative bool   `json:"isRepresentative"`
}

type Applicant struct {
	ID                  int64      `json:"id"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	FirstNameKana       string     `json:"firstNameKana"`
	LastNameKana        string     `json:"lastNameKana"`
	Birthdate           *time.Time `json:"birthdate,omitempty"`
	Nationality         string     `json:"nationality"`
	Email               string     `json:"email"`
	PhoneNumber         string     `json:"phoneNumber"`
	DesiredLanguageCode string     `json:"desiredLanguageCode"`
	Address             Address    `json:"address"`
}

type Address struct {
	PostalCode    string `json:"postalCode"`
	Prefecture    string `json:"prefecture"`
	City          string `json:"city"`
	AddressDetail string `json:"addressDetail"`
	Building      string `json:"building,omitempty"`
	RoomNumber    string `json:"roomNumber,omitempty"`
}

type UtilityApplication struct {
	ApplicationID     int64         `json:"applicationId"`
	UtilityTypeCode   UtilityType   `json:"utilityTypeCode"`
	ElectricStartDate *time.Time    `json:"electricStartDate,omitempty"`
	GasStartDate      *time.Time    `json:"gasStartDate,omitempty"`
	GasStartTimeCode  string        `json:"gasStartTimeCode,omitempty"`
	WithWaterSupply   bool          `json:"withWaterSupply"`
	Status            UtilityStatus `json:"status"`
}

type WifiApplication struct {
	ApplicationID int64      `json:"applicationId"`
	VisaFrontURL  string     `json:"visaFrontUrl"`
	VisaBackURL   string     `json:"visaBackUrl"`
	VisaName      string     `json:"visaName"`
	VisaExpDate   *time.Time `json:"visaExpDate,omitempty"`
	ContactDay    string     `json:"contactDay,omitempty"`
	Status        WifiStatus `json:"status"`
}

type CreditCardApplication struct {
	ApplicationID int64  `json:"applicationId"`
	Status        string `json:"status"`
}

// RepresentativeAccount returns the first account flagged as representative,
// falling back to the first account. Nil when the agency has no accounts.
func (a Agency) RepresentativeAccount() *AgencyAccount {
	for i := range a.Accounts {
		if a.Accounts[i].IsRepresentative {
			return &a.Accounts[i]
		}
	}
	if len(a.Accounts) > 0 {
		return &a.Accounts[0]
	}
	return nil
}

// DisplayName joins the non-empty parts of last and first name with a single space.
func (a *AgencyAccount) DisplayName() string {
	if a == nil {
		return ""
	}
	return joinNonEmpty(a.LastName, a.FirstName)
}

// FullName renders the applicant as "first last", the order used in customer-facing mail.
func (a Applicant) FullName() string {
	return a.FirstName + " " + a.LastName
}

// BuildingName joins building and room number with a single space, skipping empty parts.
func (a Address) BuildingName() string {
	return joinNonEmpty(a.Building, a.RoomNumber)
}
