package automation

import (
	"time"

	"fulfillment-workers/internal/models"
)

// FormParams is the payload of the application form script.
type FormParams struct {
	LastName          string   `json:"lastName"`
	FirstName         string   `json:"firstName"`
	LastNameKana      string   `json:"lastNameKana"`
	FirstNameKana     string   `json:"firstNameKana"`
	Birthdate         string   `json:"birthdate"`
	Email             string   `json:"email" validate:"required,email"`
	PhoneNumber       string   `json:"phoneNumber"`
	PostalCode        string   `json:"postalCode" validate:"len=7"`
	Prefecture        string   `json:"prefecture"`
	City              string   `json:"city"`
	Address           string   `json:"address"`
	Building          *string  `json:"building"`
	RoomNumber        *string  `json:"roomNumber"`
	ElectricStartDate *string  `json:"electricStartDate"`
	DesiredContacts   []string `json:"desiredContacts" validate:"dive,oneof=electric gas water"`
	GasStartDate      *string  `json:"gasStartDate"`
	GasStartTime      *string  `json:"gasStartTime" validate:"omitempty,oneof=9am-12pm 1pm-3pm 3pm-5pm 5pm-7pm"`
}

// DesiredContacts lists the utilities the partner should set up.
func DesiredContacts(u *models.UtilityApplication) []string {
	var contacts []string
	switch u.UtilityTypeCode {
	case models.UtilityTypeElectric:
		contacts = []string{"electric"}
	case models.UtilityTypeGas:
		contacts = []string{"gas"}
	default:
		contacts = []string{"electric", "gas"}
	}
	if u.WithWaterSupply {
		contacts = append(contacts, "water")
	}
	return contacts
}

// BuildFormParams maps the application and its utility sub-record onto the form payload.
func BuildFormParams(app *models.Application, u *models.UtilityApplication) FormParams {
	a := app.Applicant
	return FormParams{
		LastName:          a.LastName,
		FirstName:         a.FirstName,
		LastNameKana:      a.LastNameKana,
		FirstNameKana:     a.FirstNameKana,
		Birthdate:         formatDate(a.Birthdate),
		Email:             a.Email,
		PhoneNumber:       a.PhoneNumber,
		PostalCode:        a.Address.PostalCode,
		Prefecture:        a.Address.Prefecture,
		City:              a.Address.City,
		Address:           a.Address.AddressDetail,
		Building:          optional(a.Address.Building),
		RoomNumber:        optional(a.Address.RoomNumber),
		ElectricStartDate: optionalDate(u.ElectricStartDate),
		DesiredContacts:   DesiredContacts(u),
		GasStartDate:      optionalDate(u.GasStartDate),
		GasStartTime:      optional(u.GasStartTimeCode),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
