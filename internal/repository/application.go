package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/models"
)

// ApplicationRepository loads the aggregate a fulfillment run works on.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Load returns the application with agency, accounts, applicant, address and
// every optional sub-record. A missing application yields APPLICATION_NOT_FOUND.
func (r *ApplicationRepository) Load(ctx context.Context, applicationID int64) (*models.Application, error) {
	app, err := r.loadRoot(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	if app.Agency.Accounts, err = r.loadAccounts(ctx, app.Agency.ID); err != nil {
		return nil, err
	}
	if app.Utility, err = r.loadUtility(ctx, applicationID); err != nil {
		return nil, err
	}
	if app.Wifi, err = r.loadWifi(ctx, applicationID); err != nil {
		return nil, err
	}
	if app.CreditCard, err = r.loadCreditCard(ctx, applicationID); err != nil {
		return nil, err
	}
	return app, nil
}

func (r *ApplicationRepository) loadRoot(ctx context.Context, applicationID int64) (*models.Application, error) {
	var app models.Application
	var birthdate sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT a.id,
		       ag.id, ag.name, COALESCE(ag.email, ''),
		       ap.id, ap.first_name, ap.last_name,
		       COALESCE(ap.first_name_kana, ''), COALESCE(ap.last_name_kana, ''),
		       ap.birthdate, COALESCE(ap.nationality, ''), COALESCE(ap.email, ''),
		       COALESCE(ap.phone_number, ''), COALESCE(ap.desired_language_code, ''),
		       COALESCE(ad.postal_code, ''), COALESCE(ad.prefecture, ''), COALESCE(ad.city, ''),
		       COALESCE(ad.address_detail, ''), COALESCE(ad.building, ''), COALESCE(ad.room_number, '')
		FROM applications a
		JOIN agencies ag ON ag.id = a.agency_id
		JOIN applicants ap ON ap.id = a.applicant_id
		LEFT JOIN addresses ad ON ad.applicant_id = ap.id
		WHERE a.id = $1`, applicationID).Scan(
		&app.ID,
		&app.Agency.ID, &app.Agency.Name, &app.Agency.Email,
		&app.Applicant.ID, &app.Applicant.FirstName, &app.Applicant.LastName,
		&app.Applicant.FirstNameKana, &app.Applicant.LastNameKana,
		&birthdate, &app.Applicant.Nationality, &app.Applicant.Email,
		&app.Applicant.PhoneNumber, &app.Applicant.DesiredLanguageCode,
		&app.Applicant.Address.PostalCode, &app.Applicant.Address.Prefecture, &app.Applicant.Address.City,
		&app.Applicant.Address.AddressDetail, &app.Applicant.Address.Building, &app.Applicant.Address.RoomNumber,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewApplicationNotFoundError(applicationID)
	}
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError("load application", err)
	}

	app.Applicant.Birthdate = nullTime(birthdate)
	return &app, nil
}

func (r *ApplicationRepository) loadAccounts(ctx context.Context, agencyID int64) ([]models.AgencyAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, COALESCE(first_name, ''), COALESCE(last_name, ''), is_representative
		FROM agency_accounts
		WHERE agency_id = $1
		ORDER BY id`, agencyID)
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError("load agency accounts", err)
	}
	defer rows.Close()

	var accounts []models.AgencyAccount
	for rows.Next() {
		var acc models.AgencyAccount
		if err := rows.Scan(&acc.ID, &acc.FirstName, &acc.LastName, &acc.IsRepresentative); err != nil {
			return nil, errors.NewDatabaseQueryFailedError("scan agency account", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseQueryFailedError("iterate agency accounts", err)
	}
	return accounts, nil
}

func (r *ApplicationRepository) loadUtility(ctx context.Context, applicationID int64) (*models.UtilityApplication, error) {
	u := models.UtilityApplication{ApplicationID: applicationID}
	var electric, gas sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT utility_type_code, electric_start_date, gas_start_date,
		       COALESCE(gas_start_time_code, ''), with_water_supply, status
		FROM utility_applications
		WHERE application_id = $1`, applicationID).Scan(
		&u.UtilityTypeCode, &electric, &gas,
		&u.GasStartTimeCode, &u.WithWaterSupply, &u.Status,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError("load utility application", err)
	}

	u.ElectricStartDate = nullTime(electric)
	u.GasStartDate = nullTime(gas)
	return &u, nil
}

func (r *ApplicationRepository) loadWifi(ctx context.Context, applicationID int64) (*models.WifiApplication, error) {
	w := models.WifiApplication{ApplicationID: applicationID}
	var expiry sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(visa_front_url, ''), COALESCE(visa_back_url, ''), COALESCE(visa_name, ''),
		       visa_exp_date, COALESCE(contact_day, ''), status
		FROM wifi_applications
		WHERE application_id = $1`, applicationID).Scan(
		&w.VisaFrontURL, &w.VisaBackURL, &w.VisaName,
		&expiry, &w.ContactDay, &w.Status,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError("load wifi application", err)
	}

	w.VisaExpDate = nullTime(expiry)
	return &w, nil
}

func (r *ApplicationRepository) loadCreditCard(ctx context.Context, applicationID int64) (*models.CreditCardApplication, error) {
	c := models.CreditCardApplication{ApplicationID: applicationID}

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(status, '')
		FROM credit_card_applications
		WHERE application_id = $1`, applicationID).Scan(&c.Status)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseQueryFailedError("load credit card application", err)
	}
	return &c, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
