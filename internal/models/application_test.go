package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgency_RepresentativeAccount(t *testing.T) {
	tests := []struct {
		name     string
		accounts []AgencyAccount
		wantID   int64
		wantNil  bool
	}{
		{
			name: "flagged representative wins",
			accounts: []AgencyAccount{
				{ID: 1, LastName: "佐藤"},
				{ID: 2, LastName: "鈴木", IsRepresentative: true},
			},
			wantID: 2,
		},
		{
			name: "falls back to first account",
			accounts: []AgencyAccount{
				{ID: 5, LastName: "田中"},
				{ID: 6, LastName: "高橋"},
			},
			wantID: 5,
		},
		{
			name:    "no accounts",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Agency{Accounts: tt.accounts}.RepresentativeAccount()
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}

func TestAgencyAccount_DisplayName(t *testing.T) {
	assert.Equal(t, "山田 太郎", (&AgencyAccount{LastName: "山田", FirstName: "太郎"}).DisplayName())
	assert.Equal(t, "山田", (&AgencyAccount{LastName: "山田"}).DisplayName())
	assert.Equal(t, "太郎", (&AgencyAccount{LastName: "  ", FirstName: "太郎"}).DisplayName())
	assert.Equal(t, "", (*AgencyAccount)(nil).DisplayName())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, CanTransitionUtility(UtilityStatusNotHandle, UtilityStatusAgreementEmailSentNotAgreed))
	assert.True(t, CanTransitionUtility(UtilityStatusNotHandle, UtilityStatusAgreementEmailSentFailed))
	assert.True(t, CanTransitionUtility(UtilityStatusAgreementEmailSentNotAgreed, UtilityStatusApplicationFormCompleted))
	assert.True(t, CanTransitionUtility(UtilityStatusAgreementEmailSentNotAgreed, UtilityStatusApplicationFormFailed))
	assert.False(t, CanTransitionUtility(UtilityStatusNotHandle, UtilityStatusApplicationFormCompleted))
	assert.False(t, CanTransitionUtility(UtilityStatusApplicationFormCompleted, UtilityStatusNotHandle))
	assert.False(t, CanTransitionUtility(UtilityStatusAgreementEmailSentFailed, UtilityStatusApplicationFormFailed))

	assert.True(t, CanTransitionWifi(WifiStatusNotHandle, WifiStatusApplicationFormCompleted))
	assert.True(t, CanTransitionWifi(WifiStatusNotHandle, WifiStatusApplicationFormFailed))
	assert.False(t, CanTransitionWifi(WifiStatusApplicationFormFailed, WifiStatusApplicationFormCompleted))
}

func TestEligible(t *testing.T) {
	var nilUtility *UtilityApplication
	assert.False(t, nilUtility.Eligible())
	assert.True(t, (&UtilityApplication{Status: UtilityStatusNotHandle}).Eligible())
	assert.False(t, (&UtilityApplication{Status: UtilityStatusApplicationFormCompleted}).Eligible())

	var nilWifi *WifiApplication
	assert.False(t, nilWifi.Eligible())
	assert.True(t, (&WifiApplication{Status: WifiStatusNotHandle}).Eligible())
	assert.False(t, (&WifiApplication{Status: WifiStatusApplicationFormFailed}).Eligible())
}

func TestAddress_BuildingName(t *testing.T) {
	assert.Equal(t, "Sunny Heights 301", Address{Building: "Sunny Heights", RoomNumber: "301"}.BuildingName())
	assert.Equal(t, "301", Address{RoomNumber: "301"}.BuildingName())
	assert.Equal(t, "Sunny Heights", Address{Building: "Sunny Heights"}.BuildingName())
	assert.Equal(t, "", Address{}.BuildingName())
}
