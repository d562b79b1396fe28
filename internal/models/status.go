// internal/models/status.go
package models

import "strings"

type UtilityType string

const (
	UtilityTypeElectric UtilityType = "electric"
	UtilityTypeGas      UtilityType = "gas"
	UtilityTypeBoth     UtilityType = "both"
)

type UtilityStatus string

const (
	UtilityStatusNotHandle                   UtilityStatus = "not_handle"
	UtilityStatusAgreementEmailSentNotAgreed UtilityStatus = "agreement_email_sent_not_agreed"
	UtilityStatusAgreementEmailSentFailed    UtilityStatus = "agreement_email_sent_failed"
	UtilityStatusApplicationFormCompleted    UtilityStatus = "application_form_completed"
	UtilityStatusApplicationFormFailed       UtilityStatus = "application_form_failed"
)

type WifiStatus string

const (
	WifiStatusNotHandle                WifiStatus = "not_handle"
	WifiStatusApplicationFormCompleted WifiStatus = "application_form_completed"
	WifiStatusApplicationFormFailed    WifiStatus = "application_form_failed"
)

// utilityPredecessors lists, for every reachable utility status, the statuses it may be entered from.
var utilityPredecessors = map[UtilityStatus][]UtilityStatus{
	UtilityStatusAgreementEmailSentNotAgreed: {UtilityStatusNotHandle},
	UtilityStatusAgreementEmailSentFailed:    {UtilityStatusNotHandle},
	UtilityStatusApplicationFormCompleted:    {UtilityStatusAgreementEmailSentNotAgreed},
	UtilityStatusApplicationFormFailed:       {UtilityStatusAgreementEmailSentNotAgreed},
}

var wifiPredecessors = map[WifiStatus][]WifiStatus{
	WifiStatusApplicationFormCompleted: {WifiStatusNotHandle},
	WifiStatusApplicationFormFailed:    {WifiStatusNotHandle},
}

// UtilityPredecessors returns the statuses a utility track may move to next from.
func UtilityPredecessors(next UtilityStatus) []UtilityStatus {
	return utilityPredecessors[next]
}

func WifiPredecessors(next WifiStatus) []WifiStatus {
	return wifiPredecessors[next]
}

func CanTransitionUtility(from, to UtilityStatus) bool {
	for _, s := range utilityPredecessors[to] {
		if s == from {
			return true
		}
	}
	return false
}

func CanTransitionWifi(from, to WifiStatus) bool {
	for _, s := range wifiPredecessors[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Eligible reports whether the track has not been handled yet.
func (u *UtilityApplication) Eligible() bool {
	return u != nil && u.Status == UtilityStatusNotHandle
}

func (w *WifiApplication) Eligible() bool {
	return w != nil && w.Status == WifiStatusNotHandle
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
