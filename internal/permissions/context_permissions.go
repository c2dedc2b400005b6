package permissions

import (
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
)

// PermissionType names a decision a parent resolver can hand down to its children
type PermissionType string

const (
	SeeAccountLegalName          PermissionType = "SEE_ACCOUNT_LEGAL_NAME"
	SeeAccountPrivateProfileInfo PermissionType = "SEE_ACCOUNT_PRIVATE_PROFILE_INFO"
	SeeAccountLocation           PermissionType = "SEE_ACCOUNT_LOCATION"
	SeePayoutMethodDetails       PermissionType = "SEE_PAYOUT_METHOD_DETAILS"
	SeeIncognitoAccountDetails   PermissionType = "SEE_INCOGNITO_ACCOUNT_DETAILS"
)

// AllowContextPermission records a grant for subjectID. value defaults to true.
func AllowContextPermission(rc *reqctx.RequestContext, permission PermissionType, subjectID int64, value ...bool) {
	granted := true
	if len(value) > 0 {
		granted = value[0]
	}
	rc.SetGrant(reqctx.GrantKey{Permission: string(permission), SubjectID: subjectID}, granted)
}

// GetContextPermission reads a grant. known is false when nothing was recorded, in
// which case the caller must evaluate the underlying predicate itself.
func GetContextPermission(rc *reqctx.RequestContext, permission PermissionType, subjectID int64) (granted bool, known bool) {
	return rc.Grant(reqctx.GrantKey{Permission: string(permission), SubjectID: subjectID})
}

// hasContextPermission is the common "grant or fall back" read
func hasContextPermission(rc *reqctx.RequestContext, permission PermissionType, subjectID int64, fallback func() (bool, error)) (bool, error) {
	if granted, known := GetContextPermission(rc, permission, subjectID); known {
		return granted, nil
	}
	return fallback()
}
