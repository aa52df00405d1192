package user

// Test-only aliases for the external user_test package.
var (
	PwdMinLenTag     = pwdMinLenTag
	PwdNoSpaceTag    = pwdNoSpaceTag
	PwdNotAllNumTag  = pwdNotAllNumTag
	PwdComplexityTag = pwdComplexityTag
	PwdNoCommonTag   = pwdNoCommonTag
)
