package secret

// Key prefixes per namespace. The formats are stable: other processes read
// the same Redis database, so changing them breaks interoperability.
const (
	emailCodePrefix = "email_code_"
	oauthCodePrefix = "oauth_code_"
	cookiePrefix    = "cookie_code_"
)

// EmailCodeKey builds the store key for a pending email verification code.
func EmailCodeKey(email string) string {
	return emailCodePrefix + email
}

// OAuthCodeKey builds the store key for an OAuth2 exchange code issued to an
// application.
func OAuthCodeKey(appKey, code string) string {
	return oauthCodePrefix + appKey + "_" + code
}

// CookieKey builds the store key for a cookie-based session.
func CookieKey(cookie string) string {
	return cookiePrefix + cookie
}
