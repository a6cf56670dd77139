package session

// User is the profile snapshot captured at login. It is not re-fetched automatically.
type User struct {
	ID          int64  `json:"id"`     // Account identifier on the remote service
	DisplayName string `json:"nombre"` // Name shown in the storefront navigation
	Email       string `json:"correo"` // Login email
}

// DefaultUser is used when a successful response omits the profile.
var DefaultUser = User{DisplayName: "Usuario"}

// Session is the authenticated context: the two tokens plus the user snapshot.
type Session struct {
	// AccessToken is the short-lived bearer credential. Present iff authenticated.
	AccessToken string `json:"accessToken"`

	// RefreshToken identifies this device on the server; it is what a
	// single-device logout revokes.
	RefreshToken string `json:"refreshToken"`

	User User `json:"user"`
}

// IsZero reports whether the session carries no access token.
func (s Session) IsZero() bool {
	return s.AccessToken == ""
}
