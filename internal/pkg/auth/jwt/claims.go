package jwt

import "github.com/golang-jwt/jwt"

// Payload is the identity carried by relay tokens. Tokens are issued by the
// surrounding account service; the relay only verifies them and uses the
// identity to guard add-user and signout.
type Payload struct {
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the user identifier the token holder may announce on the socket.
	ID string `json:"id"`

	// Name is the display name, used for logging only.
	Name string `json:"name,omitempty"`

	// ProfilePicture is the avatar reference of the token holder.
	ProfilePicture string `json:"profilePicture,omitempty"`
}
