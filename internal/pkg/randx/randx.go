/*
Package randx generates identifiers used by the relay: connection ids, message ids
and object keys for uploaded media.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// Base62Chars defines the character set used for short random tokens.
const Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// ConnIDLength is the length of the random part of a connection id.
const ConnIDLength = 10

// MessageID returns a random UUID identifying a chat message.
func MessageID() uuid.UUID {
	return uuid.New()
}

// ConnID returns a short random identifier for a socket connection.
func ConnID() string {
	token, err := Base62(ConnIDLength)
	if err != nil {
		return uuid.New().String()
	}
	return "c_" + token
}

// Base62 returns n characters drawn from Base62Chars with crypto/rand.
func Base62(n int) (string, error) {
	result := make([]byte, n)
	charset := big.NewInt(int64(len(Base62Chars)))

	for i := range n {
		num, err := rand.Int(rand.Reader, charset)
		if err != nil {
			return "", fmt.Errorf("failed to generate random base62 token: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// MediaKey returns the object key for an upload by owner. ext includes the dot.
func MediaKey(owner, kind, ext string) string {
	return fmt.Sprintf("%s/%s/%s%s", kind, owner, uuid.New().String(), ext)
}
