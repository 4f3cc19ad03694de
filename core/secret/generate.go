package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
)

const DigitsAlphabet = "0123456789"

// Generate returns n cryptographically random bytes.
func Generate(n int) ([]byte, error) {
	if n < 1 {
		return nil, errors.New("secret length must be positive")
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateString returns n characters drawn uniformly from alphabet.
func GenerateString(alphabet string, n int) (string, error) {
	if alphabet == "" {
		return "", errors.New("alphabet is empty")
	}
	if n < 1 {
		return "", errors.New("secret length must be positive")
	}
	runes := []rune(alphabet)
	out := make([]rune, n)
	limit := big.NewInt(int64(len(runes)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = runes[idx.Int64()]
	}
	return string(out), nil
}

// EncodeSecret is the string a byte secret is hashed and verified as.
func EncodeSecret(s []byte) string { return base64.StdEncoding.EncodeToString(s) }
