package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/secretlink/secretlink/internal/common"
)

// headerJSON is the fixed first segment of every token.
const headerJSON = `{"alg":"HS256","typ":"JWT"}`

// payload is the wire form of Claims. max and exp serialize as explicit
// nulls when absent, never omitted, and the key order is fixed.
type payload struct {
	Sub string `json:"sub"`
	Jti string `json:"jti"`
	Max *int   `json:"max"`
	Exp *int64 `json:"exp"`
	Ver int    `json:"ver"`
}

// Codec encodes and authenticates secret link tokens.
type Codec struct {
	signer *Signer
}

func NewCodec(signer *Signer) *Codec {
	return &Codec{signer: signer}
}

// Encode serializes claims into the signed three-segment token
// base64url(header).base64url(payload).base64url(signature).
func (c *Codec) Encode(claims Claims) (string, error) {
	p := payload{
		Sub: claims.Sub,
		Jti: claims.Jti.String(),
		Max: claims.Max,
		Ver: claims.Ver,
	}
	if p.Ver == 0 {
		p.Ver = 1
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Unix()
		p.Exp = &exp
	}

	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	message := base64.RawURLEncoding.EncodeToString([]byte(headerJSON)) +
		"." + base64.RawURLEncoding.EncodeToString(body)
	sig, err := c.signer.Sign(message)
	if err != nil {
		return "", err
	}
	return message + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Decode authenticates tok and returns its claims. The signature is checked
// over the raw segments before the payload is parsed, and every failure
// collapses to common.ErrInvalidToken so callers cannot distinguish a forged
// token from a malformed or expired one.
func (c *Codec) Decode(tok string) (Claims, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return Claims{}, common.ErrInvalidToken
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Claims{}, common.ErrInvalidToken
	}
	if !c.signer.Verify(parts[0]+"."+parts[1], sig) {
		return Claims{}, common.ErrInvalidToken
	}

	body, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, common.ErrInvalidToken
	}
	p := payload{Ver: 1} // absent ver defaults to 1
	if err := json.Unmarshal(body, &p); err != nil {
		return Claims{}, common.ErrInvalidToken
	}

	if strings.TrimSpace(p.Sub) == "" {
		return Claims{}, common.ErrInvalidToken
	}
	id, err := ulid.ParseStrict(p.Jti)
	if err != nil {
		return Claims{}, common.ErrInvalidToken
	}

	claims := Claims{Sub: p.Sub, Jti: id, Max: p.Max, Ver: p.Ver}
	if p.Exp != nil {
		exp := time.Unix(*p.Exp, 0).UTC()
		// equal to "now" counts as already expired
		if !exp.After(time.Now()) {
			return Claims{}, common.ErrInvalidToken
		}
		claims.ExpiresAt = &exp
	}
	return claims, nil
}
