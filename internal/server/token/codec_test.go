package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/secretlink/secretlink/internal/common"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	s, err := NewSigner("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewSigner error: %v", err)
	}
	return NewCodec(s)
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second).UTC()
	claims, err := NewClaims("alice", 3, &exp)
	if err != nil {
		t.Fatalf("NewClaims error: %v", err)
	}

	tok, err := c.Encode(claims)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	got, err := c.Decode(tok)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got.Sub != "alice" {
		t.Fatalf("sub mismatch: got %q", got.Sub)
	}
	if got.Jti != claims.Jti {
		t.Fatalf("jti mismatch: got %s want %s", got.Jti, claims.Jti)
	}
	if got.Max == nil || *got.Max != 3 {
		t.Fatalf("max mismatch: got %v", got.Max)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("exp mismatch: got %v want %v", got.ExpiresAt, exp)
	}
	if got.Ver != 1 {
		t.Fatalf("ver mismatch: got %d", got.Ver)
	}
}

func TestCodec_RoundTrip_NoExpiry(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	claims, err := NewClaims("bob", 1, nil)
	if err != nil {
		t.Fatalf("NewClaims error: %v", err)
	}

	tok, err := c.Encode(claims)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	got, err := c.Decode(tok)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got.ExpiresAt != nil {
		t.Fatalf("expected nil expiry, got %v", got.ExpiresAt)
	}
	if !got.SingleUse() {
		t.Fatal("max=1 must be single-use")
	}
}

func TestCodec_WireFormat(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	claims, err := NewClaims("alice", 1, nil)
	if err != nil {
		t.Fatalf("NewClaims error: %v", err)
	}
	tok, err := c.Encode(claims)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(parts))
	}

	header, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		t.Fatalf("header decode error: %v", err)
	}
	if string(header) != `{"alg":"HS256","typ":"JWT"}` {
		t.Fatalf("unexpected header: %s", header)
	}

	body, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("payload decode error: %v", err)
	}
	// absent optional fields serialize as explicit nulls
	if !strings.Contains(string(body), `"exp":null`) {
		t.Fatalf("expected explicit null exp in payload: %s", body)
	}
	if !strings.Contains(string(body), `"ver":1`) {
		t.Fatalf("expected ver in payload: %s", body)
	}
}

func TestCodec_TamperedSignature(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	claims, err := NewClaims("alice", 1, nil)
	if err != nil {
		t.Fatalf("NewClaims error: %v", err)
	}
	tok, err := c.Encode(claims)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	// The final character carries base64 padding bits, so a flip there may
	// decode to the same signature bytes; every other position must fail.
	sigStart := strings.LastIndex(tok, ".") + 1
	for i := sigStart; i < len(tok)-1; i++ {
		flipped := []byte(tok)
		if flipped[i] == 'A' {
			flipped[i] = 'B'
		} else {
			flipped[i] = 'A'
		}
		if _, err := c.Decode(string(flipped)); err == nil {
			t.Fatalf("tampered signature at offset %d must not decode", i)
		}
	}
}

func TestCodec_TamperedPayload(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	claims, err := NewClaims("alice", 1, nil)
	if err != nil {
		t.Fatalf("NewClaims error: %v", err)
	}
	tok, err := c.Encode(claims)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	parts := strings.Split(tok, ".")
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"mallory","jti":"01HZZZZZZZZZZZZZZZZZZZZZZZ","max":null,"exp":null,"ver":1}`))
	if _, err := c.Decode(parts[0] + "." + forged + "." + parts[2]); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("forged payload must fail with ErrInvalidToken, got %v", err)
	}
}

func TestCodec_ExpiredByClaim(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	exp := time.Now().Add(-1 * time.Minute)
	claims, err := NewClaims("alice", 1, &exp)
	if err != nil {
		t.Fatalf("NewClaims error: %v", err)
	}
	tok, err := c.Encode(claims)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	// valid signature, expired claim: still rejected
	if _, err := c.Decode(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expired token must fail with ErrInvalidToken, got %v", err)
	}
}

func TestCodec_Malformed(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	for _, tok := range []string{
		"",
		"onesegment",
		"two.segments",
		"a.b.c.d",
		"!!!.###.$$$",
	} {
		if _, err := c.Decode(tok); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("token %q must fail with ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestCodec_MissingSubRejected(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	// signed correctly, but the payload has an empty subject
	body := []byte(`{"sub":"","jti":"01HZZZZZZZZZZZZZZZZZZZZZZZ","max":null,"exp":null,"ver":1}`)
	message := base64.RawURLEncoding.EncodeToString([]byte(headerJSON)) +
		"." + base64.RawURLEncoding.EncodeToString(body)
	sig, err := c.signer.Sign(message)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	tok := message + "." + base64.RawURLEncoding.EncodeToString(sig)

	if _, err := c.Decode(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("empty sub must fail with ErrInvalidToken, got %v", err)
	}
}

func TestCodec_BadJtiRejected(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	body := []byte(`{"sub":"alice","jti":"not-a-ulid","max":null,"exp":null,"ver":1}`)
	message := base64.RawURLEncoding.EncodeToString([]byte(headerJSON)) +
		"." + base64.RawURLEncoding.EncodeToString(body)
	sig, err := c.signer.Sign(message)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	tok := message + "." + base64.RawURLEncoding.EncodeToString(sig)

	if _, err := c.Decode(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("bad jti must fail with ErrInvalidToken, got %v", err)
	}
}

func TestCodec_VerDefaultsToOne(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	id, err := NewClaims("alice", 1, nil)
	if err != nil {
		t.Fatalf("NewClaims error: %v", err)
	}
	body := []byte(`{"sub":"alice","jti":"` + id.Jti.String() + `","max":null,"exp":null}`)
	message := base64.RawURLEncoding.EncodeToString([]byte(headerJSON)) +
		"." + base64.RawURLEncoding.EncodeToString(body)
	sig, err := c.signer.Sign(message)
	if err != nil {
		t.Fatalf("Sign error: %v", err)
	}
	tok := message + "." + base64.RawURLEncoding.EncodeToString(sig)

	got, err := c.Decode(tok)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got.Ver != 1 {
		t.Fatalf("absent ver must default to 1, got %d", got.Ver)
	}
	if got.Max != nil {
		t.Fatalf("null max must decode as nil, got %v", got.Max)
	}
	if !got.SingleUse() {
		t.Fatal("nil max must be single-use")
	}
}
