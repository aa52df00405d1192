package member

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		assert.True(t, validCode(code), code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 95)
}

func TestSignerParse(t *testing.T) {
	signer := NewSigner("secret")
	other := NewSigner("other")
	code := "7K3M9Q2X"
	payload := signer.Payload(code)
	sig := strings.Split(payload, ":")[2]

	tests := []struct {
		name     string
		payload  string
		wantCode string
		wantErr  error
	}{
		{name: "empty", payload: "", wantErr: ErrInvalidPayload},
		{name: "code only", payload: code, wantErr: ErrInvalidPayload},
		{name: "wrong prefix", payload: "CLC2:" + code + ":" + sig, wantErr: ErrInvalidPayload},
		{name: "invalid code char", payload: "CLC1:7K3M9Q2U:" + sig, wantErr: ErrInvalidPayload},
		{name: "tampered code", payload: "CLC1:7K3M9Q2Y:" + sig, wantErr: ErrInvalidPayload},
		{name: "other key", payload: other.Payload(code), wantErr: ErrInvalidPayload},
		{name: "extra part", payload: payload + ":x", wantErr: ErrInvalidPayload},
		{name: "valid", payload: payload, wantCode: code},
		{name: "valid with spaces", payload: "  " + payload + "\n", wantCode: code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := signer.Parse(tt.payload)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantCode, got)
		})
	}
}
