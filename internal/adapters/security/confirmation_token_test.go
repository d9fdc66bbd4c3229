package security

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/domain"
	"github.com/viralforge/privacy-requests-service/internal/ports"
)

func TestConfirmationTokenRoundTrip(t *testing.T) {
	codec, err := NewConfirmationTokenCodec("secret", time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	data := ports.CorrelationData{
		RequestID: uuid.New(),
		Action:    domain.ActionExport,
		Email:     "dana@example.com",
	}

	token, err := codec.Sign(data)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != data {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, data)
	}
}

func TestConfirmationTokenRejectsTampering(t *testing.T) {
	codec, _ := NewConfirmationTokenCodec("secret", time.Hour)
	other, _ := NewConfirmationTokenCodec("other-secret", time.Hour)

	token, err := other.Sign(ports.CorrelationData{
		RequestID: uuid.New(),
		Action:    domain.ActionErase,
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := codec.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong key, got %v", err)
	}
	if _, err := codec.Verify("not-a-token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for garbage, got %v", err)
	}
}

func TestConfirmationTokenExpires(t *testing.T) {
	codec, _ := NewConfirmationTokenCodec("secret", time.Hour)
	issued := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	codec.nowFn = func() time.Time { return issued }

	token, err := codec.Sign(ports.CorrelationData{
		RequestID: uuid.New(),
		Action:    domain.ActionExport,
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	codec.nowFn = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := codec.Verify(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	codec.nowFn = func() time.Time { return issued.Add(30 * time.Minute) }
	if _, err := codec.Verify(token); err != nil {
		t.Fatalf("token should still verify inside ttl: %v", err)
	}
}

func TestConfirmationTokenRejectsUnknownAction(t *testing.T) {
	codec, _ := NewConfirmationTokenCodec("secret", time.Hour)
	token, err := codec.Sign(ports.CorrelationData{
		RequestID: uuid.New(),
		Action:    domain.ActionType("bogus"),
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := codec.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown action claim, got %v", err)
	}
}
