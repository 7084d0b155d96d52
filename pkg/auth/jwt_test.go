package auth

import (
	"testing"

	"github.com/safechat/safechat/pkg/model"
)

func TestTokenRoundTrip(t *testing.T) {
	u := model.User{ID: "alice", DisplayName: "Alice", Email: "alice@example.com"}
	tok, err := GenerateToken(u)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ValidateToken(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := claims.User(); got != u {
		t.Fatalf("claims round trip: %+v", got)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected error for garbage token")
	}
}
