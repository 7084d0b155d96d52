package acl

import (
	"testing"

	"github.com/safechat/safechat/pkg/model"
)

func TestCanDecode(t *testing.T) {
	cases := []struct {
		name    string
		viewer  string
		allowed []string
		want    bool
	}{
		{"empty list allows anyone", "stranger", nil, true},
		{"sender always allowed", "sender", []string{"other"}, true},
		{"listed grantee allowed", "friend", []string{"friend"}, true},
		{"unlisted viewer denied", "stranger", []string{"friend"}, false},
		{"empty list allows sender too", "sender", nil, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := &model.Message{SenderID: "sender", AllowedUsers: c.allowed}
			if got := CanDecode(c.viewer, m); got != c.want {
				t.Fatalf("CanDecode(%q, allowed=%v) = %v, want %v", c.viewer, c.allowed, got, c.want)
			}
		})
	}
}
