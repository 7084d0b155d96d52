// Package acl decides whether a viewer may decode a message. The gate is
// advisory at the application layer: anyone with read access to the record
// still sees the disguised text, the grantee list only controls the decode
// action. That is a known limitation of the design, not a bug.
package acl

import "github.com/safechat/safechat/pkg/model"

// CanDecode reports whether viewerID may reveal the plaintext of m. An empty
// allowed list means everyone may decode; otherwise only the sender and the
// listed grantees.
func CanDecode(viewerID string, m *model.Message) bool {
	if len(m.AllowedUsers) == 0 {
		return true
	}
	if viewerID == m.SenderID {
		return true
	}
	for _, id := range m.AllowedUsers {
		if id == viewerID {
			return true
		}
	}
	return false
}
