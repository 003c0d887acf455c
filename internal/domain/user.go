package domain

import "context"

// 存储 key：用户列表是一个 JSON 数组，会话是当前用户的邮箱
const (
	KeyUsers       = "auth_users"
	KeyCurrentUser = "auth_current_user"
)

// User is a registered account. Email is stored lower-cased.
type User struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	PasswordDigest string `json:"passwordDigest"`
}

type UserRepository interface {
	List(ctx context.Context) []User
	Find(ctx context.Context, email string) (User, bool)
	IsAvailable(ctx context.Context, email string) bool
	Add(ctx context.Context, u User) error
}

// PasswordHasher hashes and verifies passwords. Verify never fails loudly:
// a malformed digest is just a mismatch.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}
