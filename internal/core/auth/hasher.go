package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgBcrypt   = "bcrypt"
	AlgArgon2id = "argon2id"

	DefaultWorkFactor = 10 // bcrypt cost；argon2id 下是迭代次数

	// bcrypt 只认前 72 字节
	bcryptMaxInput = 72
)

// Bcrypt: Cost is the bcrypt work factor, clamped to [bcrypt.MinCost, bcrypt.MaxCost].
type Bcrypt struct{ Cost int }

func NewBcrypt(workFactor int) *Bcrypt {
	c := workFactor
	if c < bcrypt.MinCost {
		c = bcrypt.MinCost
	}
	if c > bcrypt.MaxCost {
		c = bcrypt.MaxCost
	}
	return &Bcrypt{Cost: c}
}

// bcryptInput cuts pw to the bytes bcrypt actually uses. Hash and Verify must
// agree on it, otherwise long passwords never match.
func bcryptInput(pw string) []byte {
	b := []byte(pw)
	if len(b) > bcryptMaxInput {
		b = b[:bcryptMaxInput]
	}
	return b
}

// Hash accepts any plaintext, including "". Input past 72 bytes is ignored.
func (b *Bcrypt) Hash(pw string) (string, error) {
	out, err := bcrypt.GenerateFromPassword(bcryptInput(pw), b.Cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("alg", AlgBcrypt).Wrap(err)
	}
	return string(out), nil
}

func (b *Bcrypt) Verify(pw, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), bcryptInput(pw)) == nil
}

// Argon2id encodes digests in PHC form:
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
type Argon2id struct {
	Time    uint32 // work factor
	Memory  uint32 // KiB
	Threads uint8
	SaltLen int
	KeyLen  uint32
}

func NewArgon2id(workFactor int) *Argon2id {
	t := uint32(1)
	if workFactor > 1 {
		t = uint32(workFactor)
	}
	return &Argon2id{Time: t, Memory: 64 * 1024, Threads: 4, SaltLen: 16, KeyLen: 32}
}

func (a *Argon2id) Hash(pw string) (string, error) {
	salt := make([]byte, a.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}
	key := argon2.IDKey([]byte(pw), salt, a.Time, a.Memory, a.Threads, a.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.Memory, a.Time, a.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes with the parameters embedded in digest.
func (a *Argon2id) Verify(pw, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != AlgArgon2id {
		return false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	if threads == 0 || threads > 255 || time == 0 || memory == 0 || memory > 1<<22 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 || len(want) > 1024 {
		return false
	}
	got := argon2.IDKey([]byte(pw), salt, time, memory, uint8(threads), uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

// Hasher hashes with one algorithm and verifies digests of either family,
// so changing the configured algorithm keeps existing accounts working.
type Hasher struct {
	alg    string
	bcrypt *Bcrypt
	argon  *Argon2id
}

func NewHasher(alg string, workFactor int) (*Hasher, error) {
	if workFactor <= 0 {
		workFactor = DefaultWorkFactor
	}
	h := &Hasher{alg: alg, bcrypt: NewBcrypt(workFactor), argon: NewArgon2id(1)}
	switch alg {
	case "", AlgBcrypt:
		h.alg = AlgBcrypt
	case AlgArgon2id:
		h.argon = NewArgon2id(workFactor)
	default:
		return nil, oops.Code("AUTH_UNKNOWN_ALG").With("alg", alg).Errorf("unsupported hash algorithm: %s", alg)
	}
	return h, nil
}

func (h *Hasher) Algorithm() string { return h.alg }

func (h *Hasher) Hash(pw string) (string, error) {
	if h.alg == AlgArgon2id {
		return h.argon.Hash(pw)
	}
	return h.bcrypt.Hash(pw)
}

func (h *Hasher) Verify(pw, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return h.argon.Verify(pw, digest)
	case strings.HasPrefix(digest, "$2"):
		return h.bcrypt.Verify(pw, digest)
	default:
		return false
	}
}
