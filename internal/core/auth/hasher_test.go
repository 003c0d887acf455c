package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func smallArgon() *Argon2id {
	return &Argon2id{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32}
}

func TestBcrypt_HashVerify(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost)

	d1, err := b.Hash("secret1")
	require.NoError(t, err)
	d2, err := b.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2, "fresh salt per hash")
	assert.NotContains(t, d1, "secret1")
	assert.True(t, b.Verify("secret1", d1))
	assert.True(t, b.Verify("secret1", d2))
	assert.False(t, b.Verify("secret2", d1))
}

func TestBcrypt_CostClamped(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, NewBcrypt(1).Cost)
	assert.Equal(t, bcrypt.MaxCost, NewBcrypt(99).Cost)
	assert.Equal(t, 12, NewBcrypt(12).Cost)
}

func TestBcrypt_EmptyPassword(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost)
	d, err := b.Hash("")
	require.NoError(t, err)
	assert.True(t, b.Verify("", d))
	assert.False(t, b.Verify(" ", d))
}

func TestBcrypt_LongPassword(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost)
	long := strings.Repeat("p", 100)

	d, err := b.Hash(long)
	require.NoError(t, err)
	assert.True(t, b.Verify(long, d))
	assert.False(t, b.Verify(strings.Repeat("q", 100), d))
	// 超过 72 字节的部分不参与计算
	assert.True(t, b.Verify(strings.Repeat("p", 72), d))
	assert.False(t, b.Verify(strings.Repeat("p", 71), d))
}

func TestArgon2id_EmptyAndLongPassword(t *testing.T) {
	a := smallArgon()
	for _, pw := range []string{"", strings.Repeat("p", 100)} {
		d, err := a.Hash(pw)
		require.NoError(t, err)
		assert.True(t, a.Verify(pw, d))
		assert.False(t, a.Verify(pw+"x", d))
	}
}

func TestArgon2id_HashVerify(t *testing.T) {
	a := smallArgon()

	d, err := a.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(d, "$argon2id$v=19$m=8192,t=1,p=1$"), d)
	assert.True(t, a.Verify("secret1", d))
	assert.False(t, a.Verify("Secret1", d))

	d2, err := a.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, d, d2)
}

func TestArgon2id_MalformedDigest(t *testing.T) {
	a := smallArgon()
	good, err := a.Hash("pw")
	require.NoError(t, err)
	parts := strings.Split(good, "$")

	cases := map[string]string{
		"empty":         "",
		"garbage":       "not-a-digest",
		"wrong version": strings.Join([]string{"", parts[1], "v=18", parts[3], parts[4], parts[5]}, "$"),
		"zero time":     strings.Join([]string{"", parts[1], parts[2], "m=8192,t=0,p=1", parts[4], parts[5]}, "$"),
		"huge memory":   strings.Join([]string{"", parts[1], parts[2], "m=99999999,t=1,p=1", parts[4], parts[5]}, "$"),
		"bad salt":      strings.Join([]string{"", parts[1], parts[2], parts[3], "!!!", parts[5]}, "$"),
		"empty key":     strings.Join([]string{"", parts[1], parts[2], parts[3], parts[4], ""}, "$"),
		"bcrypt digest": "$2a$04$abcdefghijklmnopqrstuu",
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, a.Verify("pw", d))
		})
	}
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher("", 0)
	require.NoError(t, err)
	assert.Equal(t, AlgBcrypt, h.Algorithm())
	assert.Equal(t, DefaultWorkFactor, h.bcrypt.Cost)

	h, err = NewHasher(AlgArgon2id, 2)
	require.NoError(t, err)
	assert.Equal(t, AlgArgon2id, h.Algorithm())
	assert.Equal(t, uint32(2), h.argon.Time)

	_, err = NewHasher("md5", 10)
	require.Error(t, err)
}

func TestHasher_VerifiesEitherFamily(t *testing.T) {
	bh, err := NewHasher(AlgBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	ah, err := NewHasher(AlgArgon2id, 1)
	require.NoError(t, err)
	ah.argon = smallArgon()

	bd, err := bh.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(bd, "$2"))
	ad, err := ah.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ad, "$argon2id$"))

	// 切换算法后旧账号仍可登录
	assert.True(t, ah.Verify("secret1", bd))
	assert.True(t, bh.Verify("secret1", ad))
	assert.False(t, bh.Verify("nope", ad))
	assert.False(t, bh.Verify("secret1", "plaintext"))
	assert.False(t, bh.Verify("secret1", ""))
}
