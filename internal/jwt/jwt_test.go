package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwtgo "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wallet = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	SetKeys(key)
	return key
}

func signClaims(t *testing.T, key *rsa.PrivateKey, claims jwtgo.RegisteredClaims) string {
	t.Helper()

	signed, err := jwtgo.NewWithClaims(jwtgo.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestSignAndValidAddress(t *testing.T) {
	testKey(t)

	sign, err := Sign(wallet)
	assert.NoError(t, err)

	addr, err := ValidAddress(sign)
	assert.NoError(t, err)
	assert.Equal(t, wallet, addr)
}

func TestValidAddress_InvalidAudience(t *testing.T) {
	key := testKey(t)
	token := signClaims(t, key, jwtgo.RegisteredClaims{
		Audience: jwtgo.ClaimStrings{"different-audience"},
		ID:       uuid.New().String(),
		IssuedAt: jwtgo.NewNumericDate(time.Now()),
		Issuer:   Issuer,
		Subject:  wallet.Hex(),
	})

	addr, err := ValidAddress(token)
	assert.EqualError(t, err, "invalid audience")
	assert.Equal(t, common.Address{}, addr)
}

func TestValidAddress_InvalidIssuer(t *testing.T) {
	key := testKey(t)
	token := signClaims(t, key, jwtgo.RegisteredClaims{
		Audience: jwtgo.ClaimStrings{Audience},
		Issuer:   "invalid-issuer",
		Subject:  wallet.Hex(),
	})

	_, err := ValidAddress(token)
	assert.EqualError(t, err, "invalid issuer")
}

func TestValidAddress_InvalidSubject(t *testing.T) {
	key := testKey(t)
	token := signClaims(t, key, jwtgo.RegisteredClaims{
		Audience: jwtgo.ClaimStrings{Audience},
		Issuer:   Issuer,
		Subject:  "15",
	})

	_, err := ValidAddress(token)
	assert.EqualError(t, err, "invalid subject")
}

func TestValidAddress_Expired(t *testing.T) {
	key := testKey(t)
	token := signClaims(t, key, jwtgo.RegisteredClaims{
		Audience:  jwtgo.ClaimStrings{Audience},
		Issuer:    Issuer,
		ExpiresAt: jwtgo.NewNumericDate(time.Now().Add(-time.Hour)),
		Subject:   wallet.Hex(),
	})

	_, err := ValidAddress(token)
	assert.ErrorIs(t, err, jwtgo.ErrTokenExpired)
}

func TestValidAddress_WrongKey(t *testing.T) {
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	token := signClaims(t, other, jwtgo.RegisteredClaims{
		Audience: jwtgo.ClaimStrings{Audience},
		Issuer:   Issuer,
		Subject:  wallet.Hex(),
	})

	testKey(t)
	_, err = ValidAddress(token)
	assert.ErrorIs(t, err, jwtgo.ErrTokenSignatureInvalid)
}

func TestLoadKeyFiles(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.key")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o600))

	priv, err := loadPrivateKey(privPath)
	require.NoError(t, err)
	assert.True(t, key.Equal(priv))

	pub, err := loadPublicKey(pubPath)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))

	_, err = loadPublicKey(privPath)
	assert.Error(t, err)

	_, err = loadPrivateKey(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestKeysNotLoaded(t *testing.T) {
	publicKey, privateKey = nil, nil

	_, err := Sign(wallet)
	assert.ErrorIs(t, err, ErrKeysNotLoaded)

	_, err = ValidAddress("x")
	assert.ErrorIs(t, err, ErrKeysNotLoaded)
}
