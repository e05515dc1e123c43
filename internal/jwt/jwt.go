package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"fhepoker-client/internal/config"
	"github.com/ethereum/go-ethereum/common"
	jwtgo "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Issuer issues the JWT
const Issuer = "fhepoker-client"

// Audience is the intended JWT audience
const Audience = "fhepoker-client.api"

// ErrKeysNotLoaded is returned before LoadKeys() or SetKeys() was called
var ErrKeysNotLoaded = errors.New("jwt keys are not loaded")

var publicKey *rsa.PublicKey
var privateKey *rsa.PrivateKey

// LoadKeys will load the public and private keys named in the config
// The private key is optional: a server that only validates tokens does not need it
func LoadKeys() error {
	cfg := config.Instance().JWT

	pub, err := loadPublicKey(cfg.PublicKey)
	if err != nil {
		return err
	}

	publicKey = pub
	privateKey = nil
	if cfg.PrivateKey == "" {
		return nil
	}

	priv, err := loadPrivateKey(cfg.PrivateKey)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logrus.WithField("path", cfg.PrivateKey).Warn("no private key, tokens cannot be signed")
			return nil
		}

		return err
	}

	privateKey = priv
	return nil
}

// SetKeys sets the signing key directly
func SetKeys(key *rsa.PrivateKey) {
	privateKey = key
	publicKey = &key.PublicKey
}

// Sign will sign a JWT for the wallet address
func Sign(address common.Address) (string, error) {
	if privateKey == nil {
		return "", ErrKeysNotLoaded
	}

	token := jwtgo.NewWithClaims(jwtgo.SigningMethodRS256, jwtgo.RegisteredClaims{
		Audience: jwtgo.ClaimStrings{Audience},
		ID:       uuid.New().String(),
		IssuedAt: jwtgo.NewNumericDate(time.Now()),
		Issuer:   Issuer,
		Subject:  address.Hex(),
	})

	return token.SignedString(privateKey)
}

// ValidAddress will validate a signed JWT and return the wallet address it was issued for
func ValidAddress(signedString string) (common.Address, error) {
	if publicKey == nil {
		return common.Address{}, ErrKeysNotLoaded
	}

	token, err := jwtgo.ParseWithClaims(signedString, &jwtgo.RegisteredClaims{}, func(token *jwtgo.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtgo.SigningMethodRSA); !ok {
			return nil, errors.New("expected RS256 signing method")
		}

		return publicKey, nil
	})

	if err != nil {
		return common.Address{}, err
	}

	if !token.Valid {
		return common.Address{}, errors.New("claims were not valid")
	}

	claims, ok := token.Claims.(*jwtgo.RegisteredClaims)
	if !ok {
		return common.Address{}, fmt.Errorf("expected jwt.RegisteredClaims, got %T", token.Claims)
	}

	if !containsAudience(claims.Audience, Audience) {
		return common.Address{}, errors.New("invalid audience")
	}

	if claims.Issuer != Issuer {
		return common.Address{}, errors.New("invalid issuer")
	}

	if !common.IsHexAddress(claims.Subject) {
		return common.Address{}, errors.New("invalid subject")
	}

	return common.HexToAddress(claims.Subject), nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pem, err := jwtgo.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("could not parse RSA public key: %w", err)
	}

	return pem, nil
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pem, err := jwtgo.ParseRSAPrivateKeyFromPEM(b)
	if err != nil {
		return nil, fmt.Errorf("could not parse RSA private key: %w", err)
	}

	return pem, nil
}

func containsAudience(audiences jwtgo.ClaimStrings, target string) bool {
	for _, aud := range audiences {
		if aud == target {
			return true
		}
	}
	return false
}
