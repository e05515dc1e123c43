package ethledger

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeySigner signs with a local private key
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner returns a signer for the key
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address implements ledger.Signer
func (k *KeySigner) Address() common.Address {
	return k.address
}

// Sign implements ledger.Signer
// digest must be 32 bytes
func (k *KeySigner) Sign(digest []byte) ([]byte, error) {
	return crypto.Sign(digest, k.key)
}
