package utxodb

import (
	"crypto/ed25519"

	"github.com/lunfardo314/epochledger"
	"github.com/lunfardo314/epochledger/ledger"
	"github.com/lunfardo314/unitrie/common"
	"golang.org/x/crypto/blake2b"
)

// for determinism
const deterministicSeed = "1234567890987654321"

// GenerateKeys returns n-th deterministic key pair and its address
func GenerateKeys(n uint16) (ed25519.PrivateKey, ed25519.PublicKey, ledger.Address) {
	seed := blake2b.Sum256(common.Concat([]byte(deterministicSeed), epochledger.EncodeInteger(n)))
	priv := ed25519.NewKeyFromSeed(seed[:])
	pub := priv.Public().(ed25519.PublicKey)
	return priv, pub, ledger.AddressFromPublicKey(pub)
}
