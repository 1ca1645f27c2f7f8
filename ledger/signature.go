package ledger

import "crypto/ed25519"

// SignatureVerifier checks signature of the payload by the owner of the address
type SignatureVerifier interface {
	Verify(addr Address, payload, signature []byte) bool
}

type ED25519Verifier struct{}

func (ED25519Verifier) Verify(addr Address, payload, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(addr.PublicKey(), payload, signature)
}

// SignatureVerifierFunc adapts function to the SignatureVerifier
type SignatureVerifierFunc func(addr Address, payload, signature []byte) bool

func (f SignatureVerifierFunc) Verify(addr Address, payload, signature []byte) bool {
	return f(addr, payload, signature)
}
