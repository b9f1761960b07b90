package crypto

import (
	"bytes"
	"testing"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestGenerateAndSign(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	digest := gethcrypto.Keccak256([]byte("hello"))
	sig, err := signer.Sign(digest)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}

	if !VerifySignature(signer.Address(), digest, sig) {
		t.Error("signature should verify for the signing address")
	}

	other, _ := GenerateKey()
	if VerifySignature(other.Address(), digest, sig) {
		t.Error("signature must not verify for another address")
	}
}

func TestSignRejectsBadDigest(t *testing.T) {
	signer, _ := GenerateKey()
	if _, err := signer.Sign([]byte("short")); err == nil {
		t.Error("non-32-byte digest should be rejected")
	}
}

func TestFromPrivateKeyHexRoundTrip(t *testing.T) {
	signer, _ := GenerateKey()

	restored, err := FromPrivateKeyHex(signer.PrivateKeyHex())
	if err != nil {
		t.Fatal(err)
	}
	if restored.Address() != signer.Address() {
		t.Errorf("restored address %s, want %s", restored.Address().Hex(), signer.Address().Hex())
	}

	if _, err := FromPrivateKeyHex("not-hex"); err == nil {
		t.Error("garbage key should be rejected")
	}
}

func TestRecoverAddress(t *testing.T) {
	signer, _ := GenerateKey()
	digest := gethcrypto.Keccak256([]byte("payload"))
	sig, _ := signer.Sign(digest)

	recovered, err := RecoverAddress(digest, sig)
	if err != nil {
		t.Fatal(err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered %s, want %s", recovered.Hex(), signer.Address().Hex())
	}

	if _, err := RecoverAddress(digest, sig[:64]); err == nil {
		t.Error("short signature should be rejected")
	}
	if _, err := RecoverAddress(digest[:16], sig); err == nil {
		t.Error("short digest should be rejected")
	}
}

func TestSignatureRSVRoundTrip(t *testing.T) {
	signer, _ := GenerateKey()
	digest := gethcrypto.Keccak256([]byte("rsv"))
	sig, _ := signer.Sign(digest)

	r, s, v, err := SignatureToRSV(sig)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(RSVToSignature(r, s, v), sig) {
		t.Error("RSV round trip should reproduce the signature")
	}
}
