package crypto_test

import (
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/querydeck/querydeck/pkg/crypto"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

func TestCrypto(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Crypto Suite")
}

var _ = Describe("Encrypt/Decrypt", func() {
	var key []byte

	BeforeEach(func() {
		var err error
		key, err = crypto.GenerateKey()
		Expect(err).NotTo(HaveOccurred())
	})

	// Given a plaintext and a key
	// When we encrypt and decrypt
	// Then the original plaintext comes back
	It("should roundtrip plaintext", func() {
		envelope, err := crypto.Encrypt("s3cret-password", key)
		Expect(err).NotTo(HaveOccurred())
		Expect(envelope).NotTo(Equal("s3cret-password"))

		plain, err := crypto.Decrypt(envelope, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(plain).To(Equal("s3cret-password"))
	})

	It("should roundtrip the empty string", func() {
		envelope, err := crypto.Encrypt("", key)
		Expect(err).NotTo(HaveOccurred())
		Expect(envelope).NotTo(BeEmpty())

		plain, err := crypto.Decrypt(envelope, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(plain).To(Equal(""))
	})

	It("should roundtrip non-ASCII plaintext", func() {
		envelope, err := crypto.Encrypt("pässwörd-日本語-🔑", key)
		Expect(err).NotTo(HaveOccurred())

		plain, err := crypto.Decrypt(envelope, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(plain).To(Equal("pässwörd-日本語-🔑"))
	})

	// Given the same plaintext encrypted twice
	// When we compare the envelopes
	// Then they differ because each encryption uses a fresh nonce
	It("should produce distinct ciphertexts for the same plaintext", func() {
		first, err := crypto.Encrypt("same-input", key)
		Expect(err).NotTo(HaveOccurred())
		second, err := crypto.Encrypt("same-input", key)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).NotTo(Equal(second))
	})

	// Given an envelope sealed under one key
	// When we decrypt with a different key
	// Then decryption fails
	It("should fail to decrypt with the wrong key", func() {
		envelope, err := crypto.Encrypt("hello", key)
		Expect(err).NotTo(HaveOccurred())

		other, err := crypto.GenerateKey()
		Expect(err).NotTo(HaveOccurred())

		_, err = crypto.Decrypt(envelope, other)
		Expect(err).To(HaveOccurred())
	})

	It("should reject a garbage envelope", func() {
		_, err := crypto.Decrypt("not-base64!!", key)
		Expect(err).To(HaveOccurred())

		_, err = crypto.Decrypt("dG9vc2hvcnQ=", key)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("DeriveKey", func() {
	// Given the same password and salt
	// When we derive twice
	// Then the keys match
	It("should be deterministic for the same password and salt", func() {
		salt, err := crypto.GenerateSalt()
		Expect(err).NotTo(HaveOccurred())

		first := crypto.DeriveKey("hunter2", salt)
		second := crypto.DeriveKey("hunter2", salt)
		Expect(first).To(Equal(second))
		Expect(first).To(HaveLen(32))
	})

	It("should produce different keys for different salts", func() {
		salt1, err := crypto.GenerateSalt()
		Expect(err).NotTo(HaveOccurred())
		salt2, err := crypto.GenerateSalt()
		Expect(err).NotTo(HaveOccurred())

		Expect(crypto.DeriveKey("hunter2", salt1)).NotTo(Equal(crypto.DeriveKey("hunter2", salt2)))
	})

	It("should produce different keys for different passwords", func() {
		salt, err := crypto.GenerateSalt()
		Expect(err).NotTo(HaveOccurred())

		Expect(crypto.DeriveKey("hunter2", salt)).NotTo(Equal(crypto.DeriveKey("hunter3", salt)))
	})
})

var _ = Describe("VerifyKey", func() {
	// Given a verification token minted with one key
	// When we verify with the same key
	// Then verification succeeds
	It("should accept the minting key", func() {
		key, err := crypto.GenerateKey()
		Expect(err).NotTo(HaveOccurred())

		token, err := crypto.NewVerifyToken(key)
		Expect(err).NotTo(HaveOccurred())

		Expect(crypto.VerifyKey(token, key)).To(Succeed())
	})

	// Given a verification token minted with one key
	// When we verify with any other key
	// Then the error reads as an incorrect password, regardless of how
	// decryption failed
	It("should reject a wrong key with an authentication error", func() {
		key, err := crypto.GenerateKey()
		Expect(err).NotTo(HaveOccurred())
		token, err := crypto.NewVerifyToken(key)
		Expect(err).NotTo(HaveOccurred())

		wrong, err := crypto.GenerateKey()
		Expect(err).NotTo(HaveOccurred())

		verr := crypto.VerifyKey(token, wrong)
		Expect(verr).To(HaveOccurred())
		Expect(srvErrors.IsAuthenticationError(verr)).To(BeTrue())
	})

	It("should reject a corrupted token with an authentication error", func() {
		key, err := crypto.GenerateKey()
		Expect(err).NotTo(HaveOccurred())

		verr := crypto.VerifyKey("garbage-token", key)
		Expect(verr).To(HaveOccurred())
		Expect(srvErrors.IsAuthenticationError(verr)).To(BeTrue())
	})
})

var _ = Describe("Keystore", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "keys.json")
	})

	// Given a key put under a profile id
	// When a new keystore opens the same file
	// Then the key is still there
	It("should persist keys across reopens", func() {
		ks, err := crypto.NewKeystore(path)
		Expect(err).NotTo(HaveOccurred())

		key, err := crypto.GenerateKey()
		Expect(err).NotTo(HaveOccurred())
		Expect(ks.Put("p1", key)).To(Succeed())

		reopened, err := crypto.NewKeystore(path)
		Expect(err).NotTo(HaveOccurred())
		got, err := reopened.Get("p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(key))
	})

	It("should error on a missing profile key", func() {
		ks, err := crypto.NewKeystore(path)
		Expect(err).NotTo(HaveOccurred())

		_, err = ks.Get("nope")
		Expect(err).To(HaveOccurred())
	})

	It("should delete keys", func() {
		ks, err := crypto.NewKeystore(path)
		Expect(err).NotTo(HaveOccurred())

		key, err := crypto.GenerateKey()
		Expect(err).NotTo(HaveOccurred())
		Expect(ks.Put("p1", key)).To(Succeed())
		Expect(ks.Delete("p1")).To(Succeed())

		_, err = ks.Get("p1")
		Expect(err).To(HaveOccurred())
	})
})
