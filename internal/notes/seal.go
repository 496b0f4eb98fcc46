package notes

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dunamismax/artifactkit/internal/domain"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const sealVersion = 1

var ErrWrongPassword = fmt.Errorf("%w: wrong password", domain.ErrInvalidParameters)

type kdfParams struct {
	Time    uint32 `json:"t"`
	Memory  uint32 `json:"m"`
	Threads uint8  `json:"p"`
}

var defaultKDF = kdfParams{Time: 1, Memory: 64 * 1024, Threads: 4}

// Limits on KDF parameters read back from storage. Memory is in KiB.
const (
	maxKDFTime   = 16
	maxKDFMemory = 1024 * 1024
)

func (p kdfParams) validate() error {
	if p.Time < 1 || p.Time > maxKDFTime {
		return fmt.Errorf("%w: sealed note kdf time %d", domain.ErrDecode, p.Time)
	}
	if p.Threads < 1 {
		return fmt.Errorf("%w: sealed note kdf threads %d", domain.ErrDecode, p.Threads)
	}
	if p.Memory < 8*uint32(p.Threads) || p.Memory > maxKDFMemory {
		return fmt.Errorf("%w: sealed note kdf memory %d KiB", domain.ErrDecode, p.Memory)
	}
	return nil
}

// envelope is the stored form of a sealed note. The KDF parameters travel
// with the ciphertext so they can be raised without breaking old notes.
type envelope struct {
	Version int       `json:"v"`
	KDF     kdfParams `json:"kdf"`
	Salt    string    `json:"salt"`
	Nonce   string    `json:"nonce"`
	Data    string    `json:"data"`
}

func deriveKey(password string, salt []byte, p kdfParams) []byte {
	return argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize)
}

func seal(windows []string, password string, p kdfParams) (string, error) {
	plain, err := json.Marshal(windows)
	if err != nil {
		return "", err
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(deriveKey(password, salt, p))
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	env := envelope{
		Version: sealVersion,
		KDF:     p,
		Salt:    base64.RawStdEncoding.EncodeToString(salt),
		Nonce:   base64.RawStdEncoding.EncodeToString(nonce),
		Data:    base64.RawStdEncoding.EncodeToString(aead.Seal(nil, nonce, plain, salt)),
	}
	out, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func unseal(content, password string) ([]string, error) {
	var env envelope
	if err := json.Unmarshal([]byte(content), &env); err != nil {
		return nil, fmt.Errorf("%w: sealed note: %v", domain.ErrDecode, err)
	}
	if env.Version != sealVersion {
		return nil, fmt.Errorf("%w: sealed note version %d", domain.ErrDecode, env.Version)
	}
	if err := env.KDF.validate(); err != nil {
		return nil, err
	}
	salt, err := base64.RawStdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: sealed note salt", domain.ErrDecode)
	}
	nonce, err := base64.RawStdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonce) != chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: sealed note nonce", domain.ErrDecode)
	}
	data, err := base64.RawStdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: sealed note data", domain.ErrDecode)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(password, salt, env.KDF))
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, nonce, data, salt)
	if err != nil {
		return nil, ErrWrongPassword
	}
	var windows []string
	if err := json.Unmarshal(plain, &windows); err != nil {
		return nil, fmt.Errorf("%w: sealed note content: %v", domain.ErrDecode, err)
	}
	return windows, nil
}
