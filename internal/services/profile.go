package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/querydeck/querydeck/internal/models"
	"github.com/querydeck/querydeck/internal/store"
	"github.com/querydeck/querydeck/pkg/crypto"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

const sessionTTL = 12 * time.Hour

// ProfileService creates profiles, verifies passwords and issues session
// tokens.
type ProfileService struct {
	store     *store.Store
	keystore  *crypto.Keystore
	jwtSecret []byte
}

func NewProfileService(st *store.Store, ks *crypto.Keystore, jwtSecret []byte) *ProfileService {
	return &ProfileService{store: st, keystore: ks, jwtSecret: jwtSecret}
}

// Create makes a new profile. A non-empty password derives the profile key
// from it; otherwise a random key is generated. Either way the key goes to
// the keystore and a verification token goes on the profile row.
func (s *ProfileService) Create(ctx context.Context, name, password string) (*models.Profile, error) {
	if name == "" {
		return nil, fmt.Errorf("profile name is required")
	}

	var key []byte
	var salt []byte
	var err error
	if password != "" {
		salt, err = crypto.GenerateSalt()
		if err != nil {
			return nil, err
		}
		key = crypto.DeriveKey(password, salt)
	} else {
		key, err = crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
	}

	token, err := crypto.NewVerifyToken(key)
	if err != nil {
		return nil, err
	}

	profile := models.Profile{
		ID:          uuid.NewString(),
		Name:        name,
		Protected:   password != "",
		VerifyToken: token,
		Salt:        base64.StdEncoding.EncodeToString(salt),
		CreatedAt:   time.Now(),
	}
	if err := s.store.Profiles().Save(ctx, profile); err != nil {
		return nil, err
	}
	if err := s.keystore.Put(profile.ID, key); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Login verifies a profile password and returns a signed session token. For
// protected profiles the key is re-derived from the password and checked
// against the stored verification token; any failure reads as an incorrect
// password.
func (s *ProfileService) Login(ctx context.Context, name, password string) (string, *models.Profile, error) {
	profile, err := s.store.Profiles().GetByName(ctx, name)
	if err != nil {
		return "", nil, err
	}

	if profile.Protected {
		salt, err := base64.StdEncoding.DecodeString(profile.Salt)
		if err != nil {
			return "", nil, srvErrors.NewIncorrectPasswordError()
		}
		key := crypto.DeriveKey(password, salt)
		if err := crypto.VerifyKey(profile.VerifyToken, key); err != nil {
			return "", nil, err
		}
		// Re-derived key replaces whatever the keystore holds, so field
		// decryption works after a keystore loss.
		if err := s.keystore.Put(profile.ID, key); err != nil {
			return "", nil, err
		}
	}

	token, err := s.issueToken(profile)
	if err != nil {
		return "", nil, err
	}
	return token, profile, nil
}

func (s *ProfileService) issueToken(profile *models.Profile) (string, error) {
	claims := jwt.MapClaims{
		"sub":  profile.ID,
		"name": profile.Name,
		"exp":  time.Now().Add(sessionTTL).Unix(),
		"iat":  time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

// VerifyToken parses a session token and returns the profile id it names.
func (s *ProfileService) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", srvErrors.NewAuthenticationError("invalid session token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", srvErrors.NewAuthenticationError("invalid session token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", srvErrors.NewAuthenticationError("invalid session token")
	}
	return sub, nil
}

// List returns all profiles.
func (s *ProfileService) List(ctx context.Context) ([]models.Profile, error) {
	return s.store.Profiles().List(ctx)
}

// Delete removes a profile and its key.
func (s *ProfileService) Delete(ctx context.Context, id string) error {
	if err := s.store.Profiles().Delete(ctx, id); err != nil {
		return err
	}
	return s.keystore.Delete(id)
}
