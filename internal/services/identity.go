package services

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vanj900/cellgov/internal/model"
	"github.com/vanj900/cellgov/internal/store"
)

// IdentityService issues and verifies portable identities and
// selectively disclosable credentials.
type IdentityService struct {
	store store.Store
	log   zerolog.Logger
}

func NewIdentityService(s store.Store, log zerolog.Logger) *IdentityService {
	return &IdentityService{store: s, log: log}
}

// Create mints a new identity for an owner. An owner may hold at most
// one live identity; identities are never reused or deleted.
func (s *IdentityService) Create(ctx context.Context, owner string) (*model.Identity, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required: %w", model.ErrValidation)
	}
	existing, err := s.store.Identities().GetByOwner(ctx, owner)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("owner %s holds identity %s: %w", owner, existing.ID, model.ErrDuplicateIdentity)
	}

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	id := &model.Identity{
		ID:        uuid.New().String(),
		Owner:     owner,
		PublicKey: hex.EncodeToString(pub),
		Status:    model.IdentityActive,
	}
	created, err := s.store.Identities().Create(ctx, id, hex.EncodeToString(seed))
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("identity", created.ID).Str("owner", owner).Msg("identity created")
	return created, nil
}

// SetStatus moves an identity between ACTIVE and DORMANT. A dormant
// member keeps all history and credentials but stops counting toward
// quorum; there is no way to delete an identity.
func (s *IdentityService) SetStatus(ctx context.Context, identityID, status string) (*model.Identity, error) {
	if status != model.IdentityActive && status != model.IdentityDormant {
		return nil, fmt.Errorf("status must be %s or %s, got %q: %w",
			model.IdentityActive, model.IdentityDormant, status, model.ErrValidation)
	}
	id, err := s.store.Identities().Get(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if id.Status == status {
		return id, nil
	}
	if status == model.IdentityActive {
		// Reactivation must not hand an owner a second live identity.
		existing, err := s.store.Identities().GetByOwner(ctx, id.Owner)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		if existing != nil && existing.ID != id.ID {
			return nil, fmt.Errorf("owner %s holds identity %s: %w", id.Owner, existing.ID, model.ErrDuplicateIdentity)
		}
	}
	if err := s.store.Identities().SetStatus(ctx, identityID, status); err != nil {
		return nil, err
	}
	id.Status = status
	s.log.Info().Str("identity", identityID).Str("status", status).Msg("identity status changed")
	return id, nil
}

// Get returns a single identity.
func (s *IdentityService) Get(ctx context.Context, identityID string) (*model.Identity, error) {
	return s.store.Identities().Get(ctx, identityID)
}

// List returns all identities in creation order.
func (s *IdentityService) List(ctx context.Context) ([]*model.Identity, error) {
	return s.store.Identities().List(ctx)
}

// IssueCredential computes one salted commitment per claim, signs the
// commitment set as an EdDSA JWS under the issuer's key and stores the
// immutable credential. The subject owns it; the issuer only references.
func (s *IdentityService) IssueCredential(ctx context.Context, issuerID, subjectID, credType string, claims map[string]string) (*model.Credential, error) {
	if credType == "" {
		return nil, fmt.Errorf("credential type is required: %w", model.ErrValidation)
	}
	if _, err := s.store.Identities().Get(ctx, issuerID); err != nil {
		return nil, err
	}
	if _, err := s.store.Identities().Get(ctx, subjectID); err != nil {
		return nil, err
	}

	commitments := make(map[string]string, len(claims))
	salts := make(map[string]string, len(claims))
	for field, value := range claims {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		saltHex := hex.EncodeToString(salt)
		salts[field] = saltHex
		commitments[field] = claimCommitment(field, value, saltHex)
	}

	cred := &model.Credential{
		ID:          uuid.New().String(),
		IssuerID:    issuerID,
		SubjectID:   subjectID,
		Type:        credType,
		Claims:      claims,
		Commitments: commitments,
		Salts:       salts,
	}
	jws, err := s.signCredential(ctx, cred)
	if err != nil {
		return nil, err
	}
	cred.JWS = jws

	created, err := s.store.Credentials().Create(ctx, cred)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("credential", created.ID).Str("issuer", issuerID).Str("subject", subjectID).Str("type", credType).Msg("credential issued")
	return created, nil
}

// Verify checks the issuer's signature over the commitment set, that
// every commitment recomputes from the stored claims and salts, and
// that no revocation credential links back to this one.
func (s *IdentityService) Verify(ctx context.Context, credentialID string) (bool, error) {
	cred, err := s.store.Credentials().Get(ctx, credentialID)
	if err != nil {
		return false, err
	}
	issuer, err := s.store.Identities().Get(ctx, cred.IssuerID)
	if err != nil {
		return false, err
	}
	pubBytes, err := hex.DecodeString(issuer.PublicKey)
	if err != nil {
		return false, fmt.Errorf("issuer %s public key: %w", issuer.ID, err)
	}
	pub := ed25519.PublicKey(pubBytes)

	token, err := jwt.Parse(cred.JWS, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return pub, nil
	})
	if err != nil || !token.Valid {
		return false, nil
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false, nil
	}
	signed, ok := mc["commitments"].(map[string]interface{})
	if !ok || len(signed) != len(cred.Commitments) {
		return false, nil
	}
	for field, c := range cred.Commitments {
		if signed[field] != c {
			return false, nil
		}
		if claimCommitment(field, cred.Claims[field], cred.Salts[field]) != c {
			return false, nil
		}
	}

	revocation, err := s.store.Credentials().FindRevocation(ctx, credentialID)
	if err != nil {
		return false, err
	}
	return revocation == nil, nil
}

// Disclose returns only the requested claims, each carried with its
// salt so a verifier can recompute the commitment independently.
func (s *IdentityService) Disclose(ctx context.Context, credentialID string, fields []string) ([]model.DisclosedClaim, error) {
	cred, err := s.store.Credentials().Get(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	out := make([]model.DisclosedClaim, 0, len(fields))
	for _, field := range fields {
		value, ok := cred.Claims[field]
		if !ok {
			return nil, fmt.Errorf("credential %s has no claim %q: %w", credentialID, field, model.ErrNotFound)
		}
		out = append(out, model.DisclosedClaim{
			Field:      field,
			Value:      value,
			Salt:       cred.Salts[field],
			Commitment: cred.Commitments[field],
		})
	}
	return out, nil
}

// Revoke issues a revocation credential linked to the original. The
// original is never mutated; verification simply starts failing.
func (s *IdentityService) Revoke(ctx context.Context, issuerID, credentialID string) (*model.Credential, error) {
	cred, err := s.store.Credentials().Get(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred.IssuerID != issuerID {
		return nil, fmt.Errorf("credential %s was issued by %s, not %s: %w", credentialID, cred.IssuerID, issuerID, model.ErrValidation)
	}
	if existing, err := s.store.Credentials().FindRevocation(ctx, credentialID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	revocation := &model.Credential{
		ID:          uuid.New().String(),
		IssuerID:    issuerID,
		SubjectID:   cred.SubjectID,
		Type:        model.CredentialTypeRevocation,
		Claims:      map[string]string{},
		Commitments: map[string]string{},
		Salts:       map[string]string{},
		RevokesID:   credentialID,
	}
	jws, err := s.signCredential(ctx, revocation)
	if err != nil {
		return nil, err
	}
	revocation.JWS = jws

	created, err := s.store.Credentials().Create(ctx, revocation)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("credential", credentialID).Str("revocation", created.ID).Msg("credential revoked")
	return created, nil
}

// VerifyDisclosure recomputes a disclosed claim's commitment. It needs
// no store access; anyone holding the disclosure can run it.
func VerifyDisclosure(d model.DisclosedClaim) bool {
	return claimCommitment(d.Field, d.Value, d.Salt) == d.Commitment
}

func (s *IdentityService) signCredential(ctx context.Context, cred *model.Credential) (string, error) {
	seedHex, err := s.store.Identities().KeySeed(ctx, cred.IssuerID)
	if err != nil {
		return "", err
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return "", fmt.Errorf("issuer %s key seed: %w", cred.IssuerID, err)
	}
	priv := ed25519.NewKeyFromSeed(seed)

	claims := jwt.MapClaims{
		"iss":         cred.IssuerID,
		"sub":         cred.SubjectID,
		"typ":         cred.Type,
		"commitments": cred.Commitments,
	}
	if cred.RevokesID != "" {
		claims["revokes"] = cred.RevokesID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(priv)
}

// claimCommitment hashes each claim separately so a subset can be
// revealed without exposing the rest of the claim set.
func claimCommitment(field, value, saltHex string) string {
	h := sha256.New()
	h.Write([]byte(field))
	h.Write([]byte{0})
	h.Write([]byte(value))
	h.Write([]byte{0})
	h.Write([]byte(saltHex))
	return hex.EncodeToString(h.Sum(nil))
}
