package ledger

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// NewEditPackToken returns a UUIDv4 joined to 24 to 32 url-safe random characters.
func NewEditPackToken() (string, error) {
	spread := big.NewInt(editPackTokenMaxSuffix - editPackTokenMinSuffix + 1)
	offset, err := rand.Int(rand.Reader, spread)
	if err != nil {
		return "", err
	}
	suffixLength := editPackTokenMinSuffix + int(offset.Int64())
	randomBytes := make([]byte, base64.RawURLEncoding.DecodedLen(editPackTokenMaxSuffix)+1)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	suffix := base64.RawURLEncoding.EncodeToString(randomBytes)[:suffixLength]
	return uuid.NewString() + "-" + suffix, nil
}

// GetOrCreateEditPack returns the script's edit pack, issuing one on first use.
func (service *Service) GetOrCreateEditPack(ctx context.Context, rawScriptID string) (EditPack, error) {
	scriptID, err := requireID(rawScriptID, ErrInvalidScriptID)
	if err != nil {
		return EditPack{}, err
	}
	script, err := service.store.GetScript(ctx, scriptID)
	if err == nil {
		var pack EditPack
		pack, err = service.getOrCreateEditPack(ctx, service.store, script)
		if err == nil {
			return pack, nil
		}
	}
	service.logOperation(ctx, OperationLog{Operation: operationGetOrCreateEditPack, ScriptID: scriptID, Error: err})
	return EditPack{}, err
}

// UpdateEditPack replaces notes and asset links of an existing pack.
func (service *Service) UpdateEditPack(ctx context.Context, rawScriptID string, editorNotes string, assetsLinks []AssetLink) (EditPack, error) {
	scriptID, err := requireID(rawScriptID, ErrInvalidScriptID)
	if err != nil {
		return EditPack{}, err
	}
	links, err := normalizeAssetLinks(assetsLinks)
	if err != nil {
		return EditPack{}, err
	}
	pack, err := service.store.GetEditPackByScript(ctx, scriptID)
	if err == nil {
		pack.EditorNotes = strings.TrimSpace(editorNotes)
		pack.AssetsLinks = links
		pack.UpdatedAt = service.now()
		pack, err = service.store.UpdateEditPack(ctx, pack)
	}
	service.logOperation(ctx, OperationLog{Operation: operationUpdateEditPack, ScriptID: scriptID, Error: err})
	if err != nil {
		return EditPack{}, err
	}
	return pack, nil
}

// ResolveEditPack looks up a pack by its share token. Expiry is left to the caller
// through EditPack.Expired.
func (service *Service) ResolveEditPack(ctx context.Context, rawToken string) (ResolvedEditPack, error) {
	token, err := requireID(rawToken, ErrInvalidToken)
	if err != nil {
		return ResolvedEditPack{}, err
	}
	pack, err := service.store.GetEditPackByToken(ctx, token)
	if err != nil {
		return ResolvedEditPack{}, err
	}
	script, err := service.store.GetScript(ctx, pack.ScriptID)
	if err != nil {
		return ResolvedEditPack{}, err
	}
	return ResolvedEditPack{
		Pack:        pack,
		ScriptTitle: script.Title,
		ScriptText:  script.Text,
		VoiceLink:   script.VoiceLink,
	}, nil
}

// EditPackExpired reports expiry against the service clock.
func (service *Service) EditPackExpired(pack EditPack) bool {
	return pack.Expired(service.now())
}

func (service *Service) getOrCreateEditPack(ctx context.Context, store Store, script Script) (EditPack, error) {
	if !script.AdminApproved() {
		return EditPack{}, ErrAdminApprovalRequired
	}
	existing, err := store.GetEditPackByScript(ctx, script.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrEditPackNotFound) {
		return EditPack{}, err
	}
	token, err := service.generateToken()
	if err != nil {
		return EditPack{}, fmt.Errorf("generate edit pack token: %w", err)
	}
	now := service.now()
	created, err := store.InsertEditPack(ctx, EditPack{
		ScriptID:    script.ID,
		Token:       token,
		AssetsLinks: []AssetLink{},
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(service.editPackTTL),
	})
	if errors.Is(err, ErrEditPackExists) {
		return store.GetEditPackByScript(ctx, script.ID)
	}
	if err != nil {
		return EditPack{}, err
	}
	service.logOperation(ctx, OperationLog{Operation: operationGetOrCreateEditPack, ScriptID: script.ID})
	return created, nil
}

func normalizeAssetLinks(links []AssetLink) ([]AssetLink, error) {
	normalized := make([]AssetLink, 0, len(links))
	for index, link := range links {
		label := strings.TrimSpace(link.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: link %d has no label", ErrInvalidAssetLink, index)
		}
		target, ok := validateHTTPURL(link.URL)
		if !ok {
			return nil, fmt.Errorf("%w: link %d url %q", ErrInvalidAssetLink, index, link.URL)
		}
		normalized = append(normalized, AssetLink{Label: label, URL: target})
	}
	return normalized, nil
}
