// Package archive stores successful generations: metadata in an
// IconRepository and image bytes in a blob store.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"iconforge/internal/domain"
	"iconforge/internal/infra"
	"iconforge/pkg/zip"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	maxExportIcons   = 500
)

// BlobStore is satisfied by storage.FileStore.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type Options struct {
	Icons  domain.IconRepository
	Blobs  BlobStore
	Logger *infra.Logger
	Now    func() time.Time
}

type Archive struct {
	icons  domain.IconRepository
	blobs  BlobStore
	logger *infra.Logger
	now    func() time.Time
}

func New(opts Options) (*Archive, error) {
	if opts.Icons == nil || opts.Blobs == nil {
		return nil, errors.New("archive: icon repository and blob store are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Archive{icons: opts.Icons, blobs: opts.Blobs, logger: logger, now: now}, nil
}

// Save writes the image and then its metadata. A metadata failure removes the
// blob again.
func (a *Archive) Save(ctx context.Context, accountKey, prompt string, data []byte, mime string) (*domain.Icon, error) {
	accountKey, err := requireAccount(accountKey)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("archive: image is empty")
	}
	if mime == "" {
		mime = "image/png"
	}
	id := uuid.NewString()
	key, err := a.blobs.Write(ctx, blobKey(accountKey, id, mime), data)
	if err != nil {
		return nil, fmt.Errorf("archive: write image: %w", err)
	}
	icon := &domain.Icon{
		ID:         id,
		AccountKey: accountKey,
		Prompt:     prompt,
		StorageKey: key,
		MIME:       mime,
		Bytes:      int64(len(data)),
		CreatedAt:  a.now().UTC(),
	}
	if err := a.icons.Save(ctx, icon); err != nil {
		if delErr := a.blobs.Delete(ctx, key); delErr != nil {
			a.logger.Warn().Err(delErr).Str("storage_key", key).Msg("archive: orphaned blob")
		}
		return nil, fmt.Errorf("archive: save metadata: %w", err)
	}
	return icon, nil
}

// List returns an account's icons newest first, without image bytes.
func (a *Archive) List(ctx context.Context, accountKey string, limit int) ([]domain.Icon, error) {
	accountKey, err := requireAccount(accountKey)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return a.icons.ListByAccount(ctx, accountKey, limit)
}

// Get returns one icon with its bytes loaded.
func (a *Archive) Get(ctx context.Context, id, accountKey string) (*domain.Icon, error) {
	accountKey, err := requireAccount(accountKey)
	if err != nil {
		return nil, err
	}
	icon, err := a.icons.Get(ctx, id, accountKey)
	if err != nil {
		return nil, err
	}
	data, err := a.blobs.Read(ctx, icon.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("archive: read image: %w", err)
	}
	icon.Data = data
	return icon, nil
}

// Delete removes an icon owned by accountKey. Unknown ids and foreign icons
// both report domain.ErrNotFound.
func (a *Archive) Delete(ctx context.Context, id, accountKey string) error {
	accountKey, err := requireAccount(accountKey)
	if err != nil {
		return err
	}
	icon, err := a.icons.Get(ctx, id, accountKey)
	if err != nil {
		return err
	}
	if err := a.icons.Delete(ctx, id, accountKey); err != nil {
		return err
	}
	if err := a.blobs.Delete(ctx, icon.StorageKey); err != nil {
		a.logger.Warn().Err(err).Str("storage_key", icon.StorageKey).Msg("archive: blob delete failed")
	}
	return nil
}

func (a *Archive) SetFavorite(ctx context.Context, id, accountKey string, favorite bool) error {
	accountKey, err := requireAccount(accountKey)
	if err != nil {
		return err
	}
	return a.icons.SetFavorite(ctx, id, accountKey, favorite)
}

// Export zips every icon of the account. Icons whose bytes are gone are
// skipped.
func (a *Archive) Export(ctx context.Context, accountKey string) ([]byte, int, error) {
	accountKey, err := requireAccount(accountKey)
	if err != nil {
		return nil, 0, err
	}
	icons, err := a.icons.ListByAccount(ctx, accountKey, maxExportIcons)
	if err != nil {
		return nil, 0, err
	}
	assets := make([]zip.Asset, 0, len(icons))
	for _, icon := range icons {
		data, err := a.blobs.Read(ctx, icon.StorageKey)
		if err != nil {
			a.logger.Warn().Err(err).Str("icon_id", icon.ID).Msg("archive: skipping icon in export")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: exportName(icon),
			MIME:     icon.MIME,
			Data:     data,
			Modified: icon.CreatedAt,
		})
	}
	out, err := zip.ArchiveAssets(assets)
	if err != nil {
		return nil, 0, err
	}
	return out, len(assets), nil
}

func requireAccount(accountKey string) (string, error) {
	key := strings.TrimSpace(accountKey)
	if key == "" {
		return "", &domain.ValidationError{Field: "email", Reason: "is required"}
	}
	return key, nil
}

func blobKey(accountKey, id, mime string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(accountKey))))
	return "icons/" + hex.EncodeToString(sum[:8]) + "/" + id + zip.ExtensionForMIME(mime)
}

func exportName(icon domain.Icon) string {
	slug := slugify(icon.Prompt)
	if slug == "" {
		slug = "icon"
	}
	return fmt.Sprintf("%s-%s%s", icon.CreatedAt.UTC().Format("20060102-150405"), slug, zip.ExtensionForMIME(icon.MIME))
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	return strings.Trim(b.String(), "-")
}
