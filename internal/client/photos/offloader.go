// Package photos moves inline audit photos to object storage.
package photos

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/auditkeeper/internal/client/client"
	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/logging"
	"github.com/dmitrijs2005/auditkeeper/internal/netx"
)

// Presigner hands out presigned object-storage URLs.
type Presigner interface {
	PresignPhotoUpload(ctx context.Context, contentType string) (*client.PresignedURL, error)
}

// Offloader uploads pending photo bytes through presigned PUT URLs and
// replaces them with the storage key. A photo whose upload fails stays
// inline and is retried on the next reconciliation.
type Offloader struct {
	presigner Presigner
	http      *http.Client
	log       logging.Logger
}

func NewOffloader(p Presigner, httpClient *http.Client, log logging.Logger) *Offloader {
	return &Offloader{presigner: p, http: httpClient, log: log.With("module", "photos")}
}

// Offload returns a copy of audit with every photo it managed to upload
// converted to a key reference. Per-photo failures are logged, not
// returned; an authentication failure stops the remaining uploads.
func (o *Offloader) Offload(ctx context.Context, audit models.Audit) (models.Audit, error) {
	out := audit.Clone()
	for q, ps := range out.Photos {
		for i, p := range ps {
			if !p.Pending() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return audit, err
			}

			key, err := o.upload(ctx, p)
			if err != nil {
				o.log.Warn(ctx, "photo upload failed", "audit", audit.ID, "photo", p.ID, "error", err)
				if errors.Is(err, client.ErrUnauthenticated) {
					return out, nil
				}
				continue
			}
			out.Photos[q][i].Key = key
			out.Photos[q][i].Data = nil
		}
	}
	return out, nil
}

func (o *Offloader) upload(ctx context.Context, p models.Photo) (string, error) {
	u, err := o.presigner.PresignPhotoUpload(ctx, p.ContentType)
	if err != nil {
		return "", err
	}
	if u.Key == "" {
		return "", errors.New("presigned upload without key")
	}
	if err := netx.UploadToPresignedURL(ctx, o.http, u.URL, p.ContentType, p.Data); err != nil {
		return "", err
	}
	return u.Key, nil
}
