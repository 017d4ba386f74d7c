package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
)

const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
)

// storeError classifies a driver error into the store error taxonomy.
// Errors that are already classified pass through unchanged.
func storeError(collection string, err error) error {
	if err == nil {
		return nil
	}

	var serr *models.StoreError
	var verr *models.ValidationError
	if errors.As(err, &serr) || errors.As(err, &verr) {
		return err
	}

	kind := models.StoreUnknown
	var srvErr mongo.ServerError
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		kind = models.StoreNotFound
	case mongo.IsNetworkError(err),
		mongo.IsTimeout(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		kind = models.StoreNetwork
	case errors.As(err, &srvErr) &&
		(srvErr.HasErrorCode(codeUnauthorized) || srvErr.HasErrorCode(codeAuthenticationFailed)):
		kind = models.StorePermission
	}
	return models.NewStoreError(kind, collection, err)
}
