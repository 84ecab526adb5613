package source

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/vigil-data/vigil/internal/common"
)

// ClassifyError folds an S3 SDK error into the pipeline taxonomy so callers
// can branch on the condition without touching SDK types. The original error
// text is preserved in the wrap.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
		return fmt.Errorf("%v: %w", err, common.ErrNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return fmt.Errorf("%v: %w", err, common.ErrNotFound)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return fmt.Errorf("%v: %w", err, common.ErrForbidden)
		}
	}

	// Everything else (network faults, 5xx, throttling) is worth a retry.
	return fmt.Errorf("%v: %w", err, common.ErrTransient)
}
