package volsdk

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/imroc/req/v3"
)

// filesEndpoint is the root of the workspace files API. Volume paths are
// appended verbatim: PUT /api/2.0/fs/files/Volumes/<catalog>/<schema>/<volume>/<rel>.
const filesEndpoint = "/api/2.0/fs/files"

type FilesAPI struct {
	client     *req.Client
	volumePath string
}

func newFilesAPI(client *req.Client, volumePath string) *FilesAPI {
	return &FilesAPI{
		client:     client,
		volumePath: "/" + strings.Trim(volumePath, "/"),
	}
}

// RemotePath returns the API path a relative key is written to.
func (f *FilesAPI) RemotePath(relPath string) string {
	return filesEndpoint + f.volumePath + "/" + strings.TrimPrefix(relPath, "/")
}

// Upload writes the full content of localPath to the volume at relPath
// with create-or-replace semantics. The PUT is idempotent, so it is issued
// exactly once with no transport retries; any failure surfaces as an error
// and the caller decides whether a later run retries.
func (f *FilesAPI) Upload(ctx context.Context, localPath, relPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetContentType("application/octet-stream").
		SetBodyBytes(data).
		Put(f.RemotePath(relPath))

	return handleAPIError(resp, err, "files upload")
}
