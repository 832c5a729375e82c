// Package volsdk is a minimal client for the workspace files HTTP API.
// It exposes exactly what the mirror needs: create-or-replace writes of
// raw bytes at a volume path.
package volsdk

import (
	"fmt"
	"runtime"
	"time"

	"github.com/gitvol/gitvol/internal/version"
	"github.com/imroc/req/v3"
)

var userAgent = fmt.Sprintf("GitVol/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// SDK is the client for the workspace files API.
type SDK struct {
	client  *req.Client
	baseURL string
	Files   *FilesAPI
}

// New creates an SDK client against baseURL, authenticating every request
// with the given bearer token.
func New(baseURL, token, volumePath string) *SDK {
	client := req.C().
		SetBaseURL(baseURL).
		SetCommonBearerAuthToken(token).
		SetUserAgent(userAgent).
		SetTimeout(2 * time.Minute)

	return &SDK{
		client:  client,
		baseURL: baseURL,
		Files:   newFilesAPI(client, volumePath),
	}
}

// Close releases idle connections held by the underlying client.
func (s *SDK) Close() {
	s.client.GetTransport().CloseIdleConnections()
}
