package wireerr_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rpipe-project/rpipe-server/internal/wireerr"
)

func TestSharedHTTPStatusesDoNotCollide(t *testing.T) {
	assert.NotEqual(t, wireerr.UploadIllegalVersion, wireerr.QueryIllegalVersion)
	assert.NotEqual(t, wireerr.UploadIllegalVersion, wireerr.DownloadIllegalVersion)
	assert.Equal(t, http.StatusUpgradeRequired, wireerr.HTTPStatus(wireerr.UploadIllegalVersion))
	assert.Equal(t, http.StatusUpgradeRequired, wireerr.HTTPStatus(wireerr.QueryIllegalVersion))
	assert.Equal(t, http.StatusUpgradeRequired, wireerr.HTTPStatus(wireerr.DownloadIllegalVersion))
}

func TestDescriptorRoundTrip(t *testing.T) {
	d, ok := wireerr.Descriptor(wireerr.UploadConflict)
	assert.True(t, ok)
	assert.Equal(t, "upload", d.Group)
	assert.Equal(t, "CONFLICT", d.Value)
}
