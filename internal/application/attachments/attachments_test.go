package attachments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"showroom-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupabaseResolver_SignsBothWays(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if strings.Contains(r.URL.Path, "/upload/sign/") {
			_ = json.NewEncoder(w).Encode(map[string]string{"url": "/object/upload/sign/bucket/a.pdf?token=up"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"signedURL": "/object/sign/bucket/a.pdf?token=get"})
	}))
	defer srv.Close()

	r := &SupabaseResolver{BaseURL: srv.URL, SecretKey: "secret", Bucket: "bucket"}
	up, err := r.SignedUploadURL(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/upload/sign/bucket/a.pdf?token=up", up)

	get, err := r.SignedURL(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/sign/bucket/a.pdf?token=get", get)
	assert.Equal(t, []string{"/storage/v1/object/upload/sign/bucket/a.pdf", "/storage/v1/object/sign/bucket/a.pdf"}, paths)
}

func TestSupabaseResolver_MissingConfig(t *testing.T) {
	_, err := (&SupabaseResolver{}).SignedURL(context.Background(), "a.pdf")
	assert.Error(t, err)
}

func TestS3Resolver_Presigns(t *testing.T) {
	r, err := NewS3Resolver(S3Config{Region: "eu-west-3", Bucket: "receipts", AccessKeyID: "AKID", SecretAccessKey: "SECRET"})
	require.NoError(t, err)

	get, err := r.SignedURL(context.Background(), "payment-requests/a.pdf")
	require.NoError(t, err)
	assert.Contains(t, get, "receipts")
	assert.Contains(t, get, "X-Amz-Signature=")

	put, err := r.SignedUploadURL(context.Background(), "payment-requests/a.pdf")
	require.NoError(t, err)
	assert.Contains(t, put, "payment-requests/a.pdf")
}

type stubResolver struct{ err error }

func (s stubResolver) SignedURL(_ context.Context, p string) (string, error) {
	return "https://files.test/" + p, s.err
}

func (s stubResolver) SignedUploadURL(_ context.Context, p string) (string, error) {
	return "https://files.test/upload/" + p, s.err
}

func TestService_NewUploadAndURL(t *testing.T) {
	s := &Service{Resolver: stubResolver{}, Now: func() time.Time { return time.UnixMilli(1700000000000) }}
	res, err := s.NewUpload(context.Background(), "../../receipt.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Path, "payment-requests/1700000000000-"))
	assert.True(t, strings.HasSuffix(res.Path, "-receipt.pdf"))
	assert.Equal(t, "https://files.test/upload/"+res.Path, res.UploadURL)

	assert.Equal(t, "https://files.test/"+res.Path, s.URL(context.Background(), &res.Path))
	assert.Equal(t, "", s.URL(context.Background(), nil))

	_, err = s.NewUpload(context.Background(), "  ")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	failing := &Service{Resolver: stubResolver{err: errors.New("down")}}
	assert.Equal(t, "", failing.URL(context.Background(), &res.Path))
}
