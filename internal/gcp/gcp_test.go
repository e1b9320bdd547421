package gcp

import (
	"context"
	"net/http"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusPreconditionFailed}))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(eris.New("boom")))
	assert.False(t, isPreconditionFailed(nil))
}

func TestNewFirestoreClientNeedsProject(t *testing.T) {
	client, err := NewFirestoreClient(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, client)
}
