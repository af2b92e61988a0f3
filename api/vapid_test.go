package api

import (
	"encoding/json"
	"net/http"
	"testing"
	
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVAPIDPublicKey(t *testing.T) {
	ts := newTestServer(t)
	
	recorder := ts.do(t, http.MethodGet, "/v1/vapid-public-key", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	
	var resp vapidPublicKeyResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, testPublicKey, resp.PublicKey)
}
