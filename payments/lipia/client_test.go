package lipia

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmwangi/ethpesa/core/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

func TestRequestSTKSuccess(t *testing.T) {
	var gotMethod, gotAuth, gotContentType string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"data":{"refference":"STK-42"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "api-key", srv.Client())
	ref, err := c.RequestSTK(context.Background(), "0712345678", decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.Equal(t, "STK-42", ref)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "Bearer api-key", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "0712345678", gotBody["phone"])
	assert.EqualValues(t, 100, gotBody["amount"])
}

func TestRequestSTKStatusErrorWithMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Insufficient funds"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "api-key", srv.Client())
	_, err := c.RequestSTK(context.Background(), "0712345678", decimal.NewFromInt(100))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "Insufficient funds", statusErr.Message)
}

func TestRequestSTKStatusErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL, "api-key", srv.Client())
	_, err := c.RequestSTK(context.Background(), "0712345678", decimal.NewFromInt(100))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Empty(t, statusErr.Message)
}

func TestRequestSTKMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(srv.URL, "api-key", srv.Client())
	_, err := c.RequestSTK(context.Background(), "0712345678", decimal.NewFromInt(100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestRequestSTKMissingReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "api-key", srv.Client())
	_, err := c.RequestSTK(context.Background(), "0712345678", decimal.NewFromInt(100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference")
}

func TestRequestSTKNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL, "api-key", nil)
	_, err := c.RequestSTK(context.Background(), "0712345678", decimal.NewFromInt(100))
	require.Error(t, err)

	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr), "network failure must not be a StatusError")
}
