package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverSignsBodyWhenSecretSet(t *testing.T) {
	const secret = "shh"
	var gotSig string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Searchscrape-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	event := &Event{Type: "crawl.completed", JobID: "job-1", Data: map[string]any{"pages": 3}}
	err := Deliver(context.Background(), srv.URL, secret, event)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, expected, gotSig)
}

func TestDeliverOmitsSignatureWhenNoSecret(t *testing.T) {
	var gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Searchscrape-Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := Deliver(context.Background(), srv.URL, "", &Event{Type: "batch.completed", JobID: "job-2"})
	require.NoError(t, err)
	assert.Empty(t, gotSig)
}

func TestDeliverSetsEventAndDeliveryHeaders(t *testing.T) {
	var gotEvent, gotDelivery1, gotDelivery2 string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEvent = r.Header.Get("X-Searchscrape-Event")
		gotDelivery1 = r.Header.Get("X-Searchscrape-Delivery")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	event := &Event{Type: "crawl.completed", JobID: "job-7", Timestamp: 1000}
	require.NoError(t, Deliver(context.Background(), srv.URL, "", event))
	gotDelivery2 = gotDelivery1
	require.NoError(t, Deliver(context.Background(), srv.URL, "", event))

	assert.Equal(t, "crawl.completed", gotEvent)
	assert.NotEmpty(t, gotDelivery1)
	assert.Equal(t, gotDelivery1, gotDelivery2, "retried deliveries of the same event must carry the same delivery id")
}

func TestDeliverReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Deliver(context.Background(), srv.URL, "", &Event{Type: "crawl.failed", JobID: "job-3"})
	assert.Error(t, err)
}
