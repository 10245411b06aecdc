package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilerojas/orden-compra-app/internal/notify"
)

func testMessage() notify.Message {
	return notify.Message{
		OrderNumber: "OC-2024-0158",
		Supplier:    "QUIMICA INDUSTRIAL DEL CARIBE SRL",
		Total:       decimal.RequireFromString("245.50"),
		Currency:    "USD",
	}
}

func TestWaSenderSend(t *testing.T) {
	var uploaded []byte
	var sent map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/upload":
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "Orden_Compra_OC-2024-0158.pdf", header.Filename)
			uploaded, err = io.ReadAll(file)
			require.NoError(t, err)
			_ = json.NewEncoder(w).Encode(map[string]string{"publicUrl": "https://cdn.example/doc.pdf"})
		case "/api/send-message":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	ws := notify.NewWaSender(notify.WaSenderConfig{
		APIBase: srv.URL,
		APIKey:  "token",
		GroupID: "1203630@g.us",
	}, nil)

	pdf := []byte("%PDF-1.4 test")
	require.NoError(t, ws.Send(context.Background(), pdf, testMessage()))

	assert.Equal(t, pdf, uploaded)
	require.NotNil(t, sent)
	assert.Equal(t, "1203630@g.us", sent["to"])
	assert.Equal(t, "https://cdn.example/doc.pdf", sent["documentUrl"])
	assert.Equal(t, "Orden_Compra_OC-2024-0158.pdf", sent["fileName"])
	assert.Contains(t, sent["text"], "OC-2024-0158")
	assert.Contains(t, sent["text"], "USD 245.50")
}

func TestWaSenderExplicitDestination(t *testing.T) {
	var sent map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/upload":
			_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example/doc.pdf"})
		case "/api/send-message":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		}
	}))
	defer srv.Close()

	ws := notify.NewWaSender(notify.WaSenderConfig{APIBase: srv.URL, GroupID: "group@g.us"}, nil)

	msg := testMessage()
	msg.Destination = "18095550123@s.whatsapp.net"
	msg.Filename = "orden.pdf"
	require.NoError(t, ws.Send(context.Background(), []byte("%PDF-"), msg))

	assert.Equal(t, "18095550123@s.whatsapp.net", sent["to"], "explicit destination wins over the group")
	assert.Equal(t, "orden.pdf", sent["fileName"])
}

func TestWaSenderUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ws := notify.NewWaSender(notify.WaSenderConfig{APIBase: srv.URL, GroupID: "group@g.us"}, nil)

	err := ws.Send(context.Background(), []byte("%PDF-"), testMessage())
	var nErr *notify.Error
	require.ErrorAs(t, err, &nErr)
	assert.Equal(t, "upload", nErr.Step)
}

func TestWaSenderSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/upload":
			_ = json.NewEncoder(w).Encode(map[string]string{"publicUrl": "https://cdn.example/doc.pdf"})
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	ws := notify.NewWaSender(notify.WaSenderConfig{APIBase: srv.URL, GroupID: "group@g.us"}, nil)

	err := ws.Send(context.Background(), []byte("%PDF-"), testMessage())
	var nErr *notify.Error
	require.ErrorAs(t, err, &nErr)
	assert.Equal(t, "send", nErr.Step)
}

func TestWaSenderNoDestination(t *testing.T) {
	ws := notify.NewWaSender(notify.WaSenderConfig{APIBase: "http://unused"}, nil)

	err := ws.Send(context.Background(), []byte("%PDF-"), testMessage())
	var nErr *notify.Error
	require.ErrorAs(t, err, &nErr)
	assert.Equal(t, "send", nErr.Step)
}
