package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "TOKEN")
	require.NoError(t, c.SendMessage(context.Background(), "100", "*привет*"))

	require.Equal(t, "/botTOKEN/sendMessage", gotPath)
	require.Equal(t, "100", gotBody["chat_id"])
	require.Equal(t, "Markdown", gotBody["parse_mode"])
}

func TestSendMessage_apiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, "TOKEN").SendMessage(context.Background(), "100", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
	require.Contains(t, err.Error(), "blocked")
}

func TestSendDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "100", r.FormValue("chat_id"))
		require.Equal(t, "Отчёт", r.FormValue("caption"))

		f, hdr, err := r.FormFile("document")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "order_ORD-1.pdf", hdr.Filename)

		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "TOKEN")
	err := c.SendDocument(context.Background(), "100", "order_ORD-1.pdf", []byte("%PDF-1.4"), "Отчёт")
	require.NoError(t, err)
}

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, float64(42), body["offset"])
		w.Write([]byte(`{"ok":true,"result":[{"update_id":42,"message":{"message_id":7,"text":"/status ORD-1","chat":{"id":100}}}]}`))
	}))
	defer srv.Close()

	ups, err := New(srv.URL, "TOKEN").GetUpdates(context.Background(), 42, 30)
	require.NoError(t, err)
	require.Len(t, ups, 1)
	require.Equal(t, int64(42), ups[0].UpdateID)
	require.Equal(t, "/status ORD-1", ups[0].Message.Text)
	require.Equal(t, int64(100), ups[0].Message.Chat.ID)
}
