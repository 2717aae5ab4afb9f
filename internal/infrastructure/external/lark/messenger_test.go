package lark

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedMessage struct {
	ReceiveIDType string
	ReceiveID     string `json:"receive_id"`
	MsgType       string `json:"msg_type"`
	Content       string `json:"content"`
}

// fakeOpenAPI serves the token and message endpoints used by Messenger
type fakeOpenAPI struct {
	mu       sync.Mutex
	messages []capturedMessage
	failCode int
}

func (f *fakeOpenAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(r.URL.Path, "/tenant_access_token/internal"):
		_, _ = io.WriteString(w, `{"code":0,"msg":"ok","tenant_access_token":"t-test","expire":7200}`)
	case strings.HasSuffix(r.URL.Path, "/im/v1/messages"):
		body, _ := io.ReadAll(r.Body)
		var msg capturedMessage
		_ = json.Unmarshal(body, &msg)
		msg.ReceiveIDType = r.URL.Query().Get("receive_id_type")

		f.mu.Lock()
		f.messages = append(f.messages, msg)
		code := f.failCode
		f.mu.Unlock()

		if code != 0 {
			_, _ = io.WriteString(w, `{"code":230002,"msg":"bot is not in the chat"}`)
			return
		}
		_, _ = io.WriteString(w, `{"code":0,"msg":"success","data":{"message_id":"om_1"}}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestMessenger(t *testing.T, api *fakeOpenAPI) *Messenger {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client := NewClient(Config{AppID: "cli_test", AppSecret: "secret", BaseURL: srv.URL}, zap.NewNop())
	return NewMessenger(client, zap.NewNop())
}

func TestMessenger_SendText(t *testing.T) {
	api := &fakeOpenAPI{}
	m := newTestMessenger(t, api)

	err := m.SendText(context.Background(), "oc_rm", `Request "FRC-1" awaits you`)
	require.NoError(t, err)

	require.Len(t, api.messages, 1)
	got := api.messages[0]
	assert.Equal(t, "chat_id", got.ReceiveIDType)
	assert.Equal(t, "oc_rm", got.ReceiveID)
	assert.Equal(t, "text", got.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(got.Content), &content))
	assert.Equal(t, `Request "FRC-1" awaits you`, content["text"])
}

func TestMessenger_SendCard(t *testing.T) {
	api := &fakeOpenAPI{}
	m := newTestMessenger(t, api)

	card := map[string]interface{}{"header": map[string]interface{}{"title": "hello"}}
	require.NoError(t, m.SendCard(context.Background(), "oc_dce", card))

	require.Len(t, api.messages, 1)
	assert.Equal(t, "interactive", api.messages[0].MsgType)
	assert.JSONEq(t, `{"header":{"title":"hello"}}`, api.messages[0].Content)
}

func TestMessenger_APIFailure(t *testing.T) {
	api := &fakeOpenAPI{failCode: 230002}
	m := newTestMessenger(t, api)

	err := m.SendText(context.Background(), "oc_rm", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "230002")
}

func TestMessenger_Validation(t *testing.T) {
	m := NewMessenger(NewClient(Config{AppID: "a", AppSecret: "b"}, zap.NewNop()), zap.NewNop())
	ctx := context.Background()

	assert.Error(t, m.SendText(ctx, "", "hi"))
	assert.Error(t, m.SendText(ctx, "oc", ""))
	assert.Error(t, m.SendCard(ctx, "", map[string]string{}))
	assert.Error(t, m.SendCard(ctx, "oc", nil))
}
