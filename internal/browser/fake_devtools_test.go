package browser

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	json "github.com/json-iterator/go"
)

// fakeDevTools speaks just enough of the DevTools protocol over a websocket
// for the remote allocator to list targets and attach to a page.
type fakeDevTools struct {
	srv     *httptest.Server
	targets []map[string]any
	// silent drops every command without answering.
	silent bool

	mu           sync.Mutex
	methods      []string
	disconnected chan struct{}
}

type cdpCommand struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

func newFakeDevTools(t *testing.T, silent bool, pageURLs ...string) *fakeDevTools {
	t.Helper()
	f := &fakeDevTools{silent: silent, disconnected: make(chan struct{})}
	for i, u := range pageURLs {
		f.targets = append(f.targets, map[string]any{
			"targetId":        "tab-" + string(rune('a'+i)),
			"type":            "page",
			"title":           "Chat",
			"url":             u,
			"attached":        false,
			"canAccessOpener": false,
		})
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

// URL is the browser websocket endpoint.
func (f *fakeDevTools) URL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/devtools/browser/fake"
}

// Methods returns the commands received so far, in order.
func (f *fakeDevTools) Methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func (f *fakeDevTools) isDisconnected() bool {
	select {
	case <-f.disconnected:
		return true
	default:
		return false
	}
}

func (f *fakeDevTools) serve(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	defer conn.Close()
	defer close(f.disconnected)

	for {
		data, _, err := wsutil.ReadClientData(conn)
		if err != nil {
			return
		}
		var cmd cdpCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		f.mu.Lock()
		f.methods = append(f.methods, cmd.Method)
		f.mu.Unlock()
		if f.silent {
			continue
		}

		reply := map[string]any{"id": cmd.ID, "result": f.result(cmd)}
		if cmd.SessionID != "" {
			reply["sessionId"] = cmd.SessionID
		}
		out, err := json.Marshal(reply)
		if err != nil {
			return
		}
		if err := wsutil.WriteServerMessage(conn, ws.OpText, out); err != nil {
			return
		}
	}
}

func (f *fakeDevTools) result(cmd cdpCommand) map[string]any {
	switch cmd.Method {
	case "Target.getTargets":
		infos := f.targets
		if infos == nil {
			infos = []map[string]any{}
		}
		return map[string]any{"targetInfos": infos}
	case "Target.attachToTarget":
		return map[string]any{"sessionId": "session-1"}
	case "Target.createTarget":
		return map[string]any{"targetId": "tab-new"}
	case "Runtime.evaluate":
		return map[string]any{"result": map[string]any{"type": "object", "className": "Window"}}
	case "Page.getFrameTree":
		return map[string]any{"frameTree": map[string]any{"frame": map[string]any{
			"id":                             "tab-a",
			"loaderId":                       "loader-1",
			"url":                            "https://chat.example/c/1",
			"domainAndRegistry":              "chat.example",
			"securityOrigin":                 "https://chat.example",
			"mimeType":                       "text/html",
			"secureContextType":              "Secure",
			"crossOriginIsolatedContextType": "NotIsolated",
			"gatedAPIFeatures":               []string{},
		}}}
	case "DOM.getDocument":
		return map[string]any{"root": map[string]any{
			"nodeId":        1,
			"backendNodeId": 1,
			"nodeType":      9,
			"nodeName":      "#document",
			"localName":     "",
			"nodeValue":     "",
		}}
	default:
		return map[string]any{}
	}
}
