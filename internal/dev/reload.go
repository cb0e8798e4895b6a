package dev

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

// MessageType tells the browser client what to do.
type MessageType string

const (
	MessageReload MessageType = "reload"
	MessageCSS    MessageType = "css"
	MessageError  MessageType = "error"
	MessageClear  MessageType = "clear"
)

// Message is one websocket frame to the browser client.
type Message struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error,omitempty"`
	File  string      `json:"file,omitempty"`
}

// ReloadServer manages WebSocket connections for live reload.
type ReloadServer struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	log      *slog.Logger

	// lastError is replayed to browsers that connect while a rebuild is
	// failing.
	lastError string
}

// NewReloadServer creates a new reload server.
func NewReloadServer(log *slog.Logger) *ReloadServer {
	if log == nil {
		log = slog.Default()
	}
	return &ReloadServer{
		clients: make(map[*websocket.Conn]bool),
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Development only, any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and keeps it until the browser leaves.
func (r *ReloadServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.log.Debug("reload upgrade failed", "error", err)
		return
	}

	r.mu.Lock()
	r.clients[conn] = true
	lastError := r.lastError
	r.mu.Unlock()

	if lastError != "" {
		r.send(conn, Message{Type: MessageError, Error: lastError})
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	r.mu.Lock()
	delete(r.clients, conn)
	r.mu.Unlock()
	conn.Close()
}

// NotifyReload sends a full page reload message to all clients.
func (r *ReloadServer) NotifyReload() {
	r.setError("")
	r.broadcast(Message{Type: MessageReload})
}

// NotifyCSS sends a stylesheet reload message to all clients.
func (r *ReloadServer) NotifyCSS(file string) {
	r.broadcast(Message{Type: MessageCSS, File: file})
}

// NotifyError shows the error overlay on all clients.
func (r *ReloadServer) NotifyError(errMsg string) {
	r.setError(errMsg)
	r.broadcast(Message{Type: MessageError, Error: errMsg})
}

// ClearError clears the error overlay on all clients.
func (r *ReloadServer) ClearError() {
	r.setError("")
	r.broadcast(Message{Type: MessageClear})
}

func (r *ReloadServer) setError(msg string) {
	r.mu.Lock()
	r.lastError = msg
	r.mu.Unlock()
}

func (r *ReloadServer) send(conn *websocket.Conn, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	r.write(conn, data)
}

// write sends data to one client and drops it on failure. gorilla
// connections allow one concurrent writer, so writes are serialized.
func (r *ReloadServer) write(conn *websocket.Conn, data []byte) {
	r.mu.Lock()
	_, ok := r.clients[conn]
	var err error
	if ok {
		err = conn.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			delete(r.clients, conn)
		}
	}
	r.mu.Unlock()

	if err != nil {
		conn.Close()
	}
}

// broadcast sends a message to all connected clients.
func (r *ReloadServer) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	r.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	r.mu.RUnlock()

	for _, client := range clients {
		r.write(client, data)
	}
	r.log.Debug("reload broadcast", "type", msg.Type, "clients", len(clients))
}

// ClientCount returns the number of connected clients.
func (r *ReloadServer) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close closes all client connections.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for client := range r.clients {
		client.Close()
		delete(r.clients, client)
	}
}

// ReloadScript returns the browser client connecting to the reload
// endpoint at wsPath.
func ReloadScript(wsPath string) []byte {
	return []byte("const hubroReloadPath = " + strconv.Quote(wsPath) + ";\n" + reloadClient)
}

const reloadClient = `(function () {
    'use strict';

    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(protocol + '//' + location.host + hubroReloadPath);

        ws.onopen = function () {
            reconnectDelay = 1000;
        };

        ws.onmessage = function (e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }

            switch (msg.type) {
                case 'reload':
                    location.reload();
                    break;
                case 'css':
                    reloadCSS();
                    break;
                case 'error':
                    showErrorOverlay(msg.error);
                    break;
                case 'clear':
                    clearErrorOverlay();
                    break;
            }
        };

        ws.onclose = function () {
            setTimeout(function () {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function () {
            ws.close();
        };
    }

    function reloadCSS() {
        document.querySelectorAll('link[rel="stylesheet"]').forEach(function (link) {
            var url = new URL(link.href);
            url.searchParams.set('_reload', Date.now());
            link.href = url.toString();
        });
    }

    function showErrorOverlay(error) {
        clearErrorOverlay();

        var overlay = document.createElement('div');
        overlay.id = 'hubro-error-overlay';
        overlay.style.cssText = 'position:fixed;inset:0;background:rgba(0,0,0,0.9);color:#fff;font-family:monospace;font-size:14px;padding:20px;overflow:auto;z-index:999999;';

        var pre = document.createElement('pre');
        pre.style.cssText = 'white-space:pre-wrap;max-width:800px;margin:0 auto;';
        pre.textContent = error;

        overlay.appendChild(pre);
        document.body.appendChild(overlay);
    }

    function clearErrorOverlay() {
        var overlay = document.getElementById('hubro-error-overlay');
        if (overlay) {
            overlay.remove();
        }
    }

    connect();
})();
`
