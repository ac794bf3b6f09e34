package http

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	Subprotocols:    []string{"binary"},
	// The viewer page may be opened from the demo pages' origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// VNCViewer handles GET /vnc/:id. It serves a noVNC page whose RFB
// client connects back through this instance's proxy endpoint, so the
// load balancer's stickiness cookie keeps the WebSocket on the
// instance that owns the container.
func (h *Handlers) VNCViewer(c *gin.Context) {
	sessionID := c.Param("id")

	sess, ok := h.manager.Get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}

	token := c.Query("session_stickiness")
	if token == "" {
		token = sess.StickinessToken
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	err := viewerTemplate.Execute(c.Writer, viewerData{
		SessionID: sessionID,
		ProxyPath: fmt.Sprintf("/vnc-proxy/%s?session_stickiness=%s", sessionID, token),
		Password:  h.vnc.Password,
	})
	if err != nil {
		h.logger.Error("Failed to render VNC viewer", zap.Error(err))
	}
}

// VNCProxy handles GET /vnc-proxy/:id. It verifies the stickiness
// token, upgrades to WebSocket, and relays RFB bytes between the
// browser and the session container's noVNC listener.
func (h *Handlers) VNCProxy(c *gin.Context) {
	sessionID := c.Param("id")

	token := c.Query("session_stickiness")
	if _, err := h.issuer.Verify(token, sessionID); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session stickiness token"})
		return
	}

	sess, ok := h.manager.Get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found or expired"})
		return
	}

	backendURL := fmt.Sprintf("ws://127.0.0.1:%s/%s", sess.Endpoints.NoVNC, h.vnc.WSPath)
	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{"binary"},
	}
	backend, _, err := dialer.DialContext(c.Request.Context(), backendURL, nil)
	if err != nil {
		h.logger.Error("Failed to reach noVNC listener",
			zap.String("session_id", sessionID),
			zap.String("backend", backendURL),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": "VNC backend unavailable"})
		return
	}

	client, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		backend.Close()
		return
	}

	h.metrics.VNCConnections.Inc()
	defer h.metrics.VNCConnections.Dec()

	h.logger.Info("VNC proxy connected", zap.String("session_id", sessionID))

	done := make(chan struct{}, 2)
	go h.relay(client, backend, "upstream", done)
	go h.relay(backend, client, "downstream", done)
	<-done

	client.Close()
	backend.Close()
	<-done
}

// relay copies WebSocket messages from src to dst until either side
// closes.
func (h *Handlers) relay(src, dst *websocket.Conn, direction string, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	for {
		msgType, data, err := src.ReadMessage()
		if err != nil {
			return
		}
		if err := dst.WriteMessage(msgType, data); err != nil {
			return
		}
		h.metrics.RecordVNCBytes(direction, int64(len(data)))
	}
}

type viewerData struct {
	SessionID string
	ProxyPath string
	Password  string
}

var viewerTemplate = template.Must(template.New("vnc").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>NoVNC Session {{.SessionID}}</title>
    <style>
        body {
            margin: 0;
            background-color: dimgrey;
            height: 100%;
            display: flex;
            flex-direction: column;
        }
        html {
            height: 100%;
        }
        #top_bar {
            background-color: #6e84a3;
            color: white;
            font: bold 12px Helvetica;
            padding: 6px 5px 4px 5px;
            border-bottom: 1px outset;
        }
        #status {
            text-align: center;
        }
        #sendCtrlAltDelButton {
            position: fixed;
            top: 0px;
            right: 0px;
            border: 1px outset;
            padding: 5px;
            cursor: pointer;
        }
        #screen {
            flex: 1;
            overflow: hidden;
        }
    </style>
    <script type="module">
        import RFB from 'https://cdn.jsdelivr.net/gh/novnc/noVNC@master/core/rfb.js';

        function status(text) {
            document.getElementById('status').textContent = text;
        }

        document.addEventListener("DOMContentLoaded", function() {
            document.getElementById('sendCtrlAltDelButton').onclick = function() {
                if (rfb) {
                    rfb.sendCtrlAltDel();
                }
            };
        });

        const password = {{.Password}};
        const scheme = window.location.protocol === "https:" ? "wss://" : "ws://";
        const url = scheme + window.location.host + {{.ProxyPath}};

        let rfb;
        document.addEventListener("DOMContentLoaded", () => {
            status("Connecting");
            try {
                rfb = new RFB(document.getElementById('screen'), url, {
                    credentials: { password: password }
                });
                rfb.addEventListener("connect", () => status("Connected to VNC"));
                rfb.addEventListener("disconnect", () => status("Disconnected"));
                rfb.viewOnly = false;
                rfb.scaleViewport = true;
            } catch (err) {
                console.error("VNC Connection Error:", err);
                status("Connection failed");
            }
        });
    </script>
</head>
<body>
    <div id="top_bar">
        <div id="status">Loading</div>
        <div id="sendCtrlAltDelButton">Send CtrlAltDel</div>
    </div>
    <div id="screen"></div>
</body>
</html>
`))
