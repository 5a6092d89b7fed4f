package obsws

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Opcodes of the obs-websocket v5 framing layer.
const (
	opHello        = 0
	opIdentify     = 1
	opIdentified   = 2
	opReidentify   = 3
	opEvent        = 5
	opRequest      = 6
	opRequestReply = 7
)

// SubscriptionAll enables every non-high-volume event category. High-volume
// categories (volume meters, frame data) must be opted into separately.
const SubscriptionAll = 0x7FF

// envelope is the outer frame of every obs-websocket message.
type envelope struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

// helloData is the payload of the server's Hello (op 0) message.
type helloData struct {
	ObsWebSocketVersion string `json:"obsWebSocketVersion"`
	RPCVersion          int    `json:"rpcVersion"`
	Authentication      *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication"`
}

// identifyData is the payload of the client's Identify (op 1) message.
type identifyData struct {
	RPCVersion         int    `json:"rpcVersion"`
	Authentication     string `json:"authentication,omitempty"`
	EventSubscriptions int    `json:"eventSubscriptions"`
}

// identifiedData is the payload of the server's Identified (op 2) message.
type identifiedData struct {
	NegotiatedRPCVersion int `json:"negotiatedRpcVersion"`
}

// requestData is the payload of a client request (op 6).
type requestData struct {
	RequestType string `json:"requestType"`
	RequestID   string `json:"requestId"`
	RequestData any    `json:"requestData,omitempty"`
}

// replyData is the payload of a request response (op 7).
type replyData struct {
	RequestType   string `json:"requestType"`
	RequestID     string `json:"requestId"`
	RequestStatus struct {
		Result  bool   `json:"result"`
		Code    int    `json:"code"`
		Comment string `json:"comment"`
	} `json:"requestStatus"`
	ResponseData json.RawMessage `json:"responseData"`
}

// eventData is the payload of a server-pushed event (op 5).
type eventData struct {
	EventType   string          `json:"eventType"`
	EventIntent int             `json:"eventIntent"`
	EventData   json.RawMessage `json:"eventData"`
}

// Event is a server-pushed notification. Data holds the raw event payload;
// callers decode it with the typed structs in events.go. Connection loss is
// signalled by closing the event channel, so subscribers observe both data
// and disconnection on the same channel.
type Event struct {
	Type string
	Data json.RawMessage
}

// RequestError is returned by Call when the server rejects a request.
type RequestError struct {
	Type    string // Request type that failed.
	Code    int    // obs-websocket RequestStatus code.
	Comment string // Optional human-readable explanation.
}

func (e *RequestError) Error() string {
	if e.Comment != "" {
		return fmt.Sprintf("obsws: %s failed (code %d): %s", e.Type, e.Code, e.Comment)
	}
	return fmt.Sprintf("obsws: %s failed (code %d)", e.Type, e.Code)
}

// authResponse computes the Identify authentication string for a
// challenge/salt pair: base64(sha256(base64(sha256(password+salt)) + challenge)).
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	b64Secret := base64.StdEncoding.EncodeToString(secret[:])
	proof := sha256.Sum256([]byte(b64Secret + challenge))
	return base64.StdEncoding.EncodeToString(proof[:])
}
