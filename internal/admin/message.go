package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Message is the canonical admin message signed by the client: the path
// being invoked, its arguments, and the nonce binding it to one request.
// Field order in the struct is irrelevant — Canonical below is what gets
// signed.
type Message struct {
	Path string            `json:"path"`
	Args map[string]string `json:"args"`
	UID  string            `json:"uid"`
}

// Canonical serializes m deterministically — sorted object keys, no
// whitespace — so the signer and verifier agree byte-for-byte regardless
// of which JSON encoder produced the bytes, per spec.md §4.5.
func (m Message) Canonical() []byte {
	args := make([]string, 0, len(m.Args))
	for k := range m.Args {
		args = append(args, k)
	}
	sort.Strings(args)

	var buf bytes.Buffer
	buf.WriteString(`{"args":{`)
	for i, k := range args {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, k)
		buf.WriteByte(':')
		writeJSONString(&buf, m.Args[k])
	}
	buf.WriteString(`},"path":`)
	writeJSONString(&buf, m.Path)
	buf.WriteString(`,"uid":`)
	writeJSONString(&buf, m.UID)
	buf.WriteByte('}')
	return buf.Bytes()
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// Envelope is the admin POST body: a detached signature over a Message's
// canonical bytes, plus the nonce and client version repeated outside the
// signed payload so the server can route before it finishes verifying.
type Envelope struct {
	Signature []byte `json:"signature"`
	UID       string `json:"uid"`
	Version   string `json:"version"`
}

// Validate checks structural well-formedness only; it does not verify the
// signature or consume the nonce — callers do that via Verifier and
// NoncePool so the order of checks in spec.md §4.5 stays explicit at the
// call site.
func (e Envelope) Validate() error {
	if e.UID == "" {
		return fmt.Errorf("admin: envelope missing uid")
	}
	if len(e.Signature) == 0 {
		return fmt.Errorf("admin: envelope missing signature")
	}
	if e.Version == "" {
		return fmt.Errorf("admin: envelope missing version")
	}
	return nil
}
