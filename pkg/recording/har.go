package recording

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/getmockd/cassette/pkg/header"
	"github.com/google/uuid"
)

// The recording file is an HTTP Archive (HAR 1.2) document so it stays
// inspectable with existing tooling and editable by hand.

// HARVersion is the HAR spec version written to recording files.
const HARVersion = "1.2"

// CreatorName identifies this tool in the HAR creator block.
const CreatorName = "cassette"

// HAR represents an HTTP Archive file.
type HAR struct {
	Log HARLog `json:"log"`
}

// HARLog contains the HAR log data.
type HARLog struct {
	Version       string     `json:"version"`
	Creator       HARCreator `json:"creator"`
	RecordingName string     `json:"_recordingName,omitempty"`
	Entries       []HAREntry `json:"entries"`
}

// HARCreator contains tool information.
type HARCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HAREntry represents a single request/response pair.
type HAREntry struct {
	ID              string      `json:"_id"`
	Order           int         `json:"_order"`
	StartedDateTime string      `json:"startedDateTime"`
	Time            float64     `json:"time"`
	Request         HARRequest  `json:"request"`
	Response        HARResponse `json:"response"`
	Timings         HARTimings  `json:"timings"`
}

// HARRequest represents an HTTP request.
type HARRequest struct {
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	HTTPVersion string         `json:"httpVersion"`
	Headers     []header.Field `json:"headers"`
	QueryString []header.Field `json:"queryString"`
	PostData    *HARPostData   `json:"postData,omitempty"`
	Cookies     []header.Field `json:"cookies"`
	HeadersSize int            `json:"headersSize"`
	BodySize    int            `json:"bodySize"`
}

// HARPostData represents a request body. The encoding field is an
// extension; HAR 1.2 only defines it on response content.
type HARPostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"encoding"`
}

// HARResponse represents an HTTP response.
type HARResponse struct {
	Status      int            `json:"status"`
	StatusText  string         `json:"statusText"`
	HTTPVersion string         `json:"httpVersion"`
	Headers     []header.Field `json:"headers"`
	Content     HARContent     `json:"content"`
	Cookies     []header.Field `json:"cookies"`
	RedirectURL string         `json:"redirectURL"`
	HeadersSize int            `json:"headersSize"`
	BodySize    int            `json:"bodySize"`
}

// HARContent represents response content.
type HARContent struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"encoding"`
}

// HARTimings represents timing information.
type HARTimings struct {
	Blocked float64 `json:"blocked"`
	DNS     float64 `json:"dns"`
	Connect float64 `json:"connect"`
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
	SSL     float64 `json:"ssl"`
}

// Marshal encodes a recording as an indented HAR document.
func Marshal(rec *Recording) ([]byte, error) {
	doc := HAR{Log: HARLog{
		Version:       HARVersion,
		Creator:       HARCreator{Name: CreatorName, Version: FormatVersion},
		RecordingName: rec.Name,
		Entries:       make([]HAREntry, 0, len(rec.Interactions)),
	}}

	for i, ix := range rec.Interactions {
		entry, err := toHAREntry(ix, i)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		doc.Log.Entries = append(doc.Log.Entries, entry)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	// Bodies are stored verbatim, without \u003c style escaping.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a HAR document. The document is checked against the
// recording schema first; path is used only for error messages.
func Unmarshal(data []byte, path string) (*Recording, error) {
	if err := validateSchema(data); err != nil {
		return nil, &CorruptRecordingError{Path: path, Entry: -1, Err: err}
	}

	var doc HAR
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptRecordingError{Path: path, Entry: -1, Err: err}
	}

	rec := &Recording{
		Name:         doc.Log.RecordingName,
		Interactions: make([]*Interaction, 0, len(doc.Log.Entries)),
	}
	for i, entry := range doc.Log.Entries {
		ix, err := fromHAREntry(entry)
		if err != nil {
			return nil, &CorruptRecordingError{Path: path, Entry: i, Reason: err.Error()}
		}
		ix.Order = i
		rec.Interactions = append(rec.Interactions, ix)
	}
	return rec, nil
}

func toHAREntry(ix *Interaction, order int) (HAREntry, error) {
	reqBody, err := ix.Request.Body.Bytes()
	if err != nil {
		return HAREntry{}, fmt.Errorf("request body: %w", err)
	}
	respBody, err := ix.Response.Body.Bytes()
	if err != nil {
		return HAREntry{}, fmt.Errorf("response body: %w", err)
	}
	if !textSafe(ix.Request.Body) || !textSafe(ix.Response.Body) {
		return HAREntry{}, fmt.Errorf("identity body is not valid UTF-8; base64-encode it before persisting")
	}

	entry := HAREntry{
		ID:              ix.ID,
		Order:           order,
		StartedDateTime: ix.StartedAt.UTC().Format(time.RFC3339Nano),
		Time:            durationMillis(ix.Duration),
		Request: HARRequest{
			Method:      ix.Request.Method,
			URL:         ix.Request.URL,
			HTTPVersion: protoOrDefault(ix.Request.HTTPVersion),
			Headers:     fieldsOrEmpty(ix.Request.Header),
			QueryString: queryFields(ix.Request.URL),
			Cookies:     []header.Field{},
			HeadersSize: -1,
			BodySize:    len(reqBody),
		},
		Response: HARResponse{
			Status:      ix.Response.Status,
			StatusText:  ix.Response.StatusText,
			HTTPVersion: protoOrDefault(ix.Response.HTTPVersion),
			Headers:     fieldsOrEmpty(ix.Response.Header),
			Content: HARContent{
				Size:     len(respBody),
				MimeType: ix.Response.Body.MimeType,
				Text:     ix.Response.Body.Text,
				Encoding: string(encodingOrIdentity(ix.Response.Body.Encoding)),
			},
			Cookies:     []header.Field{},
			RedirectURL: ix.Response.Header.Get("Location"),
			HeadersSize: -1,
			BodySize:    len(respBody),
		},
		Timings: HARTimings{Blocked: -1, DNS: -1, Connect: -1, SSL: -1, Wait: durationMillis(ix.Duration)},
	}

	if !ix.Request.Body.Empty() {
		entry.Request.PostData = &HARPostData{
			MimeType: ix.Request.Body.MimeType,
			Text:     ix.Request.Body.Text,
			Encoding: string(encodingOrIdentity(ix.Request.Body.Encoding)),
		}
	}
	return entry, nil
}

func fromHAREntry(e HAREntry) (*Interaction, error) {
	if e.Request.Method == "" {
		return nil, fmt.Errorf("request.method is required")
	}
	if e.Request.URL == "" {
		return nil, fmt.Errorf("request.url is required")
	}
	if e.Response.Status == 0 {
		return nil, fmt.Errorf("response.status is required")
	}

	id := e.ID
	if id == "" {
		// Hand-edited entries may omit _id; matching and overwrite key on it.
		id = uuid.NewString()
	}

	ix := &Interaction{
		ID:       id,
		Duration: time.Duration(e.Time * float64(time.Millisecond)),
		Request: Request{
			Method:      e.Request.Method,
			URL:         e.Request.URL,
			HTTPVersion: e.Request.HTTPVersion,
			Header:      header.Header(e.Request.Headers),
		},
		Response: Response{
			Status:      e.Response.Status,
			StatusText:  e.Response.StatusText,
			HTTPVersion: e.Response.HTTPVersion,
			Header:      header.Header(e.Response.Headers),
			Body: Body{
				Text:     e.Response.Content.Text,
				Encoding: encodingOrIdentity(Encoding(e.Response.Content.Encoding)),
				MimeType: e.Response.Content.MimeType,
			},
		},
	}
	if e.StartedDateTime != "" {
		t, err := time.Parse(time.RFC3339Nano, e.StartedDateTime)
		if err != nil {
			return nil, fmt.Errorf("startedDateTime: %w", err)
		}
		ix.StartedAt = t
	}
	if e.Request.PostData != nil {
		ix.Request.Body = Body{
			Text:     e.Request.PostData.Text,
			Encoding: encodingOrIdentity(Encoding(e.Request.PostData.Encoding)),
			MimeType: e.Request.PostData.MimeType,
		}
	} else {
		ix.Request.Body = Body{Encoding: EncodingIdentity}
	}

	// Catch a bad base64 payload at load time rather than mid-replay.
	if _, err := ix.Request.Body.Bytes(); err != nil {
		return nil, fmt.Errorf("request body: %w", err)
	}
	if _, err := ix.Response.Body.Bytes(); err != nil {
		return nil, fmt.Errorf("response body: %w", err)
	}
	return ix, nil
}

// textSafe reports whether JSON encoding keeps the body byte-exact.
func textSafe(b Body) bool {
	return b.IsBase64() || utf8.ValidString(b.Text)
}

func encodingOrIdentity(e Encoding) Encoding {
	if e == "" {
		return EncodingIdentity
	}
	return e
}

func fieldsOrEmpty(h header.Header) []header.Field {
	if h == nil {
		return []header.Field{}
	}
	return h
}

func queryFields(rawURL string) []header.Field {
	fields := []header.Field{}
	u, err := url.Parse(rawURL)
	if err != nil || u.RawQuery == "" {
		return fields
	}
	q, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return fields
	}
	for _, name := range sortedKeys(q) {
		for _, v := range q[name] {
			fields = append(fields, header.Field{Name: name, Value: v})
		}
	}
	return fields
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
