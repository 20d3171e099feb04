package session

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// decodeContent undoes the content codings named in a Content-Encoding
// header, last applied first. Replay serves bodies without a
// Content-Encoding, so a coding that is unknown or does not decode is an
// error rather than something to store as received.
func decodeContent(contentEncoding string, raw []byte) ([]byte, error) {
	if contentEncoding == "" || len(raw) == 0 {
		return raw, nil
	}
	codings := strings.Split(contentEncoding, ",")
	body := raw
	for i := len(codings) - 1; i >= 0; i-- {
		coding := strings.ToLower(strings.TrimSpace(codings[i]))
		var err error
		switch coding {
		case "", "identity":
			continue
		case "gzip", "x-gzip":
			body, err = gunzip(body)
		case "deflate":
			body, err = inflate(body)
		case "br":
			body, err = io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		case "zstd":
			body, err = unzstd(body)
		default:
			return nil, fmt.Errorf("unsupported content coding %q", coding)
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s body: %w", coding, err)
		}
	}
	return body, nil
}

// inflate accepts both zlib-wrapped and raw deflate streams; servers send
// either for "deflate".
func inflate(body []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
		defer zr.Close()
		if out, err := io.ReadAll(zr); err == nil {
			return out, nil
		}
	}
	r := flate.NewReader(bytes.NewReader(body))
	defer r.Close()
	return io.ReadAll(r)
}

func gunzip(body []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func unzstd(body []byte) ([]byte, error) {
	d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer d.Close()
	return d.DecodeAll(body, nil)
}
