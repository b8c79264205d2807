package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"

	"github.com/okian/lifespan/internal/domain/intake"
)

const maxBodyBytes = 1 << 20

// readFields decodes a JSON object, a urlencoded form or the value parts of
// a multipart form into flat string fields. An empty body yields no fields.
func readFields(w http.ResponseWriter, r *http.Request) (intake.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		return r.PostForm, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, bodyError(err)
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()
		return r.PostForm, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, bodyError(err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return intake.Fields{}, nil
	}
	return intake.FromJSON(data)
}

func bodyError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return ErrBodyTooBig
	}
	return fmt.Errorf("%w: %v", intake.ErrMalformed, err)
}

func field(v intake.Values, key string) string {
	return strings.TrimSpace(v.Get(key))
}

// require returns the trimmed value of key, or a missing field error.
func require(v intake.Values, key string) (string, error) {
	s := field(v, key)
	if s == "" {
		return "", &intake.FieldError{Field: key, Err: intake.ErrMissing}
	}
	return s, nil
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// clientAddr identifies the caller for rate limiting. Unless a proxy is
// trusted, only the peer host counts. A trusted proxy appends the address
// it saw, so the last X-Forwarded-For entry is used and earlier ones are
// caller supplied.
func clientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Values("X-Forwarded-For"); len(fwd) > 0 {
			entries := strings.Split(fwd[len(fwd)-1], ",")
			if last := strings.TrimSpace(entries[len(entries)-1]); last != "" {
				return last
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
