package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"village-portal/pkg/apierror"
)

const multipartMemory = 8 << 20

type uploadLimits struct {
	maxBytes int64
}

// parseMultipart caps the body at maxBytes and parses it. Callers must call
// cleanup once the request is handled.
func (l uploadLimits) parseMultipart(w http.ResponseWriter, r *http.Request) (cleanup func(), err error) {
	r.Body = http.MaxBytesReader(w, r.Body, l.maxBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return func() {}, apierror.PayloadTooLarge(l.maxBytes)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return func() {}, apierror.UnsupportedMediaType("expected multipart/form-data", "")
		}
		return func() {}, apierror.BadRequest("invalid multipart form", err.Error())
	}

	return func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}, nil
}

// optionalFile returns the named upload, or a nil reader when the field was
// not sent.
func optionalFile(r *http.Request, field string) (io.ReadCloser, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apierror.BadRequest("invalid "+field+" upload", err.Error())
	}
	if header.Size == 0 {
		_ = file.Close()
		return nil, apierror.BadRequest(field+" is empty", field)
	}
	return file, nil
}

// formValue reports the trimmed value of field and whether it was sent.
func formValue(form *multipart.Form, field string) (string, bool) {
	if form == nil {
		return "", false
	}
	values, ok := form.Value[field]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

// asReader keeps a nil upload a nil interface.
func asReader(rc io.ReadCloser) io.Reader {
	if rc == nil {
		return nil
	}
	return rc
}
