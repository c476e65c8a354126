package transfer

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/docker/go-units"
)

// ErrResponseTooLarge marks a response body over the configured result limit.
var ErrResponseTooLarge = errors.New("response too large")

// readBody drains at most limit bytes of resp. A limit of zero or less reads
// the whole body. Exceeding the limit is a service failure for op; a broken
// read is a transport failure.
func readBody(op string, resp *http.Response, limit int64) ([]byte, error) {
	var src io.Reader = resp.Body
	if limit > 0 {
		src = io.LimitReader(resp.Body, limit+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, transportError(op, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		over := fmt.Errorf("%w: body exceeds %s", ErrResponseTooLarge, units.HumanSize(float64(limit)))
		return nil, serviceError(op, resp.StatusCode, "response too large", over)
	}
	return data, nil
}
