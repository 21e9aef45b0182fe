package s3

import (
	"fmt"
	"io"
)

var ErrReachLimitType *ReachLimitError

type ReachLimitError struct {
	MaxBytes int64
}

func (e *ReachLimitError) Error() string {
	return fmt.Sprintf("reach limit of %s", FormatBytes(e.MaxBytes))
}

// NewMaxSizeReader wraps r so that at most maxSize bytes can be read
// from it; the read that crosses the limit returns a ReachLimitError.
func NewMaxSizeReader(r io.Reader, maxSize int64) io.Reader {
	return &maxSizeReader{r, maxSize, maxSize}
}

type maxSizeReader struct {
	reader io.Reader
	i      int64 // configured limit
	n      int64 // bytes still allowed
}

func (r *maxSizeReader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	// Reading one byte past the remaining budget is enough to tell
	// whether the source exceeds the limit, so never request more.
	if int64(len(p)) > r.n+1 {
		p = p[:r.n+1]
	}
	n, err = r.reader.Read(p)

	// Within budget: pass the data through untouched.
	if int64(n) <= r.n {
		r.n -= int64(n)
		return n, err
	}

	// The extra byte arrived, the source is over the limit.
	n = int(r.n)
	r.n = 0
	return n, &ReachLimitError{r.i}
}
