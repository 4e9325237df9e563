package sse

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultBufferSize is the chunk size used when relaying an upstream stream.
const DefaultBufferSize = 32 << 10

// SetHeaders 设置 SSE 响应头
func SetHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// Relay writes src to the client unchanged, flushing after every chunk.
// src is only read again once the previous chunk has been written, so a slow
// client slows down the upstream read. It returns the number of bytes written.
// A read error is returned as-is; io.EOF is not an error.
func Relay(c *gin.Context, src io.Reader, bufSize int) (int64, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	SetHeaders(c)
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	buf := make([]byte, bufSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := c.Writer.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, werr
			}
			if w != n {
				return written, io.ErrShortWrite
			}
			c.Writer.Flush()
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, rerr
		}
	}
}
