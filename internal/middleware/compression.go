package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // smallest body worth compressing, in bytes
	CompressionLevel int      // gzip level 1-9
	ContentTypes     []string // prefixes of compressible content types
}

// DefaultCompressionConfig compresses bodies of at least 1KB whose content type is JSON, YAML or text
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"application/yaml",
			"text/plain",
		},
	}
}

// CompressionMiddleware gzips large JSON responses. Bodies are buffered so
// the size threshold can be applied; posterior density and curve payloads
// are the main beneficiaries.
type CompressionMiddleware struct {
	config CompressionConfig
	pool   sync.Pool

	totalResponses      int64
	compressedResponses int64
	originalBytes       int64
	compressedBytes     int64
}

// NewCompressionMiddleware creates a gzip middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	cm := &CompressionMiddleware{config: config}
	cm.pool.New = func() interface{} {
		gz, err := gzip.NewWriterLevel(io.Discard, config.CompressionLevel)
		if err != nil {
			gz = gzip.NewWriter(io.Discard)
		}
		return gz
	}
	return cm
}

// Handler buffers the response and gzips it when the client accepts it
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !clientAcceptsGzip(c.Request) {
			c.Next()
			return
		}

		bw := &bufferedWriter{ResponseWriter: c.Writer}
		c.Writer = bw
		c.Next()
		c.Writer = bw.ResponseWriter

		atomic.AddInt64(&cm.totalResponses, 1)
		body := bw.buf.Bytes()
		if bw.ResponseWriter.Written() || len(body) < cm.config.MinSize ||
			!cm.shouldCompress(bw.Header().Get("Content-Type")) {
			_, _ = bw.ResponseWriter.Write(body)
			return
		}

		var out bytes.Buffer
		gz := cm.pool.Get().(*gzip.Writer)
		gz.Reset(&out)
		_, err := gz.Write(body)
		if err == nil {
			err = gz.Close()
		}
		cm.pool.Put(gz)
		if err != nil {
			_, _ = bw.ResponseWriter.Write(body)
			return
		}

		atomic.AddInt64(&cm.compressedResponses, 1)
		atomic.AddInt64(&cm.originalBytes, int64(len(body)))
		atomic.AddInt64(&cm.compressedBytes, int64(out.Len()))

		h := bw.Header()
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		h.Set("Content-Length", strconv.Itoa(out.Len()))
		_, _ = bw.ResponseWriter.Write(out.Bytes())
	}
}

func clientAcceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

func (cm *CompressionMiddleware) shouldCompress(contentType string) bool {
	for _, t := range cm.config.ContentTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

// GetStats returns compression statistics
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	total := atomic.LoadInt64(&cm.totalResponses)
	compressed := atomic.LoadInt64(&cm.compressedResponses)
	orig := atomic.LoadInt64(&cm.originalBytes)
	comp := atomic.LoadInt64(&cm.compressedBytes)

	ratio := 0.0
	if orig > 0 {
		ratio = float64(comp) / float64(orig)
	}
	return map[string]interface{}{
		"total_responses":      total,
		"compressed_responses": compressed,
		"original_bytes":       orig,
		"compressed_bytes":     comp,
		"compression_ratio":    ratio,
	}
}

// bufferedWriter holds the body until the handler chain finishes.
type bufferedWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bufferedWriter) Write(data []byte) (int, error) {
	return w.buf.Write(data)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

func (w *bufferedWriter) Written() bool {
	return w.buf.Len() > 0 || w.ResponseWriter.Written()
}

func (w *bufferedWriter) Size() int {
	if w.ResponseWriter.Written() {
		return w.ResponseWriter.Size()
	}
	return w.buf.Len()
}
