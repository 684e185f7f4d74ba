// Package gzippedhttp transparently compresses API responses and decompresses
// gzip-encoded request bodies.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var writerPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// compressibleContentType reports whether a response body of the given type is
// worth compressing. Audio files are already compressed and are served as is.
func compressibleContentType(contentType string) bool {
	for _, prefix := range []string{"application/json", "text/html", "text/plain"} {
		if strings.HasPrefix(contentType, prefix) {
			return true
		}
	}
	return false
}

type compressingWriter struct {
	http.ResponseWriter

	zw          *gzip.Writer
	compressing bool
	decided     bool
}

func (c *compressingWriter) decide(statusCode int) {
	c.decided = true
	if statusCode >= http.StatusMultipleChoices {
		return
	}
	if !compressibleContentType(c.Header().Get("Content-Type")) {
		return
	}

	c.zw = writerPool.Get().(*gzip.Writer)
	c.zw.Reset(c.ResponseWriter)
	c.compressing = true

	c.Header().Set("Content-Encoding", "gzip")
	c.Header().Del("Content-Length")
}

// WriteHeader decides, based on the status code and the Content-Type set by the
// handler, whether the body should be compressed.
func (c *compressingWriter) WriteHeader(statusCode int) {
	if !c.decided {
		c.decide(statusCode)
	}
	c.ResponseWriter.WriteHeader(statusCode)
}

func (c *compressingWriter) Write(p []byte) (int, error) {
	if !c.decided {
		c.decide(http.StatusOK)
	}
	if c.compressing {
		return c.zw.Write(p)
	}
	return c.ResponseWriter.Write(p)
}

func (c *compressingWriter) close() error {
	if !c.compressing {
		return nil
	}
	err := c.zw.Close()
	writerPool.Put(c.zw)
	return err
}

// GzipResponse compresses response bodies for clients that send
// "Accept-Encoding: gzip". Responses with non-compressible content types pass
// through untouched.
func GzipResponse(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		compressed := &compressingWriter{ResponseWriter: response}
		defer compressed.close()

		h.ServeHTTP(compressed, request)
	})
}

type decompressingReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func (d *decompressingReader) Read(p []byte) (int, error) {
	return d.zr.Read(p)
}

func (d *decompressingReader) Close() error {
	if err := d.zr.Close(); err != nil {
		return err
	}
	return d.body.Close()
}

// UngzipRequest replaces gzip-encoded request bodies with a decompressing
// reader before the request reaches the handlers.
func UngzipRequest(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			zr, err := gzip.NewReader(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusBadRequest)
				return
			}
			decompressed := &decompressingReader{body: request.Body, zr: zr}
			request.Body = decompressed
			defer decompressed.Close()
		}

		h.ServeHTTP(response, request)
	})
}
