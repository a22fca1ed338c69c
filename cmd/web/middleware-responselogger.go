package main

import (
	"fmt"
	"net/http"
)

// statusResponseWriter records the status code and body size of a response for the request log and metrics.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	bytesWritten  int
	headerWritten bool
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		bytesWritten:   0,
		headerWritten:  false,
	}
}

// WriteHeader keeps the first status code since later calls are ignored by net/http.
func (sw *statusResponseWriter) WriteHeader(statusCode int) {
	sw.ResponseWriter.WriteHeader(statusCode)
	if sw.headerWritten {
		return
	}
	sw.statusCode = statusCode
	sw.headerWritten = true
}

func (sw *statusResponseWriter) Write(b []byte) (int, error) {
	sw.headerWritten = true
	n, err := sw.ResponseWriter.Write(b)
	sw.bytesWritten += n
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

// Unwrap lets http.ResponseController reach the underlying writer, e.g. for write deadlines.
func (sw *statusResponseWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
