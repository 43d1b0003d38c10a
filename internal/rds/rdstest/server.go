// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rdstest provides an in-process fake of the RDS Query API endpoints
// used to read log files, for tests that exercise the real SDK client.
package rdstest

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// TruncationNotice is appended to a portion that exceeded MaxPortionBytes.
const TruncationNotice = " [Your log message was truncated]"

// LogFile is a log file served by the fake.
type LogFile struct {
	Name        string
	Content     string
	LastWritten time.Time
}

// Request records one API call received by the fake.
type Request struct {
	Action   string
	Instance string
	File     string
	Marker   string
	Lines    int
	Filter   string
}

// Server is a fake RDS endpoint. Markers are line offsets.
type Server struct {
	*httptest.Server

	// PageSize caps the number of files per listing page. Zero means 100.
	PageSize int

	// MaxPortionBytes truncates any portion whose data is larger, the way
	// RDS does once a response exceeds its size limit. Zero disables it.
	MaxPortionBytes int

	mu        sync.Mutex
	instances map[string][]LogFile
	requests  []Request
	failCode  string
	failCount int
}

// NewServer starts a fake and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{instances: map[string][]LogFile{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// AddInstance registers a DB instance and its log files, in listing order.
func (s *Server) AddInstance(id string, files ...LogFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[id] = append(s.instances[id], files...)
}

// FailNext makes the next n requests fail with the given error code.
func (s *Server) FailNext(code string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCode = code
	s.failCount = n
}

// Requests returns the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// PortionRequests returns only the DownloadDBLogFilePortion calls.
func (s *Server) PortionRequests() []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Action == "DownloadDBLogFilePortion" {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "MalformedQueryString", err.Error())
		return
	}

	req := Request{
		Action:   r.Form.Get("Action"),
		Instance: r.Form.Get("DBInstanceIdentifier"),
		File:     r.Form.Get("LogFileName"),
		Marker:   r.Form.Get("Marker"),
		Filter:   r.Form.Get("FilenameContains"),
	}
	req.Lines, _ = strconv.Atoi(r.Form.Get("NumberOfLines"))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	if s.failCount > 0 {
		s.failCount--
		writeError(w, statusFor(s.failCode), s.failCode, "injected failure")
		return
	}

	files, ok := s.instances[req.Instance]
	if !ok {
		writeError(w, http.StatusNotFound, "DBInstanceNotFound",
			fmt.Sprintf("DBInstance %s not found.", req.Instance))
		return
	}

	switch req.Action {
	case "DescribeDBLogFiles":
		s.describe(w, req, files)
	case "DownloadDBLogFilePortion":
		s.download(w, req, files)
	default:
		writeError(w, http.StatusBadRequest, "InvalidAction", "unsupported action "+req.Action)
	}
}

func (s *Server) describe(w http.ResponseWriter, req Request, files []LogFile) {
	var matched []LogFile
	for _, f := range files {
		if req.Filter == "" || strings.Contains(f.Name, req.Filter) {
			matched = append(matched, f)
		}
	}

	start, _ := strconv.Atoi(req.Marker)
	size := s.PageSize
	if size <= 0 {
		size = 100
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	if start > end {
		start = end
	}

	resp := describeResponse{}
	for _, f := range matched[start:end] {
		resp.Result.Files = append(resp.Result.Files, fileDetails{
			Name:        f.Name,
			Size:        int64(len(f.Content)),
			LastWritten: f.LastWritten.UnixMilli(),
		})
	}
	if end < len(matched) {
		resp.Result.Marker = strconv.Itoa(end)
	}
	resp.Metadata.RequestID = "describe"

	writeXML(w, resp)
}

func (s *Server) download(w http.ResponseWriter, req Request, files []LogFile) {
	var file *LogFile
	for i := range files {
		if files[i].Name == req.File {
			file = &files[i]
			break
		}
	}
	if file == nil {
		writeError(w, http.StatusNotFound, "DBLogFileNotFoundFault",
			fmt.Sprintf("DBLog File: %s, is not found on the DB instance", req.File))
		return
	}

	lines := strings.SplitAfter(file.Content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	offset, err := strconv.Atoi(req.Marker)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "InvalidParameterValue", "bad marker "+req.Marker)
		return
	}
	if offset > len(lines) {
		offset = len(lines)
	}
	n := req.Lines
	if n <= 0 {
		n = 10000
	}
	end := offset + n
	if end > len(lines) {
		end = len(lines)
	}

	resp := portionResponse{}
	chunk := lines[offset:end]
	data := strings.Join(chunk, "")

	if s.MaxPortionBytes > 0 && len(data) > s.MaxPortionBytes {
		var kept strings.Builder
		for _, l := range chunk {
			if kept.Len()+len(l) > s.MaxPortionBytes {
				break
			}
			kept.WriteString(l)
		}
		resp.Result.Data = kept.String() + TruncationNotice
		resp.Result.Marker = strconv.Itoa(end)
		resp.Result.Pending = true
	} else {
		resp.Result.Data = data
		resp.Result.Marker = strconv.Itoa(end)
		resp.Result.Pending = end < len(lines)
	}
	resp.Metadata.RequestID = "download"

	writeXML(w, resp)
}

type responseMetadata struct {
	RequestID string `xml:"RequestId"`
}

type fileDetails struct {
	Name        string `xml:"LogFileName"`
	Size        int64  `xml:"Size"`
	LastWritten int64  `xml:"LastWritten"`
}

type describeResponse struct {
	XMLName xml.Name `xml:"DescribeDBLogFilesResponse"`
	Result  struct {
		Files  []fileDetails `xml:"DescribeDBLogFiles>DescribeDBLogFilesDetails"`
		Marker string        `xml:"Marker,omitempty"`
	} `xml:"DescribeDBLogFilesResult"`
	Metadata responseMetadata `xml:"ResponseMetadata"`
}

type portionResponse struct {
	XMLName xml.Name `xml:"DownloadDBLogFilePortionResponse"`
	Result  struct {
		Data    string `xml:"LogFileData"`
		Marker  string `xml:"Marker"`
		Pending bool   `xml:"AdditionalDataPending"`
	} `xml:"DownloadDBLogFilePortionResult"`
	Metadata responseMetadata `xml:"ResponseMetadata"`
}

type errorResponse struct {
	XMLName xml.Name `xml:"ErrorResponse"`
	Error   struct {
		Type    string `xml:"Type"`
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
	RequestID string `xml:"RequestId"`
}

func statusFor(code string) int {
	switch code {
	case "AccessDenied", "InvalidClientTokenId", "SignatureDoesNotMatch":
		return http.StatusForbidden
	case "DBInstanceNotFound", "DBLogFileNotFoundFault":
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	resp := errorResponse{RequestID: "error"}
	resp.Error.Type = "Sender"
	resp.Error.Code = code
	resp.Error.Message = msg

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	_ = xml.NewEncoder(w).Encode(resp)
}

func writeXML(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "text/xml")
	_ = xml.NewEncoder(w).Encode(v)
}

// StaticCredentials points the SDK at throwaway credentials and an empty
// shared config so tests never pick up the developer's AWS setup.
func StaticCredentials(t testing.TB) {
	t.Helper()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("failed to write empty AWS config: %v", err)
	}

	t.Setenv("AWS_CONFIG_FILE", empty)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", empty)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDTEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_SESSION_TOKEN", "")
	t.Setenv("AWS_PROFILE", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
}
