package httpclient

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func readParts(t *testing.T, data []byte, contentType string) map[string]string {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("ParseMediaType error: %v", err)
	}
	if mediaType != "multipart/form-data" {
		t.Fatalf("media type = %q, want multipart/form-data", mediaType)
	}
	mr := multipart.NewReader(bytes.NewReader(data), params["boundary"])
	parts := map[string]string{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart error: %v", err)
		}
		body, _ := io.ReadAll(part)
		parts[part.FormName()] = string(body)
	}
	return parts
}

func TestMultipartBody_Encode_FieldsOnly(t *testing.T) {
	mp := &MultipartBody{
		Fields: map[string]string{"collection": "posts", "record_id": "42"},
	}

	data, contentType, err := mp.encode()
	if err != nil {
		t.Fatalf("encode() error: %v", err)
	}
	parts := readParts(t, data, contentType)
	if parts["collection"] != "posts" || parts["record_id"] != "42" {
		t.Errorf("fields = %v, want collection=posts, record_id=42", parts)
	}
}

func TestMultipartBody_Encode_FieldOrderStable(t *testing.T) {
	mp := &MultipartBody{Fields: map[string]string{"b": "2", "a": "1", "c": "3"}}
	data, _, err := mp.encode()
	if err != nil {
		t.Fatalf("encode() error: %v", err)
	}
	ia, ib, ic := bytes.Index(data, []byte(`name="a"`)), bytes.Index(data, []byte(`name="b"`)), bytes.Index(data, []byte(`name="c"`))
	if !(ia < ib && ib < ic) {
		t.Errorf("expected fields in key order, got offsets a=%d b=%d c=%d", ia, ib, ic)
	}
}

func TestMultipartBody_Encode_WithFile(t *testing.T) {
	mp := &MultipartBody{
		Fields: map[string]string{"collection": "avatars"},
		Files: []FileField{
			{FieldName: "file", FileName: "me.png", ContentType: "image/png", Data: []byte("png bytes")},
		},
	}

	data, contentType, err := mp.encode()
	if err != nil {
		t.Fatalf("encode() error: %v", err)
	}
	if !bytes.Contains(data, []byte("Content-Type: image/png")) {
		t.Error("expected part content type image/png")
	}
	if !bytes.Contains(data, []byte(`filename="me.png"`)) {
		t.Error("expected file name in part header")
	}
	parts := readParts(t, data, contentType)
	if parts["file"] != "png bytes" || parts["collection"] != "avatars" {
		t.Errorf("unexpected parts: %v", parts)
	}
}

func TestMultipartBody_Encode_WithReader(t *testing.T) {
	mp := &MultipartBody{
		Files: []FileField{
			{FieldName: "file", FileName: "notes.txt", Reader: bytes.NewReader([]byte("streamed content"))},
		},
	}

	data, contentType, err := mp.encode()
	if err != nil {
		t.Fatalf("encode() error: %v", err)
	}
	if got := readParts(t, data, contentType)["file"]; got != "streamed content" {
		t.Errorf("file content = %q, want streamed content", got)
	}
}

func TestEscapeQuotes(t *testing.T) {
	if got := escapeQuotes(`a"b\c`); got != `a\"b\\c` {
		t.Errorf("escapeQuotes = %q", got)
	}
}

func TestClient_MultipartUploadSurvivesRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm error: %v", err)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile error: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "report.pdf" || string(data) != "pdf bytes" {
			t.Errorf("unexpected upload %q = %q", header.Filename, data)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(503)
			return
		}
		w.WriteHeader(201)
		w.Write([]byte(`{"path":"files/report.pdf"}`))
	}))
	defer srv.Close()

	c, fs := newTestClient(t, srv, nil)
	resp, err := c.Post(t.Context(), "/api/v1/files/upload", &MultipartBody{
		Fields: map[string]string{"collection": "documents"},
		Files: []FileField{
			{FieldName: "file", FileName: "report.pdf", Reader: bytes.NewReader([]byte("pdf bytes"))},
		},
	})
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Errorf("StatusCode = %d, want 201", resp.StatusCode)
	}
	if calls.Load() != 2 || len(fs.recorded()) != 1 {
		t.Errorf("expected one retry, got %d calls and waits %v", calls.Load(), fs.recorded())
	}
}
