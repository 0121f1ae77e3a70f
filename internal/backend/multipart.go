// Copyright (c) 2025 Hyperbase
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Multipart is a file upload body with a "file" part and an optional
// "file_name" part.
type Multipart struct {
	// FileName is the filename attribute of the file part.
	FileName string
	// ContentType of the file part; defaults to application/octet-stream.
	ContentType string
	Content     io.Reader
	// Name is sent as the file_name part when non-empty.
	Name string
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// encode streams the form through a pipe so large files are never buffered.
func (m *Multipart) encode() (io.Reader, string, error) {
	if m.Content == nil {
		return nil, "", fmt.Errorf("multipart upload without content")
	}
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(m.write(mw))
	}()
	return pr, mw.FormDataContentType(), nil
}

func (m *Multipart) write(mw *multipart.Writer) error {
	contentType := m.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(m.FileName)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, m.Content); err != nil {
		return fmt.Errorf("copy upload content: %w", err)
	}
	if m.Name != "" {
		if err := mw.WriteField("file_name", m.Name); err != nil {
			return err
		}
	}
	return mw.Close()
}
