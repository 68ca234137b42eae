// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helpdoc

import (
	"bytes"
	"fmt"
	"html"
)

// RenderHTML converts markdown to an HTML fragment.
func RenderHTML(markdown string) (string, error) {
	var buffer bytes.Buffer
	if err := markdownParser().Convert([]byte(markdown), &buffer); err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}
	return buffer.String(), nil
}

// htmlPage wraps a rendered fragment in a standalone page.
func htmlPage(title, body string) string {
	return "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>" +
		html.EscapeString(title) + "</title>\n</head>\n<body>\n" + body + "</body>\n</html>\n"
}
