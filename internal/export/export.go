// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/morales-javx/javxseek/internal/model"
	"github.com/morales-javx/javxseek/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a session in one format.
type Exporter interface {
	// Export converts a session to the target format.
	Export(sess *model.Session) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".md".
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// New returns the exporter for format. "markdown" is accepted for md.
func New(format Format, opts *Options) (Exporter, error) {
	switch Format(strings.ToLower(string(format))) {
	case FormatMarkdown, "markdown":
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want md or json)", format)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where ToFile writes. Default: current directory
	OutputDir string

	// IncludeMetadata adds the front matter and session summary.
	IncludeMetadata bool

	// IncludeSystem keeps the system prompt in the transcript.
	IncludeSystem bool

	// Now stamps the export; nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ToFile exports sess into opts.OutputDir and returns the written path. The
// file is private to the owner; it holds the whole conversation.
func ToFile(sess *model.Session, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(sess)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("javxseek_%s_%s%s",
		sanitizeFilename(sess.ID),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	path := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in file names.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "session"
	}
	return b.String()
}
