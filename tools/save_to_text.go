package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

type SaveToTextInput struct {
	Filename string `json:"filename" jsonschema_description:"a name of the file you will save the research results"`
	Content  string `json:"content" jsonschema_description:"The content you will save to a file."`
}

// Download is a file offered to the user. It lives in memory until the user saves it.
type Download struct {
	Filename string
	Content  string
	MIME     string
}

// Offerer presents a download to the user.
type Offerer interface {
	OfferDownload(d Download)
}

type discardOfferer struct{}

func (discardOfferer) OfferDownload(Download) {}

// NewSaveToText returns the save_to_text tool. Content is never written to disk here.
func NewSaveToText(offerer Offerer) ToolDefinition {
	if offerer == nil {
		offerer = discardOfferer{}
	}
	return ToolDefinition{
		Name:        "save_to_text",
		Description: "Use this tool to save the content as a .txt file and download it.",
		InputSchema: GenerateSchema[SaveToTextInput](),
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			var in SaveToTextInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			name := NormalizeFilename(in.Filename)
			if name == "" {
				return "", errors.New("filename is required")
			}
			offerer.OfferDownload(Download{Filename: name, Content: in.Content, MIME: "text/plain"})
			return fmt.Sprintf("Content has been prepared for download as %s", name), nil
		},
	}
}

// NormalizeFilename keeps the base name and appends .txt when it is missing.
func NormalizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = filepath.Base(filepath.ToSlash(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	if !strings.HasSuffix(name, ".txt") {
		name += ".txt"
	}
	return name
}
