package pipeline

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Manifest describes the analyzed batch: the path of the source object
// (whose base name encodes the page range) and optional per-document
// metadata.
type Manifest struct {
	S3Path   string     `json:"s3Path"`
	MetaData []MetaData `json:"metaData,omitempty"`
}

// MetaData is one key/value pair attached to a manifest
type MetaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MetaDataMap flattens the manifest metadata into a lookup map
func (m *Manifest) MetaDataMap() map[string]string {
	out := make(map[string]string, len(m.MetaData))
	for _, md := range m.MetaData {
		out[md.Key] = md.Value
	}
	return out
}

// Payload is the nested event envelope used by workflow invocations
type Payload struct {
	Manifest *Manifest `json:"manifest,omitempty"`
}

// AnalyzerResult points at the stored analyzed-document JSON. The field
// names match the upstream workflow's wire format.
type AnalyzerResult struct {
	OutputJSONPath string `json:"TextractOutputJsonPath"`
}

// Event is the invocation payload for the manifest pipeline. The manifest
// may be nested under Payload, top-level, or the event itself may be the
// manifest.
type Event struct {
	Payload        *Payload        `json:"Payload,omitempty"`
	Manifest       *Manifest       `json:"manifest,omitempty"`
	OriginFileURI  string          `json:"originFileURI"`
	AnalyzerResult *AnalyzerResult `json:"textract_result,omitempty"`

	// Inline manifest fields for events that are themselves a manifest
	S3Path   string     `json:"s3Path,omitempty"`
	MetaData []MetaData `json:"metaData,omitempty"`
}

// ResolveManifest finds the manifest wherever the invocation carries it
func (e *Event) ResolveManifest() (*Manifest, error) {
	if e.Payload != nil && e.Payload.Manifest != nil {
		return e.Payload.Manifest, nil
	}
	if e.Manifest != nil {
		return e.Manifest, nil
	}
	if e.S3Path != "" {
		return &Manifest{S3Path: e.S3Path, MetaData: e.MetaData}, nil
	}
	return nil, fmt.Errorf("event carries no manifest")
}

// originFileName derives the origin document's base name, extension
// stripped, from its URI
func originFileName(originFileURI string) (string, error) {
	u, err := url.Parse(originFileURI)
	if err != nil {
		return "", fmt.Errorf("parsing origin file uri: %w", err)
	}
	base := path.Base(u.Path)
	return strings.TrimSuffix(base, path.Ext(base)), nil
}
