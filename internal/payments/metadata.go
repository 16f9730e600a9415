package payments

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Metadata keys written when the checkout session is created. Values over
// the provider's per-key limit are split into <key>_0, <key>_1, ...
const (
	keyTemplateID     = "templateId"
	keyEmail          = "email"
	keyResumeData     = "encodedResumeData"
	keyJobDescription = "encodedJobDescription"
	keyFileName       = "fileName"

	maxChunks = 100
)

const metadataSchema = `{
  "type": "object",
  "required": ["templateId", "email", "encodedResumeData", "encodedJobDescription"],
  "properties": {
    "templateId": {"type": "string", "minLength": 1, "maxLength": 64},
    "email": {"type": "string", "format": "email"},
    "encodedResumeData": {"type": "string", "minLength": 1},
    "encodedJobDescription": {"type": "string", "minLength": 1},
    "fileName": {"type": "string", "maxLength": 255}
  }
}`

var metadataLoader = gojsonschema.NewStringLoader(metadataSchema)

// DecodeMetadata validates checkout metadata and decodes the base64 resume
// and job description.
func DecodeMetadata(meta map[string]string) (Order, error) {
	doc := map[string]any{}
	for _, key := range []string{keyTemplateID, keyEmail, keyFileName} {
		if v, ok := meta[key]; ok {
			doc[key] = strings.TrimSpace(v)
		}
	}
	for _, key := range []string{keyResumeData, keyJobDescription} {
		if v, ok := joinChunks(meta, key); ok {
			doc[key] = v
		}
	}

	res, err := gojsonschema.Validate(metadataLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return Order{}, fmt.Errorf("%w: %s", ErrInvalidMetadata, strings.Join(msgs, "; "))
	}

	resume, err := decodeText(doc[keyResumeData].(string))
	if err != nil {
		return Order{}, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, keyResumeData, err)
	}
	jd, err := decodeText(doc[keyJobDescription].(string))
	if err != nil {
		return Order{}, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, keyJobDescription, err)
	}

	order := Order{
		Email:          strings.ToLower(doc[keyEmail].(string)),
		TemplateID:     doc[keyTemplateID].(string),
		ResumeContent:  resume,
		JobDescription: jd,
	}
	if name, ok := doc[keyFileName].(string); ok {
		order.FileName = name
	}
	return order, nil
}

func joinChunks(meta map[string]string, key string) (string, bool) {
	if v, ok := meta[key]; ok {
		return strings.TrimSpace(v), true
	}
	var b strings.Builder
	found := false
	for i := 0; i < maxChunks; i++ {
		v, ok := meta[key+"_"+strconv.Itoa(i)]
		if !ok {
			break
		}
		found = true
		b.WriteString(strings.TrimSpace(v))
	}
	return b.String(), found
}

func decodeText(s string) (string, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if raw, err := enc.DecodeString(s); err == nil {
			if len(strings.TrimSpace(string(raw))) == 0 {
				return "", fmt.Errorf("decoded value is empty")
			}
			return string(raw), nil
		}
	}
	return "", fmt.Errorf("not base64")
}

// EncodeMetadata is the inverse of DecodeMetadata, splitting long values
// into chunks of at most chunkSize bytes.
func EncodeMetadata(order Order, chunkSize int) map[string]string {
	meta := map[string]string{
		keyTemplateID: order.TemplateID,
		keyEmail:      order.Email,
	}
	if order.FileName != "" {
		meta[keyFileName] = order.FileName
	}
	putChunks(meta, keyResumeData, base64.StdEncoding.EncodeToString([]byte(order.ResumeContent)), chunkSize)
	putChunks(meta, keyJobDescription, base64.StdEncoding.EncodeToString([]byte(order.JobDescription)), chunkSize)
	return meta
}

func putChunks(meta map[string]string, key, value string, size int) {
	if size <= 0 || len(value) <= size {
		meta[key] = value
		return
	}
	for i := 0; len(value) > 0; i++ {
		n := size
		if n > len(value) {
			n = len(value)
		}
		meta[key+"_"+strconv.Itoa(i)] = value[:n]
		value = value[n:]
	}
}
