package replicate

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Kind тип результата генерации
type Kind int

const (
	// KindURL результат доступен по внешнему URL
	KindURL Kind = iota

	// KindBytes результат пришел байтами (data URI)
	KindBytes
)

// Result распознанный результат генерации
type Result struct {
	Kind        Kind
	URL         string
	Bytes       []byte
	ContentType string
}

// Extract разбирает сырой вывод модели в Result.
// Разные модели возвращают разные формы: строку, массив, объект с вложенными полями.
func Extract(output any) (*Result, error) {
	result := probe(output, 0)
	if result == nil {
		return nil, fmt.Errorf("no image in model output")
	}
	return result, nil
}

// Ограничение глубины обхода вложенных структур вывода
const maxProbeDepth = 4

func probe(value any, depth int) *Result {
	if depth > maxProbeDepth {
		return nil
	}

	switch v := value.(type) {
	case string:
		return fromString(v)
	case fmt.Stringer:
		return fromString(v.String())
	case []any:
		for _, item := range v {
			if result := probe(item, depth+1); result != nil {
				return result
			}
		}
	case []string:
		for _, item := range v {
			if result := fromString(item); result != nil {
				return result
			}
		}
	case map[string]any:
		for _, key := range []string{"url", "image", "output", "images"} {
			if nested, ok := v[key]; ok {
				if result := probe(nested, depth+1); result != nil {
					return result
				}
			}
		}
	}

	return nil
}

func fromString(s string) *Result {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return &Result{Kind: KindURL, URL: s}
	}
	if strings.HasPrefix(s, "data:") {
		return fromDataURI(s)
	}
	return nil
}

// fromDataURI разбирает строку вида data:image/png;base64,<payload>
func fromDataURI(s string) *Result {
	rest := strings.TrimPrefix(s, "data:")

	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil
	}

	meta := rest[:commaIdx]
	payload := rest[commaIdx+1:]

	if !strings.HasSuffix(meta, ";base64") {
		return nil
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "image/png"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}

	return &Result{Kind: KindBytes, Bytes: data, ContentType: contentType}
}
