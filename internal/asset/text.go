package asset

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// DecodeText converts data from charset to UTF-8. An empty charset or any
// spelling of UTF-8 returns data unchanged.
func DecodeText(data []byte, charset string) ([]byte, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
		return data, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", charset, err)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s text: %w", charset, err)
	}
	return out, nil
}
