package dump

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
)

// Validate makes a token level pass over a whole document, which may be
// gzip compressed. No tree is built. It fails on syntax errors, a missing
// root element or content after the root element.
func Validate(r io.Reader) error {
	return validate(context.Background(), r, false)
}

// how many tokens are read between context checks
const ctxCheckInterval = 1 << 14

func validate(ctx context.Context, r io.Reader, lenient bool) error {
	plain, gz, err := decompress(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	dec := newDecoder(plain, lenient)
	depth := 0
	sawRoot := false
	for i := 0; ; i++ {
		if i%ctxCheckInterval == 0 {
			err := ctx.Err()
			if err != nil {
				return err
			}
		}

		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("invalid dump: %w", err)
		}

		switch tok := tok.(type) {
		case xml.StartElement:
			if sawRoot && depth == 0 {
				return fmt.Errorf("invalid dump: %w", errTrailingContent)
			}
			sawRoot = true
			depth++
		case xml.EndElement:
			depth--
			if depth < 0 {
				return fmt.Errorf("invalid dump: unexpected end element </%s>", tok.Name.Local)
			}
		case xml.CharData:
			if sawRoot && depth == 0 && len(bytes.TrimSpace(tok)) > 0 {
				return fmt.Errorf("invalid dump: %w", errTrailingContent)
			}
		}
	}

	if !sawRoot {
		return fmt.Errorf("invalid dump: %w", errNoRoot)
	}
	if depth != 0 {
		return fmt.Errorf("invalid dump: %d unclosed elements", depth)
	}
	return nil
}
