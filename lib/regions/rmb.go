package regions

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"nstools/lib/nsapi"

	"go.opentelemetry.io/otel/attribute"
)

// MessagePageSize is the most posts the api returns per request.
const MessagePageSize = 100

// Messages collects up to count posts of a regional message board,
// starting offset posts back from the newest, one page per request.
func Messages(ctx context.Context, client *nsapi.Client, region string, offset, count int) ([]nsapi.Message, error) {
	ctx, span := tracer.Start(ctx, "Messages")
	defer span.End()
	span.SetAttributes(attribute.String("region", region), attribute.Int("count", count))

	var out []nsapi.Message
	for len(out) < count {
		limit := min(MessagePageSize, count-len(out))
		page, err := client.Region(region).Messages(ctx, offset+len(out), limit)
		if err != nil {
			return out, fmt.Errorf("messages of %s: %w", region, err)
		}
		out = append(out, page...)
		if len(page) < limit {
			break
		}
	}
	return out, nil
}

// WriteMessages writes posts as csv with the columns id, timestamp,
// author and text.
func WriteMessages(w io.Writer, messages []nsapi.Message, header bool) error {
	out := csv.NewWriter(w)
	if header {
		err := out.Write([]string{"id", "timestamp", "author", "text"})
		if err != nil {
			return err
		}
	}
	for _, m := range messages {
		err := out.Write([]string{
			strconv.FormatInt(m.ID, 10),
			strconv.FormatInt(m.Timestamp, 10),
			m.Nation,
			m.Text,
		})
		if err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}
